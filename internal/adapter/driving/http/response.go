package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/quizforge/internal/application"
	"github.com/ericfisherdev/quizforge/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// QuizResponse is the JSON representation of a quiz.
type QuizResponse struct {
	ID            string `json:"id"`
	Subject       string `json:"subject"`
	Tone          string `json:"tone"`
	NumQuestions  int    `json:"num_questions"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`

	// Populated only on the detail endpoint once generation completed.
	Questions  []QuestionResponse  `json:"questions,omitempty"`
	Evaluation *EvaluationResponse `json:"evaluation,omitempty"`
	Document   *DocumentResponse   `json:"document,omitempty"`
}

// QuestionResponse is the JSON representation of a single question.
type QuestionResponse struct {
	Index   int               `json:"index"`
	MCQ     string            `json:"mcq"`
	Options map[string]string `json:"options"`
	Correct string            `json:"correct"`
}

// EvaluationResponse is the JSON representation of the model's quiz review.
type EvaluationResponse struct {
	ComplexityAnalysis string `json:"complexity_analysis"`
	IsAppropriate      bool   `json:"is_appropriate"`
	Revised            bool   `json:"revised"`
}

// DocumentResponse is the JSON representation of a quiz's source document.
type DocumentResponse struct {
	Kind      string `json:"kind"`
	Origin    string `json:"origin"`
	Name      string `json:"name"`
	Source    string `json:"source,omitempty"`
	CharCount int    `json:"char_count"`
}

// TableRowResponse is one row of the tabular quiz view.
type TableRowResponse struct {
	MCQ     string `json:"mcq"`
	Choices string `json:"choices"`
	Correct string `json:"correct"`
}

// UsageRunResponse is the JSON representation of one pipeline run's usage.
type UsageRunResponse struct {
	QuizID           int64  `json:"quiz_id"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	CreatedAt        string `json:"created_at"`
}

// UsageResponse is the JSON representation of the usage endpoint.
type UsageResponse struct {
	Runs             int                `json:"runs"`
	PromptTokens     int                `json:"prompt_tokens"`
	CompletionTokens int                `json:"completion_tokens"`
	TotalTokens      int                `json:"total_tokens"`
	History          []UsageRunResponse `json:"history"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status          string `json:"status"`
	ModelConfigured bool   `json:"model_configured"`
	PendingQuizzes  int    `json:"pending_quizzes"`
	FailedQuizzes   int    `json:"failed_quizzes"`
	Time            string `json:"time"`
}

// CreateQuizRequest is the JSON body for creating a quiz from a repository file.
type CreateQuizRequest struct {
	Number  int            `json:"number"`
	Subject string         `json:"subject"`
	Tone    string         `json:"tone"`
	Source  *QuizSourceRef `json:"source"`
}

// QuizSourceRef identifies a repository file to generate the quiz from.
type QuizSourceRef struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Path  string `json:"path"`
	Ref   string `json:"ref,omitempty"`
}

// SetCredentialRequest is the JSON body for storing the model API key.
type SetCredentialRequest struct {
	APIKey string `json:"api_key"`
}

// toQuizResponse converts a domain Quiz to its JSON response representation.
// Questions and evaluation are attached only when detail is true.
func toQuizResponse(quiz model.Quiz, detail bool) QuizResponse {
	resp := QuizResponse{
		ID:            quiz.PublicID,
		Subject:       quiz.Subject,
		Tone:          string(quiz.Tone),
		NumQuestions:  quiz.NumQuestions,
		Status:        string(quiz.Status),
		FailureReason: quiz.FailureReason,
		CreatedAt:     quiz.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     quiz.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if !detail {
		return resp
	}

	resp.Questions = make([]QuestionResponse, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		resp.Questions = append(resp.Questions, toQuestionResponse(q))
	}
	if quiz.Evaluation != nil {
		resp.Evaluation = &EvaluationResponse{
			ComplexityAnalysis: quiz.Evaluation.ComplexityAnalysis,
			IsAppropriate:      quiz.Evaluation.IsAppropriate,
			Revised:            quiz.Evaluation.Revised,
		}
	}
	return resp
}

// toQuestionResponse converts a domain Question to its JSON representation.
func toQuestionResponse(q model.Question) QuestionResponse {
	options := make(map[string]string, len(model.OptionKeys))
	for _, key := range model.OptionKeys {
		options[string(key)] = q.Options.Get(key)
	}
	return QuestionResponse{
		Index:   q.Index,
		MCQ:     q.Prompt,
		Options: options,
		Correct: string(q.Correct),
	}
}

// toDocumentResponse converts a domain Document to its JSON representation.
func toDocumentResponse(doc model.Document) DocumentResponse {
	return DocumentResponse{
		Kind:      string(doc.Kind),
		Origin:    string(doc.Origin),
		Name:      doc.Name,
		Source:    doc.Source,
		CharCount: doc.CharCount,
	}
}

// toTableRowResponse converts an application TableRow to its JSON representation.
func toTableRowResponse(row application.TableRow) TableRowResponse {
	return TableRowResponse{
		MCQ:     row.MCQ,
		Choices: row.Choices,
		Correct: row.Correct,
	}
}

// toUsageResponse converts an application UsageSummary to its JSON representation.
func toUsageResponse(summary application.UsageSummary) UsageResponse {
	history := make([]UsageRunResponse, 0, len(summary.Runs))
	for _, run := range summary.Runs {
		history = append(history, UsageRunResponse{
			QuizID:           run.QuizID,
			Model:            run.Model,
			PromptTokens:     run.PromptTokens,
			CompletionTokens: run.CompletionTokens,
			TotalTokens:      run.TotalTokens,
			CreatedAt:        run.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return UsageResponse{
		Runs:             summary.Totals.Runs,
		PromptTokens:     summary.Totals.PromptTokens,
		CompletionTokens: summary.Totals.CompletionTokens,
		TotalTokens:      summary.Totals.TotalTokens,
		History:          history,
	}
}
