package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ericfisherdev/quizforge/internal/domain/model"
)

// ErrNoJSON is returned when model output contains no JSON object at all.
var ErrNoJSON = errors.New("no JSON object found in model output")

// ExtractJSON returns the first JSON object embedded in text. Models
// sometimes wrap their JSON in prose or markdown fences despite instructions.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

// questionJSON is the wire format of one question in model output, matching
// the skeleton in prompts.go.
type questionJSON struct {
	MCQ     string            `json:"mcq"`
	Options map[string]string `json:"options"`
	Correct string            `json:"correct"`
}

// evaluationJSON is the wire format of the evaluation pass output.
type evaluationJSON struct {
	ComplexityAnalysis string                  `json:"complexity_analysis"`
	IsAppropriate      bool                    `json:"is_appropriate"`
	FinalQuiz          map[string]questionJSON `json:"final_quiz"`
}

// ParseQuiz decodes model output from the generation pass into a validated
// question list of exactly want entries.
func ParseQuiz(text string, want int) ([]model.Question, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var decoded map[string]questionJSON
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("decode quiz JSON: %w", err)
	}

	return questionsFromWire(decoded, want)
}

// ParseEvaluation decodes model output from the evaluation pass. The returned
// question list is the final quiz, which may differ from the generation pass
// when the model revised questions.
func ParseEvaluation(text string, want int) (model.Evaluation, []model.Question, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return model.Evaluation{}, nil, err
	}

	var decoded evaluationJSON
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return model.Evaluation{}, nil, fmt.Errorf("decode evaluation JSON: %w", err)
	}

	questions, err := questionsFromWire(decoded.FinalQuiz, want)
	if err != nil {
		return model.Evaluation{}, nil, fmt.Errorf("final_quiz: %w", err)
	}

	eval := model.Evaluation{
		ComplexityAnalysis: TruncateWords(strings.TrimSpace(decoded.ComplexityAnalysis), model.MaxComplexityWords),
		IsAppropriate:      decoded.IsAppropriate,
	}
	return eval, questions, nil
}

// QuizJSON encodes a question list back into the wire format, used as the
// evaluation pass input.
func QuizJSON(questions []model.Question) (string, error) {
	wire := make(map[string]questionJSON, len(questions))
	for _, q := range questions {
		wire[strconv.Itoa(q.Index)] = questionJSON{
			MCQ: q.Prompt,
			Options: map[string]string{
				"a": q.Options.A,
				"b": q.Options.B,
				"c": q.Options.C,
				"d": q.Options.D,
			},
			Correct: string(q.Correct),
		}
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("encode quiz JSON: %w", err)
	}
	return string(data), nil
}

// questionsFromWire converts the keyed wire map into an ordered, validated
// question list.
func questionsFromWire(wire map[string]questionJSON, want int) ([]model.Question, error) {
	questions := make([]model.Question, 0, len(wire))
	for key, qw := range wire {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("non-numeric question key %q", key)
		}

		questions = append(questions, model.Question{
			Index:  idx,
			Prompt: strings.TrimSpace(qw.MCQ),
			Options: model.Options{
				A: strings.TrimSpace(qw.Options["a"]),
				B: strings.TrimSpace(qw.Options["b"]),
				C: strings.TrimSpace(qw.Options["c"]),
				D: strings.TrimSpace(qw.Options["d"]),
			},
			Correct: model.OptionKey(strings.ToLower(strings.TrimSpace(qw.Correct))),
		})
	}

	sort.Slice(questions, func(i, j int) bool { return questions[i].Index < questions[j].Index })

	if err := model.ValidateQuestions(questions, want); err != nil {
		return nil, err
	}
	return questions, nil
}

// AnswerSpread returns the number of distinct correct letters across the
// quiz. A spread of 1 on a multi-question quiz means the model ignored the
// distribution instruction.
func AnswerSpread(questions []model.Question) int {
	seen := make(map[model.OptionKey]bool, 4)
	for _, q := range questions {
		seen[q.Correct] = true
	}
	return len(seen)
}

// QuestionsEqual reports whether two question lists are identical in order,
// prompts, options, and correct letters.
func QuestionsEqual(a, b []model.Question) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TruncateWords limits s to at most n whitespace-separated words.
func TruncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}
