package httphandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/quizforge/internal/application"
	"github.com/ericfisherdev/quizforge/internal/domain/model"
	"github.com/ericfisherdev/quizforge/internal/domain/port/driven"
)

// credentialService is the key the model API credential is stored under.
const credentialService = "openai"

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	quizzes     *application.QuizService
	health      *application.HealthService
	credentials driven.CredentialStore
	provider    *application.ModelClientProvider

	newModelClient func(apiKey string) driven.ChatModel
	fallbackClient driven.ChatModel // Used again after the stored key is deleted.
	modelName      string

	maxUploadBytes   int64
	defaultQuestions int
	logger           *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. newModelClient
// builds a chat client for a freshly stored API key; fallbackClient is the
// client to fall back to when the stored key is removed (may be nil).
func NewHandler(
	quizzes *application.QuizService,
	health *application.HealthService,
	credentials driven.CredentialStore,
	provider *application.ModelClientProvider,
	newModelClient func(apiKey string) driven.ChatModel,
	fallbackClient driven.ChatModel,
	modelName string,
	maxUploadBytes int64,
	defaultQuestions int,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		quizzes:          quizzes,
		health:           health,
		credentials:      credentials,
		provider:         provider,
		newModelClient:   newModelClient,
		fallbackClient:   fallbackClient,
		modelName:        modelName,
		maxUploadBytes:   maxUploadBytes,
		defaultQuestions: defaultQuestions,
		logger:           logger,
	}
}

// RegisterAPIRoutes registers all REST API routes on the provided mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("POST /api/v1/quizzes", h.CreateQuiz)
	mux.HandleFunc("GET /api/v1/quizzes", h.ListQuizzes)
	mux.HandleFunc("GET /api/v1/quizzes/{id}", h.GetQuiz)
	mux.HandleFunc("GET /api/v1/quizzes/{id}/table", h.QuizTable)
	mux.HandleFunc("GET /api/v1/quizzes/{id}/export.csv", h.ExportQuizCSV)
	mux.HandleFunc("POST /api/v1/quizzes/{id}/regenerate", h.RegenerateQuiz)
	mux.HandleFunc("DELETE /api/v1/quizzes/{id}", h.DeleteQuiz)
	mux.HandleFunc("GET /api/v1/usage", h.Usage)
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("PUT /api/v1/credentials/openai", h.SetCredential)
	mux.HandleFunc("DELETE /api/v1/credentials/openai", h.DeleteCredential)
}

// ApplyMiddleware wraps handler with logging and recovery middleware.
func ApplyMiddleware(handler http.Handler, logger *slog.Logger) http.Handler {
	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, handler)
	wrapped = loggingMiddleware(logger, wrapped)
	return wrapped
}

// CreateQuiz accepts either a multipart document upload or a JSON body naming
// a repository file, queues generation, and returns the pending quiz.
func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.createFromUpload(w, r)
		return
	}
	h.createFromSource(w, r)
}

func (h *Handler) createFromUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	params, err := h.quizParams(r.FormValue("number"), r.FormValue("subject"), r.FormValue("tone"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quiz, err := h.quizzes.CreateFromUpload(r.Context(), header.Filename, data, params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, toQuizResponse(*quiz, false))
}

func (h *Handler) createFromSource(w http.ResponseWriter, r *http.Request) {
	var req CreateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Source == nil {
		writeError(w, http.StatusBadRequest, "missing source: upload a file or name a repository file")
		return
	}

	number := strconv.Itoa(req.Number)
	if req.Number == 0 {
		number = ""
	}
	params, err := h.quizParams(number, req.Subject, req.Tone)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ref := driven.SourceRef{
		Owner: req.Source.Owner,
		Repo:  req.Source.Repo,
		Path:  req.Source.Path,
		Ref:   req.Source.Ref,
	}
	quiz, err := h.quizzes.CreateFromGitHub(r.Context(), ref, params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, toQuizResponse(*quiz, false))
}

// quizParams builds QuizParams from raw form or JSON values, applying the
// configured defaults for omitted number and tone.
func (h *Handler) quizParams(number, subject, tone string) (application.QuizParams, error) {
	params := application.QuizParams{
		Number:  h.defaultQuestions,
		Subject: subject,
		Tone:    model.ToneEducational,
	}

	if number != "" {
		n, err := strconv.Atoi(number)
		if err != nil {
			return application.QuizParams{}, fmt.Errorf("invalid number of questions %q", number)
		}
		params.Number = n
	}
	if tone != "" {
		params.Tone = model.Tone(strings.ToLower(strings.TrimSpace(tone)))
	}

	if err := params.Validate(); err != nil {
		return application.QuizParams{}, err
	}
	return params, nil
}

// ListQuizzes returns all quizzes, newest first.
func (h *Handler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list quizzes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]QuizResponse, 0, len(quizzes))
	for _, quiz := range quizzes {
		resp = append(resp, toQuizResponse(quiz, false))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetQuiz returns a single quiz with its questions, evaluation, and source
// document.
func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, doc, err := h.getQuiz(w, r)
	if err != nil {
		return
	}

	resp := toQuizResponse(*quiz, true)
	if doc != nil {
		docResp := toDocumentResponse(*doc)
		resp.Document = &docResp
	}

	writeJSON(w, http.StatusOK, resp)
}

// QuizTable returns a generated quiz as display rows, one per question.
func (h *Handler) QuizTable(w http.ResponseWriter, r *http.Request) {
	quiz, _, err := h.getQuiz(w, r)
	if err != nil {
		return
	}

	rows, err := h.quizzes.TableRows(quiz)
	if err != nil {
		if errors.Is(err, application.ErrQuizNotReady) {
			writeError(w, http.StatusConflict, "quiz has no generated questions yet")
			return
		}
		h.logger.Error("failed to build quiz table", "quiz", quiz.PublicID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]TableRowResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, toTableRowResponse(row))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ExportQuizCSV returns a generated quiz as a CSV download.
func (h *Handler) ExportQuizCSV(w http.ResponseWriter, r *http.Request) {
	quiz, _, err := h.getQuiz(w, r)
	if err != nil {
		return
	}

	var buf bytes.Buffer
	if err := h.quizzes.ExportCSV(&buf, quiz); err != nil {
		if errors.Is(err, application.ErrQuizNotReady) {
			writeError(w, http.StatusConflict, "quiz has no generated questions yet")
			return
		}
		h.logger.Error("failed to export quiz", "quiz", quiz.PublicID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "quiz-"+quiz.PublicID+".csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// RegenerateQuiz re-runs the model pipeline for an existing quiz. The run
// happens asynchronously; the endpoint answers as soon as it is queued.
func (h *Handler) RegenerateQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, _, err := h.getQuiz(w, r)
	if err != nil {
		return
	}
	if quiz.Status == model.QuizStatusGenerating {
		writeError(w, http.StatusConflict, "quiz generation is already in progress")
		return
	}

	// Fire-and-forget with background context since the HTTP request
	// context is cancelled after the response is sent.
	publicID := quiz.PublicID
	go func() {
		if err := h.quizzes.Regenerate(context.Background(), publicID); err != nil {
			h.logger.Error("async quiz regeneration failed", "quiz", publicID, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, toQuizResponse(*quiz, false))
}

// DeleteQuiz removes a quiz and its source document.
func (h *Handler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.quizzes.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, application.ErrQuizNotFound) {
			writeError(w, http.StatusNotFound, "quiz not found")
			return
		}
		h.logger.Error("failed to delete quiz", "quiz", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Usage returns aggregate token usage with the per-run history.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	summary, err := h.quizzes.Usage(r.Context())
	if err != nil {
		h.logger.Error("failed to load usage", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toUsageResponse(*summary))
}

// Health returns the service health snapshot. Storage problems surface as
// 503 so load balancers and the healthcheck binary can react.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.health.Status(r.Context())

	resp := HealthResponse{
		Status:          "ok",
		ModelConfigured: status.ModelConfigured,
		PendingQuizzes:  status.PendingQuizzes,
		FailedQuizzes:   status.FailedQuizzes,
		Time:            time.Now().UTC().Format(time.RFC3339),
	}

	code := http.StatusOK
	if !status.Healthy() {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, resp)
}

// SetCredential stores the model API key and swaps the live client so the
// next generation run uses it. The key is verified against the API first.
func (h *Handler) SetCredential(w http.ResponseWriter, r *http.Request) {
	var req SetCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		writeError(w, http.StatusBadRequest, "api_key must not be empty")
		return
	}

	client := h.newModelClient(key)
	if _, err := client.ListModels(r.Context()); err != nil {
		if errors.Is(err, driven.ErrInvalidAPIKey) {
			writeError(w, http.StatusBadRequest, "the API rejected this key")
			return
		}
		// Transient API trouble should not block saving a key.
		h.logger.Warn("could not verify API key", "error", err)
	}

	if err := h.credentials.Set(r.Context(), credentialService, key); err != nil {
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			writeError(w, http.StatusInternalServerError, "credential encryption is not configured")
			return
		}
		h.logger.Error("failed to store credential", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.provider.Replace(client, h.modelName)
	h.logger.Info("model API key updated")

	w.WriteHeader(http.StatusNoContent)
}

// DeleteCredential removes the stored model API key. The client configured
// from the environment, if any, takes over again.
func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	if err := h.credentials.Delete(r.Context(), credentialService); err != nil {
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			writeError(w, http.StatusInternalServerError, "credential encryption is not configured")
			return
		}
		h.logger.Error("failed to delete credential", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.provider.Replace(h.fallbackClient, h.modelName)
	h.logger.Info("model API key removed")

	w.WriteHeader(http.StatusNoContent)
}

// getQuiz loads the quiz named by the {id} path value, writing the error
// response itself when the quiz cannot be served.
func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) (*model.Quiz, *model.Document, error) {
	quiz, doc, err := h.quizzes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, application.ErrQuizNotFound) {
			writeError(w, http.StatusNotFound, "quiz not found")
			return nil, nil, err
		}
		h.logger.Error("failed to get quiz", "quiz", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, nil, err
	}
	return quiz, doc, nil
}
