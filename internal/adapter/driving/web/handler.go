// Package web implements the HTML GUI driving adapter using server-rendered
// templates.
package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	vm "github.com/ericfisherdev/quizforge/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/quizforge/internal/application"
	"github.com/ericfisherdev/quizforge/internal/domain/model"
	"github.com/ericfisherdev/quizforge/internal/domain/port/driven"
)

// credentialService is the key the model API credential is stored under.
const credentialService = "openai"

// Handler is the web GUI driving adapter that serves HTML pages.
type Handler struct {
	quizzes     *application.QuizService
	health      *application.HealthService
	credentials driven.CredentialStore
	provider    *application.ModelClientProvider
	renderer    *Renderer

	newModelClient func(apiKey string) driven.ChatModel
	fallbackClient driven.ChatModel
	modelName      string

	maxUploadBytes   int64
	defaultQuestions int
	logger           *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	quizzes *application.QuizService,
	health *application.HealthService,
	credentials driven.CredentialStore,
	provider *application.ModelClientProvider,
	renderer *Renderer,
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
		renderer:         renderer,
		newModelClient:   newModelClient,
		fallbackClient:   fallbackClient,
		modelName:        modelName,
		maxUploadBytes:   maxUploadBytes,
		defaultQuestions: defaultQuestions,
		logger:           logger,
	}
}

// Dashboard renders the main page with the quiz list and the create form.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list quizzes", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	cards := make([]vm.QuizCard, 0, len(quizzes))
	for _, quiz := range quizzes {
		cards = append(cards, toQuizCard(quiz))
	}

	status := h.health.Status(r.Context())

	data := vm.Dashboard{
		Page:             h.page(w, r, "QuizForge", "dashboard"),
		Quizzes:          cards,
		Tones:            []string{string(model.ToneEducational), string(model.ToneCasual), string(model.ToneFormal)},
		MaxQuestions:     model.MaxQuestions,
		DefaultQuestions: h.defaultQuestions,
		ModelConfigured:  status.ModelConfigured,
		PendingQuizzes:   status.PendingQuizzes,
		FailedQuizzes:    status.FailedQuizzes,
	}
	h.render(w, "dashboard.html", data)
}

// CreateQuiz handles the upload form submission and queues a new quiz.
func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	// Cap the body before anything touches the form.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.redirectError(w, r, "/", "the uploaded file is too large")
			return
		}
		h.redirectError(w, r, "/", "invalid form submission")
		return
	}

	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.redirectError(w, r, "/", "choose a document to upload")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		h.redirectError(w, r, "/", "failed to read the uploaded file")
		return
	}

	params, err := h.quizParams(r)
	if err != nil {
		h.redirectError(w, r, "/", err.Error())
		return
	}

	quiz, err := h.quizzes.CreateFromUpload(r.Context(), header.Filename, data, params)
	if err != nil {
		h.redirectError(w, r, "/", err.Error())
		return
	}

	h.redirectFlash(w, r, "/quizzes/"+quiz.PublicID, "quiz queued for generation")
}

// quizParams reads the create form fields, applying the configured defaults.
func (h *Handler) quizParams(r *http.Request) (application.QuizParams, error) {
	params := application.QuizParams{
		Number:  h.defaultQuestions,
		Subject: r.FormValue("subject"),
		Tone:    model.ToneEducational,
	}

	if number := r.FormValue("number"); number != "" {
		n, err := strconv.Atoi(number)
		if err != nil {
			return application.QuizParams{}, errors.New("number of questions must be a whole number")
		}
		params.Number = n
	}
	if tone := r.FormValue("tone"); tone != "" {
		params.Tone = model.Tone(strings.ToLower(strings.TrimSpace(tone)))
	}

	if err := params.Validate(); err != nil {
		return application.QuizParams{}, err
	}
	return params, nil
}

// QuizDetail renders a single quiz with its questions, evaluation, source
// document, and token usage.
func (h *Handler) QuizDetail(w http.ResponseWriter, r *http.Request) {
	publicID := r.PathValue("id")

	quiz, doc, err := h.quizzes.Get(r.Context(), publicID)
	if err != nil {
		if errors.Is(err, application.ErrQuizNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("failed to get quiz", "quiz", publicID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	data := vm.QuizDetail{
		Page:           h.page(w, r, quiz.Subject+" quiz", "dashboard"),
		Card:           toQuizCard(*quiz),
		InProgress:     !quiz.Terminal(),
		Rows:           toQuizRows(quiz.Questions),
		ExportPath:     "/api/v1/quizzes/" + publicID + "/export.csv",
		RegeneratePath: "/quizzes/" + publicID + "/regenerate",
		DeletePath:     "/quizzes/" + publicID + "/delete",
	}
	if quiz.Evaluation != nil {
		eval := toEvaluationView(*quiz.Evaluation)
		data.Evaluation = &eval
	}
	if doc != nil {
		docView := toDocumentView(*doc)
		data.Document = &docView
	}

	if usage, err := h.quizzes.QuizUsage(r.Context(), quiz.ID); err == nil {
		data.Usage = toUsageRows(usage)
	} else {
		h.logger.Error("failed to load quiz usage", "quiz", publicID, "error", err)
	}

	h.render(w, "quiz.html", data)
}

// RegenerateQuiz re-runs the pipeline for a quiz from the detail page.
func (h *Handler) RegenerateQuiz(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	publicID := r.PathValue("id")
	quiz, _, err := h.quizzes.Get(r.Context(), publicID)
	if err != nil {
		if errors.Is(err, application.ErrQuizNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("failed to get quiz", "quiz", publicID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if quiz.Status == model.QuizStatusGenerating {
		h.redirectError(w, r, "/quizzes/"+publicID, "generation is already in progress")
		return
	}

	// Fire-and-forget with background context since the HTTP request
	// context is cancelled after the redirect is sent.
	go func() {
		if err := h.quizzes.Regenerate(context.Background(), publicID); err != nil {
			h.logger.Error("async quiz regeneration failed", "quiz", publicID, "error", err)
		}
	}()

	h.redirectFlash(w, r, "/quizzes/"+publicID, "regeneration queued")
}

// DeleteQuiz removes a quiz from the detail page.
func (h *Handler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	publicID := r.PathValue("id")
	if err := h.quizzes.Delete(r.Context(), publicID); err != nil {
		if errors.Is(err, application.ErrQuizNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("failed to delete quiz", "quiz", publicID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.redirectFlash(w, r, "/", "quiz deleted")
}

// Settings renders the settings page with the model credential form.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	hasStored := false
	if cred, err := h.credentials.Get(r.Context(), credentialService); err == nil && cred != "" {
		hasStored = true
	}

	data := vm.Settings{
		Page:            h.page(w, r, "Settings", "settings"),
		ModelName:       h.provider.ModelName(),
		ModelConfigured: h.provider.HasClient(),
		HasStoredKey:    hasStored,
	}
	h.render(w, "settings.html", data)
}

// SaveCredential stores the model API key submitted from the settings form
// and swaps the live client.
func (h *Handler) SaveCredential(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	key := strings.TrimSpace(r.FormValue("api_key"))
	if key == "" {
		h.redirectError(w, r, "/settings", "enter an API key")
		return
	}

	client := h.newModelClient(key)
	if _, err := client.ListModels(r.Context()); err != nil {
		if errors.Is(err, driven.ErrInvalidAPIKey) {
			h.redirectError(w, r, "/settings", "the API rejected this key")
			return
		}
		h.logger.Warn("could not verify API key", "error", err)
	}

	if err := h.credentials.Set(r.Context(), credentialService, key); err != nil {
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			h.redirectError(w, r, "/settings", "credential encryption is not configured on this server")
			return
		}
		h.logger.Error("failed to store credential", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.provider.Replace(client, h.modelName)
	h.logger.Info("model API key updated")

	h.redirectFlash(w, r, "/settings", "API key saved")
}

// DeleteCredential removes the stored model API key from the settings page.
func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	if err := h.credentials.Delete(r.Context(), credentialService); err != nil && !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		h.logger.Error("failed to delete credential", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.provider.Replace(h.fallbackClient, h.modelName)
	h.logger.Info("model API key removed")

	h.redirectFlash(w, r, "/settings", "API key removed")
}

// page builds the shared page fields, ensuring the CSRF cookie is set.
func (h *Handler) page(w http.ResponseWriter, r *http.Request, title, active string) vm.Page {
	return vm.Page{
		Title:     title,
		Active:    active,
		CSRFToken: csrfToken(w, r),
		Flash:     r.URL.Query().Get("flash"),
		Error:     r.URL.Query().Get("error"),
	}
}

func (h *Handler) render(w http.ResponseWriter, page string, data any) {
	if err := h.renderer.Render(w, page, data); err != nil {
		h.logger.Error("failed to render page", "page", page, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) redirectFlash(w http.ResponseWriter, r *http.Request, path, message string) {
	http.Redirect(w, r, path+"?flash="+url.QueryEscape(message), http.StatusSeeOther)
}

func (h *Handler) redirectError(w http.ResponseWriter, r *http.Request, path, message string) {
	http.Redirect(w, r, path+"?error="+url.QueryEscape(message), http.StatusSeeOther)
}
