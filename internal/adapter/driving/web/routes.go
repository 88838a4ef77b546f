package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers all web GUI routes on the provided mux.
// Static assets are served from the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Static assets (embedded via go:embed).
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	// Page routes.
	mux.HandleFunc("GET /{$}", h.Dashboard)
	mux.HandleFunc("POST /quizzes", h.CreateQuiz)
	mux.HandleFunc("GET /quizzes/{id}", h.QuizDetail)
	mux.HandleFunc("POST /quizzes/{id}/regenerate", h.RegenerateQuiz)
	mux.HandleFunc("POST /quizzes/{id}/delete", h.DeleteQuiz)
	mux.HandleFunc("GET /settings", h.Settings)
	mux.HandleFunc("POST /settings/credentials", h.SaveCredential)
	mux.HandleFunc("POST /settings/credentials/delete", h.DeleteCredential)
}
