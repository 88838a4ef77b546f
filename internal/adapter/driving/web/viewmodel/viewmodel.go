// Package viewmodel holds the display-ready types rendered by the web templates.
package viewmodel

import "html/template"

// Page carries the fields every page template needs.
type Page struct {
	Title     string
	Active    string // Nav item to highlight: "dashboard" or "settings".
	CSRFToken string
	Flash     string
	Error     string
}

// QuizCard is the dashboard list entry for one quiz.
type QuizCard struct {
	PublicID      string
	Subject       string
	Tone          string
	NumQuestions  int
	Status        string
	StatusClass   string // CSS modifier derived from the status.
	FailureReason string
	CreatedAt     string
	DetailPath    string
}

// Dashboard is the data for the main page: the quiz list plus the create form.
type Dashboard struct {
	Page
	Quizzes          []QuizCard
	Tones            []string
	MaxQuestions     int
	DefaultQuestions int
	ModelConfigured  bool
	PendingQuizzes   int
	FailedQuizzes    int
}

// QuizRow is one question in the detail table.
type QuizRow struct {
	Index   int
	MCQ     string
	ChoiceA string
	ChoiceB string
	ChoiceC string
	ChoiceD string
	Correct string
}

// Evaluation is the model's review shown on the detail page.
type Evaluation struct {
	ComplexityAnalysis string
	IsAppropriate      bool
	Revised            bool
}

// Document describes the quiz's source document with a rendered preview.
type Document struct {
	Name        string
	Kind        string
	Origin      string
	Source      string
	CharCount   int
	PreviewHTML template.HTML
}

// UsageRow is one pipeline run's token accounting.
type UsageRow struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CreatedAt        string
}

// QuizDetail is the data for the quiz detail page.
type QuizDetail struct {
	Page
	Card           QuizCard
	InProgress     bool
	Rows           []QuizRow
	Evaluation     *Evaluation
	Document       *Document
	Usage          []UsageRow
	ExportPath     string
	RegeneratePath string
	DeletePath     string
}

// Settings is the data for the settings page.
type Settings struct {
	Page
	ModelName       string
	ModelConfigured bool
	HasStoredKey    bool
}
