package model

import "time"

// Usage records the token consumption of one model pipeline run for a quiz.
// Regenerating a quiz appends a new row rather than overwriting the old one.
type Usage struct {
	ID               int64
	QuizID           int64
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CreatedAt        time.Time
}

// UsageTotals aggregates token consumption across all recorded runs.
type UsageTotals struct {
	Runs             int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
