package driven

import (
	"context"

	"github.com/ericfisherdev/quizforge/internal/domain/model"
)

// UsageStore defines the driven port for token usage accounting.
type UsageStore interface {
	// Record appends a usage row for a completed pipeline run.
	Record(ctx context.Context, usage model.Usage) error
	// ListByQuiz returns usage rows for a quiz, oldest first.
	ListByQuiz(ctx context.Context, quizID int64) ([]model.Usage, error)
	// List returns all usage rows, newest first.
	List(ctx context.Context) ([]model.Usage, error)
	// Totals aggregates token counts across all recorded runs.
	Totals(ctx context.Context) (model.UsageTotals, error)
}
