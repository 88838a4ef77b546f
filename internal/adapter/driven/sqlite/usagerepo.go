package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/quizforge/internal/domain/model"
	"github.com/ericfisherdev/quizforge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UsageStore = (*UsageRepo)(nil)

// UsageRepo is the SQLite implementation of the UsageStore port interface.
type UsageRepo struct {
	db *DB
}

// NewUsageRepo creates a new UsageRepo backed by the given DB.
func NewUsageRepo(db *DB) *UsageRepo {
	return &UsageRepo{db: db}
}

// Record appends a usage row for a completed pipeline run.
func (r *UsageRepo) Record(ctx context.Context, usage model.Usage) error {
	const query = `
		INSERT INTO usage (quiz_id, model, prompt_tokens, completion_tokens, total_tokens)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.Writer.ExecContext(ctx, query,
		usage.QuizID, usage.Model, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens,
	)
	if err != nil {
		return fmt.Errorf("record usage for quiz %d: %w", usage.QuizID, err)
	}
	return nil
}

// ListByQuiz returns usage rows for a quiz, oldest first.
func (r *UsageRepo) ListByQuiz(ctx context.Context, quizID int64) ([]model.Usage, error) {
	const query = `
		SELECT id, quiz_id, model, prompt_tokens, completion_tokens, total_tokens, created_at
		FROM usage
		WHERE quiz_id = ?
		ORDER BY id
	`
	return r.queryUsage(ctx, query, quizID)
}

// List returns all usage rows, newest first.
func (r *UsageRepo) List(ctx context.Context) ([]model.Usage, error) {
	const query = `
		SELECT id, quiz_id, model, prompt_tokens, completion_tokens, total_tokens, created_at
		FROM usage
		ORDER BY id DESC
	`
	return r.queryUsage(ctx, query)
}

// Totals aggregates token counts across all recorded runs.
func (r *UsageRepo) Totals(ctx context.Context) (model.UsageTotals, error) {
	const query = `
		SELECT COUNT(*),
		       COALESCE(SUM(prompt_tokens), 0),
		       COALESCE(SUM(completion_tokens), 0),
		       COALESCE(SUM(total_tokens), 0)
		FROM usage
	`

	var totals model.UsageTotals
	err := r.db.Reader.QueryRowContext(ctx, query).Scan(
		&totals.Runs, &totals.PromptTokens, &totals.CompletionTokens, &totals.TotalTokens,
	)
	if err != nil {
		return model.UsageTotals{}, fmt.Errorf("usage totals: %w", err)
	}
	return totals, nil
}

func (r *UsageRepo) queryUsage(ctx context.Context, query string, args ...any) ([]model.Usage, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var usages []model.Usage
	for rows.Next() {
		var u model.Usage
		var createdAt string
		if err := rows.Scan(&u.ID, &u.QuizID, &u.Model, &u.PromptTokens, &u.CompletionTokens, &u.TotalTokens, &createdAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		if u.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse usage created_at: %w", err)
		}
		usages = append(usages, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage: %w", err)
	}

	return usages, nil
}
