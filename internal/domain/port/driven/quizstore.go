package driven

import (
	"context"

	"github.com/ericfisherdev/quizforge/internal/domain/model"
)

// QuizStore defines the driven port for quiz persistence.
type QuizStore interface {
	// Create inserts a new quiz and its (possibly empty) question set,
	// populating the ID field on success.
	Create(ctx context.Context, quiz *model.Quiz) error
	// GetByPublicID returns a quiz with questions and evaluation loaded.
	// Returns nil, nil if no quiz has the given public ID.
	GetByPublicID(ctx context.Context, publicID string) (*model.Quiz, error)
	// GetByID is GetByPublicID keyed by the internal row ID.
	GetByID(ctx context.Context, id int64) (*model.Quiz, error)
	// List returns all quizzes ordered by creation time descending,
	// without question bodies loaded.
	List(ctx context.Context) ([]model.Quiz, error)
	// ListByStatus returns quizzes in the given status, oldest first,
	// without question bodies loaded.
	ListByStatus(ctx context.Context, status model.QuizStatus) ([]model.Quiz, error)
	// SetStatus transitions a quiz to the given status, clearing any
	// failure reason.
	SetStatus(ctx context.Context, id int64, status model.QuizStatus) error
	// SetFailed marks a quiz failed with the given reason.
	SetFailed(ctx context.Context, id int64, reason string) error
	// SetResult stores the generated questions and evaluation and
	// transitions the quiz to generated, replacing any prior questions.
	SetResult(ctx context.Context, id int64, questions []model.Question, eval model.Evaluation) error
	// Delete removes a quiz and its questions.
	Delete(ctx context.Context, id int64) error
}
