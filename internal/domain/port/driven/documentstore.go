package driven

import (
	"context"

	"github.com/ericfisherdev/quizforge/internal/domain/model"
)

// DocumentStore defines the driven port for source document persistence.
type DocumentStore interface {
	// Create inserts a document, populating the ID field on success.
	Create(ctx context.Context, doc *model.Document) error
	// GetByID returns a document by row ID, or nil, nil if absent.
	GetByID(ctx context.Context, id int64) (*model.Document, error)
	// Delete removes a document. Quizzes referencing it are deleted by
	// the schema's cascade rule.
	Delete(ctx context.Context, id int64) error
}
