package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/quizforge/internal/domain/model"
	"github.com/ericfisherdev/quizforge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DocumentStore = (*DocumentRepo)(nil)

// DocumentRepo is the SQLite implementation of the DocumentStore port interface.
type DocumentRepo struct {
	db *DB
}

// NewDocumentRepo creates a new DocumentRepo backed by the given DB.
func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Create inserts a document, populating doc.ID on success.
func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	const query = `
		INSERT INTO documents (kind, origin, name, source, text, char_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.Writer.ExecContext(ctx, query,
		string(doc.Kind), string(doc.Origin), doc.Name, doc.Source, doc.Text, len(doc.Text),
	)
	if err != nil {
		return fmt.Errorf("insert document %q: %w", doc.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("document insert id: %w", err)
	}
	doc.ID = id
	doc.CharCount = len(doc.Text)

	return nil
}

// GetByID returns a document by row ID, or nil, nil if absent.
func (r *DocumentRepo) GetByID(ctx context.Context, id int64) (*model.Document, error) {
	const query = `
		SELECT id, kind, origin, name, source, text, char_count, created_at
		FROM documents
		WHERE id = ?
	`

	var doc model.Document
	var kind, origin, createdAt string
	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &kind, &origin, &doc.Name, &doc.Source, &doc.Text, &doc.CharCount, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document %d: %w", id, err)
	}

	doc.Kind = model.DocumentKind(kind)
	doc.Origin = model.DocumentOrigin(origin)
	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse document created_at: %w", err)
	}

	return &doc, nil
}

// Delete removes a document; quizzes referencing it cascade.
func (r *DocumentRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.Writer.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete document %d: %w", id, err)
	}
	return nil
}
