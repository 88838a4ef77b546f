package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/quizforge/internal/domain/model"
	"github.com/ericfisherdev/quizforge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.QuizStore = (*QuizRepo)(nil)

// QuizRepo is the SQLite implementation of the QuizStore port interface.
// A quiz and its questions are persisted as one aggregate: question writes
// always happen inside the same transaction as the owning quiz update.
type QuizRepo struct {
	db *DB
}

// NewQuizRepo creates a new QuizRepo backed by the given DB.
func NewQuizRepo(db *DB) *QuizRepo {
	return &QuizRepo{db: db}
}

const quizColumns = `
	id, public_id, document_id, subject, tone, num_questions, status,
	failure_reason, complexity, is_appropriate, revised, has_evaluation,
	created_at, updated_at
`

// Create inserts a new quiz and any questions already attached to it,
// populating quiz.ID on success.
func (r *QuizRepo) Create(ctx context.Context, quiz *model.Quiz) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create quiz: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO quizzes (public_id, document_id, subject, tone, num_questions, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	res, err := tx.ExecContext(ctx, query,
		quiz.PublicID, quiz.DocumentID, quiz.Subject, string(quiz.Tone),
		quiz.NumQuestions, string(quiz.Status),
	)
	if err != nil {
		return fmt.Errorf("insert quiz %s: %w", quiz.PublicID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("quiz insert id: %w", err)
	}
	quiz.ID = id

	if err := insertQuestions(ctx, tx, id, quiz.Questions); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create quiz: %w", err)
	}
	return nil
}

// GetByPublicID returns a quiz with questions and evaluation loaded.
// Returns nil, nil if no quiz has the given public ID.
func (r *QuizRepo) GetByPublicID(ctx context.Context, publicID string) (*model.Quiz, error) {
	query := `SELECT ` + quizColumns + ` FROM quizzes WHERE public_id = ?`
	return r.getOne(ctx, query, publicID)
}

// GetByID is GetByPublicID keyed by the internal row ID.
func (r *QuizRepo) GetByID(ctx context.Context, id int64) (*model.Quiz, error) {
	query := `SELECT ` + quizColumns + ` FROM quizzes WHERE id = ?`
	return r.getOne(ctx, query, id)
}

func (r *QuizRepo) getOne(ctx context.Context, query string, arg any) (*model.Quiz, error) {
	quiz, err := scanQuiz(r.db.Reader.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	questions, err := r.loadQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}
	quiz.Questions = questions

	return quiz, nil
}

// List returns all quizzes ordered by creation time descending, without
// question bodies loaded.
func (r *QuizRepo) List(ctx context.Context) ([]model.Quiz, error) {
	query := `SELECT ` + quizColumns + ` FROM quizzes ORDER BY created_at DESC, id DESC`
	return r.queryQuizzes(ctx, query)
}

// ListByStatus returns quizzes in the given status, oldest first, without
// question bodies loaded.
func (r *QuizRepo) ListByStatus(ctx context.Context, status model.QuizStatus) ([]model.Quiz, error) {
	query := `SELECT ` + quizColumns + ` FROM quizzes WHERE status = ? ORDER BY id`
	return r.queryQuizzes(ctx, query, string(status))
}

// SetStatus transitions a quiz to the given status, clearing any failure
// reason.
func (r *QuizRepo) SetStatus(ctx context.Context, id int64, status model.QuizStatus) error {
	const query = `
		UPDATE quizzes
		SET status = ?, failure_reason = '', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Writer.ExecContext(ctx, query, string(status), id); err != nil {
		return fmt.Errorf("set quiz %d status %s: %w", id, status, err)
	}
	return nil
}

// SetFailed marks a quiz failed with the given reason.
func (r *QuizRepo) SetFailed(ctx context.Context, id int64, reason string) error {
	const query = `
		UPDATE quizzes
		SET status = ?, failure_reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Writer.ExecContext(ctx, query, string(model.QuizStatusFailed), reason, id); err != nil {
		return fmt.Errorf("set quiz %d failed: %w", id, err)
	}
	return nil
}

// SetResult stores the generated questions and evaluation and transitions the
// quiz to generated, replacing any prior questions.
func (r *QuizRepo) SetResult(ctx context.Context, id int64, questions []model.Question, eval model.Evaluation) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set result: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE quiz_id = ?`, id); err != nil {
		return fmt.Errorf("clear questions for quiz %d: %w", id, err)
	}

	if err := insertQuestions(ctx, tx, id, questions); err != nil {
		return err
	}

	isAppropriate := 0
	if eval.IsAppropriate {
		isAppropriate = 1
	}
	revised := 0
	if eval.Revised {
		revised = 1
	}

	const query = `
		UPDATE quizzes
		SET status = ?, failure_reason = '', complexity = ?, is_appropriate = ?,
		    revised = ?, has_evaluation = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := tx.ExecContext(ctx, query,
		string(model.QuizStatusGenerated), eval.ComplexityAnalysis, isAppropriate, revised, id,
	); err != nil {
		return fmt.Errorf("set result for quiz %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set result: %w", err)
	}
	return nil
}

// Delete removes a quiz; questions and usage rows go with it via cascade.
func (r *QuizRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.Writer.ExecContext(ctx, `DELETE FROM quizzes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete quiz %d: %w", id, err)
	}
	return nil
}

func insertQuestions(ctx context.Context, tx *sql.Tx, quizID int64, questions []model.Question) error {
	const query = `
		INSERT INTO questions (quiz_id, idx, prompt, option_a, option_b, option_c, option_d, correct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, q := range questions {
		if _, err := tx.ExecContext(ctx, query,
			quizID, q.Index, q.Prompt,
			q.Options.A, q.Options.B, q.Options.C, q.Options.D,
			string(q.Correct),
		); err != nil {
			return fmt.Errorf("insert question %d for quiz %d: %w", q.Index, quizID, err)
		}
	}
	return nil
}

func (r *QuizRepo) loadQuestions(ctx context.Context, quizID int64) ([]model.Question, error) {
	const query = `
		SELECT idx, prompt, option_a, option_b, option_c, option_d, correct
		FROM questions
		WHERE quiz_id = ?
		ORDER BY idx
	`
	rows, err := r.db.Reader.QueryContext(ctx, query, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions for quiz %d: %w", quizID, err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var correct string
		if err := rows.Scan(&q.Index, &q.Prompt, &q.Options.A, &q.Options.B, &q.Options.C, &q.Options.D, &correct); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Correct = model.OptionKey(correct)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	return questions, nil
}

func (r *QuizRepo) queryQuizzes(ctx context.Context, query string, args ...any) ([]model.Quiz, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, *quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quizzes: %w", err)
	}

	return quizzes, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanQuiz(s scanner) (*model.Quiz, error) {
	var quiz model.Quiz
	var tone, status string
	var isAppropriate, revised, hasEvaluation int
	var complexity string
	var createdAt, updatedAt string

	err := s.Scan(
		&quiz.ID, &quiz.PublicID, &quiz.DocumentID, &quiz.Subject, &tone,
		&quiz.NumQuestions, &status, &quiz.FailureReason,
		&complexity, &isAppropriate, &revised, &hasEvaluation,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	quiz.Tone = model.Tone(tone)
	quiz.Status = model.QuizStatus(status)

	if hasEvaluation == 1 {
		quiz.Evaluation = &model.Evaluation{
			ComplexityAnalysis: complexity,
			IsAppropriate:      isAppropriate == 1,
			Revised:            revised == 1,
		}
	}

	if quiz.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if quiz.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &quiz, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
