package application

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/ericfisherdev/quizforge/internal/domain/model"
	"github.com/ericfisherdev/quizforge/internal/domain/port/driven"
)

// Service-level errors the driving adapters translate to HTTP statuses.
var (
	ErrQuizNotFound   = errors.New("quiz not found")
	ErrQuizNotReady   = errors.New("quiz has no generated questions yet")
	ErrQuizInProgress = errors.New("quiz generation is in progress")
)

// QuizParams are the generation parameters supplied by the caller.
type QuizParams struct {
	Number  int
	Subject string
	Tone    model.Tone
}

// Validate checks the parameters against the accepted ranges.
func (p QuizParams) Validate() error {
	if p.Number < 1 || p.Number > model.MaxQuestions {
		return fmt.Errorf("number of questions must be in 1..%d, got %d", model.MaxQuestions, p.Number)
	}
	if strings.TrimSpace(p.Subject) == "" {
		return errors.New("subject must not be empty")
	}
	if !p.Tone.Valid() {
		return fmt.Errorf("tone must be one of educational, casual, formal; got %q", p.Tone)
	}
	return nil
}

// TableRow is one row of the tabular quiz view, mirroring the dashboard and
// CSV export layout.
type TableRow struct {
	MCQ     string
	Choices string
	Correct string
}

// UsageSummary combines per-run usage rows with the aggregate totals.
type UsageSummary struct {
	Totals model.UsageTotals
	Runs   []model.Usage
}

// QuizService handles quiz intake and all read-side operations. Generation
// itself runs in the GenerationService worker; intake only extracts text,
// persists the aggregate, and queues the quiz.
type QuizService struct {
	quizzes   driven.QuizStore
	documents driven.DocumentStore
	usage     driven.UsageStore
	extractor driven.TextExtractor
	fetcher   driven.SourceFetcher
	worker    *GenerationService
}

// NewQuizService creates a QuizService with all required dependencies.
// fetcher may be nil when no repository source is configured.
func NewQuizService(
	quizzes driven.QuizStore,
	documents driven.DocumentStore,
	usage driven.UsageStore,
	extractor driven.TextExtractor,
	fetcher driven.SourceFetcher,
	worker *GenerationService,
) *QuizService {
	return &QuizService{
		quizzes:   quizzes,
		documents: documents,
		usage:     usage,
		extractor: extractor,
		fetcher:   fetcher,
		worker:    worker,
	}
}

// CreateFromUpload extracts text from an uploaded file, persists the document
// and a pending quiz, and queues it for generation.
func (s *QuizService) CreateFromUpload(ctx context.Context, filename string, data []byte, params QuizParams) (*model.Quiz, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	text, kind, err := s.extractor.Extract(filename, data)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		Kind:   kind,
		Origin: model.DocumentOriginUpload,
		Name:   filename,
		Text:   text,
	}
	return s.create(ctx, doc, params)
}

// CreateFromGitHub fetches a repository file, extracts its text, persists the
// document and a pending quiz, and queues it for generation.
func (s *QuizService) CreateFromGitHub(ctx context.Context, ref driven.SourceRef, params QuizParams) (*model.Quiz, error) {
	if s.fetcher == nil {
		return nil, errors.New("no repository source configured")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	file, err := s.fetcher.FetchFile(ctx, ref)
	if err != nil {
		return nil, err
	}

	text, kind, err := s.extractor.Extract(file.Name, file.Content)
	if err != nil {
		return nil, err
	}

	source := ref.FullName()
	if ref.Ref != "" {
		source += "@" + ref.Ref
	}

	doc := &model.Document{
		Kind:   kind,
		Origin: model.DocumentOriginGitHub,
		Name:   ref.Path,
		Source: source,
		Text:   text,
	}
	return s.create(ctx, doc, params)
}

func (s *QuizService) create(ctx context.Context, doc *model.Document, params QuizParams) (*model.Quiz, error) {
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}

	quiz := &model.Quiz{
		PublicID:     uuid.NewString(),
		DocumentID:   doc.ID,
		Subject:      strings.TrimSpace(params.Subject),
		Tone:         params.Tone,
		NumQuestions: params.Number,
		Status:       model.QuizStatusPending,
	}
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, err
	}

	s.worker.Submit(quiz.ID)
	return quiz, nil
}

// List returns all quizzes, newest first.
func (s *QuizService) List(ctx context.Context) ([]model.Quiz, error) {
	return s.quizzes.List(ctx)
}

// ListByStatus returns quizzes in the given status.
func (s *QuizService) ListByStatus(ctx context.Context, status model.QuizStatus) ([]model.Quiz, error) {
	return s.quizzes.ListByStatus(ctx, status)
}

// Get returns a quiz by public ID, together with its source document.
func (s *QuizService) Get(ctx context.Context, publicID string) (*model.Quiz, *model.Document, error) {
	quiz, err := s.quizzes.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, nil, err
	}
	if quiz == nil {
		return nil, nil, ErrQuizNotFound
	}

	doc, err := s.documents.GetByID(ctx, quiz.DocumentID)
	if err != nil {
		return nil, nil, err
	}
	return quiz, doc, nil
}

// QuizUsage returns the usage rows recorded for a quiz.
func (s *QuizService) QuizUsage(ctx context.Context, quizID int64) ([]model.Usage, error) {
	return s.usage.ListByQuiz(ctx, quizID)
}

// TableRows renders a generated quiz as display rows.
// Returns ErrQuizNotReady when the quiz has no questions yet.
func (s *QuizService) TableRows(quiz *model.Quiz) ([]TableRow, error) {
	if quiz.Status != model.QuizStatusGenerated || len(quiz.Questions) == 0 {
		return nil, ErrQuizNotReady
	}

	rows := make([]TableRow, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		choices := make([]string, 0, len(model.OptionKeys))
		for _, key := range model.OptionKeys {
			choices = append(choices, fmt.Sprintf("%s) %s", key, q.Options.Get(key)))
		}
		rows = append(rows, TableRow{
			MCQ:     q.Prompt,
			Choices: strings.Join(choices, " | "),
			Correct: string(q.Correct),
		})
	}
	return rows, nil
}

// ExportCSV writes a generated quiz as CSV with one question per row.
func (s *QuizService) ExportCSV(w io.Writer, quiz *model.Quiz) error {
	if quiz.Status != model.QuizStatusGenerated || len(quiz.Questions) == 0 {
		return ErrQuizNotReady
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"MCQ", "Choice A", "Choice B", "Choice C", "Choice D", "Correct"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, q := range quiz.Questions {
		record := []string{q.Prompt, q.Options.A, q.Options.B, q.Options.C, q.Options.D, string(q.Correct)}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", q.Index, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Regenerate re-runs the model pipeline for an existing quiz. Returns
// ErrQuizInProgress when a run is already active for it.
func (s *QuizService) Regenerate(ctx context.Context, publicID string) error {
	quiz, err := s.quizzes.GetByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	if quiz == nil {
		return ErrQuizNotFound
	}
	if quiz.Status == model.QuizStatusGenerating {
		return ErrQuizInProgress
	}

	return s.worker.Regenerate(ctx, quiz.ID)
}

// Delete removes a quiz and its source document when no other quiz uses it.
func (s *QuizService) Delete(ctx context.Context, publicID string) error {
	quiz, err := s.quizzes.GetByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	if quiz == nil {
		return ErrQuizNotFound
	}

	if err := s.quizzes.Delete(ctx, quiz.ID); err != nil {
		return err
	}
	// The document is per-quiz today; remove it with the quiz.
	return s.documents.Delete(ctx, quiz.DocumentID)
}

// Usage returns per-run usage rows with aggregate totals.
func (s *QuizService) Usage(ctx context.Context) (*UsageSummary, error) {
	totals, err := s.usage.Totals(ctx)
	if err != nil {
		return nil, err
	}
	runs, err := s.usage.List(ctx)
	if err != nil {
		return nil, err
	}
	return &UsageSummary{Totals: totals, Runs: runs}, nil
}
