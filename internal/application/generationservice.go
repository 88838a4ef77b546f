package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/quizforge/internal/domain/model"
	"github.com/ericfisherdev/quizforge/internal/domain/port/driven"
)

// regenRequest represents a manual regeneration trigger.
type regenRequest struct {
	quizID int64
	done   chan error
}

// GenerationService runs the quiz generation pipeline: extract source text
// from the stored document, ask the model for questions, ask it again to
// evaluate them, then persist the result and token usage. Quizzes are
// processed one at a time from a submission queue; a periodic sweep picks up
// pending quizzes that missed the queue (e.g. after a restart).
type GenerationService struct {
	provider    *ModelClientProvider
	quizzes     driven.QuizStore
	documents   driven.DocumentStore
	usage       driven.UsageStore
	temperature float64
	sweep       time.Duration

	submitCh chan int64
	regenCh  chan regenRequest
}

// NewGenerationService creates a GenerationService with all required
// dependencies.
func NewGenerationService(
	provider *ModelClientProvider,
	quizzes driven.QuizStore,
	documents driven.DocumentStore,
	usage driven.UsageStore,
	temperature float64,
	sweepInterval time.Duration,
) *GenerationService {
	return &GenerationService{
		provider:    provider,
		quizzes:     quizzes,
		documents:   documents,
		usage:       usage,
		temperature: temperature,
		sweep:       sweepInterval,
		submitCh:    make(chan int64, 64),
		regenCh:     make(chan regenRequest),
	}
}

// Start begins the worker loop. It runs an immediate sweep for pending
// quizzes, then serves submissions, manual regeneration requests, and
// periodic sweeps. Start blocks until the context is canceled.
func (s *GenerationService) Start(ctx context.Context) {
	s.sweepPending(ctx)

	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("generation worker stopped")
			return
		case <-ticker.C:
			s.sweepPending(ctx)
		case id := <-s.submitCh:
			if err := s.processPending(ctx, id); err != nil {
				slog.Error("quiz generation failed", "quiz_id", id, "error", err)
			}
		case req := <-s.regenCh:
			req.done <- s.process(ctx, req.quizID)
		}
	}
}

// Submit queues a quiz for generation. When the queue is full the quiz stays
// pending and the next sweep picks it up.
func (s *GenerationService) Submit(quizID int64) {
	select {
	case s.submitCh <- quizID:
	default:
		slog.Warn("submission queue full, quiz deferred to sweep", "quiz_id", quizID)
	}
}

// Regenerate re-runs the pipeline for an existing quiz, bypassing the queue
// order. It blocks until the run completes or the context is canceled.
func (s *GenerationService) Regenerate(ctx context.Context, quizID int64) error {
	done := make(chan error, 1)
	req := regenRequest{quizID: quizID, done: done}

	select {
	case s.regenCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sweepPending processes every quiz still in pending status.
func (s *GenerationService) sweepPending(ctx context.Context) {
	pending, err := s.quizzes.ListByStatus(ctx, model.QuizStatusPending)
	if err != nil {
		slog.Error("sweep: list pending quizzes", "error", err)
		return
	}

	for _, quiz := range pending {
		if ctx.Err() != nil {
			return
		}
		if err := s.processPending(ctx, quiz.ID); err != nil {
			slog.Error("quiz generation failed", "quiz_id", quiz.ID, "error", err)
		}
	}
}

// processPending runs the pipeline only when the quiz is still pending. A
// quiz can sit on the submit queue and be visible to a sweep at the same
// time; whichever path arrives second must leave the finished quiz alone.
func (s *GenerationService) processPending(ctx context.Context, quizID int64) error {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		return err
	}
	if quiz == nil {
		return fmt.Errorf("quiz %d not found", quizID)
	}
	if quiz.Status != model.QuizStatusPending {
		return nil
	}
	return s.run(ctx, quiz)
}

// process runs the full pipeline for one quiz regardless of its current
// status. Manual regeneration goes through here.
func (s *GenerationService) process(ctx context.Context, quizID int64) error {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		return err
	}
	if quiz == nil {
		return fmt.Errorf("quiz %d not found", quizID)
	}
	return s.run(ctx, quiz)
}

func (s *GenerationService) run(ctx context.Context, quiz *model.Quiz) error {
	quizID := quiz.ID

	client := s.provider.Get()
	if client == nil {
		return s.fail(ctx, quizID, fmt.Errorf("no model API key configured"))
	}

	doc, err := s.documents.GetByID(ctx, quiz.DocumentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return s.fail(ctx, quizID, fmt.Errorf("source document %d no longer exists", quiz.DocumentID))
	}

	if err := s.quizzes.SetStatus(ctx, quizID, model.QuizStatusGenerating); err != nil {
		return err
	}

	start := time.Now()

	// Tokens are spent even when parsing fails afterwards, so usage is
	// recorded for every run that reached the API.
	var spent driven.ChatUsage
	var servedModel string
	defer func() {
		if spent.TotalTokens == 0 {
			return
		}
		if err := s.usage.Record(ctx, model.Usage{
			QuizID:           quizID,
			Model:            servedModel,
			PromptTokens:     spent.PromptTokens,
			CompletionTokens: spent.CompletionTokens,
			TotalTokens:      spent.TotalTokens,
		}); err != nil {
			slog.Error("record usage", "quiz_id", quizID, "error", err)
		}
	}()

	// Pass 1: generation.
	genResult, err := client.Complete(ctx, driven.ChatRequest{
		Messages:    GenerationPrompt(doc.Text, quiz.NumQuestions, quiz.Subject, quiz.Tone),
		Temperature: s.temperature,
	})
	if err != nil {
		return s.fail(ctx, quizID, fmt.Errorf("generation pass: %w", err))
	}
	addUsage(&spent, genResult.Usage)
	servedModel = genResult.Model

	questions, err := ParseQuiz(genResult.Content, quiz.NumQuestions)
	if err != nil {
		return s.fail(ctx, quizID, fmt.Errorf("generation pass: %w", err))
	}

	if spread := AnswerSpread(questions); spread == 1 && quiz.NumQuestions >= 4 {
		slog.Warn("model put every correct answer on the same letter",
			"quiz_id", quizID, "letter", questions[0].Correct)
	}

	quizJSON, err := QuizJSON(questions)
	if err != nil {
		return s.fail(ctx, quizID, err)
	}

	// Pass 2: evaluation.
	evalResult, err := client.Complete(ctx, driven.ChatRequest{
		Messages:    EvaluationPrompt(quiz.Subject, quizJSON, quiz.NumQuestions),
		Temperature: s.temperature,
	})
	if err != nil {
		return s.fail(ctx, quizID, fmt.Errorf("evaluation pass: %w", err))
	}
	addUsage(&spent, evalResult.Usage)
	if evalResult.Model != "" {
		servedModel = evalResult.Model
	}

	eval, finalQuestions, err := ParseEvaluation(evalResult.Content, quiz.NumQuestions)
	if err != nil {
		return s.fail(ctx, quizID, fmt.Errorf("evaluation pass: %w", err))
	}
	eval.Revised = !QuestionsEqual(questions, finalQuestions)

	if err := s.quizzes.SetResult(ctx, quizID, finalQuestions, eval); err != nil {
		return err
	}

	slog.Info("quiz generated",
		"quiz_id", quizID,
		"questions", len(finalQuestions),
		"appropriate", eval.IsAppropriate,
		"revised", eval.Revised,
		"total_tokens", spent.TotalTokens,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// fail marks the quiz failed and returns the original error.
func (s *GenerationService) fail(ctx context.Context, quizID int64, cause error) error {
	if err := s.quizzes.SetFailed(ctx, quizID, cause.Error()); err != nil {
		slog.Error("mark quiz failed", "quiz_id", quizID, "error", err)
	}
	return cause
}

func addUsage(total *driven.ChatUsage, u driven.ChatUsage) {
	total.PromptTokens += u.PromptTokens
	total.CompletionTokens += u.CompletionTokens
	total.TotalTokens += u.TotalTokens
}
