package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/quizforge/internal/application"
	"github.com/ericfisherdev/quizforge/internal/domain/model"
	"github.com/ericfisherdev/quizforge/internal/domain/port/driven"
)

const appropriateEvaluation = `{
	"complexity_analysis": "Recall-level questions, well matched to the audience.",
	"is_appropriate": true,
	"final_quiz": ` + twoQuestionQuiz + `
}`

type generationFixture struct {
	service   *application.GenerationService
	quizzes   *memQuizStore
	documents *memDocumentStore
	usage     *memUsageStore
}

func newGenerationFixture(t *testing.T, chat driven.ChatModel) *generationFixture {
	t.Helper()

	provider := application.NewModelClientProvider(chat, "gpt-3.5-turbo")
	fix := &generationFixture{
		quizzes:   newMemQuizStore(),
		documents: newMemDocumentStore(),
		usage:     &memUsageStore{},
	}
	fix.service = application.NewGenerationService(
		provider, fix.quizzes, fix.documents, fix.usage, 0.7, time.Hour,
	)
	return fix
}

// startWorker runs the worker loop for the duration of the test.
func (f *generationFixture) startWorker(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.service.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// addQuiz seeds a document and a quiz in the given status, returning the quiz ID.
func (f *generationFixture) addQuiz(t *testing.T, status model.QuizStatus) int64 {
	t.Helper()

	doc := &model.Document{
		Kind:   model.DocumentKindText,
		Origin: model.DocumentOriginUpload,
		Name:   "cells.txt",
		Text:   "The mitochondria is the powerhouse of the cell. DNA carries genetic information.",
	}
	require.NoError(t, f.documents.Create(context.Background(), doc))

	quiz := &model.Quiz{
		PublicID:     "test-quiz",
		DocumentID:   doc.ID,
		Subject:      "biology",
		Tone:         model.ToneEducational,
		NumQuestions: 2,
		Status:       status,
	}
	require.NoError(t, f.quizzes.Create(context.Background(), quiz))
	return quiz.ID
}

func TestGenerationService_Regenerate_Success(t *testing.T) {
	chat := &scriptedChatModel{
		responses: []driven.ChatResult{
			{
				Content: twoQuestionQuiz,
				Model:   "gpt-3.5-turbo-0125",
				Usage:   driven.ChatUsage{PromptTokens: 400, CompletionTokens: 200, TotalTokens: 600},
			},
			{
				Content: appropriateEvaluation,
				Model:   "gpt-3.5-turbo-0125",
				Usage:   driven.ChatUsage{PromptTokens: 300, CompletionTokens: 250, TotalTokens: 550},
			},
		},
	}
	fix := newGenerationFixture(t, chat)
	quizID := fix.addQuiz(t, model.QuizStatusFailed)
	fix.startWorker(t)

	require.NoError(t, fix.service.Regenerate(context.Background(), quizID))

	quiz, err := fix.quizzes.GetByID(context.Background(), quizID)
	require.NoError(t, err)
	require.NotNil(t, quiz)
	assert.Equal(t, model.QuizStatusGenerated, quiz.Status)
	require.Len(t, quiz.Questions, 2)
	require.NotNil(t, quiz.Evaluation)
	assert.True(t, quiz.Evaluation.IsAppropriate)
	assert.False(t, quiz.Evaluation.Revised)

	// Both passes went to the model with the configured temperature.
	require.Len(t, chat.requests, 2)
	assert.InDelta(t, 0.7, chat.requests[0].Temperature, 0.0001)

	// One usage row covering both passes.
	require.Len(t, fix.usage.records, 1)
	usage := fix.usage.records[0]
	assert.Equal(t, quizID, usage.QuizID)
	assert.Equal(t, "gpt-3.5-turbo-0125", usage.Model)
	assert.Equal(t, 700, usage.PromptTokens)
	assert.Equal(t, 450, usage.CompletionTokens)
	assert.Equal(t, 1150, usage.TotalTokens)
}

func TestGenerationService_SweepProcessesPending(t *testing.T) {
	chat := &scriptedChatModel{
		responses: []driven.ChatResult{
			{Content: twoQuestionQuiz, Model: "gpt-3.5-turbo", Usage: driven.ChatUsage{TotalTokens: 100}},
			{Content: appropriateEvaluation, Model: "gpt-3.5-turbo", Usage: driven.ChatUsage{TotalTokens: 100}},
		},
	}
	fix := newGenerationFixture(t, chat)
	quizID := fix.addQuiz(t, model.QuizStatusPending)

	// The initial sweep on Start picks the quiz up without a Submit.
	fix.startWorker(t)

	require.Eventually(t, func() bool {
		quiz, err := fix.quizzes.GetByID(context.Background(), quizID)
		return err == nil && quiz != nil && quiz.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	quiz, err := fix.quizzes.GetByID(context.Background(), quizID)
	require.NoError(t, err)
	assert.Equal(t, model.QuizStatusGenerated, quiz.Status)
}

func TestGenerationService_SubmitAfterSweepDoesNotRerun(t *testing.T) {
	chat := &scriptedChatModel{
		responses: []driven.ChatResult{
			{Content: twoQuestionQuiz, Model: "gpt-3.5-turbo", Usage: driven.ChatUsage{TotalTokens: 100}},
			{Content: appropriateEvaluation, Model: "gpt-3.5-turbo", Usage: driven.ChatUsage{TotalTokens: 100}},
		},
	}
	fix := newGenerationFixture(t, chat)
	quizID := fix.addQuiz(t, model.QuizStatusPending)

	// Queue the quiz before the worker starts. The startup sweep sees the
	// same pending quiz, so it reaches the worker twice; only the first
	// arrival may run the pipeline.
	fix.service.Submit(quizID)
	fix.startWorker(t)

	require.Eventually(t, func() bool {
		quiz, err := fix.quizzes.GetByID(context.Background(), quizID)
		return err == nil && quiz != nil && quiz.Terminal() && chat.calls() == 2
	}, 2*time.Second, 10*time.Millisecond)

	// The duplicate arrival must not spend more tokens or touch the result.
	assert.Never(t, func() bool {
		return chat.calls() > 2
	}, 200*time.Millisecond, 20*time.Millisecond)

	quiz, err := fix.quizzes.GetByID(context.Background(), quizID)
	require.NoError(t, err)
	assert.Equal(t, model.QuizStatusGenerated, quiz.Status)
	assert.Empty(t, quiz.FailureReason)
}

func TestGenerationService_SubmitSkipsFinishedQuiz(t *testing.T) {
	chat := &scriptedChatModel{}
	fix := newGenerationFixture(t, chat)
	quizID := fix.addQuiz(t, model.QuizStatusGenerated)

	fix.service.Submit(quizID)
	fix.startWorker(t)

	assert.Never(t, func() bool {
		quiz, err := fix.quizzes.GetByID(context.Background(), quizID)
		return err != nil || quiz == nil ||
			quiz.Status != model.QuizStatusGenerated || chat.calls() > 0
	}, 200*time.Millisecond, 20*time.Millisecond)
}

func TestGenerationService_NoModelClient(t *testing.T) {
	fix := newGenerationFixture(t, nil)
	quizID := fix.addQuiz(t, model.QuizStatusFailed)
	fix.startWorker(t)

	err := fix.service.Regenerate(context.Background(), quizID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model API key configured")

	quiz, getErr := fix.quizzes.GetByID(context.Background(), quizID)
	require.NoError(t, getErr)
	assert.Equal(t, model.QuizStatusFailed, quiz.Status)
	assert.Contains(t, quiz.FailureReason, "no model API key configured")
}

func TestGenerationService_MissingDocument(t *testing.T) {
	chat := &scriptedChatModel{}
	fix := newGenerationFixture(t, chat)
	quizID := fix.addQuiz(t, model.QuizStatusFailed)
	fix.startWorker(t)

	quiz, err := fix.quizzes.GetByID(context.Background(), quizID)
	require.NoError(t, err)
	require.NoError(t, fix.documents.Delete(context.Background(), quiz.DocumentID))

	regenErr := fix.service.Regenerate(context.Background(), quizID)
	require.Error(t, regenErr)

	quiz, err = fix.quizzes.GetByID(context.Background(), quizID)
	require.NoError(t, err)
	assert.Equal(t, model.QuizStatusFailed, quiz.Status)
	assert.Contains(t, quiz.FailureReason, "no longer exists")
	assert.Empty(t, chat.requests)
}

func TestGenerationService_GenerationPassError(t *testing.T) {
	chat := &scriptedChatModel{
		errs: []error{driven.ErrRateLimited},
	}
	fix := newGenerationFixture(t, chat)
	quizID := fix.addQuiz(t, model.QuizStatusFailed)
	fix.startWorker(t)

	err := fix.service.Regenerate(context.Background(), quizID)
	require.ErrorIs(t, err, driven.ErrRateLimited)

	quiz, getErr := fix.quizzes.GetByID(context.Background(), quizID)
	require.NoError(t, getErr)
	assert.Equal(t, model.QuizStatusFailed, quiz.Status)
	assert.Contains(t, quiz.FailureReason, "generation pass")
	// No tokens spent, nothing to record.
	assert.Empty(t, fix.usage.records)
}

func TestGenerationService_ParseFailureStillRecordsUsage(t *testing.T) {
	chat := &scriptedChatModel{
		responses: []driven.ChatResult{
			{
				Content: "I'm sorry, I can't produce a quiz from this text.",
				Model:   "gpt-3.5-turbo",
				Usage:   driven.ChatUsage{PromptTokens: 400, CompletionTokens: 30, TotalTokens: 430},
			},
		},
	}
	fix := newGenerationFixture(t, chat)
	quizID := fix.addQuiz(t, model.QuizStatusFailed)
	fix.startWorker(t)

	err := fix.service.Regenerate(context.Background(), quizID)
	require.ErrorIs(t, err, application.ErrNoJSON)

	quiz, getErr := fix.quizzes.GetByID(context.Background(), quizID)
	require.NoError(t, getErr)
	assert.Equal(t, model.QuizStatusFailed, quiz.Status)

	// Tokens were spent on the failed pass and must be accounted for.
	require.Len(t, fix.usage.records, 1)
	assert.Equal(t, 430, fix.usage.records[0].TotalTokens)
}

func TestGenerationService_EvaluationRevisesQuiz(t *testing.T) {
	revised := `{
		"complexity_analysis": "Question two was too ambiguous and has been tightened.",
		"is_appropriate": false,
		"final_quiz": {
			"1": {
				"mcq": "What is the powerhouse of the cell?",
				"options": {"a": "Mitochondria", "b": "Nucleus", "c": "Ribosome", "d": "Golgi apparatus"},
				"correct": "a"
			},
			"2": {
				"mcq": "Which molecule encodes hereditary information?",
				"options": {"a": "ATP", "b": "DNA", "c": "Lipid", "d": "Glucose"},
				"correct": "b"
			}
		}
	}`
	chat := &scriptedChatModel{
		responses: []driven.ChatResult{
			{Content: twoQuestionQuiz, Model: "gpt-3.5-turbo", Usage: driven.ChatUsage{TotalTokens: 100}},
			{Content: revised, Model: "gpt-3.5-turbo", Usage: driven.ChatUsage{TotalTokens: 100}},
		},
	}
	fix := newGenerationFixture(t, chat)
	quizID := fix.addQuiz(t, model.QuizStatusFailed)
	fix.startWorker(t)

	require.NoError(t, fix.service.Regenerate(context.Background(), quizID))

	quiz, err := fix.quizzes.GetByID(context.Background(), quizID)
	require.NoError(t, err)
	require.NotNil(t, quiz.Evaluation)
	assert.False(t, quiz.Evaluation.IsAppropriate)
	assert.True(t, quiz.Evaluation.Revised)
	assert.Equal(t, "Which molecule encodes hereditary information?", quiz.Questions[1].Prompt)
}

func TestGenerationService_Regenerate_ContextCanceled(t *testing.T) {
	fix := newGenerationFixture(t, &scriptedChatModel{})
	// Worker not started; Regenerate must bail on context cancellation
	// instead of blocking forever.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fix.service.Regenerate(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
