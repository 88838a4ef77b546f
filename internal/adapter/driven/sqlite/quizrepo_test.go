package sqlite

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/quizforge/internal/domain/model"
)

// addTestDocument inserts a document required by the quiz foreign key.
func addTestDocument(t *testing.T, db *DB) int64 {
	t.Helper()
	docRepo := NewDocumentRepo(db)
	doc := &model.Document{
		Kind:   model.DocumentKindText,
		Origin: model.DocumentOriginUpload,
		Name:   "notes.txt",
		Text:   "Gradient descent minimizes a differentiable loss function step by step.",
	}
	require.NoError(t, docRepo.Create(context.Background(), doc))
	return doc.ID
}

func makeQuiz(docID int64, subject string) *model.Quiz {
	return &model.Quiz{
		PublicID:     uuid.NewString(),
		DocumentID:   docID,
		Subject:      subject,
		Tone:         model.ToneEducational,
		NumQuestions: 2,
		Status:       model.QuizStatusPending,
	}
}

func makeQuestions() []model.Question {
	return []model.Question{
		{
			Index:   1,
			Prompt:  "What does gradient descent minimize?",
			Options: model.Options{A: "A loss function", B: "Memory usage", C: "Disk space", D: "Network latency"},
			Correct: model.OptionA,
		},
		{
			Index:   2,
			Prompt:  "Gradient descent updates parameters in which direction?",
			Options: model.Options{A: "Random", B: "Positive gradient", C: "Negative gradient", D: "Orthogonal"},
			Correct: model.OptionC,
		},
	}
}

func TestQuizRepo_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	docID := addTestDocument(t, db)
	repo := NewQuizRepo(db)
	ctx := context.Background()

	quiz := makeQuiz(docID, "Machine Learning")
	require.NoError(t, repo.Create(ctx, quiz))
	require.NotZero(t, quiz.ID)

	got, err := repo.GetByPublicID(ctx, quiz.PublicID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, quiz.ID, got.ID)
	assert.Equal(t, "Machine Learning", got.Subject)
	assert.Equal(t, model.ToneEducational, got.Tone)
	assert.Equal(t, 2, got.NumQuestions)
	assert.Equal(t, model.QuizStatusPending, got.Status)
	assert.Nil(t, got.Evaluation)
	assert.Empty(t, got.Questions)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestQuizRepo_GetByPublicID_Missing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuizRepo(db)

	got, err := repo.GetByPublicID(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQuizRepo_SetResult(t *testing.T) {
	db := setupTestDB(t)
	docID := addTestDocument(t, db)
	repo := NewQuizRepo(db)
	ctx := context.Background()

	quiz := makeQuiz(docID, "Machine Learning")
	require.NoError(t, repo.Create(ctx, quiz))

	eval := model.Evaluation{
		ComplexityAnalysis: "Well suited for introductory students.",
		IsAppropriate:      true,
	}
	require.NoError(t, repo.SetResult(ctx, quiz.ID, makeQuestions(), eval))

	got, err := repo.GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, model.QuizStatusGenerated, got.Status)
	require.NotNil(t, got.Evaluation)
	assert.True(t, got.Evaluation.IsAppropriate)
	assert.False(t, got.Evaluation.Revised)
	assert.Equal(t, "Well suited for introductory students.", got.Evaluation.ComplexityAnalysis)

	require.Len(t, got.Questions, 2)
	assert.Equal(t, 1, got.Questions[0].Index)
	assert.Equal(t, model.OptionA, got.Questions[0].Correct)
	assert.Equal(t, "A loss function", got.Questions[0].Options.A)
	assert.Equal(t, model.OptionC, got.Questions[1].Correct)
}

func TestQuizRepo_SetResult_ReplacesQuestions(t *testing.T) {
	db := setupTestDB(t)
	docID := addTestDocument(t, db)
	repo := NewQuizRepo(db)
	ctx := context.Background()

	quiz := makeQuiz(docID, "Machine Learning")
	require.NoError(t, repo.Create(ctx, quiz))
	require.NoError(t, repo.SetResult(ctx, quiz.ID, makeQuestions(), model.Evaluation{IsAppropriate: true}))

	// Regeneration replaces the whole question set.
	replacement := makeQuestions()[:1]
	replacement[0].Prompt = "What is a learning rate?"
	require.NoError(t, repo.SetResult(ctx, quiz.ID, replacement, model.Evaluation{IsAppropriate: true, Revised: true}))

	got, err := repo.GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	require.Len(t, got.Questions, 1)
	assert.Equal(t, "What is a learning rate?", got.Questions[0].Prompt)
	assert.True(t, got.Evaluation.Revised)
}

func TestQuizRepo_StatusTransitions(t *testing.T) {
	db := setupTestDB(t)
	docID := addTestDocument(t, db)
	repo := NewQuizRepo(db)
	ctx := context.Background()

	quiz := makeQuiz(docID, "Machine Learning")
	require.NoError(t, repo.Create(ctx, quiz))

	require.NoError(t, repo.SetStatus(ctx, quiz.ID, model.QuizStatusGenerating))
	got, err := repo.GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuizStatusGenerating, got.Status)

	require.NoError(t, repo.SetFailed(ctx, quiz.ID, "model api returned status 502"))
	got, err = repo.GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuizStatusFailed, got.Status)
	assert.Equal(t, "model api returned status 502", got.FailureReason)

	// Re-queuing clears the failure reason.
	require.NoError(t, repo.SetStatus(ctx, quiz.ID, model.QuizStatusPending))
	got, err = repo.GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Empty(t, got.FailureReason)
}

func TestQuizRepo_ListByStatus(t *testing.T) {
	db := setupTestDB(t)
	docID := addTestDocument(t, db)
	repo := NewQuizRepo(db)
	ctx := context.Background()

	first := makeQuiz(docID, "First")
	second := makeQuiz(docID, "Second")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.SetStatus(ctx, second.ID, model.QuizStatusGenerating))

	pending, err := repo.ListByStatus(ctx, model.QuizStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "First", pending[0].Subject)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestQuizRepo_Delete_CascadesQuestions(t *testing.T) {
	db := setupTestDB(t)
	docID := addTestDocument(t, db)
	repo := NewQuizRepo(db)
	ctx := context.Background()

	quiz := makeQuiz(docID, "Machine Learning")
	require.NoError(t, repo.Create(ctx, quiz))
	require.NoError(t, repo.SetResult(ctx, quiz.ID, makeQuestions(), model.Evaluation{IsAppropriate: true}))

	require.NoError(t, repo.Delete(ctx, quiz.ID))

	got, err := repo.GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	var count int
	require.NoError(t, db.Reader.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count))
	assert.Zero(t, count)
}

func TestDocumentRepo_DeleteCascadesQuizzes(t *testing.T) {
	db := setupTestDB(t)
	docID := addTestDocument(t, db)
	quizRepo := NewQuizRepo(db)
	docRepo := NewDocumentRepo(db)
	ctx := context.Background()

	quiz := makeQuiz(docID, "Machine Learning")
	require.NoError(t, quizRepo.Create(ctx, quiz))

	require.NoError(t, docRepo.Delete(ctx, docID))

	got, err := quizRepo.GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
