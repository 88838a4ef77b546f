package application

import (
	"context"

	"github.com/ericfisherdev/quizforge/internal/domain/model"
	"github.com/ericfisherdev/quizforge/internal/domain/port/driven"
)

// HealthStatus is the snapshot reported by the health endpoint.
type HealthStatus struct {
	DBReachable     bool
	ModelConfigured bool
	PendingQuizzes  int
	FailedQuizzes   int
}

// Healthy reports whether the service can do useful work right now.
// A missing model key degrades the service but storage must be reachable.
func (h HealthStatus) Healthy() bool {
	return h.DBReachable
}

// HealthService assembles the health snapshot from the stores and the model
// client provider.
type HealthService struct {
	quizzes  driven.QuizStore
	provider *ModelClientProvider
}

// NewHealthService creates a HealthService with the required dependencies.
func NewHealthService(quizzes driven.QuizStore, provider *ModelClientProvider) *HealthService {
	return &HealthService{
		quizzes:  quizzes,
		provider: provider,
	}
}

// Status returns the current health snapshot. Store errors are folded into
// DBReachable rather than propagated; the endpoint reports health, it does
// not fail on it.
func (s *HealthService) Status(ctx context.Context) HealthStatus {
	status := HealthStatus{
		ModelConfigured: s.provider.HasClient(),
	}

	pending, err := s.quizzes.ListByStatus(ctx, model.QuizStatusPending)
	if err != nil {
		return status
	}
	status.DBReachable = true
	status.PendingQuizzes = len(pending)

	if failed, err := s.quizzes.ListByStatus(ctx, model.QuizStatusFailed); err == nil {
		status.FailedQuizzes = len(failed)
	}

	return status
}
