package application_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/ericfisherdev/quizforge/internal/domain/model"
	"github.com/ericfisherdev/quizforge/internal/domain/port/driven"
)

// --- In-memory store fakes ---

type memQuizStore struct {
	mu      sync.Mutex
	nextID  int64
	quizzes map[int64]*model.Quiz
}

func newMemQuizStore() *memQuizStore {
	return &memQuizStore{quizzes: make(map[int64]*model.Quiz)}
}

func (m *memQuizStore) Create(_ context.Context, quiz *model.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	quiz.ID = m.nextID
	stored := *quiz
	m.quizzes[quiz.ID] = &stored
	return nil
}

func (m *memQuizStore) GetByPublicID(_ context.Context, publicID string) (*model.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.quizzes {
		if q.PublicID == publicID {
			out := *q
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memQuizStore) GetByID(_ context.Context, id int64) (*model.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return nil, nil
	}
	out := *q
	return &out, nil
}

func (m *memQuizStore) List(_ context.Context) ([]model.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Quiz, 0, len(m.quizzes))
	for id := m.nextID; id >= 1; id-- {
		if q, ok := m.quizzes[id]; ok {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *memQuizStore) ListByStatus(_ context.Context, status model.QuizStatus) ([]model.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Quiz
	for id := int64(1); id <= m.nextID; id++ {
		if q, ok := m.quizzes[id]; ok && q.Status == status {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *memQuizStore) SetStatus(_ context.Context, id int64, status model.QuizStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return fmt.Errorf("quiz %d not found", id)
	}
	q.Status = status
	q.FailureReason = ""
	return nil
}

func (m *memQuizStore) SetFailed(_ context.Context, id int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return fmt.Errorf("quiz %d not found", id)
	}
	q.Status = model.QuizStatusFailed
	q.FailureReason = reason
	return nil
}

func (m *memQuizStore) SetResult(_ context.Context, id int64, questions []model.Question, eval model.Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return fmt.Errorf("quiz %d not found", id)
	}
	q.Status = model.QuizStatusGenerated
	q.FailureReason = ""
	q.Questions = questions
	q.Evaluation = &eval
	return nil
}

func (m *memQuizStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.quizzes, id)
	return nil
}

type memDocumentStore struct {
	mu     sync.Mutex
	nextID int64
	docs   map[int64]*model.Document
}

func newMemDocumentStore() *memDocumentStore {
	return &memDocumentStore{docs: make(map[int64]*model.Document)}
}

func (m *memDocumentStore) Create(_ context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	doc.ID = m.nextID
	doc.CharCount = len(doc.Text)
	stored := *doc
	m.docs[doc.ID] = &stored
	return nil
}

func (m *memDocumentStore) GetByID(_ context.Context, id int64) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	out := *d
	return &out, nil
}

func (m *memDocumentStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

type memUsageStore struct {
	mu      sync.Mutex
	records []model.Usage
}

func (m *memUsageStore) Record(_ context.Context, usage model.Usage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	usage.ID = int64(len(m.records) + 1)
	m.records = append(m.records, usage)
	return nil
}

func (m *memUsageStore) ListByQuiz(_ context.Context, quizID int64) ([]model.Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Usage
	for _, u := range m.records {
		if u.QuizID == quizID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsageStore) List(_ context.Context) ([]model.Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Usage, len(m.records))
	for i, u := range m.records {
		out[len(m.records)-1-i] = u
	}
	return out, nil
}

func (m *memUsageStore) Totals(_ context.Context) (model.UsageTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var t model.UsageTotals
	for _, u := range m.records {
		t.Runs++
		t.PromptTokens += u.PromptTokens
		t.CompletionTokens += u.CompletionTokens
		t.TotalTokens += u.TotalTokens
	}
	return t, nil
}

// --- Adapter fakes ---

// scriptedChatModel returns canned responses in order and records requests.
type scriptedChatModel struct {
	mu        sync.Mutex
	responses []driven.ChatResult
	errs      []error
	requests  []driven.ChatRequest
}

func (m *scriptedChatModel) Complete(_ context.Context, req driven.ChatRequest) (*driven.ChatResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	call := len(m.requests) - 1
	if call < len(m.errs) && m.errs[call] != nil {
		return nil, m.errs[call]
	}
	if call >= len(m.responses) {
		return nil, fmt.Errorf("unexpected chat completion call %d", call+1)
	}
	res := m.responses[call]
	return &res, nil
}

func (m *scriptedChatModel) ListModels(_ context.Context) ([]string, error) {
	return []string{"gpt-3.5-turbo"}, nil
}

// calls returns the number of completion requests seen so far. Safe to call
// while the worker goroutine is running.
func (m *scriptedChatModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type fakeExtractor struct {
	text string
	kind model.DocumentKind
	err  error
}

func (f *fakeExtractor) Extract(_ string, _ []byte) (string, model.DocumentKind, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return f.text, f.kind, nil
}

type fakeFetcher struct {
	file *driven.SourceFile
	err  error
	refs []driven.SourceRef
}

func (f *fakeFetcher) FetchFile(_ context.Context, ref driven.SourceRef) (*driven.SourceFile, error) {
	f.refs = append(f.refs, ref)
	if f.err != nil {
		return nil, f.err
	}
	return f.file, nil
}
