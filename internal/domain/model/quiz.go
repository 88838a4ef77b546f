package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxQuestions is the upper bound on questions per quiz accepted from callers.
const MaxQuestions = 50

// Quiz is a generated multiple-choice quiz together with its model evaluation.
// Questions is empty until the generation worker has completed the pipeline.
type Quiz struct {
	ID            int64
	PublicID      string // UUID used in URLs and API responses.
	DocumentID    int64
	Subject       string
	Tone          Tone
	NumQuestions  int
	Status        QuizStatus
	FailureReason string // Set only when Status is failed.
	Questions     []Question
	Evaluation    *Evaluation // Nil until Status is generated.
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Terminal reports whether the quiz has reached a final state and will not be
// picked up by the generation worker again.
func (q Quiz) Terminal() bool {
	return q.Status == QuizStatusGenerated || q.Status == QuizStatusFailed
}

// Question is a single multiple-choice question with four options.
type Question struct {
	Index   int // 1-based position within the quiz.
	Prompt  string
	Options Options
	Correct OptionKey
}

// Options holds the four answer choices for a question.
type Options struct {
	A string
	B string
	C string
	D string
}

// Get returns the option text for the given letter, or "" for an invalid key.
func (o Options) Get(key OptionKey) string {
	switch key {
	case OptionA:
		return o.A
	case OptionB:
		return o.B
	case OptionC:
		return o.C
	case OptionD:
		return o.D
	}
	return ""
}

// Validate checks that the question has a prompt, four non-empty options, and
// a valid correct letter.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("question %d: empty prompt", q.Index)
	}
	for _, key := range OptionKeys {
		if strings.TrimSpace(q.Options.Get(key)) == "" {
			return fmt.Errorf("question %d: empty option %q", q.Index, key)
		}
	}
	if !q.Correct.Valid() {
		return fmt.Errorf("question %d: invalid correct option %q", q.Index, q.Correct)
	}
	return nil
}

// ErrQuestionCount is returned when a quiz does not contain the requested
// number of questions.
var ErrQuestionCount = errors.New("question count mismatch")

// ValidateQuestions checks a full question set against the requested count:
// indexes must be exactly 1..want, every question must pass Validate, and
// prompts must be unique.
func ValidateQuestions(questions []Question, want int) error {
	if len(questions) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrQuestionCount, len(questions), want)
	}

	seen := make(map[string]int, len(questions))
	for i, q := range questions {
		if q.Index != i+1 {
			return fmt.Errorf("question at position %d has index %d", i+1, q.Index)
		}
		if err := q.Validate(); err != nil {
			return err
		}

		norm := strings.ToLower(strings.TrimSpace(q.Prompt))
		if prev, dup := seen[norm]; dup {
			return fmt.Errorf("question %d duplicates question %d", q.Index, prev)
		}
		seen[norm] = q.Index
	}

	return nil
}

// Evaluation is the model's review of a generated quiz.
type Evaluation struct {
	ComplexityAnalysis string // At most MaxComplexityWords words.
	IsAppropriate      bool
	Revised            bool // True when the evaluation pass changed any question.
}

// MaxComplexityWords bounds the evaluation's complexity analysis length.
const MaxComplexityWords = 50
