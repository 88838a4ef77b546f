package model

// QuizStatus represents the lifecycle state of a quiz.
type QuizStatus string

const (
	QuizStatusPending    QuizStatus = "pending"    // Queued, not yet picked up by the worker.
	QuizStatusGenerating QuizStatus = "generating" // Worker is running the model pipeline.
	QuizStatusGenerated  QuizStatus = "generated"  // Questions and evaluation are available.
	QuizStatusFailed     QuizStatus = "failed"     // Pipeline failed; FailureReason is set.
)

// Tone controls the register the model is asked to write questions in.
type Tone string

const (
	ToneEducational Tone = "educational"
	ToneCasual      Tone = "casual"
	ToneFormal      Tone = "formal"
)

// Valid reports whether t is one of the supported tones.
func (t Tone) Valid() bool {
	switch t {
	case ToneEducational, ToneCasual, ToneFormal:
		return true
	}
	return false
}

// DocumentKind identifies the source document format.
type DocumentKind string

const (
	DocumentKindPDF      DocumentKind = "pdf"
	DocumentKindText     DocumentKind = "txt"
	DocumentKindMarkdown DocumentKind = "markdown"
)

// DocumentOrigin identifies how a source document entered the system.
type DocumentOrigin string

const (
	DocumentOriginUpload DocumentOrigin = "upload" // Uploaded through the web form or API.
	DocumentOriginGitHub DocumentOrigin = "github" // Fetched from a GitHub repository.
)

// OptionKey is the letter identifying one of a question's four choices.
type OptionKey string

const (
	OptionA OptionKey = "a"
	OptionB OptionKey = "b"
	OptionC OptionKey = "c"
	OptionD OptionKey = "d"
)

// OptionKeys lists the four option letters in display order.
var OptionKeys = []OptionKey{OptionA, OptionB, OptionC, OptionD}

// Valid reports whether k is one of the four option letters.
func (k OptionKey) Valid() bool {
	switch k {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}
