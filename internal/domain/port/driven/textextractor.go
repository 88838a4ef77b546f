package driven

import (
	"github.com/ericfisherdev/quizforge/internal/domain/model"
)

// TextExtractor defines the driven port for turning raw document bytes into
// plain text usable as prompt context.
type TextExtractor interface {
	// Extract returns the plain text of the document and the detected
	// format. The filename extension drives format detection.
	Extract(filename string, data []byte) (text string, kind model.DocumentKind, err error)
}
