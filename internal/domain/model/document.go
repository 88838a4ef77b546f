package model

import "time"

// Document is the extracted text of a quiz source, kept so quizzes can be
// regenerated without re-uploading or re-fetching the original file.
type Document struct {
	ID        int64
	Kind      DocumentKind
	Origin    DocumentOrigin
	Name      string // Original filename or repository path.
	Source    string // "owner/repo@ref" for GitHub documents, "" for uploads.
	Text      string
	CharCount int
	CreatedAt time.Time
}
