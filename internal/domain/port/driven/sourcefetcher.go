package driven

import "context"

// SourceRef identifies a file in a GitHub repository to use as quiz source
// material.
type SourceRef struct {
	Owner string
	Repo  string
	Path  string
	Ref   string // Branch, tag, or SHA; "" means the default branch.
}

// FullName returns "owner/repo".
func (r SourceRef) FullName() string {
	return r.Owner + "/" + r.Repo
}

// SourceFile is the raw content of a fetched repository file.
type SourceFile struct {
	Name    string // Base filename, used for format detection.
	Content []byte
}

// SourceFetcher defines the driven port for fetching quiz source documents
// from an external repository host.
type SourceFetcher interface {
	FetchFile(ctx context.Context, ref SourceRef) (*SourceFile, error)
}
