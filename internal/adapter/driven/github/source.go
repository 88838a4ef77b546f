// Package github implements the SourceFetcher port using the go-github
// library, so quiz source documents can be pulled straight from a repository.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/quizforge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SourceFetcher = (*SourceClient)(nil)

// maxSourceFileBytes rejects repository files too large to prompt with.
const maxSourceFileBytes = 1 << 20 // 1 MiB

// SourceClient implements the driven.SourceFetcher port using the go-github
// library.
type SourceClient struct {
	gh *gh.Client
}

// NewSourceClient creates a GitHub source client with the following
// transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
//
// token may be empty; public repositories remain reachable unauthenticated
// at a lower rate limit.
func NewSourceClient(token string) *SourceClient {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)

	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &SourceClient{gh: client}
}

// NewSourceClientWithHTTPClient creates a SourceClient with a custom
// http.Client and base URL. This constructor is intended for testing,
// allowing injection of an httptest server.
func NewSourceClientWithHTTPClient(httpClient *http.Client, baseURL string) (*SourceClient, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &SourceClient{gh: client}, nil
}

// FetchFile retrieves a single text file from a repository. Only Markdown and
// plain-text files are accepted; binary formats in a repository are not
// usable as prompt context.
func (c *SourceClient) FetchFile(ctx context.Context, ref driven.SourceRef) (*driven.SourceFile, error) {
	if ref.Owner == "" || ref.Repo == "" || ref.Path == "" {
		return nil, fmt.Errorf("source ref requires owner, repo, and path")
	}
	if !supportedSourceExt(ref.Path) {
		return nil, fmt.Errorf("unsupported source file %q: only .md, .markdown, and .txt are accepted", ref.Path)
	}

	opts := &gh.RepositoryContentGetOptions{Ref: ref.Ref}
	fileContent, _, resp, err := c.gh.Repositories.GetContents(ctx, ref.Owner, ref.Repo, ref.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("fetching %s:%s: %w", ref.FullName(), ref.Path, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("%s:%s is a directory, not a file", ref.FullName(), ref.Path)
	}

	logRateLimit(resp, ref)

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s:%s: %w", ref.FullName(), ref.Path, err)
	}
	if len(content) > maxSourceFileBytes {
		return nil, fmt.Errorf("%s:%s is %d bytes, limit is %d", ref.FullName(), ref.Path, len(content), maxSourceFileBytes)
	}

	return &driven.SourceFile{
		Name:    path.Base(ref.Path),
		Content: []byte(content),
	}, nil
}

// supportedSourceExt reports whether the path names a text format the
// extractor can handle.
func supportedSourceExt(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".markdown", ".txt":
		return true
	}
	return false
}

// logRateLimit emits a debug log when the remaining rate limit is low, which
// helps diagnose stalled fetches caused by the rate limit middleware sleeping.
func logRateLimit(resp *gh.Response, ref driven.SourceRef) {
	if resp == nil {
		return
	}
	if resp.Rate.Remaining < 100 {
		slog.Debug("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"limit", resp.Rate.Limit,
			"reset", resp.Rate.Reset.Time,
			"repo", ref.FullName(),
		)
	}
}
