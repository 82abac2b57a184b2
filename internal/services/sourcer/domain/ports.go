// Package domain defines the sourcing ports and request shapes
package domain

import (
	"context"

	docdom "fieldday/internal/services/documents/domain"
)

// Fetcher is the outbound HTTP capability: raw text plus the URL actually
// served (redirects followed), with retryable-vs-fatal error classification
type Fetcher interface {
	Fetch(ctx context.Context, url string) (body []byte, finalURL string, err error)
}

// Request describes one index sourcing run
type Request struct {
	IndexURL   string
	Provider   docdom.Provider
	Sport      docdom.Sport
	DocType    docdom.DocType
	SeasonYear *int
}

// RunnerPort is the public port exposed by the sourcer module
type RunnerPort interface {
	// SourceIndex walks the paginated index and returns how many new
	// documents were stored
	SourceIndex(ctx context.Context, req Request) (int, error)

	// SourceDocument fetches and stores a single document by URL, outside
	// any index walk; returns how many documents were stored (0 or 1)
	SourceDocument(ctx context.Context, req Request, rawURL string) (int, error)
}
