// Package gbooks is a thin adapter over the external book-metadata provider.
// It translates provider responses into the local schema and is always
// injected into business logic as the Client interface, never constructed
// there.
package gbooks

import (
	"context"

	"biblio/internal/models"
)

// SearchQuery carries the free-text query plus optional filters of a catalog
// search. GBID and the other fields are mutually exclusive; the service layer
// validates that before calling.
type SearchQuery struct {
	GBID       string
	Query      string
	InTitle    string
	InAuthor   string
	ISBN       string
	Categories []string
}

// Client is the capability the books service depends on.
type Client interface {
	// GetByID fetches a single record by its provider ID.
	GetByID(ctx context.Context, gbID string) (*models.BookImport, error)
	// Search runs a filtered catalog search. Results are never persisted.
	Search(ctx context.Context, q SearchQuery) ([]models.BookImport, error)
}
