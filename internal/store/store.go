// Package store persists the local citation library. The contract is
// deliberately coarse: the caller always replaces the whole library, and no
// atomicity finer than that is assumed.
package store

import (
	"context"

	"github.com/NotThatKindOfDrLiz/knowtation/internal/models"
)

// Store is the key-value store collaborator.
type Store interface {
	// Load returns every record in the library.
	Load(ctx context.Context) ([]*models.CitationRecord, error)
	// Save replaces the entire library with the given records.
	Save(ctx context.Context, records []*models.CitationRecord) error
}
