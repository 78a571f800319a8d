// internal/domain/inventory/store.go
package inventory

import (
	"context"
	"errors"
)

// ErrVersionConflict is returned by Store.Update when the row changed
// after it was read.
var ErrVersionConflict = errors.New("inventory entry version conflict")

// Store is the persistence port of the ledger.
//
// Update must be a single conditional write: it succeeds only while the
// stored row still carries expectedVersion, and it persists the movement
// (when not nil) in the same transaction.
type Store interface {
	GetEntry(ctx context.Context, pharmacyID, medicineID uint) (*Entry, error)
	CreateEntry(ctx context.Context, entry *Entry) error
	Update(ctx context.Context, entry *Entry, expectedVersion int64, movement *Movement) error
	// ListEntries returns a page of entries and the total count. A
	// non-positive Limit returns every match.
	ListEntries(ctx context.Context, filter Filter) ([]Entry, int64, error)
	// ListBatch returns up to limit entries with ID greater than afterID, in ID order.
	ListBatch(ctx context.Context, afterID uint, limit int) ([]Entry, error)
	Summary(ctx context.Context, pharmacyID uint) (*Summary, error)
	ListMovements(ctx context.Context, entryID uint) ([]Movement, error)
}
