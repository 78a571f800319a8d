// internal/domain/reservation/store.go
package reservation

import (
	"context"
)

// Store is the persistence port of the reservation service.
type Store interface {
	// Create inserts r and sets its ID. A duplicate code fails with
	// apperr.ErrAlreadyExists.
	Create(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, id uint) (*Reservation, error)
	GetByCode(ctx context.Context, code string) (*Reservation, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	// UpdateStatus moves the reservation from one status to another only
	// while it is still in from. It reports false when another writer
	// changed the status first.
	UpdateStatus(ctx context.Context, id uint, from, to Status, change StatusChange) (bool, error)
	// List returns a page of reservations, newest first, and the total
	// count. A non-positive Limit returns every match.
	List(ctx context.Context, filter Filter) ([]Reservation, int64, error)
}
