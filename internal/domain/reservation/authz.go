// internal/domain/reservation/authz.go
package reservation

import (
	"fmt"

	"github.com/ruralcare/medreserve/internal/domain/apperr"
)

// Role of the caller acting on a reservation
type Role string

const (
	RolePatient  Role = "patient"
	RolePharmacy Role = "pharmacy"
	RoleAdmin    Role = "admin"
	RoleSystem   Role = "system"
)

// Actor is the authenticated caller. For pharmacies ID is the pharmacy ID.
type Actor struct {
	ID   uint
	Role Role
}

// System is the actor used by background sweeps
var System = Actor{Role: RoleSystem}

// Authorize decides whether actor may move r to target.
//
//	system   - expire only
//	patient  - cancel own, non-terminal reservations
//	pharmacy - confirm, ready, complete or cancel its own reservations
//	admin    - anything the graph allows except expire
func Authorize(actor Actor, r *Reservation, target Status) error {
	switch actor.Role {
	case RoleSystem:
		if target == StatusExpired {
			return nil
		}
	case RolePatient:
		if target == StatusCancelled && r.PatientID == actor.ID && !r.Status.IsTerminal() {
			return nil
		}
	case RolePharmacy:
		if r.PharmacyID == actor.ID {
			switch target {
			case StatusConfirmed, StatusReady, StatusCompleted, StatusCancelled:
				return nil
			}
		}
	case RoleAdmin:
		if target != StatusExpired {
			return nil
		}
	}
	return fmt.Errorf("%w: %s may not move reservation %s to %s", apperr.ErrForbidden, actor.Role, r.Code, target)
}

// CanView checks read access to a reservation
func CanView(actor Actor, r *Reservation) error {
	if r.IsOwnedBy(actor) {
		return nil
	}
	return fmt.Errorf("%w: reservation %s belongs to another account", apperr.ErrForbidden, r.Code)
}
