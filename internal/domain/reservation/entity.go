// internal/domain/reservation/entity.go
package reservation

import (
	"time"
)

// Status represents the reservation status
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Reservation is a patient's hold on units of one medicine at one pharmacy
type Reservation struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Code               string     `gorm:"uniqueIndex;not null;size:20" json:"reservation_code"`
	PatientID          uint       `gorm:"not null;index:idx_reservations_patient_status" json:"patient_id"`
	PharmacyID         uint       `gorm:"not null;index:idx_reservations_pharmacy_status" json:"pharmacy_id"`
	MedicineID         uint       `gorm:"not null;index" json:"medicine_id"`
	Quantity           int        `gorm:"not null" json:"quantity"`
	UnitPrice          int64      `gorm:"not null" json:"unit_price"`  // In paise
	TotalPrice         int64      `gorm:"not null" json:"total_price"` // Quantity * UnitPrice
	Status             Status     `gorm:"not null;size:20;default:'pending';index:idx_reservations_patient_status;index:idx_reservations_pharmacy_status" json:"status"`
	ExpiresAt          time.Time  `gorm:"not null;index" json:"expiry_date"`
	Notes              string     `gorm:"type:text" json:"notes,omitempty"`
	PickupInstructions string     `gorm:"type:text" json:"pickup_instructions,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName overrides
func (Reservation) TableName() string { return "reservations" }

// CreateRequest represents a patient reserving a medicine
type CreateRequest struct {
	PharmacyID uint   `json:"pharmacy_id" binding:"required"`
	MedicineID uint   `json:"medicine_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
	Notes      string `json:"notes,omitempty"`
	// PatientID lets an admin reserve on behalf of a patient
	PatientID uint `json:"patient_id,omitempty"`
}

// TransitionRequest represents a status change
type TransitionRequest struct {
	Status             Status `json:"status" binding:"required"`
	Notes              string `json:"notes,omitempty"`
	PickupInstructions string `json:"pickup_instructions,omitempty"`
}

// Filter narrows reservation listings
type Filter struct {
	Status        Status
	PatientID     uint
	PharmacyID    uint
	ExpiresBefore *time.Time
	// AfterID and OrderByID page by ID instead of by creation time
	AfterID   uint
	OrderByID bool
	Page      int
	Limit     int
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// ListResponse represents a page of reservations
type ListResponse struct {
	Reservations []Reservation `json:"reservations"`
	Pagination   Pagination    `json:"pagination"`
}

// StatusChange carries the optional fields written alongside a status update
type StatusChange struct {
	Notes              string
	PickupInstructions string
	At                 time.Time
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusExpired},
	StatusConfirmed: {StatusReady, StatusCancelled},
	StatusReady:     {StatusCompleted, StatusCancelled},
}

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusReady, StatusCompleted, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusExpired
}

// HoldsStock reports whether a reservation in s counts toward reserved stock
func (s Status) HoldsStock() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusReady
}

// CanTransition checks the transition graph
func CanTransition(from, to Status) bool {
	for _, status := range transitions[from] {
		if status == to {
			return true
		}
	}
	return false
}

// IsExpired checks if a pending hold has run past its expiry
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.Status == StatusPending && r.ExpiresAt.Before(now)
}

// IsOwnedBy checks if the actor is the patient or pharmacy on the reservation
func (r *Reservation) IsOwnedBy(actor Actor) bool {
	switch actor.Role {
	case RolePatient:
		return r.PatientID == actor.ID
	case RolePharmacy:
		return r.PharmacyID == actor.ID
	case RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// Columns returns the column updates for moving from one status to another.
// A nil value clears the column.
func (c StatusChange) Columns(from, to Status) map[string]interface{} {
	cols := map[string]interface{}{
		"status":     string(to),
		"updated_at": c.At,
	}
	if c.Notes != "" {
		cols["notes"] = c.Notes
	}
	if c.PickupInstructions != "" {
		cols["pickup_instructions"] = c.PickupInstructions
	}
	switch {
	case to == StatusCompleted:
		cols["completed_at"] = c.At
	case from == StatusCompleted:
		cols["completed_at"] = nil
	}
	switch {
	case to == StatusCancelled:
		cols["cancelled_at"] = c.At
	case from == StatusCancelled:
		cols["cancelled_at"] = nil
	}
	return cols
}
