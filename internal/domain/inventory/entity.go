// internal/domain/inventory/entity.go
package inventory

import (
	"time"
)

// Status represents the derived stock status of an inventory entry
type Status string

const (
	StatusAvailable  Status = "available"
	StatusLow        Status = "low"
	StatusOutOfStock Status = "out-of-stock"
	StatusExpired    Status = "expired"
)

// MovementType represents the type of ledger movement
type MovementType string

const (
	MovementReserve MovementType = "reserve" // Hold taken by a reservation
	MovementRelease MovementType = "release" // Hold returned (cancel, expire)
	MovementConsume MovementType = "consume" // Reservation picked up
	MovementRestock MovementType = "restock" // Units added by the pharmacy
	MovementAdjust  MovementType = "adjust"  // Levels, price or expiry changed
)

// Entry is the stock ledger row for one medicine at one pharmacy
type Entry struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	PharmacyID      uint       `gorm:"not null;uniqueIndex:idx_inventory_pharmacy_medicine" json:"pharmacy_id"`
	MedicineID      uint       `gorm:"not null;uniqueIndex:idx_inventory_pharmacy_medicine" json:"medicine_id"`
	CurrentStock    int        `gorm:"not null;default:0" json:"current_stock"`
	ReservedStock   int        `gorm:"not null;default:0" json:"reserved_stock"`
	AvailableStock  int        `gorm:"not null;default:0;index" json:"available_stock"`
	MinStockLevel   int        `gorm:"not null;default:0" json:"min_stock_level"`
	MaxStockLevel   int        `gorm:"not null;default:0" json:"max_stock_level"`
	Price           int64      `gorm:"not null;default:0" json:"price"` // In paise
	BatchNumber     string     `gorm:"size:50" json:"batch_number,omitempty"`
	Supplier        string     `gorm:"size:100" json:"supplier,omitempty"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	LastRestockedAt *time.Time `json:"last_restocked_at,omitempty"`
	Status          Status     `gorm:"not null;size:20;index" json:"status"`
	Version         int64      `gorm:"not null;default:0" json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName overrides
func (Entry) TableName() string { return "inventory_entries" }

// Movement is an append-only audit record of a ledger mutation
type Movement struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	EntryID        uint         `gorm:"not null;index" json:"entry_id"`
	Type           MovementType `gorm:"not null;size:20" json:"type"`
	Quantity       int          `gorm:"not null" json:"quantity"`
	CurrentBefore  int          `gorm:"not null" json:"current_before"`
	CurrentAfter   int          `gorm:"not null" json:"current_after"`
	ReservedBefore int          `gorm:"not null" json:"reserved_before"`
	ReservedAfter  int          `gorm:"not null" json:"reserved_after"`
	ReferenceType  string       `gorm:"size:50" json:"reference_type,omitempty"`
	ReferenceID    uint         `gorm:"index" json:"reference_id,omitempty"`
	ReferenceCode  string       `gorm:"size:20;index" json:"reference_code,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// TableName overrides
func (Movement) TableName() string { return "inventory_movements" }

// Reference ties a ledger movement to the record that caused it
type Reference struct {
	Type string
	ID   uint
	// Code is the reservation's pickup code. Holds are taken before the
	// reservation row exists, so the code is the only link they carry.
	Code string
}

// Availability is the read model returned to callers checking stock
type Availability struct {
	PharmacyID     uint   `json:"pharmacy_id"`
	MedicineID     uint   `json:"medicine_id"`
	CurrentStock   int    `json:"current_stock"`
	ReservedStock  int    `json:"reserved_stock"`
	AvailableStock int    `json:"available_stock"`
	Price          int64  `json:"price"`
	Status         Status `json:"status"`
}

// Summary is the pharmacy dashboard aggregate
type Summary struct {
	PharmacyID     uint  `json:"pharmacy_id"`
	TotalItems     int64 `json:"total_items"`
	LowStockItems  int64 `json:"low_stock_items"`
	ExpiredItems   int64 `json:"expired_items"`
	ReservedUnits  int64 `json:"reserved_units"`
	InventoryValue int64 `json:"inventory_value"` // In paise
}

// Filter narrows inventory listings
type Filter struct {
	PharmacyID uint
	MedicineID uint
	Statuses   []Status
	Page       int
	Limit      int
}

// Entity methods

// Available returns the units that can still be reserved
func (e *Entry) Available() int {
	return e.CurrentStock - e.ReservedStock
}

// CanReserve checks if quantity fits into the unreserved stock
func (e *Entry) CanReserve(quantity int) bool {
	return e.ReservedStock+quantity <= e.CurrentStock
}

// IsLowStock checks if stock is below the minimum level
func (e *Entry) IsLowStock() bool {
	return e.Status == StatusLow || e.Status == StatusOutOfStock
}

// ToAvailability converts an entry to its read model
func (e *Entry) ToAvailability() *Availability {
	return &Availability{
		PharmacyID:     e.PharmacyID,
		MedicineID:     e.MedicineID,
		CurrentStock:   e.CurrentStock,
		ReservedStock:  e.ReservedStock,
		AvailableStock: e.Available(),
		Price:          e.Price,
		Status:         e.Status,
	}
}

// RecomputeStatus derives the stock status.
// Precedence: expired, out of stock, low, available.
func RecomputeStatus(e *Entry, now time.Time) Status {
	switch {
	case e.ExpiryDate != nil && e.ExpiryDate.Before(now):
		return StatusExpired
	case e.CurrentStock == 0:
		return StatusOutOfStock
	case e.CurrentStock < e.MinStockLevel:
		return StatusLow
	default:
		return StatusAvailable
	}
}

// Normalize refreshes the derived fields after a mutation
func (e *Entry) Normalize(now time.Time) {
	if e.ReservedStock < 0 {
		e.ReservedStock = 0
	}
	if e.CurrentStock < 0 {
		e.CurrentStock = 0
	}
	e.AvailableStock = e.CurrentStock - e.ReservedStock
	e.Status = RecomputeStatus(e, now)
	e.UpdatedAt = now
}
