// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ruralcare/medreserve/internal/config"
	"github.com/ruralcare/medreserve/internal/domain/apperr"
	"github.com/ruralcare/medreserve/internal/pkg/clock"
	"github.com/ruralcare/medreserve/internal/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// Service is the inventory ledger: the only writer of inventory entries.
// Every mutation is a read, a check and a version-guarded write, retried
// when another writer got there first.
type Service struct {
	store   Store
	config  *config.Config
	clock   clock.Clock
	logger  logrus.FieldLogger
	metrics *metrics.Metrics
}

// NewService creates a new inventory ledger service
func NewService(store Store, cfg *config.Config, clk clock.Clock, logger logrus.FieldLogger, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		config:  cfg,
		clock:   clk,
		logger:  logger.WithField("component", "inventory"),
		metrics: m,
	}
}

// StockRequest represents a pharmacy adding a medicine to its inventory
type StockRequest struct {
	PharmacyID    uint       `json:"-"`
	MedicineID    uint       `json:"medicine_id" binding:"required"`
	CurrentStock  int        `json:"current_stock" binding:"min=0"`
	MinStockLevel int        `json:"min_stock_level" binding:"min=0"`
	MaxStockLevel int        `json:"max_stock_level" binding:"min=0"`
	Price         int64      `json:"price" binding:"min=0"`
	BatchNumber   string     `json:"batch_number,omitempty"`
	Supplier      string     `json:"supplier,omitempty"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
}

// RestockRequest represents a restock or a change of stock levels.
// Nil fields are left unchanged.
type RestockRequest struct {
	AddQuantity   int        `json:"add_quantity" binding:"min=0"`
	CurrentStock  *int       `json:"current_stock,omitempty"`
	MinStockLevel *int       `json:"min_stock_level,omitempty"`
	MaxStockLevel *int       `json:"max_stock_level,omitempty"`
	Price         *int64     `json:"price,omitempty"`
	BatchNumber   *string    `json:"batch_number,omitempty"`
	Supplier      *string    `json:"supplier,omitempty"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
}

// INVENTORY MANAGEMENT

// Stock creates the ledger entry for a medicine at a pharmacy
func (s *Service) Stock(ctx context.Context, req *StockRequest) (*Entry, error) {
	if req.CurrentStock < 0 || req.MinStockLevel < 0 || req.Price < 0 {
		return nil, apperr.InvalidInput("stock levels and price must not be negative")
	}
	if req.MaxStockLevel < req.MinStockLevel {
		return nil, apperr.InvalidInput("max stock level %d is below min stock level %d", req.MaxStockLevel, req.MinStockLevel)
	}

	now := s.clock.Now()
	entry := &Entry{
		PharmacyID:      req.PharmacyID,
		MedicineID:      req.MedicineID,
		CurrentStock:    req.CurrentStock,
		MinStockLevel:   req.MinStockLevel,
		MaxStockLevel:   req.MaxStockLevel,
		Price:           req.Price,
		BatchNumber:     req.BatchNumber,
		Supplier:        req.Supplier,
		ExpiryDate:      req.ExpiryDate,
		LastRestockedAt: &now,
		CreatedAt:       now,
	}
	entry.Normalize(now)

	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create inventory entry: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"pharmacy_id": entry.PharmacyID,
		"medicine_id": entry.MedicineID,
		"stock":       entry.CurrentStock,
	}).Info("Medicine added to inventory")

	return entry, nil
}

// GetEntry gets the ledger entry for a pharmacy and medicine
func (s *Service) GetEntry(ctx context.Context, pharmacyID, medicineID uint) (*Entry, error) {
	return s.store.GetEntry(ctx, pharmacyID, medicineID)
}

// GetAvailability reports current, reserved and available stock
func (s *Service) GetAvailability(ctx context.Context, pharmacyID, medicineID uint) (*Availability, error) {
	entry, err := s.store.GetEntry(ctx, pharmacyID, medicineID)
	if err != nil {
		return nil, err
	}
	return entry.ToAvailability(), nil
}

// List returns a page of inventory entries
func (s *Service) List(ctx context.Context, filter Filter) ([]Entry, int64, error) {
	entries, total, err := s.store.ListEntries(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list inventory: %w", err)
	}
	return entries, total, nil
}

// Summary returns the dashboard aggregate for a pharmacy
func (s *Service) Summary(ctx context.Context, pharmacyID uint) (*Summary, error) {
	summary, err := s.store.Summary(ctx, pharmacyID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize inventory: %w", err)
	}
	return summary, nil
}

// Movements returns the audit trail of an entry
func (s *Service) Movements(ctx context.Context, entryID uint) ([]Movement, error) {
	return s.store.ListMovements(ctx, entryID)
}

// STOCK HOLDS

// Reserve takes a hold of quantity units. It fails with an
// *apperr.InsufficientStockError carrying the available count read in the
// same attempt when the hold does not fit.
func (s *Service) Reserve(ctx context.Context, pharmacyID, medicineID uint, quantity int, ref Reference) (*Entry, error) {
	if quantity < 1 {
		return nil, apperr.InvalidInput("quantity must be at least 1")
	}

	entry, err := s.mutate(ctx, pharmacyID, medicineID, MovementReserve, quantity, ref, func(e *Entry) error {
		if !e.CanReserve(quantity) {
			return &apperr.InsufficientStockError{Requested: quantity, Available: e.Available()}
		}
		e.ReservedStock += quantity
		return nil
	})
	if errors.Is(err, apperr.ErrInsufficientStock) {
		s.metrics.InsufficientStock.Inc()
	}
	return entry, err
}

// Release returns a hold. Reserved stock never drops below zero.
func (s *Service) Release(ctx context.Context, pharmacyID, medicineID uint, quantity int, ref Reference) (*Entry, error) {
	return s.mutate(ctx, pharmacyID, medicineID, MovementRelease, quantity, ref, func(e *Entry) error {
		if e.ReservedStock < quantity {
			s.logger.WithFields(logrus.Fields{
				"pharmacy_id": pharmacyID,
				"medicine_id": medicineID,
				"reserved":    e.ReservedStock,
				"quantity":    quantity,
			}).Warn("Releasing more than is reserved, flooring at zero")
		}
		e.ReservedStock -= quantity
		return nil
	})
}

// Consume removes picked-up units from both current and reserved stock in one write
func (s *Service) Consume(ctx context.Context, pharmacyID, medicineID uint, quantity int, ref Reference) (*Entry, error) {
	return s.mutate(ctx, pharmacyID, medicineID, MovementConsume, quantity, ref, func(e *Entry) error {
		e.CurrentStock -= quantity
		e.ReservedStock -= quantity
		return nil
	})
}

// Restock adds units and updates levels, price, batch or expiry
func (s *Service) Restock(ctx context.Context, pharmacyID, medicineID uint, req *RestockRequest) (*Entry, error) {
	if req.AddQuantity < 0 {
		return nil, apperr.InvalidInput("add quantity must not be negative")
	}

	movementType := MovementAdjust
	if req.AddQuantity > 0 || req.CurrentStock != nil {
		movementType = MovementRestock
	}

	return s.mutate(ctx, pharmacyID, medicineID, movementType, req.AddQuantity, Reference{Type: "restock"}, func(e *Entry) error {
		if req.CurrentStock != nil {
			e.CurrentStock = *req.CurrentStock
		}
		e.CurrentStock += req.AddQuantity
		if e.CurrentStock < e.ReservedStock {
			return apperr.InvalidInput("current stock %d cannot be below reserved stock %d", e.CurrentStock, e.ReservedStock)
		}
		if req.MinStockLevel != nil {
			e.MinStockLevel = *req.MinStockLevel
		}
		if req.MaxStockLevel != nil {
			e.MaxStockLevel = *req.MaxStockLevel
		}
		if e.MinStockLevel < 0 || e.MaxStockLevel < e.MinStockLevel {
			return apperr.InvalidInput("invalid stock levels: min %d, max %d", e.MinStockLevel, e.MaxStockLevel)
		}
		if req.Price != nil {
			if *req.Price < 0 {
				return apperr.InvalidInput("price must not be negative")
			}
			e.Price = *req.Price
		}
		if req.BatchNumber != nil {
			e.BatchNumber = *req.BatchNumber
		}
		if req.Supplier != nil {
			e.Supplier = *req.Supplier
		}
		if req.ExpiryDate != nil {
			e.ExpiryDate = req.ExpiryDate
		}
		if movementType == MovementRestock {
			now := s.clock.Now()
			e.LastRestockedAt = &now
		}
		return nil
	})
}

// STATUS MAINTENANCE

// RefreshStatuses re-derives the status of every entry whose persisted
// status is stale, e.g. because its expiry date has passed.
func (s *Service) RefreshStatuses(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 200
	}

	updated := 0
	var afterID uint
	for {
		batch, err := s.store.ListBatch(ctx, afterID, batchSize)
		if err != nil {
			return updated, fmt.Errorf("failed to scan inventory: %w", err)
		}
		if len(batch) == 0 {
			return updated, nil
		}

		for i := range batch {
			entry := &batch[i]
			afterID = entry.ID
			if RecomputeStatus(entry, s.clock.Now()) == entry.Status {
				continue
			}
			changed, err := s.refreshEntry(ctx, entry.PharmacyID, entry.MedicineID)
			if err != nil {
				s.logger.WithError(err).WithField("entry_id", entry.ID).Warn("Failed to refresh inventory status")
				continue
			}
			if changed {
				updated++
			}
		}

		if len(batch) < batchSize {
			return updated, nil
		}
	}
}

// LowStock returns entries that are low or out of stock
func (s *Service) LowStock(ctx context.Context) ([]Entry, error) {
	entries, _, err := s.store.ListEntries(ctx, Filter{Statuses: []Status{StatusLow, StatusOutOfStock}})
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock entries: %w", err)
	}
	return entries, nil
}

func (s *Service) refreshEntry(ctx context.Context, pharmacyID, medicineID uint) (bool, error) {
	for attempt := 0; attempt <= s.config.Reservation.ConflictRetries; attempt++ {
		entry, err := s.store.GetEntry(ctx, pharmacyID, medicineID)
		if err != nil {
			return false, err
		}
		now := s.clock.Now()
		if RecomputeStatus(entry, now) == entry.Status {
			return false, nil
		}

		expected := entry.Version
		entry.Normalize(now)
		entry.Version = expected + 1
		err = s.store.Update(ctx, entry, expected, nil)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return false, err
		}
		s.metrics.LedgerConflicts.Inc()
	}
	return false, apperr.ErrConflictRetryExhausted
}

// mutate runs the read-check-write loop shared by every stock mutation
func (s *Service) mutate(ctx context.Context, pharmacyID, medicineID uint, movementType MovementType, quantity int, ref Reference, apply func(e *Entry) error) (*Entry, error) {
	if quantity < 0 {
		return nil, apperr.InvalidInput("quantity must not be negative")
	}

	attempts := s.config.Reservation.ConflictRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		entry, err := s.store.GetEntry(ctx, pharmacyID, medicineID)
		if err != nil {
			return nil, err
		}

		before := *entry
		if err := apply(entry); err != nil {
			return nil, err
		}

		now := s.clock.Now()
		entry.Normalize(now)
		entry.Version = before.Version + 1

		movement := &Movement{
			EntryID:        entry.ID,
			Type:           movementType,
			Quantity:       quantity,
			CurrentBefore:  before.CurrentStock,
			CurrentAfter:   entry.CurrentStock,
			ReservedBefore: before.ReservedStock,
			ReservedAfter:  entry.ReservedStock,
			ReferenceType:  ref.Type,
			ReferenceID:    ref.ID,
			ReferenceCode:  ref.Code,
			CreatedAt:      now,
		}

		err = s.store.Update(ctx, entry, before.Version, movement)
		if err == nil {
			s.metrics.LedgerMutations.WithLabelValues(string(movementType)).Inc()
			return entry, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, fmt.Errorf("failed to update inventory: %w", err)
		}

		s.metrics.LedgerConflicts.Inc()
		s.logger.WithFields(logrus.Fields{
			"pharmacy_id": pharmacyID,
			"medicine_id": medicineID,
			"movement":    movementType,
			"attempt":     attempt,
		}).Debug("Inventory update lost a race, retrying")
	}

	return nil, fmt.Errorf("inventory %d/%d: %w", pharmacyID, medicineID, apperr.ErrConflictRetryExhausted)
}
