// internal/infrastructure/database/postgres/inventory_store.go
package postgres

import (
	"context"

	"github.com/ruralcare/medreserve/internal/domain/inventory"
	"gorm.io/gorm"
)

// InventoryStore implements inventory.Store with gorm
type InventoryStore struct {
	db *gorm.DB
}

// NewInventoryStore creates a gorm inventory store
func NewInventoryStore(db *gorm.DB) *InventoryStore {
	return &InventoryStore{db: db}
}

var _ inventory.Store = (*InventoryStore)(nil)

// GetEntry implements inventory.Store
func (s *InventoryStore) GetEntry(ctx context.Context, pharmacyID, medicineID uint) (*inventory.Entry, error) {
	var entry inventory.Entry
	err := s.db.WithContext(ctx).
		Where("pharmacy_id = ? AND medicine_id = ?", pharmacyID, medicineID).
		First(&entry).Error
	if err != nil {
		return nil, translate(err, "inventory entry")
	}
	return &entry, nil
}

// CreateEntry implements inventory.Store
func (s *InventoryStore) CreateEntry(ctx context.Context, e *inventory.Entry) error {
	return translate(s.db.WithContext(ctx).Create(e).Error, "inventory entry")
}

// Update implements inventory.Store
func (s *InventoryStore) Update(ctx context.Context, e *inventory.Entry, expectedVersion int64, movement *inventory.Movement) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&inventory.Entry{}).
			Where("id = ? AND version = ?", e.ID, expectedVersion).
			Updates(map[string]interface{}{
				"current_stock":     e.CurrentStock,
				"reserved_stock":    e.ReservedStock,
				"available_stock":   e.AvailableStock,
				"min_stock_level":   e.MinStockLevel,
				"max_stock_level":   e.MaxStockLevel,
				"price":             e.Price,
				"batch_number":      e.BatchNumber,
				"supplier":          e.Supplier,
				"expiry_date":       e.ExpiryDate,
				"last_restocked_at": e.LastRestockedAt,
				"status":            string(e.Status),
				"version":           e.Version,
				"updated_at":        e.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return inventory.ErrVersionConflict
		}

		if movement != nil {
			if err := tx.Create(movement).Error; err != nil {
				return translate(err, "inventory movement")
			}
		}
		return nil
	})
}

// ListEntries implements inventory.Store
func (s *InventoryStore) ListEntries(ctx context.Context, filter inventory.Filter) ([]inventory.Entry, int64, error) {
	query := s.db.WithContext(ctx).Model(&inventory.Entry{})
	if filter.PharmacyID != 0 {
		query = query.Where("pharmacy_id = ?", filter.PharmacyID)
	}
	if filter.MedicineID != 0 {
		query = query.Where("medicine_id = ?", filter.MedicineID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "inventory entry")
	}

	var entries []inventory.Entry
	err := paginate(query.Order("pharmacy_id, id"), filter.Page, filter.Limit).Find(&entries).Error
	if err != nil {
		return nil, 0, translate(err, "inventory entry")
	}
	return entries, total, nil
}

// ListBatch implements inventory.Store
func (s *InventoryStore) ListBatch(ctx context.Context, afterID uint, limit int) ([]inventory.Entry, error) {
	var entries []inventory.Entry
	err := s.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id").
		Limit(limit).
		Find(&entries).Error
	return entries, translate(err, "inventory entry")
}

// Summary implements inventory.Store
func (s *InventoryStore) Summary(ctx context.Context, pharmacyID uint) (*inventory.Summary, error) {
	summary := inventory.Summary{PharmacyID: pharmacyID}
	err := s.db.WithContext(ctx).Model(&inventory.Entry{}).
		Select(`COUNT(*) AS total_items,
			COALESCE(SUM(CASE WHEN status IN ('low', 'out-of-stock') THEN 1 ELSE 0 END), 0) AS low_stock_items,
			COALESCE(SUM(CASE WHEN status = 'expired' THEN 1 ELSE 0 END), 0) AS expired_items,
			COALESCE(SUM(reserved_stock), 0) AS reserved_units,
			COALESCE(SUM(current_stock * price), 0) AS inventory_value`).
		Where("pharmacy_id = ?", pharmacyID).
		Scan(&summary).Error
	if err != nil {
		return nil, translate(err, "inventory summary")
	}
	summary.PharmacyID = pharmacyID
	return &summary, nil
}

// ListMovements implements inventory.Store
func (s *InventoryStore) ListMovements(ctx context.Context, entryID uint) ([]inventory.Movement, error) {
	var movements []inventory.Movement
	err := s.db.WithContext(ctx).Where("entry_id = ?", entryID).Order("id").Find(&movements).Error
	return movements, translate(err, "inventory movement")
}
