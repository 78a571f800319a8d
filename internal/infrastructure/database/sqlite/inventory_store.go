// internal/infrastructure/database/sqlite/inventory_store.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/ruralcare/medreserve/internal/domain/apperr"
	"github.com/ruralcare/medreserve/internal/domain/inventory"
)

// InventoryStore implements inventory.Store on sqlite
type InventoryStore struct {
	db *sqlx.DB
}

// NewInventoryStore creates a sqlite inventory store
func NewInventoryStore(db *sqlx.DB) *InventoryStore {
	return &InventoryStore{db: db}
}

var _ inventory.Store = (*InventoryStore)(nil)

type entryRow struct {
	ID              uint   `db:"id"`
	PharmacyID      uint   `db:"pharmacy_id"`
	MedicineID      uint   `db:"medicine_id"`
	CurrentStock    int    `db:"current_stock"`
	ReservedStock   int    `db:"reserved_stock"`
	AvailableStock  int    `db:"available_stock"`
	MinStockLevel   int    `db:"min_stock_level"`
	MaxStockLevel   int    `db:"max_stock_level"`
	Price           int64  `db:"price"`
	BatchNumber     string `db:"batch_number"`
	Supplier        string `db:"supplier"`
	ExpiryDate      *int64 `db:"expiry_date"`
	LastRestockedAt *int64 `db:"last_restocked_at"`
	Status          string `db:"status"`
	Version         int64  `db:"version"`
	CreatedAt       int64  `db:"created_at"`
	UpdatedAt       int64  `db:"updated_at"`
}

func (r entryRow) toEntry() inventory.Entry {
	return inventory.Entry{
		ID:              r.ID,
		PharmacyID:      r.PharmacyID,
		MedicineID:      r.MedicineID,
		CurrentStock:    r.CurrentStock,
		ReservedStock:   r.ReservedStock,
		AvailableStock:  r.AvailableStock,
		MinStockLevel:   r.MinStockLevel,
		MaxStockLevel:   r.MaxStockLevel,
		Price:           r.Price,
		BatchNumber:     r.BatchNumber,
		Supplier:        r.Supplier,
		ExpiryDate:      fromNullMillis(r.ExpiryDate),
		LastRestockedAt: fromNullMillis(r.LastRestockedAt),
		Status:          inventory.Status(r.Status),
		Version:         r.Version,
		CreatedAt:       fromMillis(r.CreatedAt),
		UpdatedAt:       fromMillis(r.UpdatedAt),
	}
}

const entryColumns = `id, pharmacy_id, medicine_id, current_stock, reserved_stock, available_stock,
	min_stock_level, max_stock_level, price, batch_number, supplier, expiry_date, last_restocked_at,
	status, version, created_at, updated_at`

// GetEntry implements inventory.Store
func (s *InventoryStore) GetEntry(ctx context.Context, pharmacyID, medicineID uint) (*inventory.Entry, error) {
	var row entryRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+entryColumns+` FROM inventory_entries WHERE pharmacy_id = ? AND medicine_id = ?`,
		pharmacyID, medicineID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("inventory entry")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory entry: %w", err)
	}
	entry := row.toEntry()
	return &entry, nil
}

// CreateEntry implements inventory.Store
func (s *InventoryStore) CreateEntry(ctx context.Context, e *inventory.Entry) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO inventory_entries (
		pharmacy_id, medicine_id, current_stock, reserved_stock, available_stock, min_stock_level,
		max_stock_level, price, batch_number, supplier, expiry_date, last_restocked_at, status,
		version, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.PharmacyID, e.MedicineID, e.CurrentStock, e.ReservedStock, e.AvailableStock, e.MinStockLevel,
		e.MaxStockLevel, e.Price, e.BatchNumber, e.Supplier, toNullMillis(e.ExpiryDate),
		toNullMillis(e.LastRestockedAt), string(e.Status), e.Version, toMillis(e.CreatedAt), toMillis(e.UpdatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("inventory entry for medicine %d %w", e.MedicineID, apperr.ErrAlreadyExists)
	}
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint(id)
	return nil
}

// Update implements inventory.Store
func (s *InventoryStore) Update(ctx context.Context, e *inventory.Entry, expectedVersion int64, movement *inventory.Movement) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE inventory_entries SET
		current_stock = ?, reserved_stock = ?, available_stock = ?, min_stock_level = ?,
		max_stock_level = ?, price = ?, batch_number = ?, supplier = ?, expiry_date = ?,
		last_restocked_at = ?, status = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		e.CurrentStock, e.ReservedStock, e.AvailableStock, e.MinStockLevel,
		e.MaxStockLevel, e.Price, e.BatchNumber, e.Supplier, toNullMillis(e.ExpiryDate),
		toNullMillis(e.LastRestockedAt), string(e.Status), e.Version, toMillis(e.UpdatedAt),
		e.ID, expectedVersion)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return inventory.ErrVersionConflict
	}

	if movement != nil {
		res, err := tx.ExecContext(ctx, `INSERT INTO inventory_movements (
			entry_id, type, quantity, current_before, current_after, reserved_before,
			reserved_after, reference_type, reference_id, reference_code, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			movement.EntryID, string(movement.Type), movement.Quantity, movement.CurrentBefore,
			movement.CurrentAfter, movement.ReservedBefore, movement.ReservedAfter,
			movement.ReferenceType, movement.ReferenceID, movement.ReferenceCode, toMillis(movement.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to record movement: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		movement.ID = uint(id)
	}

	return tx.Commit()
}

// ListEntries implements inventory.Store
func (s *InventoryStore) ListEntries(ctx context.Context, filter inventory.Filter) ([]inventory.Entry, int64, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.PharmacyID != 0 {
		where = append(where, "pharmacy_id = ?")
		args = append(args, filter.PharmacyID)
	}
	if filter.MedicineID != 0 {
		where = append(where, "medicine_id = ?")
		args = append(args, filter.MedicineID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		clause, inArgs, err := sqlx.In("status IN (?)", statuses)
		if err != nil {
			return nil, 0, err
		}
		where = append(where, clause)
		args = append(args, inArgs...)
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM inventory_entries`+cond, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + entryColumns + ` FROM inventory_entries` + cond + ` ORDER BY pharmacy_id, id`
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, (page-1)*filter.Limit)
	}

	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}
	return toEntries(rows), total, nil
}

// ListBatch implements inventory.Store
func (s *InventoryStore) ListBatch(ctx context.Context, afterID uint, limit int) ([]inventory.Entry, error) {
	var rows []entryRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+entryColumns+` FROM inventory_entries WHERE id > ? ORDER BY id LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, err
	}
	return toEntries(rows), nil
}

// Summary implements inventory.Store
func (s *InventoryStore) Summary(ctx context.Context, pharmacyID uint) (*inventory.Summary, error) {
	var row struct {
		TotalItems     int64 `db:"total_items"`
		LowStockItems  int64 `db:"low_stock_items"`
		ExpiredItems   int64 `db:"expired_items"`
		ReservedUnits  int64 `db:"reserved_units"`
		InventoryValue int64 `db:"inventory_value"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT
		COUNT(*) AS total_items,
		COALESCE(SUM(CASE WHEN status IN ('low', 'out-of-stock') THEN 1 ELSE 0 END), 0) AS low_stock_items,
		COALESCE(SUM(CASE WHEN status = 'expired' THEN 1 ELSE 0 END), 0) AS expired_items,
		COALESCE(SUM(reserved_stock), 0) AS reserved_units,
		COALESCE(SUM(current_stock * price), 0) AS inventory_value
		FROM inventory_entries WHERE pharmacy_id = ?`, pharmacyID)
	if err != nil {
		return nil, err
	}
	return &inventory.Summary{
		PharmacyID:     pharmacyID,
		TotalItems:     row.TotalItems,
		LowStockItems:  row.LowStockItems,
		ExpiredItems:   row.ExpiredItems,
		ReservedUnits:  row.ReservedUnits,
		InventoryValue: row.InventoryValue,
	}, nil
}

// ListMovements implements inventory.Store
func (s *InventoryStore) ListMovements(ctx context.Context, entryID uint) ([]inventory.Movement, error) {
	var rows []struct {
		ID             uint   `db:"id"`
		EntryID        uint   `db:"entry_id"`
		Type           string `db:"type"`
		Quantity       int    `db:"quantity"`
		CurrentBefore  int    `db:"current_before"`
		CurrentAfter   int    `db:"current_after"`
		ReservedBefore int    `db:"reserved_before"`
		ReservedAfter  int    `db:"reserved_after"`
		ReferenceType  string `db:"reference_type"`
		ReferenceID    uint   `db:"reference_id"`
		ReferenceCode  string `db:"reference_code"`
		CreatedAt      int64  `db:"created_at"`
	}
	err := s.db.SelectContext(ctx, &rows, `SELECT id, entry_id, type, quantity, current_before, current_after,
		reserved_before, reserved_after, reference_type, reference_id, reference_code, created_at
		FROM inventory_movements WHERE entry_id = ? ORDER BY id`, entryID)
	if err != nil {
		return nil, err
	}

	movements := make([]inventory.Movement, len(rows))
	for i, r := range rows {
		movements[i] = inventory.Movement{
			ID:             r.ID,
			EntryID:        r.EntryID,
			Type:           inventory.MovementType(r.Type),
			Quantity:       r.Quantity,
			CurrentBefore:  r.CurrentBefore,
			CurrentAfter:   r.CurrentAfter,
			ReservedBefore: r.ReservedBefore,
			ReservedAfter:  r.ReservedAfter,
			ReferenceType:  r.ReferenceType,
			ReferenceID:    r.ReferenceID,
			ReferenceCode:  r.ReferenceCode,
			CreatedAt:      fromMillis(r.CreatedAt),
		}
	}
	return movements, nil
}

func toEntries(rows []entryRow) []inventory.Entry {
	entries := make([]inventory.Entry, len(rows))
	for i, r := range rows {
		entries[i] = r.toEntry()
	}
	return entries
}
