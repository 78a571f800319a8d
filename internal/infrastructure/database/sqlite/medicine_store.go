// internal/infrastructure/database/sqlite/medicine_store.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ruralcare/medreserve/internal/domain/apperr"
	"github.com/ruralcare/medreserve/internal/domain/medicine"
)

// MedicineStore implements medicine.Store on sqlite
type MedicineStore struct {
	db *sqlx.DB
}

// NewMedicineStore creates a sqlite medicine store
func NewMedicineStore(db *sqlx.DB) *MedicineStore {
	return &MedicineStore{db: db}
}

var _ medicine.Store = (*MedicineStore)(nil)

type medicineRow struct {
	ID                   uint   `db:"id"`
	Name                 string `db:"name"`
	GenericName          string `db:"generic_name"`
	Category             string `db:"category"`
	Manufacturer         string `db:"manufacturer"`
	DosageForm           string `db:"dosage_form"`
	Strength             string `db:"strength"`
	RequiresPrescription bool   `db:"requires_prescription"`
	IsActive             bool   `db:"is_active"`
	CreatedAt            int64  `db:"created_at"`
	UpdatedAt            int64  `db:"updated_at"`
}

func (r medicineRow) toMedicine() medicine.Medicine {
	return medicine.Medicine{
		ID:                   r.ID,
		Name:                 r.Name,
		GenericName:          r.GenericName,
		Category:             medicine.Category(r.Category),
		Manufacturer:         r.Manufacturer,
		DosageForm:           r.DosageForm,
		Strength:             r.Strength,
		RequiresPrescription: r.RequiresPrescription,
		IsActive:             r.IsActive,
		CreatedAt:            fromMillis(r.CreatedAt),
		UpdatedAt:            fromMillis(r.UpdatedAt),
	}
}

const medicineColumns = `id, name, generic_name, category, manufacturer, dosage_form, strength,
	requires_prescription, is_active, created_at, updated_at`

// Create implements medicine.Store
func (s *MedicineStore) Create(ctx context.Context, m *medicine.Medicine) error {
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now

	res, err := s.db.ExecContext(ctx, `INSERT INTO medicines (
		name, generic_name, category, manufacturer, dosage_form, strength, requires_prescription,
		is_active, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.GenericName, string(m.Category), m.Manufacturer, m.DosageForm, m.Strength,
		m.RequiresPrescription, m.IsActive, toMillis(m.CreatedAt), toMillis(m.UpdatedAt))
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint(id)
	return nil
}

// GetByID implements medicine.Store
func (s *MedicineStore) GetByID(ctx context.Context, id uint) (*medicine.Medicine, error) {
	var row medicineRow
	err := s.db.GetContext(ctx, &row, `SELECT `+medicineColumns+` FROM medicines WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("medicine")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medicine: %w", err)
	}
	m := row.toMedicine()
	return &m, nil
}

// Search implements medicine.Store
func (s *MedicineStore) Search(ctx context.Context, filter medicine.SearchFilter) ([]medicine.Medicine, int64, error) {
	where := []string{"is_active = 1"}
	var args []interface{}
	if filter.Query != "" {
		like := "%" + strings.ToLower(filter.Query) + "%"
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(generic_name) LIKE ?)")
		args = append(args, like, like)
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(filter.Category))
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM medicines`+cond, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + medicineColumns + ` FROM medicines` + cond + ` ORDER BY name, id`
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, (page-1)*filter.Limit)
	}

	var rows []medicineRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}
	medicines := make([]medicine.Medicine, len(rows))
	for i, r := range rows {
		medicines[i] = r.toMedicine()
	}
	return medicines, total, nil
}
