// internal/infrastructure/database/sqlite/reservation_store.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ruralcare/medreserve/internal/domain/apperr"
	"github.com/ruralcare/medreserve/internal/domain/reservation"
)

// ReservationStore implements reservation.Store on sqlite
type ReservationStore struct {
	db *sqlx.DB
}

// NewReservationStore creates a sqlite reservation store
func NewReservationStore(db *sqlx.DB) *ReservationStore {
	return &ReservationStore{db: db}
}

var _ reservation.Store = (*ReservationStore)(nil)

type reservationRow struct {
	ID                 uint   `db:"id"`
	Code               string `db:"code"`
	PatientID          uint   `db:"patient_id"`
	PharmacyID         uint   `db:"pharmacy_id"`
	MedicineID         uint   `db:"medicine_id"`
	Quantity           int    `db:"quantity"`
	UnitPrice          int64  `db:"unit_price"`
	TotalPrice         int64  `db:"total_price"`
	Status             string `db:"status"`
	ExpiresAt          int64  `db:"expires_at"`
	Notes              string `db:"notes"`
	PickupInstructions string `db:"pickup_instructions"`
	CompletedAt        *int64 `db:"completed_at"`
	CancelledAt        *int64 `db:"cancelled_at"`
	CreatedAt          int64  `db:"created_at"`
	UpdatedAt          int64  `db:"updated_at"`
}

func (r reservationRow) toReservation() reservation.Reservation {
	return reservation.Reservation{
		ID:                 r.ID,
		Code:               r.Code,
		PatientID:          r.PatientID,
		PharmacyID:         r.PharmacyID,
		MedicineID:         r.MedicineID,
		Quantity:           r.Quantity,
		UnitPrice:          r.UnitPrice,
		TotalPrice:         r.TotalPrice,
		Status:             reservation.Status(r.Status),
		ExpiresAt:          fromMillis(r.ExpiresAt),
		Notes:              r.Notes,
		PickupInstructions: r.PickupInstructions,
		CompletedAt:        fromNullMillis(r.CompletedAt),
		CancelledAt:        fromNullMillis(r.CancelledAt),
		CreatedAt:          fromMillis(r.CreatedAt),
		UpdatedAt:          fromMillis(r.UpdatedAt),
	}
}

const reservationColumns = `id, code, patient_id, pharmacy_id, medicine_id, quantity, unit_price,
	total_price, status, expires_at, notes, pickup_instructions, completed_at, cancelled_at,
	created_at, updated_at`

// Create implements reservation.Store
func (s *ReservationStore) Create(ctx context.Context, r *reservation.Reservation) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO reservations (
		code, patient_id, pharmacy_id, medicine_id, quantity, unit_price, total_price, status,
		expires_at, notes, pickup_instructions, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Code, r.PatientID, r.PharmacyID, r.MedicineID, r.Quantity, r.UnitPrice, r.TotalPrice,
		string(r.Status), toMillis(r.ExpiresAt), r.Notes, r.PickupInstructions,
		toMillis(r.CreatedAt), toMillis(r.UpdatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("reservation code %s %w", r.Code, apperr.ErrAlreadyExists)
	}
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint(id)
	return nil
}

// GetByID implements reservation.Store
func (s *ReservationStore) GetByID(ctx context.Context, id uint) (*reservation.Reservation, error) {
	return s.getOne(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
}

// GetByCode implements reservation.Store
func (s *ReservationStore) GetByCode(ctx context.Context, code string) (*reservation.Reservation, error) {
	return s.getOne(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE code = ?`, code)
}

func (s *ReservationStore) getOne(ctx context.Context, query string, arg interface{}) (*reservation.Reservation, error) {
	var row reservationRow
	err := s.db.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("reservation")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	r := row.toReservation()
	return &r, nil
}

// CodeExists implements reservation.Store
func (s *ReservationStore) CodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM reservations WHERE code = ?`, code); err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateStatus implements reservation.Store
func (s *ReservationStore) UpdateStatus(ctx context.Context, id uint, from, to reservation.Status, change reservation.StatusChange) (bool, error) {
	cols := change.Columns(from, to)

	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, len(names))
	args := make([]interface{}, 0, len(names)+2)
	for i, name := range names {
		sets[i] = name + " = ?"
		args = append(args, sqliteValue(cols[name]))
	}
	args = append(args, id, string(from))

	res, err := s.db.ExecContext(ctx,
		`UPDATE reservations SET `+strings.Join(sets, ", ")+` WHERE id = ? AND status = ?`, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// List implements reservation.Store
func (s *ReservationStore) List(ctx context.Context, filter reservation.Filter) ([]reservation.Reservation, int64, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.PatientID != 0 {
		where = append(where, "patient_id = ?")
		args = append(args, filter.PatientID)
	}
	if filter.PharmacyID != 0 {
		where = append(where, "pharmacy_id = ?")
		args = append(args, filter.PharmacyID)
	}
	if filter.ExpiresBefore != nil {
		where = append(where, "expires_at < ?")
		args = append(args, toMillis(*filter.ExpiresBefore))
	}
	if filter.AfterID != 0 {
		where = append(where, "id > ?")
		args = append(args, filter.AfterID)
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reservations`+cond, args...); err != nil {
		return nil, 0, err
	}

	order := ` ORDER BY created_at DESC, id DESC`
	if filter.OrderByID {
		order = ` ORDER BY id`
	}
	query := `SELECT ` + reservationColumns + ` FROM reservations` + cond + order
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, (page-1)*filter.Limit)
	}

	var rows []reservationRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}

	reservations := make([]reservation.Reservation, len(rows))
	for i, row := range rows {
		reservations[i] = row.toReservation()
	}
	return reservations, total, nil
}

func sqliteValue(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		return toMillis(t)
	default:
		return v
	}
}
