// internal/infrastructure/database/sqlite/user_store.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ruralcare/medreserve/internal/domain/apperr"
	"github.com/ruralcare/medreserve/internal/domain/user"
)

// UserStore implements user.Store on sqlite
type UserStore struct {
	db *sqlx.DB
}

// NewUserStore creates a sqlite user store
func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

var _ user.Store = (*UserStore)(nil)

type userRow struct {
	ID            uint   `db:"id"`
	Email         string `db:"email"`
	Password      string `db:"password"`
	Name          string `db:"name"`
	Phone         string `db:"phone"`
	Role          string `db:"role"`
	PharmacyName  string `db:"pharmacy_name"`
	LicenseNumber string `db:"license_number"`
	Address       string `db:"address"`
	District      string `db:"district"`
	IsActive      bool   `db:"is_active"`
	LastLoginAt   *int64 `db:"last_login_at"`
	CreatedAt     int64  `db:"created_at"`
	UpdatedAt     int64  `db:"updated_at"`
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:            r.ID,
		Email:         r.Email,
		Password:      r.Password,
		Name:          r.Name,
		Phone:         r.Phone,
		Role:          user.Role(r.Role),
		PharmacyName:  r.PharmacyName,
		LicenseNumber: r.LicenseNumber,
		Address:       r.Address,
		District:      r.District,
		IsActive:      r.IsActive,
		LastLoginAt:   fromNullMillis(r.LastLoginAt),
		CreatedAt:     fromMillis(r.CreatedAt),
		UpdatedAt:     fromMillis(r.UpdatedAt),
	}
}

const userColumns = `id, email, password, name, phone, role, pharmacy_name, license_number,
	address, district, is_active, last_login_at, created_at, updated_at`

// Create implements user.Store
func (s *UserStore) Create(ctx context.Context, u *user.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `INSERT INTO users (
		email, password, name, phone, role, pharmacy_name, license_number, address, district,
		is_active, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Email, u.Password, u.Name, u.Phone, string(u.Role), u.PharmacyName, u.LicenseNumber,
		u.Address, u.District, u.IsActive, toMillis(u.CreatedAt), toMillis(u.UpdatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s %w", u.Email, apperr.ErrAlreadyExists)
	}
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint(id)
	return nil
}

// GetByID implements user.Store
func (s *UserStore) GetByID(ctx context.Context, id uint) (*user.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByEmail implements user.Store
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (s *UserStore) getOne(ctx context.Context, query string, arg interface{}) (*user.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u := row.toUser()
	return &u, nil
}

// UpdateLastLogin implements user.Store
func (s *UserStore) UpdateLastLogin(ctx context.Context, id uint) error {
	now := toMillis(time.Now().UTC())
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`, now, now, id)
	return err
}

// ListByRole implements user.Store
func (s *UserStore) ListByRole(ctx context.Context, role user.Role) ([]user.User, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+userColumns+` FROM users WHERE role = ? AND is_active = 1 ORDER BY id`, string(role)); err != nil {
		return nil, err
	}
	users := make([]user.User, len(rows))
	for i, r := range rows {
		users[i] = r.toUser()
	}
	return users, nil
}
