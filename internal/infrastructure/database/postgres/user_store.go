// internal/infrastructure/database/postgres/user_store.go
package postgres

import (
	"context"
	"time"

	"github.com/ruralcare/medreserve/internal/domain/user"
	"gorm.io/gorm"
)

// UserStore implements user.Store with gorm
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a gorm user store
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

var _ user.Store = (*UserStore)(nil)

// Create implements user.Store
func (s *UserStore) Create(ctx context.Context, u *user.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error, "user")
}

// GetByID implements user.Store
func (s *UserStore) GetByID(ctx context.Context, id uint) (*user.User, error) {
	var u user.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

// GetByEmail implements user.Store
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

// UpdateLastLogin implements user.Store
func (s *UserStore) UpdateLastLogin(ctx context.Context, id uint) error {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Model(&user.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"last_login_at": now, "updated_at": now}).Error
	return translate(err, "user")
}

// ListByRole implements user.Store
func (s *UserStore) ListByRole(ctx context.Context, role user.Role) ([]user.User, error) {
	var users []user.User
	err := s.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", string(role), true).
		Order("id").
		Find(&users).Error
	return users, translate(err, "user")
}
