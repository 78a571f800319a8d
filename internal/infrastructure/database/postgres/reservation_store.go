// internal/infrastructure/database/postgres/reservation_store.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ruralcare/medreserve/internal/domain/apperr"
	"github.com/ruralcare/medreserve/internal/domain/reservation"
	"gorm.io/gorm"
)

// ReservationStore implements reservation.Store with gorm
type ReservationStore struct {
	db *gorm.DB
}

// NewReservationStore creates a gorm reservation store
func NewReservationStore(db *gorm.DB) *ReservationStore {
	return &ReservationStore{db: db}
}

var _ reservation.Store = (*ReservationStore)(nil)

// Create implements reservation.Store
func (s *ReservationStore) Create(ctx context.Context, r *reservation.Reservation) error {
	err := s.db.WithContext(ctx).Create(r).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("reservation code %s %w", r.Code, apperr.ErrAlreadyExists)
	}
	return translate(err, "reservation")
}

// GetByID implements reservation.Store
func (s *ReservationStore) GetByID(ctx context.Context, id uint) (*reservation.Reservation, error) {
	var r reservation.Reservation
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, translate(err, "reservation")
	}
	return &r, nil
}

// GetByCode implements reservation.Store
func (s *ReservationStore) GetByCode(ctx context.Context, code string) (*reservation.Reservation, error) {
	var r reservation.Reservation
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&r).Error; err != nil {
		return nil, translate(err, "reservation")
	}
	return &r, nil
}

// CodeExists implements reservation.Store
func (s *ReservationStore) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&reservation.Reservation{}).Where("code = ?", code).Count(&count).Error
	if err != nil {
		return false, translate(err, "reservation")
	}
	return count > 0, nil
}

// UpdateStatus implements reservation.Store
func (s *ReservationStore) UpdateStatus(ctx context.Context, id uint, from, to reservation.Status, change reservation.StatusChange) (bool, error) {
	result := s.db.WithContext(ctx).Model(&reservation.Reservation{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(change.Columns(from, to))
	if result.Error != nil {
		return false, translate(result.Error, "reservation")
	}
	return result.RowsAffected == 1, nil
}

// List implements reservation.Store
func (s *ReservationStore) List(ctx context.Context, filter reservation.Filter) ([]reservation.Reservation, int64, error) {
	query := s.db.WithContext(ctx).Model(&reservation.Reservation{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.PatientID != 0 {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.PharmacyID != 0 {
		query = query.Where("pharmacy_id = ?", filter.PharmacyID)
	}
	if filter.ExpiresBefore != nil {
		query = query.Where("expires_at < ?", *filter.ExpiresBefore)
	}
	if filter.AfterID != 0 {
		query = query.Where("id > ?", filter.AfterID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "reservation")
	}

	var reservations []reservation.Reservation
	order := "created_at DESC, id DESC"
	if filter.OrderByID {
		order = "id"
	}
	err := paginate(query.Order(order), filter.Page, filter.Limit).Find(&reservations).Error
	if err != nil {
		return nil, 0, translate(err, "reservation")
	}
	return reservations, total, nil
}
