// internal/infrastructure/database/postgres/medicine_store.go
package postgres

import (
	"context"
	"strings"

	"github.com/ruralcare/medreserve/internal/domain/medicine"
	"gorm.io/gorm"
)

// MedicineStore implements medicine.Store with gorm
type MedicineStore struct {
	db *gorm.DB
}

// NewMedicineStore creates a gorm medicine store
func NewMedicineStore(db *gorm.DB) *MedicineStore {
	return &MedicineStore{db: db}
}

var _ medicine.Store = (*MedicineStore)(nil)

// Create implements medicine.Store
func (s *MedicineStore) Create(ctx context.Context, m *medicine.Medicine) error {
	return translate(s.db.WithContext(ctx).Create(m).Error, "medicine")
}

// GetByID implements medicine.Store
func (s *MedicineStore) GetByID(ctx context.Context, id uint) (*medicine.Medicine, error) {
	var m medicine.Medicine
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, translate(err, "medicine")
	}
	return &m, nil
}

// Search implements medicine.Store
func (s *MedicineStore) Search(ctx context.Context, filter medicine.SearchFilter) ([]medicine.Medicine, int64, error) {
	query := s.db.WithContext(ctx).Model(&medicine.Medicine{}).Where("is_active = ?", true)
	if filter.Query != "" {
		like := "%" + strings.ToLower(filter.Query) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(generic_name) LIKE ?", like, like)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", string(filter.Category))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "medicine")
	}

	var medicines []medicine.Medicine
	err := paginate(query.Order("name, id"), filter.Page, filter.Limit).Find(&medicines).Error
	if err != nil {
		return nil, 0, translate(err, "medicine")
	}
	return medicines, total, nil
}
