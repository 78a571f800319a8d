// internal/domain/medicine/service.go
package medicine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ruralcare/medreserve/internal/domain/apperr"
	"github.com/sirupsen/logrus"
)

// Store is the persistence port for the catalog
type Store interface {
	Create(ctx context.Context, m *Medicine) error
	GetByID(ctx context.Context, id uint) (*Medicine, error)
	// Search matches Query against name and generic name, case-insensitively
	Search(ctx context.Context, filter SearchFilter) ([]Medicine, int64, error)
}

// Service handles the medicine catalog
type Service struct {
	store  Store
	logger logrus.FieldLogger
}

// NewService creates a new medicine service
func NewService(store Store, logger logrus.FieldLogger) *Service {
	return &Service{store: store, logger: logger.WithField("component", "medicine")}
}

// CreateRequest represents a new catalog entry
type CreateRequest struct {
	Name                 string   `json:"name" binding:"required"`
	GenericName          string   `json:"generic_name"`
	Category             Category `json:"category" binding:"required"`
	Manufacturer         string   `json:"manufacturer"`
	DosageForm           string   `json:"dosage_form"`
	Strength             string   `json:"strength"`
	RequiresPrescription bool     `json:"requires_prescription"`
}

// Create adds a medicine to the catalog
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Medicine, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.InvalidInput("name is required")
	}
	if !req.Category.IsValid() {
		return nil, apperr.InvalidInput("unknown category %q", req.Category)
	}
	if req.DosageForm != "" && !slices.Contains(DosageForms, req.DosageForm) {
		return nil, apperr.InvalidInput("unknown dosage form %q", req.DosageForm)
	}

	m := &Medicine{
		Name:                 name,
		GenericName:          strings.TrimSpace(req.GenericName),
		Category:             req.Category,
		Manufacturer:         req.Manufacturer,
		DosageForm:           req.DosageForm,
		Strength:             req.Strength,
		RequiresPrescription: req.RequiresPrescription,
		IsActive:             true,
	}
	if err := s.store.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create medicine: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"medicine_id": m.ID, "name": m.Name}).Info("Medicine added to catalog")
	return m, nil
}

// Get returns a medicine by ID
func (s *Service) Get(ctx context.Context, id uint) (*Medicine, error) {
	return s.store.GetByID(ctx, id)
}

// Search returns a page of active medicines
func (s *Service) Search(ctx context.Context, filter SearchFilter) ([]Medicine, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	filter.Query = strings.TrimSpace(filter.Query)

	medicines, total, err := s.store.Search(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search medicines: %w", err)
	}
	return medicines, total, nil
}

// MedicineName resolves a medicine name for notifications
func (s *Service) MedicineName(ctx context.Context, id uint) (string, error) {
	m, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if m.Strength != "" {
		return m.Name + " " + m.Strength, nil
	}
	return m.Name, nil
}
