// internal/seed/seed.go
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ruralcare/medreserve/internal/domain/apperr"
	"github.com/ruralcare/medreserve/internal/domain/inventory"
	"github.com/ruralcare/medreserve/internal/domain/medicine"
	"github.com/ruralcare/medreserve/internal/domain/user"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures is the YAML seed document
type Fixtures struct {
	Users     []UserFixture      `yaml:"users"`
	Medicines []MedicineFixture  `yaml:"medicines"`
	Inventory []InventoryFixture `yaml:"inventory"`
}

// UserFixture seeds an account of any role
type UserFixture struct {
	Email         string    `yaml:"email"`
	Password      string    `yaml:"password"`
	Name          string    `yaml:"name"`
	Phone         string    `yaml:"phone"`
	Role          user.Role `yaml:"role"`
	PharmacyName  string    `yaml:"pharmacy_name"`
	LicenseNumber string    `yaml:"license_number"`
	Address       string    `yaml:"address"`
	District      string    `yaml:"district"`
}

// MedicineFixture seeds a catalog entry; Key is how inventory rows refer to it
type MedicineFixture struct {
	Key                  string            `yaml:"key"`
	Name                 string            `yaml:"name"`
	GenericName          string            `yaml:"generic_name"`
	Category             medicine.Category `yaml:"category"`
	Manufacturer         string            `yaml:"manufacturer"`
	DosageForm           string            `yaml:"dosage_form"`
	Strength             string            `yaml:"strength"`
	RequiresPrescription bool              `yaml:"requires_prescription"`
}

// InventoryFixture stocks a medicine at a pharmacy, both referenced by name
type InventoryFixture struct {
	Pharmacy      string `yaml:"pharmacy"` // pharmacy account email
	Medicine      string `yaml:"medicine"` // medicine key
	CurrentStock  int    `yaml:"current_stock"`
	MinStockLevel int    `yaml:"min_stock_level"`
	MaxStockLevel int    `yaml:"max_stock_level"`
	Price         int64  `yaml:"price"` // In paise
	BatchNumber   string `yaml:"batch_number"`
	Supplier      string `yaml:"supplier"`
	ExpiryDate    string `yaml:"expiry_date"` // YYYY-MM-DD
}

// Result counts what a seed run created and skipped
type Result struct {
	Users     int
	Medicines int
	Inventory int
	Skipped   int
}

// Parse decodes a fixtures document, rejecting unknown fields
func Parse(data []byte) (*Fixtures, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var fixtures Fixtures
	if err := decoder.Decode(&fixtures); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return &fixtures, nil
}

// Load reads fixtures from path, or the built-in set when path is empty
func Load(path string) (*Fixtures, error) {
	if path == "" {
		return Parse(defaultFixtures)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return Parse(data)
}

// Seeder writes fixtures through the domain services
type Seeder struct {
	users     *user.Service
	medicines *medicine.Service
	inventory *inventory.Service
	logger    logrus.FieldLogger
}

// NewSeeder creates a seeder
func NewSeeder(users *user.Service, medicines *medicine.Service, ledger *inventory.Service, logger logrus.FieldLogger) *Seeder {
	return &Seeder{
		users:     users,
		medicines: medicines,
		inventory: ledger,
		logger:    logger.WithField("component", "seed"),
	}
}

// Apply creates whatever in f does not exist yet. Running it twice is safe.
func (s *Seeder) Apply(ctx context.Context, f *Fixtures) (Result, error) {
	var result Result

	pharmacies := make(map[string]uint)
	for _, fixture := range f.Users {
		u := &user.User{
			Email:         fixture.Email,
			Name:          fixture.Name,
			Phone:         fixture.Phone,
			Role:          fixture.Role,
			PharmacyName:  fixture.PharmacyName,
			LicenseNumber: fixture.LicenseNumber,
			Address:       fixture.Address,
			District:      fixture.District,
			IsActive:      true,
		}
		err := s.users.CreateUser(ctx, u, fixture.Password)
		switch {
		case err == nil:
			result.Users++
		case errors.Is(err, apperr.ErrAlreadyExists):
			result.Skipped++
			existing, lookupErr := s.users.GetUserByEmail(ctx, fixture.Email)
			if lookupErr != nil {
				return result, lookupErr
			}
			u = existing
		default:
			return result, fmt.Errorf("user %s: %w", fixture.Email, err)
		}
		if u.Role == user.RolePharmacy {
			pharmacies[strings.ToLower(u.Email)] = u.ID
		}
	}

	medicines := make(map[string]uint)
	for _, fixture := range f.Medicines {
		id, created, err := s.medicine(ctx, fixture)
		if err != nil {
			return result, fmt.Errorf("medicine %s: %w", fixture.Key, err)
		}
		if created {
			result.Medicines++
		} else {
			result.Skipped++
		}
		medicines[fixture.Key] = id
	}

	for _, fixture := range f.Inventory {
		pharmacyID, ok := pharmacies[strings.ToLower(fixture.Pharmacy)]
		if !ok {
			return result, apperr.InvalidInput("inventory references unknown pharmacy %q", fixture.Pharmacy)
		}
		medicineID, ok := medicines[fixture.Medicine]
		if !ok {
			return result, apperr.InvalidInput("inventory references unknown medicine %q", fixture.Medicine)
		}

		req := &inventory.StockRequest{
			PharmacyID:    pharmacyID,
			MedicineID:    medicineID,
			CurrentStock:  fixture.CurrentStock,
			MinStockLevel: fixture.MinStockLevel,
			MaxStockLevel: fixture.MaxStockLevel,
			Price:         fixture.Price,
			BatchNumber:   fixture.BatchNumber,
			Supplier:      fixture.Supplier,
		}
		if fixture.ExpiryDate != "" {
			expiry, err := time.Parse("2006-01-02", fixture.ExpiryDate)
			if err != nil {
				return result, apperr.InvalidInput("bad expiry date %q", fixture.ExpiryDate)
			}
			req.ExpiryDate = &expiry
		}

		_, err := s.inventory.Stock(ctx, req)
		switch {
		case err == nil:
			result.Inventory++
		case errors.Is(err, apperr.ErrAlreadyExists):
			result.Skipped++
		default:
			return result, fmt.Errorf("inventory %s/%s: %w", fixture.Pharmacy, fixture.Medicine, err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"users":     result.Users,
		"medicines": result.Medicines,
		"inventory": result.Inventory,
		"skipped":   result.Skipped,
	}).Info("Seed data applied")

	return result, nil
}

// medicine finds a catalog entry with the same name and strength or creates it
func (s *Seeder) medicine(ctx context.Context, fixture MedicineFixture) (uint, bool, error) {
	matches, _, err := s.medicines.Search(ctx, medicine.SearchFilter{Query: fixture.Name, Limit: 100})
	if err != nil {
		return 0, false, err
	}
	for _, m := range matches {
		if strings.EqualFold(m.Name, fixture.Name) && m.Strength == fixture.Strength {
			return m.ID, false, nil
		}
	}

	m, err := s.medicines.Create(ctx, &medicine.CreateRequest{
		Name:                 fixture.Name,
		GenericName:          fixture.GenericName,
		Category:             fixture.Category,
		Manufacturer:         fixture.Manufacturer,
		DosageForm:           fixture.DosageForm,
		Strength:             fixture.Strength,
		RequiresPrescription: fixture.RequiresPrescription,
	})
	if err != nil {
		return 0, false, err
	}
	return m.ID, true, nil
}
