// internal/domain/medicine/entity.go
package medicine

import (
	"time"
)

// Category groups medicines in the catalog
type Category string

const (
	CategoryPainRelief     Category = "Pain Relief"
	CategoryAntibiotic     Category = "Antibiotic"
	CategoryDiabetes       Category = "Diabetes"
	CategoryCardiovascular Category = "Cardiovascular"
	CategoryRespiratory    Category = "Respiratory"
	CategoryGeneral        Category = "General"
	CategoryEmergency      Category = "Emergency"
)

// DosageForms lists the accepted dosage forms
var DosageForms = []string{"tablet", "capsule", "syrup", "injection", "cream", "drops"}

// Medicine represents a catalog entry
type Medicine struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	Name                 string    `gorm:"not null;size:150;index" json:"name"`
	GenericName          string    `gorm:"size:150;index" json:"generic_name"`
	Category             Category  `gorm:"not null;size:50;index" json:"category"`
	Manufacturer         string    `gorm:"size:150" json:"manufacturer"`
	DosageForm           string    `gorm:"size:20" json:"dosage_form"`
	Strength             string    `gorm:"size:50" json:"strength"`
	RequiresPrescription bool      `gorm:"default:false" json:"requires_prescription"`
	IsActive             bool      `gorm:"not null" json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TableName overrides
func (Medicine) TableName() string { return "medicines" }

// IsValid reports whether c is a known category
func (c Category) IsValid() bool {
	switch c {
	case CategoryPainRelief, CategoryAntibiotic, CategoryDiabetes, CategoryCardiovascular,
		CategoryRespiratory, CategoryGeneral, CategoryEmergency:
		return true
	}
	return false
}

// SearchFilter narrows catalog searches
type SearchFilter struct {
	Query    string
	Category Category
	Page     int
	Limit    int
}
