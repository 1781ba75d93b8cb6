// Package domain contains the product catalog models.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Category enumerates the product families carried in the catalog.
type Category string

const (
	CategoryReagents     Category = "reagents"
	CategoryLabEquipment Category = "lab_equipment"
	CategoryConsumables  Category = "consumables"
	CategoryInstruments  Category = "instruments"
	CategoryChemicals    Category = "chemicals"
)

var (
	ErrUnknownCategory  = errors.New("unknown_category")
	ErrNotFound         = errors.New("not_found")
	ErrInvalidSKU       = errors.New("invalid_sku")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)

// Categories lists every valid product category.
func Categories() []Category {
	return []Category{
		CategoryReagents,
		CategoryLabEquipment,
		CategoryConsumables,
		CategoryInstruments,
		CategoryChemicals,
	}
}

// ParseCategory validates a caller-supplied category value.
func ParseCategory(v string) (Category, error) {
	c := Category(v)
	switch c {
	case CategoryReagents, CategoryLabEquipment, CategoryConsumables, CategoryInstruments, CategoryChemicals:
		return c, nil
	default:
		return "", ErrUnknownCategory
	}
}

// Valid reports whether the category is one of the enumerated values.
func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

// Fragile reports whether items of this category need special handling.
func (c Category) Fragile() bool {
	return c == CategoryInstruments || c == CategoryLabEquipment
}

// Product is a catalog entry. WeightKg is nil when the supplier did not
// declare a shipping weight; the shipping estimator infers it.
type Product struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"-"`
	SKU       string            `gorm:"uniqueIndex;not null" json:"sku"`
	Name      string            `gorm:"not null" json:"name"`
	Category  Category          `gorm:"type:text;not null;index" json:"category"`
	Supplier  string            `gorm:"not null" json:"supplier"`
	WeightKg  *float64          `json:"weight_kg,omitempty"`
	BasePrice float64           `gorm:"not null" json:"base_price"`
	HSCode    string            `json:"hs_code,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Product) TableName() string { return "products" }

// CategoryDescriptor describes a category for catalog listings.
type CategoryDescriptor struct {
	Value       Category `json:"value"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
}
