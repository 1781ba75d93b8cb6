// Package domain contains the historical transaction table consumed by the
// analytics engine. Rows are an immutable snapshot per provider call; the
// engine never mutates them.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Transaction is one past sale. UnitPrice is what the customer paid,
// BasePrice the catalog price at the time.
type Transaction struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerID string       `gorm:"not null;index" json:"customer_id"`
	SKU        string       `gorm:"not null;index" json:"sku"`
	Segment    string       `gorm:"type:text;not null;index" json:"segment"`
	Category   string       `gorm:"type:text;not null" json:"category"`
	Date       time.Time    `gorm:"not null;index" json:"date"`
	Quantity   int          `gorm:"not null" json:"quantity"`
	UnitPrice  float64      `gorm:"not null" json:"unit_price"`
	BasePrice  float64      `gorm:"not null" json:"base_price"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "historical_transactions" }

// Revenue is the derived row revenue.
func (t Transaction) Revenue() float64 {
	return t.UnitPrice * float64(t.Quantity)
}

// ProfitMargin is the derived fractional margin of the sale. Rows with a
// zero unit price yield zero rather than a division error.
func (t Transaction) ProfitMargin() float64 {
	if t.UnitPrice == 0 {
		return 0
	}
	return (t.UnitPrice - t.BasePrice) / t.UnitPrice
}

// Provider supplies the historical table. Implementations are idempotent
// and may return an empty slice; callers must degrade to fallbacks rather
// than fail.
type Provider interface {
	Transactions(ctx context.Context) ([]Transaction, error)
}
