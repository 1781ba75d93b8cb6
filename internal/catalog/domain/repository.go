package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	FindBySKU(ctx context.Context, db *gorm.DB, sku string) (*Product, error)
	Search(ctx context.Context, db *gorm.DB, req SearchRequest) ([]Product, error)
	List(ctx context.Context, db *gorm.DB, afterSKU string, limit int) ([]Product, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)
}
