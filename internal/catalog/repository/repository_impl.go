package repository

import (
	"context"
	"errors"
	"strings"

	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() catalogdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *catalogdomain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) FindBySKU(ctx context.Context, db *gorm.DB, sku string) (*catalogdomain.Product, error) {
	var product catalogdomain.Product
	err := db.WithContext(ctx).Where("sku = ?", sku).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *repo) Search(ctx context.Context, db *gorm.DB, req catalogdomain.SearchRequest) ([]catalogdomain.Product, error) {
	q := db.WithContext(ctx).Model(&catalogdomain.Product{})

	if query := strings.TrimSpace(req.Query); query != "" {
		pattern := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", pattern, pattern)
	}
	if req.Category != "" {
		q = q.Where("category = ?", req.Category)
	}

	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var products []catalogdomain.Product
	if err := q.Order("sku").Limit(limit).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, afterSKU string, limit int) ([]catalogdomain.Product, error) {
	q := db.WithContext(ctx).Order("sku")
	if afterSKU != "" {
		q = q.Where("sku > ?", afterSKU)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var products []catalogdomain.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&catalogdomain.Product{}).Count(&count).Error
	return count, err
}
