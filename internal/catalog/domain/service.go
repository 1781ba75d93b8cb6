package domain

import (
	"context"

	"github.com/smallbiznis/quotient/pkg/db/pagination"
)

// SearchRequest filters the catalog listing.
type SearchRequest struct {
	Query    string
	Category string
	Limit    int
}

// ListRequest pages through the catalog ordered by SKU.
type ListRequest struct {
	Pagination pagination.Pagination
}

type ListResult struct {
	Products []Product           `json:"products"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Service interface {
	GetProduct(ctx context.Context, sku string) (Product, error)
	SearchProducts(ctx context.Context, req SearchRequest) ([]Product, error)
	ListProducts(ctx context.Context, req ListRequest) (ListResult, error)
	ListCategories() []CategoryDescriptor
}
