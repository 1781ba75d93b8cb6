package service

import (
	"context"
	"strings"

	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	"github.com/smallbiznis/quotient/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo catalogdomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo catalogdomain.Repository
}

func New(p ServiceParam) catalogdomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("catalog.service"),
		repo: p.Repo,
	}
}

func (s *Service) GetProduct(ctx context.Context, sku string) (catalogdomain.Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return catalogdomain.Product{}, catalogdomain.ErrInvalidSKU
	}

	product, err := s.repo.FindBySKU(ctx, s.db, sku)
	if err != nil {
		return catalogdomain.Product{}, err
	}
	if product == nil {
		return catalogdomain.Product{}, catalogdomain.ErrNotFound
	}
	return *product, nil
}

func (s *Service) SearchProducts(ctx context.Context, req catalogdomain.SearchRequest) ([]catalogdomain.Product, error) {
	if req.Category != "" {
		if _, err := catalogdomain.ParseCategory(req.Category); err != nil {
			return nil, err
		}
	}
	return s.repo.Search(ctx, s.db, req)
}

func (s *Service) ListProducts(ctx context.Context, req catalogdomain.ListRequest) (catalogdomain.ListResult, error) {
	size := req.Pagination.PageSize
	if size <= 0 || size > 250 {
		size = 50
	}

	afterSKU := ""
	if token := strings.TrimSpace(req.Pagination.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return catalogdomain.ListResult{}, catalogdomain.ErrInvalidPageToken
		}
		afterSKU = cursor.SKU
	}

	// one extra row to detect whether another page exists
	products, err := s.repo.List(ctx, s.db, afterSKU, size+1)
	if err != nil {
		return catalogdomain.ListResult{}, err
	}

	result := catalogdomain.ListResult{Products: products}
	if len(products) > size {
		result.Products = products[:size]
		token, err := pagination.EncodeCursor(pagination.Cursor{SKU: result.Products[size-1].SKU})
		if err != nil {
			return catalogdomain.ListResult{}, err
		}
		result.PageInfo = pagination.PageInfo{NextPageToken: token, HasMore: true}
	}
	return result, nil
}

func (s *Service) ListCategories() []catalogdomain.CategoryDescriptor {
	return []catalogdomain.CategoryDescriptor{
		{Value: catalogdomain.CategoryChemicals, Label: "Chemicals", Description: "Research and analytical grade chemicals"},
		{Value: catalogdomain.CategoryLabEquipment, Label: "Laboratory Equipment", Description: "Scientific instruments and devices"},
		{Value: catalogdomain.CategoryReagents, Label: "Reagents & Kits", Description: "Biological reagents and assay kits"},
		{Value: catalogdomain.CategoryConsumables, Label: "Consumables", Description: "Disposable laboratory supplies"},
		{Value: catalogdomain.CategoryInstruments, Label: "Analytical Instruments", Description: "High-end analytical equipment"},
	}
}
