package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	"github.com/smallbiznis/quotient/internal/catalog/repository"
	"github.com/smallbiznis/quotient/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newCatalogService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&catalogdomain.Product{}))

	svc := New(ServiceParam{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: repository.Provide(),
	}).(*Service)
	return svc, db
}

func seedCatalog(t *testing.T, db *gorm.DB, count int) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	categories := catalogdomain.Categories()
	for i := 0; i < count; i++ {
		product := catalogdomain.Product{
			ID:        node.Generate(),
			SKU:       fmt.Sprintf("SKU-%03d", i),
			Name:      fmt.Sprintf("Test Product %03d", i),
			Category:  categories[i%len(categories)],
			Supplier:  "Test Supplier",
			BasePrice: 100 + float64(i),
		}
		require.NoError(t, db.Create(&product).Error)
	}
}

func TestGetProduct(t *testing.T) {
	svc, db := newCatalogService(t)
	seedCatalog(t, db, 3)

	product, err := svc.GetProduct(context.Background(), "SKU-001")
	require.NoError(t, err)
	assert.Equal(t, "SKU-001", product.SKU)
	assert.InDelta(t, 101.0, product.BasePrice, 0.001)

	_, err = svc.GetProduct(context.Background(), "SKU-999")
	assert.ErrorIs(t, err, catalogdomain.ErrNotFound)

	_, err = svc.GetProduct(context.Background(), "   ")
	assert.ErrorIs(t, err, catalogdomain.ErrInvalidSKU)
}

func TestSearchProducts(t *testing.T) {
	svc, db := newCatalogService(t)
	seedCatalog(t, db, 10)

	results, err := svc.SearchProducts(context.Background(), catalogdomain.SearchRequest{Query: "product 00"})
	require.NoError(t, err)
	assert.Len(t, results, 10)

	results, err = svc.SearchProducts(context.Background(), catalogdomain.SearchRequest{Query: "SKU-007"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "SKU-007", results[0].SKU)

	results, err = svc.SearchProducts(context.Background(), catalogdomain.SearchRequest{Category: "reagents"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, p := range results {
		assert.Equal(t, catalogdomain.CategoryReagents, p.Category)
	}

	_, err = svc.SearchProducts(context.Background(), catalogdomain.SearchRequest{Category: "food"})
	assert.ErrorIs(t, err, catalogdomain.ErrUnknownCategory)
}

func TestListProductsPaginates(t *testing.T) {
	svc, db := newCatalogService(t)
	seedCatalog(t, db, 7)

	page, err := svc.ListProducts(context.Background(), catalogdomain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 3},
	})
	require.NoError(t, err)
	require.Len(t, page.Products, 3)
	assert.True(t, page.PageInfo.HasMore)
	assert.Equal(t, "SKU-000", page.Products[0].SKU)
	assert.Equal(t, "SKU-002", page.Products[2].SKU)

	page, err = svc.ListProducts(context.Background(), catalogdomain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 3, PageToken: page.PageInfo.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, page.Products, 3)
	assert.Equal(t, "SKU-003", page.Products[0].SKU)
	assert.True(t, page.PageInfo.HasMore)

	page, err = svc.ListProducts(context.Background(), catalogdomain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 3, PageToken: page.PageInfo.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.False(t, page.PageInfo.HasMore)
	assert.Empty(t, page.PageInfo.NextPageToken)
}

func TestListProductsRejectsBadToken(t *testing.T) {
	svc, db := newCatalogService(t)
	seedCatalog(t, db, 2)

	_, err := svc.ListProducts(context.Background(), catalogdomain.ListRequest{
		Pagination: pagination.Pagination{PageToken: "not-base64!!"},
	})
	assert.ErrorIs(t, err, catalogdomain.ErrInvalidPageToken)
}

func TestListCategoriesCoversEveryCategory(t *testing.T) {
	svc, _ := newCatalogService(t)

	descriptors := svc.ListCategories()
	require.Len(t, descriptors, len(catalogdomain.Categories()))

	seen := make(map[catalogdomain.Category]bool, len(descriptors))
	for _, d := range descriptors {
		seen[d.Value] = true
		assert.NotEmpty(t, d.Label)
		assert.NotEmpty(t, d.Description)
	}
	for _, c := range catalogdomain.Categories() {
		assert.True(t, seen[c], string(c))
	}
}
