package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	analyticsservice "github.com/smallbiznis/quotient/internal/analytics/service"
	basketdomain "github.com/smallbiznis/quotient/internal/basket/domain"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/quotient/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/quotient/internal/catalog/service"
	"github.com/smallbiznis/quotient/internal/clock"
	"github.com/smallbiznis/quotient/internal/config"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/quotient/internal/invoice/domain"
	invoiceservice "github.com/smallbiznis/quotient/internal/invoice/service"
	pricingservice "github.com/smallbiznis/quotient/internal/pricing/service"
	shippingservice "github.com/smallbiznis/quotient/internal/shipping/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop()
	rates := config.StaticRates(config.DefaultRates())
	fake := clock.NewFakeClock(time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC))
	analyzer := analyticsservice.NewStatic(log)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&catalogdomain.Product{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	require.NoError(t, db.Create(&catalogdomain.Product{
		ID: node.Generate(), SKU: "REA-003", Name: "PCR Master Mix Kit",
		Category: catalogdomain.CategoryReagents, Supplier: "ThermoFisher",
		BasePrice: 320, HSCode: "3822",
	}).Error)

	shippingSvc := shippingservice.New(shippingservice.ServiceParam{Log: log, Rates: rates})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	s := &Server{
		engine: engine,
		log:    log,
		catalogSvc: catalogservice.New(catalogservice.ServiceParam{
			DB: db, Log: log, Repo: catalogrepo.Provide(),
		}),
		pricingSvc: pricingservice.New(pricingservice.ServiceParam{
			Log: log, Analyzer: analyzer, Clock: fake,
		}),
		shippingSvc: shippingSvc,
		invoiceSvc: invoiceservice.New(invoiceservice.ServiceParam{
			Log: log, Rates: rates, Shipping: shippingSvc, Clock: fake,
		}),
		analyzer: analyzer,
	}
	s.registerAPIRoutes()
	return s
}

func performRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func apiBasket() basketdomain.Basket {
	return basketdomain.Basket{
		Customer: customerdomain.Customer{
			ID: "academic-01", Name: "State University Lab",
			Segment: customerdomain.SegmentAcademic, Country: "US",
		},
		DestinationCountry: "US",
		Items: []basketdomain.BasketItem{{
			Product: catalogdomain.Product{
				SKU: "REA-003", Name: "PCR Master Mix Kit",
				Category: catalogdomain.CategoryReagents, Supplier: "ThermoFisher",
				BasePrice: 320, HSCode: "3822",
			},
			Quantity: 1, UnitPrice: 300,
		}},
	}
}

func TestOptimizeEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := performRequest(t, s, http.MethodPost, "/api/pricing/optimize", map[string]any{
		"sku": "REA-003", "segment": "academic", "quantity": 5, "current_price": 320,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		OptimizedPrice float64 `json:"optimized_price"`
		Confidence     float64 `json:"confidence"`
		Recommendation string  `json:"recommendation"`
	}
	decodeData(t, w, &result)
	assert.Positive(t, result.OptimizedPrice)
	assert.GreaterOrEqual(t, result.Confidence, 60.0)
	assert.LessOrEqual(t, result.Confidence, 95.0)
	assert.NotEmpty(t, result.Recommendation)
}

func TestOptimizeEndpointValidation(t *testing.T) {
	s := newTestServer(t)

	w := performRequest(t, s, http.MethodPost, "/api/pricing/optimize", map[string]any{
		"sku": "REA-003", "quantity": 0, "current_price": 320,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error struct {
			Type   string `json:"type"`
			Errors []struct {
				Code string `json:"code"`
			} `json:"errors"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error.Type)
	require.NotEmpty(t, resp.Error.Errors)
	assert.Equal(t, "invalid_quantity", resp.Error.Errors[0].Code)
}

func TestRecommendationsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := performRequest(t, s, http.MethodPost, "/api/pricing/recommendations", map[string]any{
		"customer": map[string]any{"id": "academic-01", "segment": "academic"},
		"products": []map[string]any{
			{"sku": "REA-003", "name": "PCR Master Mix Kit", "category": "reagents", "base_price": 320},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var recs []struct {
		SKU              string  `json:"sku"`
		RecommendedPrice float64 `json:"recommended_price"`
	}
	decodeData(t, w, &recs)
	require.Len(t, recs, 1)
	assert.Equal(t, "REA-003", recs[0].SKU)
	assert.InDelta(t, 285.60, recs[0].RecommendedPrice, 0.001)
}

func TestCustomerSegmentsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := performRequest(t, s, http.MethodGet, "/api/pricing/customer-segments", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var segments []string
	decodeData(t, w, &segments)
	assert.ElementsMatch(t, []string{
		"academic", "biotech_startup", "pharma_enterprise", "research_institute",
	}, segments)
}

func TestShippingEstimateEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := performRequest(t, s, http.MethodPost, "/api/shipping/estimate", apiBasket())
	require.Equal(t, http.StatusOK, w.Code)

	var estimate struct {
		TotalCost float64 `json:"total_cost"`
		Zone      string  `json:"zone"`
	}
	decodeData(t, w, &estimate)
	assert.Equal(t, "domestic", estimate.Zone)
	assert.Positive(t, estimate.TotalCost)

	w = performRequest(t, s, http.MethodPost, "/api/shipping/estimate?zone=orbital", apiBasket())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWeightInferenceEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := performRequest(t, s, http.MethodPost, "/api/shipping/weight-inference", map[string]any{
		"skus": []string{"REA-003", "INS-001"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var weights map[string]float64
	decodeData(t, w, &weights)
	assert.InDelta(t, 0.5, weights["REA-003"], 0.001)
	assert.InDelta(t, 15.0, weights["INS-001"], 0.001)
}

func TestGenerateInvoiceEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := performRequest(t, s, http.MethodPost, "/api/invoices/generate", apiBasket())
	require.Equal(t, http.StatusOK, w.Code)

	var invoice invoicedomain.Invoice
	decodeData(t, w, &invoice)

	assert.NotEmpty(t, invoice.InvoiceID)
	assert.InDelta(t, 300.00, invoice.Subtotal, 0.001)
	assert.InDelta(t,
		invoice.Subtotal+invoice.TaxTotal+invoice.ShippingCost+invoice.DynamicTotal(),
		invoice.Total, 0.01)
}

func TestInvoiceTemplateEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := performRequest(t, s, http.MethodGet, "/api/invoices/template/academic", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var template invoicedomain.Template
	decodeData(t, w, &template)
	assert.Equal(t, "Net 45", template.PaymentTerms)
	assert.True(t, template.Attributes["tax_exempt_eligible"])

	w = performRequest(t, s, http.MethodGet, "/api/invoices/template/retail", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := performRequest(t, s, http.MethodGet, "/api/products/REA-003", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var product catalogdomain.Product
	decodeData(t, w, &product)
	assert.Equal(t, "REA-003", product.SKU)

	w = performRequest(t, s, http.MethodGet, "/api/products/NOPE-404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(t, s, http.MethodGet, "/api/products?page_size=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
