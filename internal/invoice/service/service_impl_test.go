package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	basketdomain "github.com/smallbiznis/quotient/internal/basket/domain"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	"github.com/smallbiznis/quotient/internal/clock"
	"github.com/smallbiznis/quotient/internal/config"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/quotient/internal/invoice/domain"
	shippingdomain "github.com/smallbiznis/quotient/internal/shipping/domain"
	shippingservice "github.com/smallbiznis/quotient/internal/shipping/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func newInvoiceService(shipping shippingdomain.Service) *Service {
	return New(ServiceParam{
		Log:      zap.NewNop(),
		Rates:    config.StaticRates(config.DefaultRates()),
		Shipping: shipping,
		Clock:    clock.NewFakeClock(testNow),
	}).(*Service)
}

func newInvoiceServiceWithEstimator() *Service {
	shipping := shippingservice.New(shippingservice.ServiceParam{
		Log:   zap.NewNop(),
		Rates: config.StaticRates(config.DefaultRates()),
	})
	return newInvoiceService(shipping)
}

// brokenEstimator forces the flat shipping fallback.
type brokenEstimator struct{}

func (brokenEstimator) Estimate(context.Context, basketdomain.Basket, shippingdomain.Zone) (shippingdomain.Estimate, error) {
	return shippingdomain.Estimate{}, errors.New("rate table offline")
}

func (brokenEstimator) InferWeights(context.Context, []string) (map[string]float64, error) {
	return nil, errors.New("rate table offline")
}

func (brokenEstimator) OptimizeSourcing(context.Context, basketdomain.Basket) (shippingdomain.SourcingRecommendation, error) {
	return shippingdomain.SourcingRecommendation{}, errors.New("rate table offline")
}

func (brokenEstimator) Carriers(context.Context) []shippingdomain.Carrier { return nil }

func wPtr(v float64) *float64 { return &v }

func academicBasket() basketdomain.Basket {
	return basketdomain.Basket{
		Customer: customerdomain.Customer{
			ID: "academic-01", Name: "State University Lab",
			Segment: customerdomain.SegmentAcademic, Country: "US",
		},
		DestinationCountry: "US",
		Items: []basketdomain.BasketItem{
			{
				Product: catalogdomain.Product{
					SKU: "REA-003", Name: "PCR Master Mix Kit",
					Category: catalogdomain.CategoryReagents,
					WeightKg: wPtr(0.8), BasePrice: 320, HSCode: "3822",
				},
				Quantity: 1, UnitPrice: 300,
			},
		},
	}
}

func TestGenerateAcademicDomesticInvoice(t *testing.T) {
	svc := newInvoiceServiceWithEstimator()

	inv, err := svc.Generate(context.Background(), academicBasket(), true)
	require.NoError(t, err)

	require.Len(t, inv.LineItems, 1)
	assert.InDelta(t, 300.00, inv.LineItems[0].LineTotal, 0.001)
	// Reagents shipped within the US are tax exempt.
	assert.Zero(t, inv.LineItems[0].TaxRate)
	assert.Nil(t, inv.LineItems[0].TariffRate)

	assert.InDelta(t, 300.00, inv.Subtotal, 0.001)
	assert.Zero(t, inv.TaxTotal)
	assert.InDelta(t, 16.78, inv.ShippingCost, 0.001)

	fields := fieldsByName(inv)
	assert.InDelta(t, 6.00, fields["service_fee"].FieldValue, 0.001)
	assert.InDelta(t, -30.00, fields["promotion_discount"].FieldValue, 0.001)
	assert.Zero(t, fields["rush_processing"].FieldValue)
	assert.NotContains(t, fields, "handling_charge")
	assert.NotContains(t, fields, "international_processing")

	assert.InDelta(t, 292.78, inv.Total, 0.001)
}

func TestGenerateTotalReconciles(t *testing.T) {
	svc := newInvoiceServiceWithEstimator()
	baskets := []basketdomain.Basket{academicBasket()}

	intl := academicBasket()
	intl.DestinationCountry = "DE"
	baskets = append(baskets, intl)

	bulk := academicBasket()
	bulk.Items[0].Quantity = 4
	baskets = append(baskets, bulk)

	for _, basket := range baskets {
		inv, err := svc.Generate(context.Background(), basket, true)
		require.NoError(t, err)
		assert.InDelta(t,
			round2(inv.Subtotal+inv.TaxTotal+inv.ShippingCost+inv.DynamicTotal()),
			inv.Total, 0.005)
	}
}

func TestGenerateInternationalInvoice(t *testing.T) {
	svc := newInvoiceServiceWithEstimator()
	basket := academicBasket()
	basket.DestinationCountry = "DE"

	inv, err := svc.Generate(context.Background(), basket, true)
	require.NoError(t, err)

	// The reagent exemption is US-only; Germany taxes at 19%.
	assert.InDelta(t, 0.19, inv.LineItems[0].TaxRate, 0.0001)
	assert.InDelta(t, 57.00, inv.TaxTotal, 0.001)
	require.NotNil(t, inv.LineItems[0].TariffRate)
	assert.InDelta(t, 0.035, *inv.LineItems[0].TariffRate, 0.0001)

	fields := fieldsByName(inv)
	assert.InDelta(t, 35.00, fields["international_processing"].FieldValue, 0.001)
}

func TestGenerateFragileHandlingAppliedOnce(t *testing.T) {
	svc := newInvoiceServiceWithEstimator()
	basket := academicBasket()
	basket.Items = append(basket.Items,
		basketdomain.BasketItem{
			Product: catalogdomain.Product{
				SKU: "INS-001", Name: "UV-Vis Spectrophotometer",
				Category: catalogdomain.CategoryInstruments,
				WeightKg: wPtr(14.0), BasePrice: 8500, HSCode: "9027",
			},
			Quantity: 1, UnitPrice: 8200,
		},
		basketdomain.BasketItem{
			Product: catalogdomain.Product{
				SKU: "LAB-002", Name: "Digital pH Meter",
				Category: catalogdomain.CategoryLabEquipment,
				WeightKg: wPtr(1.2), BasePrice: 450, HSCode: "9027",
			},
			Quantity: 1, UnitPrice: 430,
		},
	)

	inv, err := svc.Generate(context.Background(), basket, false)
	require.NoError(t, err)

	count := 0
	for _, f := range inv.DynamicFields {
		if f.FieldName == "handling_charge" {
			count++
			assert.InDelta(t, 25.00, f.FieldValue, 0.001)
		}
	}
	assert.Equal(t, 1, count)
}

func TestGenerateWithoutPromotions(t *testing.T) {
	svc := newInvoiceServiceWithEstimator()

	inv, err := svc.Generate(context.Background(), academicBasket(), false)
	require.NoError(t, err)
	assert.NotContains(t, fieldsByName(inv), "promotion_discount")
}

func TestGenerateShippingFallback(t *testing.T) {
	svc := newInvoiceService(brokenEstimator{})
	basket := academicBasket()
	basket.Items[0].Quantity = 3

	inv, err := svc.Generate(context.Background(), basket, false)
	require.NoError(t, err)
	// 15.00 flat plus 2.00 for each of the three units.
	assert.InDelta(t, 21.00, inv.ShippingCost, 0.001)
}

func TestGenerateInvoiceIDFormat(t *testing.T) {
	svc := newInvoiceServiceWithEstimator()

	inv, err := svc.Generate(context.Background(), academicBasket(), true)
	require.NoError(t, err)

	parts := strings.Split(inv.InvoiceID, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "INV", parts[0])
	assert.Equal(t, "20260615", parts[1])
	assert.Len(t, parts[2], 8)

	other, err := svc.Generate(context.Background(), academicBasket(), true)
	require.NoError(t, err)
	assert.NotEqual(t, inv.InvoiceID, other.InvoiceID)
}

func TestGenerateInvoiceIDFollowsClock(t *testing.T) {
	fake := clock.NewFakeClock(testNow)
	svc := New(ServiceParam{
		Log:   zap.NewNop(),
		Rates: config.StaticRates(config.DefaultRates()),
		Shipping: shippingservice.New(shippingservice.ServiceParam{
			Log:   zap.NewNop(),
			Rates: config.StaticRates(config.DefaultRates()),
		}),
		Clock: fake,
	}).(*Service)

	before, err := svc.Generate(context.Background(), academicBasket(), true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(before.InvoiceID, "INV-20260615-"), before.InvoiceID)

	fake.Advance(24 * time.Hour)

	after, err := svc.Generate(context.Background(), academicBasket(), true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(after.InvoiceID, "INV-20260616-"), after.InvoiceID)
}

func TestGenerateRejectsMalformedBaskets(t *testing.T) {
	svc := newInvoiceServiceWithEstimator()

	_, err := svc.Generate(context.Background(), basketdomain.Basket{}, true)
	assert.ErrorIs(t, err, basketdomain.ErrEmptyBasket)

	basket := academicBasket()
	basket.Customer.Segment = "retail"
	_, err = svc.Generate(context.Background(), basket, true)
	assert.ErrorIs(t, err, customerdomain.ErrUnknownSegment)
}

func TestTemplatePerSegment(t *testing.T) {
	svc := newInvoiceServiceWithEstimator()
	ctx := context.Background()

	base := []string{"invoice_id", "customer_info", "line_items", "subtotal", "tax_total", "total"}

	academic, err := svc.Template(ctx, customerdomain.SegmentAcademic)
	require.NoError(t, err)
	assert.Equal(t, base, academic.RequiredFields)
	assert.Equal(t, "Net 45", academic.PaymentTerms)
	assert.True(t, academic.Attributes["tax_exempt_eligible"])

	startup, err := svc.Template(ctx, customerdomain.SegmentBiotechStartup)
	require.NoError(t, err)
	assert.Equal(t, "Net 15", startup.PaymentTerms)
	assert.True(t, startup.Attributes["credit_check_required"])
	assert.False(t, startup.Attributes["volume_discounts"])

	pharma, err := svc.Template(ctx, customerdomain.SegmentPharmaEnterprise)
	require.NoError(t, err)
	assert.Equal(t, "Net 60", pharma.PaymentTerms)
	assert.True(t, pharma.Attributes["dedicated_account_manager"])

	institute, err := svc.Template(ctx, customerdomain.SegmentResearchInstitute)
	require.NoError(t, err)
	assert.Equal(t, "Net 45", institute.PaymentTerms)
	assert.True(t, institute.Attributes["grant_funding_fields"])

	_, err = svc.Template(ctx, "retail")
	assert.ErrorIs(t, err, customerdomain.ErrUnknownSegment)
}

func TestPreviewTariffsDomestic(t *testing.T) {
	svc := newInvoiceServiceWithEstimator()

	preview, err := svc.PreviewTariffs(context.Background(), academicBasket(), "us")
	require.NoError(t, err)
	assert.Zero(t, preview.TotalTariffs)
	assert.Empty(t, preview.Items)
	assert.Equal(t, "Domestic shipment - no tariffs", preview.Notes)
}

func TestPreviewTariffsInternational(t *testing.T) {
	svc := newInvoiceServiceWithEstimator()
	basket := academicBasket()
	basket.Items = append(basket.Items, basketdomain.BasketItem{
		Product: catalogdomain.Product{
			SKU: "MISC-900", Name: "Unclassified Part",
			Category:  catalogdomain.CategoryConsumables,
			BasePrice: 50,
		},
		Quantity: 2, UnitPrice: 40,
	})
	basket.DestinationCountry = "DE"

	preview, err := svc.PreviewTariffs(context.Background(), basket, "US")
	require.NoError(t, err)
	require.Len(t, preview.Items, 2)

	assert.Equal(t, "3822", preview.Items[0].HSCode)
	assert.InDelta(t, 0.035, preview.Items[0].TariffRate, 0.0001)
	assert.InDelta(t, 10.50, preview.Items[0].TariffAmount, 0.001)

	// Missing HS codes map to the unclassified bucket at the default rate.
	assert.Equal(t, "0000", preview.Items[1].HSCode)
	assert.InDelta(t, 0.05, preview.Items[1].TariffRate, 0.0001)
	assert.InDelta(t, 4.00, preview.Items[1].TariffAmount, 0.001)

	assert.InDelta(t, 14.50, preview.TotalTariffs, 0.001)
	assert.Equal(t, "US", preview.OriginCountry)
	assert.Equal(t, "DE", preview.DestinationCountry)
}

func TestPreviewPromotionsAdditive(t *testing.T) {
	svc := newInvoiceServiceWithEstimator()
	basket := academicBasket()
	basket.Items[0].Quantity = 4 // subtotal 1200 clears both thresholds

	preview, err := svc.PreviewPromotions(context.Background(), basket, nil)
	require.NoError(t, err)
	require.Len(t, preview.AppliedPromotions, 2)

	assert.Equal(t, "ACADEMIC10", preview.AppliedPromotions[0].Code)
	assert.InDelta(t, 120.00, preview.AppliedPromotions[0].DiscountAmount, 0.001)
	assert.Equal(t, "BULK5", preview.AppliedPromotions[1].Code)
	assert.InDelta(t, 60.00, preview.AppliedPromotions[1].DiscountAmount, 0.001)

	assert.InDelta(t, 180.00, preview.TotalDiscount, 0.001)
	assert.InDelta(t, 1020.00, preview.FinalSubtotal, 0.001)
	assert.ElementsMatch(t, []string{"ACADEMIC10", "BULK5"}, preview.AvailablePromotions)
}

func TestPreviewPromotionsCodeFilter(t *testing.T) {
	svc := newInvoiceServiceWithEstimator()
	basket := academicBasket()
	basket.Items[0].Quantity = 4

	preview, err := svc.PreviewPromotions(context.Background(), basket, []string{"bulk5"})
	require.NoError(t, err)
	require.Len(t, preview.AppliedPromotions, 1)
	assert.Equal(t, "BULK5", preview.AppliedPromotions[0].Code)
	assert.InDelta(t, 60.00, preview.TotalDiscount, 0.001)
}

func TestPreviewPromotionsSegmentAndThresholdGates(t *testing.T) {
	svc := newInvoiceServiceWithEstimator()

	// Pharma basket under the bulk threshold matches nothing.
	basket := academicBasket()
	basket.Customer.Segment = customerdomain.SegmentPharmaEnterprise

	preview, err := svc.PreviewPromotions(context.Background(), basket, nil)
	require.NoError(t, err)
	assert.Empty(t, preview.AppliedPromotions)
	assert.Zero(t, preview.TotalDiscount)
	assert.InDelta(t, 300.00, preview.FinalSubtotal, 0.001)

	// Academic basket under the academic threshold.
	small := academicBasket()
	small.Items[0].UnitPrice = 50
	preview, err = svc.PreviewPromotions(context.Background(), small, nil)
	require.NoError(t, err)
	assert.Empty(t, preview.AppliedPromotions)
}

func fieldsByName(inv invoicedomain.Invoice) map[string]invoicedomain.DynamicField {
	fields := make(map[string]invoicedomain.DynamicField, len(inv.DynamicFields))
	for _, f := range inv.DynamicFields {
		fields[f.FieldName] = f
	}
	return fields
}
