package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	basketdomain "github.com/smallbiznis/quotient/internal/basket/domain"
	"github.com/smallbiznis/quotient/internal/clock"
	"github.com/smallbiznis/quotient/internal/config"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/quotient/internal/invoice/domain"
	shippingdomain "github.com/smallbiznis/quotient/internal/shipping/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Flat-plus-per-item fallback used when the shipping estimator cannot
// quote the basket.
const (
	fallbackShippingBase    = 15.0
	fallbackShippingPerItem = 2.0
)

const unmappedHSCode = "0000"

type ServiceParam struct {
	fx.In

	Log      *zap.Logger
	Rates    *config.RatesHolder
	Shipping shippingdomain.Service
	Clock    clock.Clock
}

type Service struct {
	log      *zap.Logger
	rates    *config.RatesHolder
	shipping shippingdomain.Service
	clock    clock.Clock
}

func New(p ServiceParam) invoicedomain.Service {
	return &Service{
		log:      p.Log.Named("invoice.service"),
		rates:    p.Rates,
		shipping: p.Shipping,
		clock:    p.Clock,
	}
}

// Generate produces a reconciled invoice. Every fee and discount beyond
// subtotal, tax and shipping is appended as a dynamic field; the total is
// computed from those components and nothing else.
func (s *Service) Generate(ctx context.Context, basket basketdomain.Basket, includePromotions bool) (invoicedomain.Invoice, error) {
	if err := basket.Validate(); err != nil {
		return invoicedomain.Invoice{}, err
	}

	rates := s.rates.Get()
	now := s.clock.Now()
	international := basket.International()

	lineItems := make([]invoicedomain.LineItem, 0, len(basket.Items))
	var subtotal, taxTotal float64
	for _, item := range basket.Items {
		lineTotal := round2(item.UnitPrice * float64(item.Quantity))
		taxRate := taxRate(rates.Tax, string(item.Product.Category), basket.DestinationCountry)

		line := invoicedomain.LineItem{
			SKU:         item.Product.SKU,
			Description: item.Product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   lineTotal,
			TaxRate:     taxRate,
		}
		if international {
			rate := tariffRate(rates.Tariffs, item.Product.HSCode)
			line.TariffRate = &rate
		}

		lineItems = append(lineItems, line)
		subtotal += lineTotal
		taxTotal += lineTotal * taxRate
	}
	subtotal = round2(subtotal)
	taxTotal = round2(taxTotal)

	shippingCost := s.shippingCost(ctx, basket)

	fields := s.dynamicFields(basket, subtotal, rates)
	if includePromotions {
		applied := evaluatePromotions(rates.Promotions, basket.Customer.Segment, subtotal, nil)
		if discount := totalDiscount(applied); discount > 0 {
			fields = append(fields, invoicedomain.DynamicField{
				FieldName:   "promotion_discount",
				FieldValue:  -discount,
				Description: "Promotional discount applied",
			})
		}
	}

	invoice := invoicedomain.Invoice{
		InvoiceID:     s.invoiceID(now),
		Customer:      basket.Customer,
		LineItems:     lineItems,
		Subtotal:      subtotal,
		TaxTotal:      taxTotal,
		ShippingCost:  shippingCost,
		DynamicFields: fields,
		CreatedAt:     now,
	}
	invoice.Total = round2(subtotal + taxTotal + shippingCost + invoice.DynamicTotal())

	s.log.Info("invoice generated",
		zap.String("invoice_id", invoice.InvoiceID),
		zap.String("customer_id", basket.Customer.ID),
		zap.Float64("total", invoice.Total))
	return invoice, nil
}

func (s *Service) invoiceID(now time.Time) string {
	id := ulid.Make().String()
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), id[len(id)-8:])
}

// shippingCost quotes via the estimator, falling back to the flat formula
// when the estimator cannot price the basket.
func (s *Service) shippingCost(ctx context.Context, basket basketdomain.Basket) float64 {
	estimate, err := s.shipping.Estimate(ctx, basket, shippingdomain.ZoneAuto)
	if err == nil {
		return estimate.TotalCost
	}
	s.log.Warn("shipping estimate failed, using flat fallback", zap.Error(err))

	itemCount := 0
	for _, item := range basket.Items {
		itemCount += item.Quantity
	}
	return round2(fallbackShippingBase + float64(itemCount)*fallbackShippingPerItem)
}

func (s *Service) dynamicFields(basket basketdomain.Basket, subtotal float64, rates config.Rates) []invoicedomain.DynamicField {
	feeRate, ok := rates.ServiceFees.BySegment[string(basket.Customer.Segment)]
	if !ok {
		feeRate = rates.ServiceFees.Default
	}

	fields := []invoicedomain.DynamicField{{
		FieldName:   "service_fee",
		FieldValue:  round2(subtotal * feeRate),
		Description: fmt.Sprintf("Service fee (%g%%)", feeRate*100),
	}}

	for _, item := range basket.Items {
		if item.Product.Category.Fragile() {
			fields = append(fields, invoicedomain.DynamicField{
				FieldName:   "handling_charge",
				FieldValue:  rates.Fees.FragileHandling,
				Description: "Special handling for fragile equipment",
			})
			break
		}
	}

	if basket.International() {
		fields = append(fields, invoicedomain.DynamicField{
			FieldName:   "international_processing",
			FieldValue:  rates.Fees.InternationalProcessing,
			Description: "International processing and documentation",
		})
	}

	fields = append(fields, invoicedomain.DynamicField{
		FieldName:   "rush_processing",
		FieldValue:  rates.Fees.RushProcessing,
		Description: "Rush processing (if applicable)",
	})

	return fields
}

// Template returns the invoice layout for a segment, segment overrides
// applied on the base template.
func (s *Service) Template(_ context.Context, segment customerdomain.Segment) (invoicedomain.Template, error) {
	if !segment.Valid() {
		return invoicedomain.Template{}, customerdomain.ErrUnknownSegment
	}

	template := invoicedomain.Template{
		RequiredFields: []string{
			"invoice_id", "customer_info", "line_items",
			"subtotal", "tax_total", "total",
		},
		OptionalFields: []string{"shipping_cost", "dynamic_fields"},
		PaymentTerms:   "Net 30",
	}

	switch segment {
	case customerdomain.SegmentAcademic:
		template.PaymentTerms = "Net 45"
		template.Attributes = map[string]bool{
			"tax_exempt_eligible":  true,
			"educational_discount": true,
			"required_po_number":   true,
		}
	case customerdomain.SegmentBiotechStartup:
		template.PaymentTerms = "Net 15"
		template.Attributes = map[string]bool{
			"credit_check_required": true,
			"volume_discounts":      false,
		}
	case customerdomain.SegmentPharmaEnterprise:
		template.PaymentTerms = "Net 60"
		template.Attributes = map[string]bool{
			"volume_discounts":          true,
			"custom_pricing":            true,
			"dedicated_account_manager": true,
		}
	case customerdomain.SegmentResearchInstitute:
		template.PaymentTerms = "Net 45"
		template.Attributes = map[string]bool{
			"grant_funding_fields": true,
			"bulk_order_discounts": true,
		}
	}
	return template, nil
}

// PreviewTariffs reports the tariffs a basket would attract when shipped
// from originCountry. Origin equal to destination is a domestic shipment
// and attracts none.
func (s *Service) PreviewTariffs(_ context.Context, basket basketdomain.Basket, originCountry string) (invoicedomain.TariffPreview, error) {
	if err := basket.Validate(); err != nil {
		return invoicedomain.TariffPreview{}, err
	}

	if strings.EqualFold(strings.TrimSpace(basket.DestinationCountry), strings.TrimSpace(originCountry)) {
		return invoicedomain.TariffPreview{
			Items: []invoicedomain.TariffItem{},
			Notes: "Domestic shipment - no tariffs",
		}, nil
	}

	tariffs := s.rates.Get().Tariffs

	items := make([]invoicedomain.TariffItem, 0, len(basket.Items))
	var total float64
	for _, item := range basket.Items {
		hsCode := item.Product.HSCode
		if hsCode == "" {
			hsCode = unmappedHSCode
		}
		rate := tariffRate(tariffs, hsCode)
		value := round2(item.UnitPrice * float64(item.Quantity))
		amount := round2(value * rate)

		items = append(items, invoicedomain.TariffItem{
			SKU:          item.Product.SKU,
			HSCode:       hsCode,
			Value:        value,
			TariffRate:   rate,
			TariffAmount: amount,
		})
		total += amount
	}

	return invoicedomain.TariffPreview{
		TotalTariffs:       round2(total),
		OriginCountry:      originCountry,
		DestinationCountry: basket.DestinationCountry,
		Items:              items,
		Notes:              "Tariff rates are estimates and subject to customs verification",
	}, nil
}

// PreviewPromotions evaluates the promotion rules against a basket without
// generating an invoice. A non-empty codes list restricts which rules may
// apply.
func (s *Service) PreviewPromotions(_ context.Context, basket basketdomain.Basket, codes []string) (invoicedomain.PromotionPreview, error) {
	if err := basket.Validate(); err != nil {
		return invoicedomain.PromotionPreview{}, err
	}

	rules := s.rates.Get().Promotions
	subtotal := round2(basket.Subtotal())

	applied := evaluatePromotions(rules, basket.Customer.Segment, subtotal, codes)
	discount := totalDiscount(applied)

	available := make([]string, 0, len(rules))
	for _, rule := range rules {
		available = append(available, rule.Code)
	}

	return invoicedomain.PromotionPreview{
		AppliedPromotions:   applied,
		TotalDiscount:       round2(discount),
		FinalSubtotal:       round2(subtotal - discount),
		AvailablePromotions: available,
	}, nil
}
