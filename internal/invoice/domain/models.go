// Package domain defines the invoice composer contract: reconciled
// invoices, segment templates, tariff and promotion previews.
package domain

import (
	"context"
	"time"

	basketdomain "github.com/smallbiznis/quotient/internal/basket/domain"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
)

// LineItem is one invoiced basket line. TariffRate is nil for domestic
// shipments.
type LineItem struct {
	SKU         string   `json:"sku"`
	Description string   `json:"description"`
	Quantity    int      `json:"quantity"`
	UnitPrice   float64  `json:"unit_price"`
	LineTotal   float64  `json:"line_total"`
	TaxRate     float64  `json:"tax_rate"`
	TariffRate  *float64 `json:"tariff_rate,omitempty"`
}

// DynamicField is one adaptive fee or discount. Every charge outside
// subtotal, tax and shipping must be expressed as a dynamic field so the
// invoice total stays auditable.
type DynamicField struct {
	FieldName   string  `json:"field_name"`
	FieldValue  float64 `json:"field_value"`
	Description string  `json:"description"`
}

// Invoice is a fully reconciled invoice. Total equals
// Subtotal + TaxTotal + ShippingCost + the sum of dynamic field values.
type Invoice struct {
	InvoiceID     string                  `json:"invoice_id"`
	Customer      customerdomain.Customer `json:"customer"`
	LineItems     []LineItem              `json:"line_items"`
	Subtotal      float64                 `json:"subtotal"`
	TaxTotal      float64                 `json:"tax_total"`
	ShippingCost  float64                 `json:"shipping_cost"`
	DynamicFields []DynamicField          `json:"dynamic_fields"`
	Total         float64                 `json:"total"`
	CreatedAt     time.Time               `json:"created_at"`
}

// DynamicTotal sums the dynamic field values.
func (i Invoice) DynamicTotal() float64 {
	var total float64
	for _, f := range i.DynamicFields {
		total += f.FieldValue
	}
	return total
}

// Template describes the invoice layout for a customer segment.
type Template struct {
	RequiredFields []string        `json:"required_fields"`
	OptionalFields []string        `json:"optional_fields"`
	PaymentTerms   string          `json:"payment_terms"`
	Attributes     map[string]bool `json:"attributes,omitempty"`
}

// TariffItem is the tariff computed for one basket line.
type TariffItem struct {
	SKU          string  `json:"sku"`
	HSCode       string  `json:"hs_code"`
	Value        float64 `json:"value"`
	TariffRate   float64 `json:"tariff_rate"`
	TariffAmount float64 `json:"tariff_amount"`
}

// TariffPreview reports the tariffs a basket would attract against an
// origin country, without touching any invoice.
type TariffPreview struct {
	TotalTariffs       float64      `json:"total_tariffs"`
	OriginCountry      string       `json:"origin_country,omitempty"`
	DestinationCountry string       `json:"destination_country,omitempty"`
	Items              []TariffItem `json:"items"`
	Notes              string       `json:"notes"`
}

// AppliedPromotion is one promotion rule that matched a basket.
type AppliedPromotion struct {
	Code           string  `json:"code"`
	Description    string  `json:"description"`
	DiscountAmount float64 `json:"discount_amount"`
}

// PromotionPreview reports eligible promotions for a basket without
// generating an invoice.
type PromotionPreview struct {
	AppliedPromotions   []AppliedPromotion `json:"applied_promotions"`
	TotalDiscount       float64            `json:"total_discount"`
	FinalSubtotal       float64            `json:"final_subtotal"`
	AvailablePromotions []string           `json:"available_promotions"`
}

type Service interface {
	Generate(ctx context.Context, basket basketdomain.Basket, includePromotions bool) (Invoice, error)
	Template(ctx context.Context, segment customerdomain.Segment) (Template, error)
	PreviewTariffs(ctx context.Context, basket basketdomain.Basket, originCountry string) (TariffPreview, error)
	PreviewPromotions(ctx context.Context, basket basketdomain.Basket, codes []string) (PromotionPreview, error)
}
