// Package domain contains the basket types submitted by callers for
// shipping estimates and invoice generation.
package domain

import (
	"errors"
	"strings"

	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
)

var (
	ErrEmptyBasket        = errors.New("empty_basket")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInvalidUnitPrice   = errors.New("invalid_unit_price")
	ErrInvalidBasePrice   = errors.New("invalid_base_price")
	ErrMissingDestination = errors.New("missing_destination")
)

type BasketItem struct {
	Product   catalogdomain.Product `json:"product"`
	Quantity  int                   `json:"quantity"`
	UnitPrice float64               `json:"unit_price"`
}

type Basket struct {
	Items              []BasketItem            `json:"items"`
	Customer           customerdomain.Customer `json:"customer"`
	DestinationCountry string                  `json:"destination_country"`
	DestinationZip     string                  `json:"destination_zip"`
}

// Validate surfaces malformed requests as named validation failures.
// Missing market data is handled downstream via fallbacks; a malformed
// basket is always rejected.
func (b Basket) Validate() error {
	if len(b.Items) == 0 {
		return ErrEmptyBasket
	}
	if strings.TrimSpace(b.DestinationCountry) == "" {
		return ErrMissingDestination
	}
	if !b.Customer.Segment.Valid() {
		return customerdomain.ErrUnknownSegment
	}
	for _, item := range b.Items {
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if item.UnitPrice < 0 {
			return ErrInvalidUnitPrice
		}
		if item.Product.BasePrice <= 0 {
			return ErrInvalidBasePrice
		}
		if !item.Product.Category.Valid() {
			return catalogdomain.ErrUnknownCategory
		}
	}
	return nil
}

// International reports whether the basket ships across a border.
func (b Basket) International() bool {
	return !strings.EqualFold(strings.TrimSpace(b.Customer.Country), strings.TrimSpace(b.DestinationCountry))
}

// ItemValue returns the basket merchandise value at catalog base prices.
func (b Basket) ItemValue() float64 {
	var total float64
	for _, item := range b.Items {
		total += item.Product.BasePrice * float64(item.Quantity)
	}
	return total
}

// Subtotal returns the basket value at the supplied unit prices.
func (b Basket) Subtotal() float64 {
	var total float64
	for _, item := range b.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}
