// Package pricing holds the pure cost arithmetic of checkout: sale-price
// resolution, delivery cost, and the line-total recount rules used by order
// edits. Nothing here touches storage.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dkravets/go-shop-checkout.git/internal/catalog"
)

// FinalUnitPrice returns the sale price when the product's sale flag is set,
// a sale price exists, and asOf falls inside [sales_from, sales_to]. An
// unset bound is unbounded. Otherwise the base price.
func FinalUnitPrice(p catalog.Product, asOf time.Time) decimal.Decimal {
	if !p.IsSales || p.SalesPrice == nil {
		return p.Price
	}
	day := asOf.UTC().Truncate(24 * time.Hour)
	if p.SalesFrom != nil && day.Before(p.SalesFrom.UTC().Truncate(24*time.Hour)) {
		return p.Price
	}
	if p.SalesTo != nil && day.After(p.SalesTo.UTC().Truncate(24*time.Hour)) {
		return p.Price
	}
	return *p.SalesPrice
}

func LineTotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

// DeliveryCost is zero once the products cost reaches the free-delivery
// threshold; a nil threshold means delivery is never free.
func DeliveryCost(productsCost, deliveryPrice decimal.Decimal, freeOver *decimal.Decimal) decimal.Decimal {
	if freeOver != nil && productsCost.GreaterThanOrEqual(*freeOver) {
		return decimal.Zero
	}
	return deliveryPrice
}

// RecountTotalPrice recomputes a line total after a quantity edit.
// Decreasing rescales the previous total proportionally, rounded to two
// places; increasing adds the extra quantity at the current unit price.
func RecountTotalPrice(prevQty int, prevTotal decimal.Decimal, newQty int, unitPrice decimal.Decimal) decimal.Decimal {
	switch {
	case newQty < prevQty:
		return prevTotal.
			Div(decimal.NewFromInt(int64(prevQty))).
			Mul(decimal.NewFromInt(int64(newQty))).
			Round(2)
	case newQty > prevQty:
		extra := LineTotal(unitPrice, newQty-prevQty)
		return prevTotal.Add(extra)
	default:
		return prevTotal
	}
}
