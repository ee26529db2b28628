package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/dkravets/go-shop-checkout.git/internal/catalog"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestFinalUnitPrice(t *testing.T) {
	base := catalog.Product{Price: dec("100.00")}
	asOf := *day("2026-06-15")

	t.Run("no sale config returns base regardless of date", func(t *testing.T) {
		assert.True(t, dec("100.00").Equal(FinalUnitPrice(base, asOf)))
	})

	t.Run("flag without sale price returns base", func(t *testing.T) {
		p := base
		p.IsSales = true
		assert.True(t, dec("100.00").Equal(FinalUnitPrice(p, asOf)))
	})

	t.Run("sale price without flag returns base", func(t *testing.T) {
		p := base
		p.SalesPrice = decPtr("70.00")
		p.SalesFrom, p.SalesTo = day("2026-06-01"), day("2026-06-30")
		assert.True(t, dec("100.00").Equal(FinalUnitPrice(p, asOf)))
	})

	t.Run("inside window", func(t *testing.T) {
		p := base
		p.IsSales = true
		p.SalesPrice = decPtr("70.00")
		p.SalesFrom, p.SalesTo = day("2026-06-01"), day("2026-06-30")
		assert.True(t, dec("70.00").Equal(FinalUnitPrice(p, asOf)))
	})

	t.Run("window bounds are inclusive", func(t *testing.T) {
		p := base
		p.IsSales = true
		p.SalesPrice = decPtr("70.00")
		p.SalesFrom, p.SalesTo = day("2026-06-01"), day("2026-06-30")
		assert.True(t, dec("70.00").Equal(FinalUnitPrice(p, *day("2026-06-01"))))
		assert.True(t, dec("70.00").Equal(FinalUnitPrice(p, *day("2026-06-30"))))
	})

	t.Run("outside window returns base", func(t *testing.T) {
		p := base
		p.IsSales = true
		p.SalesPrice = decPtr("70.00")
		p.SalesFrom, p.SalesTo = day("2026-06-01"), day("2026-06-30")
		assert.True(t, dec("100.00").Equal(FinalUnitPrice(p, *day("2026-05-31"))))
		assert.True(t, dec("100.00").Equal(FinalUnitPrice(p, *day("2026-07-01"))))
	})

	t.Run("unset bounds are unbounded", func(t *testing.T) {
		p := base
		p.IsSales = true
		p.SalesPrice = decPtr("70.00")
		assert.True(t, dec("70.00").Equal(FinalUnitPrice(p, *day("1999-01-01"))))
		assert.True(t, dec("70.00").Equal(FinalUnitPrice(p, *day("2099-12-31"))))

		p.SalesFrom = day("2026-06-01")
		assert.True(t, dec("70.00").Equal(FinalUnitPrice(p, *day("2099-12-31"))))
		assert.True(t, dec("100.00").Equal(FinalUnitPrice(p, *day("2026-05-01"))))
	})
}

func TestDeliveryCost(t *testing.T) {
	price := dec("5.00")

	t.Run("below threshold charges delivery", func(t *testing.T) {
		got := DeliveryCost(dec("49.99"), price, decPtr("50.00"))
		assert.True(t, price.Equal(got))
	})

	t.Run("at threshold is free", func(t *testing.T) {
		got := DeliveryCost(dec("50.00"), price, decPtr("50.00"))
		assert.True(t, got.IsZero())
	})

	t.Run("above threshold is free", func(t *testing.T) {
		got := DeliveryCost(dec("120.00"), price, decPtr("50.00"))
		assert.True(t, got.IsZero())
	})

	t.Run("nil threshold never free", func(t *testing.T) {
		got := DeliveryCost(dec("10000.00"), price, nil)
		assert.True(t, price.Equal(got))
	})
}

func TestRecountTotalPrice(t *testing.T) {
	t.Run("decrease rescales previous total", func(t *testing.T) {
		// 10 units for 100.00 cut down to 4 keeps the per-unit rate.
		got := RecountTotalPrice(10, dec("100.00"), 4, dec("25.00"))
		assert.True(t, dec("40.00").Equal(got), "got %s", got)
	})

	t.Run("decrease rounds to two places", func(t *testing.T) {
		got := RecountTotalPrice(3, dec("10.00"), 2, dec("5.00"))
		assert.True(t, dec("6.67").Equal(got), "got %s", got)
	})

	t.Run("increase adds delta at current unit price", func(t *testing.T) {
		// 4 units bought at a discount for 40.00; two more at today's 12.00.
		got := RecountTotalPrice(4, dec("40.00"), 6, dec("12.00"))
		assert.True(t, dec("64.00").Equal(got), "got %s", got)
	})

	t.Run("same quantity keeps total", func(t *testing.T) {
		got := RecountTotalPrice(5, dec("33.33"), 5, dec("99.00"))
		assert.True(t, dec("33.33").Equal(got))
	})
}

func TestLineTotal(t *testing.T) {
	assert.True(t, dec("37.50").Equal(LineTotal(dec("12.50"), 3)))
	assert.True(t, LineTotal(dec("12.50"), 0).IsZero())
}
