// Package inventory is the only writer of product stock. Every mutation
// runs under SELECT ... FOR UPDATE inside a transaction owned by the
// caller, so two checkouts racing for the last unit serialize on the row
// lock and exactly one of them wins.
package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dkravets/go-shop-checkout.git/internal/catalog"
)

type Line struct {
	ProductID string
	Qty       int
}

type Ledger struct {
	Log *zap.Logger
}

const lockProductColumns = `id, title, price, sales_price, sales_from, sales_to,
	is_sales, stock, is_active, created_at, updated_at`

// Reserve locks every requested product and decrements its stock. If any
// product is missing, inactive, or out of stock the whole call fails with
// UnavailableProductsError; if any quantity exceeds what is available it
// fails with InsufficientStockError. The caller's transaction decides
// whether anything commits.
func (l *Ledger) Reserve(ctx context.Context, tx pgx.Tx, lines []Line) error {
	ids := make([]string, 0, len(lines))
	for _, ln := range lines {
		ids = append(ids, ln.ProductID)
	}

	locked, err := lockProducts(ctx, tx, ids)
	if err != nil {
		return err
	}

	var unavailable []string
	for _, ln := range lines {
		p, ok := locked[ln.ProductID]
		if !ok {
			unavailable = append(unavailable, ln.ProductID)
			continue
		}
		if !p.IsActive || p.Stock == 0 {
			unavailable = append(unavailable, p.Title)
		}
	}
	if len(unavailable) > 0 {
		return &UnavailableProductsError{Titles: unavailable}
	}

	for _, ln := range lines {
		p := locked[ln.ProductID]
		if p.Stock < ln.Qty {
			return &InsufficientStockError{
				ProductID: p.ID,
				Title:     p.Title,
				Available: p.Stock,
				Requested: ln.Qty,
			}
		}
	}

	for _, ln := range lines {
		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1`,
			ln.ProductID, ln.Qty); err != nil {
			return err
		}
		l.Log.Debug("stock reserved",
			zap.String("product_id", ln.ProductID), zap.Int("qty", ln.Qty))
	}
	return nil
}

// Release restores stock for every line of an order. Runs in the caller's
// transaction together with the order's cost rollback.
func (l *Ledger) Release(ctx context.Context, tx pgx.Tx, orderID string) error {
	rows, err := tx.Query(ctx,
		`SELECT product_id, total_quantity FROM order_products WHERE order_id=$1`, orderID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.ProductID, &ln.Qty); err != nil {
			return err
		}
		lines = append(lines, ln)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, ln := range lines {
		if err := l.Restock(ctx, tx, ln.ProductID, ln.Qty); err != nil {
			return err
		}
	}
	l.Log.Info("order stock released",
		zap.String("order_id", orderID), zap.Int("lines", len(lines)))
	return nil
}

// Adjust moves stock by the delta between an order line's previous and new
// quantity and returns the locked product so the caller can price the edit.
// A negative delta restores stock.
func (l *Ledger) Adjust(ctx context.Context, tx pgx.Tx, productID string, prevQty, newQty int) (catalog.Product, error) {
	locked, err := lockProducts(ctx, tx, []string{productID})
	if err != nil {
		return catalog.Product{}, err
	}
	p, ok := locked[productID]
	if !ok || !p.IsActive {
		title := productID
		if ok {
			title = p.Title
		}
		return catalog.Product{}, &UnavailableProductsError{Titles: []string{title}}
	}

	delta := newQty - prevQty
	if p.Stock < delta {
		return catalog.Product{}, &InsufficientStockError{
			ProductID: p.ID,
			Title:     p.Title,
			Available: p.Stock,
			Requested: newQty,
		}
	}
	if delta != 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1`,
			productID, delta); err != nil {
			return catalog.Product{}, err
		}
	}
	p.Stock -= delta
	return p, nil
}

// Restock returns quantity to a product unconditionally (line removal,
// order release). Inactive products get their stock back too.
func (l *Ledger) Restock(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	ct, err := tx.Exec(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`,
		productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return errors.New("restock: product row missing")
	}
	return nil
}

func lockProducts(ctx context.Context, tx pgx.Tx, ids []string) (map[string]catalog.Product, error) {
	// Lock in a stable order to keep concurrent multi-product checkouts
	// from deadlocking against each other.
	rows, err := tx.Query(ctx, `SELECT `+lockProductColumns+` FROM products
		WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]catalog.Product, len(ids))
	for rows.Next() {
		var (
			p     catalog.Product
			sales decimal.NullDecimal
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &sales, &p.SalesFrom, &p.SalesTo,
			&p.IsSales, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if sales.Valid {
			sp := sales.Decimal
			p.SalesPrice = &sp
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}
