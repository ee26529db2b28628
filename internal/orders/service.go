package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dkravets/go-shop-checkout.git/internal/inventory"
	"github.com/dkravets/go-shop-checkout.git/internal/pricing"
)

// Service drives the order lifecycle: created -> confirmed ->
// payment_in_progress -> payed | payment_rejected. Every mutation runs in
// one transaction; business failures roll the whole thing back.
type Service struct {
	DB     *pgxpool.Pool
	Ledger *inventory.Ledger
	Ref    *Reference
	Log    *zap.Logger
}

const orderColumns = `o.id, o.user_id, o.status, o.products_cost, o.delivery_cost,
	o.total_cost, o.receiver_name, o.receiver_email, o.receiver_phone, o.city,
	o.address, dt.name, pt.name, o.payment_comment, o.is_active, o.created_at`

const orderJoins = `FROM orders o
	LEFT JOIN delivery_types dt ON dt.id = o.delivery_type_id
	LEFT JOIN payment_types pt ON pt.id = o.payment_type_id`

// CreateInitOrder reserves stock for every basket line, snapshots the line
// totals, and inserts the order in one transaction. Either everything
// commits or nothing does.
func (s *Service) CreateInitOrder(ctx context.Context, userID string, lines []InitLine) (string, error) {
	if len(lines) == 0 {
		return "", ErrEmptyOrder
	}
	for _, ln := range lines {
		if ln.Qty <= 0 || !ln.UnitPrice.IsPositive() {
			return "", orderErrorf("invalid quantity or price for product %s", ln.ProductID)
		}
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	invLines := make([]inventory.Line, 0, len(lines))
	for _, ln := range lines {
		invLines = append(invLines, inventory.Line{ProductID: ln.ProductID, Qty: ln.Qty})
	}
	if err := s.Ledger.Reserve(ctx, tx, invLines); err != nil {
		return "", err
	}

	productsCost := decimal.Zero
	totals := make([]decimal.Decimal, len(lines))
	for i, ln := range lines {
		totals[i] = pricing.LineTotal(ln.UnitPrice, ln.Qty)
		productsCost = productsCost.Add(totals[i])
	}

	orderID := uuid.NewString()
	if _, err := tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, products_cost, total_cost)
		VALUES ($1, $2, $3, $4, $4)`,
		orderID, userID, StatusCreated, productsCost); err != nil {
		return "", err
	}

	batch := &pgx.Batch{}
	for i, ln := range lines {
		batch.Queue(`
			INSERT INTO order_products(order_id, product_id, total_quantity, total_price)
			VALUES ($1, $2, $3, $4)`,
			orderID, ln.ProductID, ln.Qty, totals[i])
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	s.Log.Info("order created", zap.String("order_id", orderID),
		zap.String("user_id", userID), zap.String("products_cost", productsCost.String()))
	return orderID, nil
}

// ConfirmOrder sets the receiver details, resolves delivery and payment
// types (defaults when unspecified), recomputes delivery and total cost,
// and moves the order to confirmed.
func (s *Service) ConfirmOrder(ctx context.Context, orderID string, c Confirmation) (Order, error) {
	if err := c.Validate(); err != nil {
		return Order{}, err
	}
	dt, err := s.Ref.Delivery(c.DeliveryType)
	if err != nil {
		return Order{}, err
	}
	pt, err := s.Ref.Payment(c.PaymentType)
	if err != nil {
		return Order{}, err
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := s.lockOrder(ctx, tx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(o.Status, StatusConfirmed) {
		return Order{}, orderErrorf("order %s cannot be confirmed from status %q", orderID, o.Status)
	}

	deliveryCost := pricing.DeliveryCost(o.ProductsCost, dt.Price, dt.FreeDeliveryOver)
	totalCost := o.ProductsCost.Add(deliveryCost)
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET
			status=$2, receiver_name=$3, receiver_email=$4, receiver_phone=$5,
			city=$6, address=$7, delivery_type_id=$8, payment_type_id=$9,
			delivery_cost=$10, total_cost=$11
		WHERE id=$1`,
		orderID, StatusConfirmed, c.FullName, c.Email, c.Phone, c.City, c.Address,
		dt.ID, pt.ID, deliveryCost, totalCost); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}

	s.Log.Info("order confirmed", zap.String("order_id", orderID),
		zap.String("delivery_type", dt.Name), zap.String("total_cost", totalCost.String()))
	return s.GetOrder(ctx, orderID)
}

// BeginPayment atomically reads the charge price and moves the order to
// payment_in_progress. Only confirmed or payment_rejected orders qualify.
func (s *Service) BeginPayment(ctx context.Context, orderID string) (decimal.Decimal, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := s.lockOrder(ctx, tx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	if !CanTransition(o.Status, StatusPaymentInProgress) {
		return decimal.Zero, orderErrorf("order %s cannot be payed from status %q", orderID, o.Status)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status=$2, payment_comment=NULL WHERE id=$1`,
		orderID, StatusPaymentInProgress); err != nil {
		return decimal.Zero, err
	}
	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, err
	}
	return o.TotalCost, nil
}

// FinalizePayment applies a terminal payment result. Re-applying the same
// terminal status is a no-op, so duplicate result delivery is harmless.
func (s *Service) FinalizePayment(ctx context.Context, orderID string, to Status, comment *string) error {
	if to != StatusPayed && to != StatusPaymentRejected {
		return orderErrorf("status %q is not a payment result", to)
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := s.lockOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if o.Status == to {
		// duplicate delivery
		return tx.Commit(ctx)
	}
	if !CanTransition(o.Status, to) {
		return orderErrorf("order %s cannot move from %q to %q", orderID, o.Status, to)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status=$2, payment_comment=$3 WHERE id=$1`,
		orderID, to, comment); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.Log.Info("payment finalized", zap.String("order_id", orderID), zap.String("status", string(to)))
	return nil
}

// UpdateLine changes an order line's quantity, adjusting stock by the delta
// and recounting the line total, then the delivery and total cost.
func (s *Service) UpdateLine(ctx context.Context, orderID, productID string, newQty int) (Order, error) {
	if newQty < 1 {
		return Order{}, orderErrorf("quantity must be at least 1, remove the line instead")
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := s.lockOrder(ctx, tx, orderID)
	if err != nil {
		return Order{}, err
	}

	var (
		prevQty   int
		prevTotal decimal.Decimal
	)
	err = tx.QueryRow(ctx, `
		SELECT total_quantity, total_price FROM order_products
		WHERE order_id=$1 AND product_id=$2 FOR UPDATE`,
		orderID, productID).Scan(&prevQty, &prevTotal)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, orderErrorf("product %s is not part of order %s", productID, orderID)
	}
	if err != nil {
		return Order{}, err
	}

	product, err := s.Ledger.Adjust(ctx, tx, productID, prevQty, newQty)
	if err != nil {
		return Order{}, err
	}
	unit := pricing.FinalUnitPrice(product, time.Now())
	newTotal := pricing.RecountTotalPrice(prevQty, prevTotal, newQty, unit)

	if _, err := tx.Exec(ctx, `
		UPDATE order_products SET total_quantity=$3, total_price=$4
		WHERE order_id=$1 AND product_id=$2`,
		orderID, productID, newQty, newTotal); err != nil {
		return Order{}, err
	}

	productsCost := o.ProductsCost.Add(newTotal.Sub(prevTotal))
	if err := s.resetCosts(ctx, tx, o, productsCost); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	s.Log.Info("order line updated", zap.String("order_id", orderID),
		zap.String("product_id", productID), zap.Int("qty", newQty))
	return s.GetOrder(ctx, orderID)
}

// RemoveLine drops a product from the order, restoring its stock and
// subtracting its snapshot total from the order costs.
func (s *Service) RemoveLine(ctx context.Context, orderID, productID string) (Order, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := s.lockOrder(ctx, tx, orderID)
	if err != nil {
		return Order{}, err
	}

	var (
		qty   int
		total decimal.Decimal
	)
	err = tx.QueryRow(ctx, `
		SELECT total_quantity, total_price FROM order_products
		WHERE order_id=$1 AND product_id=$2 FOR UPDATE`,
		orderID, productID).Scan(&qty, &total)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, orderErrorf("product %s is not part of order %s", productID, orderID)
	}
	if err != nil {
		return Order{}, err
	}

	if err := s.Ledger.Restock(ctx, tx, productID, qty); err != nil {
		return Order{}, err
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM order_products WHERE order_id=$1 AND product_id=$2`,
		orderID, productID); err != nil {
		return Order{}, err
	}
	if err := s.resetCosts(ctx, tx, o, o.ProductsCost.Sub(total)); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return s.GetOrder(ctx, orderID)
}

// Archive soft-deletes the order and releases its stock in the same
// transaction. Orders are never hard-deleted.
func (s *Service) Archive(ctx context.Context, orderID string) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := s.lockOrder(ctx, tx, orderID); err != nil {
		return err
	}
	if err := s.Ledger.Release(ctx, tx, orderID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET is_active=FALSE, products_cost=0,
			total_cost=COALESCE(delivery_cost, 0)
		WHERE id=$1`, orderID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.Log.Info("order archived", zap.String("order_id", orderID))
	return nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (Order, error) {
	row := s.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` `+orderJoins+` WHERE o.id=$1 AND o.is_active`, orderID)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, &NotFoundError{OrderID: orderID}
	}
	if err != nil {
		return Order{}, err
	}
	o.Lines, err = s.loadLines(ctx, orderID)
	return o, err
}

func (s *Service) ListUserOrders(ctx context.Context, userID string) ([]Order, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+orderColumns+` `+orderJoins+`
		WHERE o.user_id=$1 AND o.is_active ORDER BY o.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Lines, err = s.loadLines(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// resetCosts re-derives delivery and total cost from a new products cost,
// used after any line edit.
func (s *Service) resetCosts(ctx context.Context, tx pgx.Tx, o Order, productsCost decimal.Decimal) error {
	var deliveryCost *decimal.Decimal
	totalCost := productsCost
	if o.DeliveryType != nil {
		dt, err := s.Ref.Delivery(*o.DeliveryType)
		if err != nil {
			return err
		}
		dc := pricing.DeliveryCost(productsCost, dt.Price, dt.FreeDeliveryOver)
		deliveryCost = &dc
		totalCost = productsCost.Add(dc)
	}
	_, err := tx.Exec(ctx, `
		UPDATE orders SET products_cost=$2, delivery_cost=$3, total_cost=$4
		WHERE id=$1`, o.ID, productsCost, deliveryCost, totalCost)
	return err
}

func (s *Service) lockOrder(ctx context.Context, tx pgx.Tx, orderID string) (Order, error) {
	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` `+orderJoins+`
		WHERE o.id=$1 AND o.is_active FOR UPDATE OF o`, orderID)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, &NotFoundError{OrderID: orderID}
	}
	return o, err
}

func (s *Service) loadLines(ctx context.Context, orderID string) ([]Line, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT op.product_id, p.title, op.total_quantity, op.total_price
		FROM order_products op
		JOIN products p ON p.id = op.product_id
		WHERE op.order_id=$1
		ORDER BY p.title`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.ProductID, &ln.Title, &ln.TotalQuantity, &ln.TotalPrice); err != nil {
			return nil, err
		}
		out = append(out, ln)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o        Order
		delivery decimal.NullDecimal
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.ProductsCost, &delivery,
		&o.TotalCost, &o.ReceiverName, &o.ReceiverEmail, &o.ReceiverPhone,
		&o.City, &o.Address, &o.DeliveryType, &o.PaymentType,
		&o.PaymentComment, &o.IsActive, &o.CreatedAt)
	if err != nil {
		return Order{}, err
	}
	if delivery.Valid {
		o.DeliveryCost = &delivery.Decimal
	}
	return o, nil
}
