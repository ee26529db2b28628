package orders

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Reference holds the delivery and payment type tables, resolved once at
// process start instead of being re-read on every checkout. Reload picks up
// admin edits to the reference rows.
type Reference struct {
	mu              sync.RWMutex
	deliveryTypes   map[string]DeliveryType
	paymentTypes    map[string]PaymentType
	defaultDelivery string
	defaultPayment  string
}

func LoadReference(ctx context.Context, db *pgxpool.Pool, defaultDelivery, defaultPayment string) (*Reference, error) {
	r := &Reference{
		defaultDelivery: defaultDelivery,
		defaultPayment:  defaultPayment,
	}
	if err := r.Reload(ctx, db); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.deliveryTypes[defaultDelivery]; !ok {
		return nil, fmt.Errorf("default delivery type %q is not seeded", defaultDelivery)
	}
	if _, ok := r.paymentTypes[defaultPayment]; !ok {
		return nil, fmt.Errorf("default payment type %q is not seeded", defaultPayment)
	}
	return r, nil
}

func (r *Reference) Reload(ctx context.Context, db *pgxpool.Pool) error {
	deliveryTypes := map[string]DeliveryType{}
	rows, err := db.Query(ctx, `SELECT id, name, price, free_delivery_over FROM delivery_types`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			dt   DeliveryType
			free decimal.NullDecimal
		)
		if err := rows.Scan(&dt.ID, &dt.Name, &dt.Price, &free); err != nil {
			return err
		}
		if free.Valid {
			dt.FreeDeliveryOver = &free.Decimal
		}
		deliveryTypes[dt.Name] = dt
	}
	if err := rows.Err(); err != nil {
		return err
	}

	paymentTypes := map[string]PaymentType{}
	prows, err := db.Query(ctx, `SELECT id, name FROM payment_types`)
	if err != nil {
		return err
	}
	defer prows.Close()
	for prows.Next() {
		var pt PaymentType
		if err := prows.Scan(&pt.ID, &pt.Name); err != nil {
			return err
		}
		paymentTypes[pt.Name] = pt
	}
	if err := prows.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.deliveryTypes = deliveryTypes
	r.paymentTypes = paymentTypes
	r.mu.Unlock()
	return nil
}

// Delivery resolves a delivery type by name; an empty name means the
// default. Unknown names fail with the allowed set in the message.
func (r *Reference) Delivery(name string) (DeliveryType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultDelivery
	}
	dt, ok := r.deliveryTypes[name]
	if !ok {
		return DeliveryType{}, orderErrorf("delivery type %q is not supported, allowed types: %s",
			name, strings.Join(keys(r.deliveryTypes), ", "))
	}
	return dt, nil
}

func (r *Reference) Payment(name string) (PaymentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultPayment
	}
	pt, ok := r.paymentTypes[name]
	if !ok {
		return PaymentType{}, orderErrorf("payment type %q is denied, allowed types: %s",
			name, strings.Join(keys(r.paymentTypes), ", "))
	}
	return pt, nil
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
