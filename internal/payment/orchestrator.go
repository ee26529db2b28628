// Package payment bridges the synchronous checkout flow to the
// asynchronous bank charge: validate the card, mark the order
// payment_in_progress, hand the charge to a background worker over the
// charge topic, and apply the result exactly once when it comes back.
package payment

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/dkravets/go-shop-checkout.git/internal/kafka"
	"github.com/dkravets/go-shop-checkout.git/internal/orders"
)

// Publisher is the slice of the kafka producer the orchestrator needs.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Orchestrator struct {
	Orders  *orders.Service
	Charges Publisher
	Service string
	Log     *zap.Logger
}

// PayOrder validates the card, atomically reads the charge price while
// moving the order to payment_in_progress, and enqueues the charge. The
// caller gets an acknowledgment immediately; it never waits on the bank.
func (o *Orchestrator) PayOrder(ctx context.Context, orderID string, card Card, traceID string) error {
	if err := card.Validate(); err != nil {
		return err
	}

	chargePrice, err := o.Orders.BeginPayment(ctx, orderID)
	if err != nil {
		return err
	}

	ev := kafkax.NewEnvelope(EventChargeRequested, o.Service, traceID, orderID,
		ChargeRequestedPayload{
			OrderID:     orderID,
			Number:      card.Number,
			Name:        card.Name,
			Month:       card.Month,
			Year:        card.Year,
			Code:        card.Code,
			ChargePrice: chargePrice.InexactFloat64(),
		})
	o.Charges.Publish(kafkax.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventChargeRequested)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)

	o.Log.Info("charge enqueued", zap.String("order_id", orderID),
		zap.String("event_id", ev.EventID),
		zap.Float64("charge_price", chargePrice.InexactFloat64()))
	return nil
}
