package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/dkravets/go-shop-checkout.git/internal/kafka"
	"github.com/dkravets/go-shop-checkout.git/internal/orders"
	"github.com/dkravets/go-shop-checkout.git/internal/redisx"
)

// Listener consumes payment results and finalizes orders. Results are
// delivered at least once; the redis dedup plus an idempotent
// FinalizePayment make duplicates harmless.
type Listener struct {
	Orders *orders.Service
	Redis  *redis.Client
	Log    *zap.Logger
}

func (l *Listener) HandlePaymentResult(ctx context.Context, m kafkago.Message) error {
	var env kafkax.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		l.Log.Error("payment result undecodable", zap.Error(err))
		return nil
	}
	if env.EventType != EventPaymentResult {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "finalizer", env.EventID)
	if seen, _ := redisx.Exists(ctx, l.Redis, dkey); seen {
		return nil
	}

	p, err := kafkax.UnwrapPayload[PaymentResultPayload](env.Payload)
	if err != nil {
		l.Log.Error("payment result payload undecodable",
			zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	status := orders.Status(p.OrderStatus)
	var comment *string
	if status == orders.StatusPaymentRejected && p.Details.Msg != "" {
		comment = &p.Details.Msg
	}

	err = l.Orders.FinalizePayment(ctx, p.OrderID, status, comment)
	var bizErr *orders.OrderError
	var notFound *orders.NotFoundError
	switch {
	case err == nil:
	case errors.As(err, &bizErr), errors.As(err, &notFound):
		// Redelivery will not change a business verdict; drop it.
		l.Log.Warn("payment result not applicable",
			zap.String("order_id", p.OrderID), zap.Error(err))
	default:
		// Infrastructure failure: leave the offset, the message comes back.
		return err
	}

	_ = l.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return nil
}
