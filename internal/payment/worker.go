package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/dkravets/go-shop-checkout.git/internal/kafka"
	"github.com/dkravets/go-shop-checkout.git/internal/orders"
)

const (
	bankTimeoutMsg = "Bank is not responding!"
	internalErrMsg = "Internal Server Error"
	badResponseMsg = "Unreadable bank response!"
)

// Worker runs the background charge: encrypt the payload, POST it to the
// bank once with a bounded timeout, decrypt the reply, and publish exactly
// one result whatever happens. There is deliberately no retry here: a
// timed-out card charge must never be silently repeated.
type Worker struct {
	Cipher  *Cipher
	BankURL string
	Client  *resty.Client
	Results Publisher
	Service string
	Log     *zap.Logger
}

func NewWorker(cipher *Cipher, bankURL string, timeout time.Duration, results Publisher, service string, log *zap.Logger) *Worker {
	return &Worker{
		Cipher:  cipher,
		BankURL: bankURL,
		Client:  resty.New().SetTimeout(timeout).SetRetryCount(0),
		Results: results,
		Service: service,
		Log:     log,
	}
}

// HandleChargeRequested consumes one charge event. It always returns nil:
// the outcome travels on the result topic, and redelivering the charge
// would risk a double charge.
func (w *Worker) HandleChargeRequested(ctx context.Context, m kafkago.Message) error {
	var env kafkax.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		w.Log.Error("charge event undecodable", zap.Error(err))
		return nil
	}
	if env.EventType != EventChargeRequested {
		return nil
	}
	p, err := kafkax.UnwrapPayload[ChargeRequestedPayload](env.Payload)
	if err != nil {
		w.Log.Error("charge payload undecodable",
			zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	status := orders.StatusPaymentRejected
	details := ResultDetails{Msg: internalErrMsg}
	defer func() {
		// Publish the result no matter how the attempt ended.
		w.publishResult(p.OrderID, status, details, env.TraceID)
	}()

	body, err := w.Cipher.Encrypt(BankRequest{
		Number:      p.Number,
		Name:        p.Name,
		Month:       p.Month,
		Year:        p.Year,
		Code:        p.Code,
		ChargePrice: p.ChargePrice,
	})
	if err != nil {
		w.Log.Error("charge payload encryption failed",
			zap.String("order_id", p.OrderID), zap.Error(err))
		return nil
	}

	resp, err := w.Client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(body).
		Post(w.BankURL)
	if err != nil {
		if isTimeout(err) {
			details = ResultDetails{Msg: bankTimeoutMsg}
			w.Log.Warn("bank timed out", zap.String("order_id", p.OrderID))
		} else {
			w.Log.Error("bank request failed",
				zap.String("order_id", p.OrderID), zap.Error(err))
		}
		return nil
	}

	var bankResp BankResponse
	if err := w.Cipher.Decrypt(resp.Body(), &bankResp); err != nil {
		details = ResultDetails{Msg: badResponseMsg}
		w.Log.Error("bank response undecodable",
			zap.String("order_id", p.OrderID), zap.Error(err))
		return nil
	}

	details = ResultDetails{Msg: bankResp.Msg}
	if resp.StatusCode() == http.StatusOK {
		status = orders.StatusPayed
	}
	w.Log.Info("charge attempt resolved", zap.String("order_id", p.OrderID),
		zap.Int("bank_status", resp.StatusCode()), zap.String("result", string(status)))
	return nil
}

func (w *Worker) publishResult(orderID string, status orders.Status, details ResultDetails, traceID string) {
	ev := kafkax.NewEnvelope(EventPaymentResult, w.Service, traceID, orderID,
		PaymentResultPayload{
			OrderID:     orderID,
			OrderStatus: string(status),
			Details:     details,
		})
	w.Results.Publish(kafkax.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventPaymentResult)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func isTimeout(err error) bool {
	if os.IsTimeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
