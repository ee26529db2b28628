package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dkravets/go-shop-checkout.git/internal/inventory"
	"github.com/dkravets/go-shop-checkout.git/internal/orders"
	"github.com/dkravets/go-shop-checkout.git/internal/payment"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sorts domain errors into the response taxonomy: business-rule
// and validation failures go back with their message, everything else is
// logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		unavailable  *inventory.UnavailableProductsError
		insufficient *inventory.InsufficientStockError
		notFound     *orders.NotFoundError
		orderErr     *orders.OrderError
		cardErr      *payment.CardError
	)
	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &unavailable),
		errors.As(err, &insufficient),
		errors.As(err, &orderErr),
		errors.As(err, &cardErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// session and user ids are supplied by the auth collaborator in front of
// this service; here they are opaque header values.
func sessionID(r *http.Request) string { return r.Header.Get("X-Session-ID") }
func userID(r *http.Request) string    { return r.Header.Get("X-User-ID") }
