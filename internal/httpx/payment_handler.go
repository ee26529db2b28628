package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dkravets/go-shop-checkout.git/internal/payment"
)

type PaymentHandler struct {
	Pay *payment.Orchestrator
	Log *zap.Logger
}

func (h *PaymentHandler) Register(r *chi.Mux) {
	r.Post("/payment/{id}", h.payOrder)
}

// payOrder accepts card details and hands the charge off to the async
// pipeline. A 200 here means the charge was enqueued, not that it succeeded;
// the order status carries the outcome.
func (h *PaymentHandler) payOrder(w http.ResponseWriter, r *http.Request) {
	var card payment.Card
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	orderID := chi.URLParam(r, "id")
	traceID := middleware.GetReqID(r.Context())
	if err := h.Pay.PayOrder(r.Context(), orderID, card, traceID); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "Processing payment"})
}
