package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dkravets/go-shop-checkout.git/internal/basket"
)

type BasketHandler struct {
	Basket *basket.Store
	Log    *zap.Logger
}

type basketItemReq struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

func (h *BasketHandler) Register(r *chi.Mux) {
	r.Get("/basket", h.getBasket)
	r.Post("/basket", h.addProduct)
	r.Delete("/basket", h.removeProduct)
}

func (h *BasketHandler) getBasket(w http.ResponseWriter, r *http.Request) {
	session := sessionID(r)
	if session == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing session"})
		return
	}
	views, err := h.Basket.Snapshot(r.Context(), session)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *BasketHandler) addProduct(w http.ResponseWriter, r *http.Request) {
	session := sessionID(r)
	if session == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing session"})
		return
	}
	var req basketItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProductID == "" || req.Qty <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing product_id or qty"})
		return
	}
	if err := h.Basket.Add(r.Context(), session, req.ProductID, req.Qty); err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.getBasket(w, r)
}

func (h *BasketHandler) removeProduct(w http.ResponseWriter, r *http.Request) {
	session := sessionID(r)
	if session == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing session"})
		return
	}
	var req basketItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProductID == "" || req.Qty <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing product_id or qty"})
		return
	}
	if err := h.Basket.Remove(r.Context(), session, req.ProductID, req.Qty); err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.getBasket(w, r)
}
