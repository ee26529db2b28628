package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dkravets/go-shop-checkout.git/internal/basket"
	"github.com/dkravets/go-shop-checkout.git/internal/catalog"
	"github.com/dkravets/go-shop-checkout.git/internal/orders"
)

type OrdersHandler struct {
	Orders  *orders.Service
	Basket  *basket.Store
	Catalog *catalog.Repo
	Log     *zap.Logger
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}", h.confirmOrder)
	r.Delete("/orders/{id}", h.archiveOrder)
	r.Patch("/orders/{id}/products/{productID}", h.updateLine)
	r.Delete("/orders/{id}/products/{productID}", h.removeLine)
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.ListActive(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// createOrder initialises an order from the session basket: the basket
// lines (with their add-time price snapshots) become order lines, stock is
// reserved, and the basket is cleared on success.
func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	user, session := userID(r), sessionID(r)
	if user == "" || session == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user or session"})
		return
	}

	lines, err := h.Basket.Lines(r.Context(), session)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	initLines := make([]orders.InitLine, 0, len(lines))
	for _, ln := range lines {
		initLines = append(initLines, orders.InitLine{
			ProductID: ln.ProductID,
			Qty:       ln.Qty,
			UnitPrice: ln.Price,
		})
	}

	orderID, err := h.Orders.CreateInitOrder(r.Context(), user, initLines)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if err := h.Basket.Clear(r.Context(), session); err != nil {
		// The order is committed; a stale basket is only a nuisance.
		h.Log.Warn("basket clear failed", zap.String("session", session), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"orderId": orderID})
}

func (h *OrdersHandler) confirmOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var c orders.Confirmation
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	o, err := h.Orders.ConfirmOrder(r.Context(), orderID, c)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"orderId": o.ID})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user"})
		return
	}
	out, err := h.Orders.ListUserOrders(r.Context(), user)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) archiveOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.Orders.Archive(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateLineReq struct {
	Qty int `json:"qty"`
}

func (h *OrdersHandler) updateLine(w http.ResponseWriter, r *http.Request) {
	var req updateLineReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	o, err := h.Orders.UpdateLine(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "productID"), req.Qty)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) removeLine(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.RemoveLine(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
