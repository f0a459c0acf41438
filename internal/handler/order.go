package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reworn/storefront/internal/domain/order"
)

type checkoutRequest struct {
	ShippingName    string `json:"shipping_name"`
	ShippingPhone   string `json:"shipping_phone"`
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"payment_method"`
	Notes           string `json:"notes"`
	// Items is accepted for wire compatibility but never trusted: the order
	// is built from the server-side cart, not from client display state.
	Items json.RawMessage `json:"items,omitempty"`
}

type orderItemResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	Items           []orderItemResponse `json:"items"`
	TotalAmount     float64             `json:"total_amount"`
	ShippingFee     float64             `json:"shipping_fee"`
	PaymentMethod   string              `json:"payment_method"`
	ShippingName    string              `json:"shipping_name"`
	ShippingPhone   string              `json:"shipping_phone"`
	ShippingAddress string              `json:"shipping_address"`
	Notes           string              `json:"notes"`
	CreatedAt       string              `json:"created_at"`
}

// Checkout converts the shopper's live cart into an order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	var req checkoutRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	o, err := h.orders.Checkout(r.Context(), userID, order.CheckoutRequest{
		ShippingName:    req.ShippingName,
		ShippingPhone:   req.ShippingPhone,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
		Notes:           req.Notes,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, toOrderResponse(o))
}

// ListOrders returns the shopper's orders, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	respondJSON(w, r, http.StatusOK, out)
}

// GetOrder returns one of the shopper's orders.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	o, err := h.orders.Get(r.Context(), userID, chi.URLParam(r, "orderID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderResponse(o))
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price.InexactFloat64(),
			Quantity:  it.Quantity,
		}
	}
	return orderResponse{
		ID:              o.ID,
		Items:           items,
		TotalAmount:     o.TotalAmount.InexactFloat64(),
		ShippingFee:     o.ShippingFee.InexactFloat64(),
		PaymentMethod:   string(o.PaymentMethod),
		ShippingName:    o.ShippingName,
		ShippingPhone:   o.ShippingPhone,
		ShippingAddress: o.ShippingAddress,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339),
	}
}
