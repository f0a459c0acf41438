package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reworn/storefront/internal/domain/cart"
)

type cartItemResponse struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Brand     string  `json:"brand"`
	Size      string  `json:"size"`
	Condition string  `json:"condition"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	AddedAt   string  `json:"added_at"`
}

type cartResponse struct {
	Items                 []cartItemResponse `json:"items"`
	TotalItems            int                `json:"total_items"`
	TotalAmount           float64            `json:"total_amount"`
	ShippingFee           float64            `json:"shipping_fee"`
	FreeShippingThreshold float64            `json:"free_shipping_threshold"`
	ExpiresAt             *string            `json:"expires_at"`
	ExpiresInMinutes      int                `json:"expires_in_minutes"`
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
}

// GetCart returns the shopper's cart. A lapsed hold is released by this read.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	v, err := h.carts.Get(r.Context(), userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, h.toCartResponse(v))
}

// AddCartItem reserves a product for the shopper.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	var req addItemRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "product_id is required")
		return
	}

	v, err := h.carts.AddItem(r.Context(), userID, req.ProductID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, h.toCartResponse(v))
}

// RemoveCartItem deletes one item and releases its reservation.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	v, err := h.carts.RemoveItem(r.Context(), userID, chi.URLParam(r, "itemID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, h.toCartResponse(v))
}

// ExtendHold resets the cart countdown to a full window.
func (h *Handler) ExtendHold(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	v, err := h.carts.ExtendHold(r.Context(), userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, h.toCartResponse(v))
}

func (h *Handler) toCartResponse(v *cart.View) cartResponse {
	items := make([]cartItemResponse, len(v.Items))
	for i, it := range v.Items {
		items[i] = cartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Brand:     it.Brand,
			Size:      it.Size,
			Condition: it.Condition,
			Price:     it.Price.InexactFloat64(),
			Image:     h.imageURL(it.Image),
			AddedAt:   it.AddedAt.UTC().Format(time.RFC3339),
		}
	}

	resp := cartResponse{
		Items:                 items,
		TotalItems:            v.TotalItems,
		TotalAmount:           v.TotalAmount.InexactFloat64(),
		ShippingFee:           v.ShippingFee.InexactFloat64(),
		FreeShippingThreshold: v.FreeShippingThreshold.InexactFloat64(),
		ExpiresInMinutes:      v.ExpiresInMinutes,
	}
	if v.ExpiresAt != nil {
		s := v.ExpiresAt.UTC().Format(time.RFC3339)
		resp.ExpiresAt = &s
	}
	return resp
}
