package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/reworn/storefront/internal/domain/cart"
	"github.com/reworn/storefront/internal/domain/order"
	"github.com/reworn/storefront/internal/domain/product"
)

// errorResponse is the uniform error envelope. Error carries a stable
// machine-readable code; clients branch on it (cart_expired in particular
// triggers the "please re-add items" flow).
type errorResponse struct {
	Code    int    `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zctx.From(r.Context()).Debug("Encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, r, status, errorResponse{Code: status, Error: code, Message: message})
}

// respondDomainError maps domain errors onto the HTTP taxonomy. Business
// conditions (conflicts, expiry, validation) are expected and not logged;
// anything unmapped is a 500 and logged with its request context.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *order.ValidationError
	switch {
	case errors.Is(err, cart.ErrAlreadyInCart):
		respondError(w, r, http.StatusConflict, "already_in_cart", "product is already in your cart")
	case errors.Is(err, cart.ErrUnavailable):
		respondError(w, r, http.StatusConflict, "unavailable", "product is no longer available")
	case errors.Is(err, cart.ErrItemNotFound):
		respondError(w, r, http.StatusNotFound, "item_not_found", "cart item not found")
	case errors.Is(err, cart.ErrEmptyCart), errors.Is(err, order.ErrEmptyCart):
		respondError(w, r, http.StatusBadRequest, "empty_cart", "cart is empty")
	case errors.Is(err, order.ErrCartExpired):
		respondError(w, r, http.StatusConflict, "cart_expired", "your hold expired, please re-add items")
	case errors.Is(err, order.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, product.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "product_not_found", "product not found")
	case errors.As(err, &vErr):
		respondError(w, r, http.StatusBadRequest, "validation_error", vErr.Error())
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// decodeBody decodes a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
