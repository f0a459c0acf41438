package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/reworn/storefront/internal/domain/product"
)

type createProductRequest struct {
	SKU         string         `json:"sku"`
	Name        string         `json:"name"`
	Brand       string         `json:"brand"`
	Size        string         `json:"size"`
	Condition   string         `json:"condition"`
	Description string         `json:"description"`
	Price       string         `json:"price"`
	Tags        product.Tags   `json:"tags"`
	Images      product.Images `json:"images"`
}

type setStatusRequest struct {
	// From is the expected current status; the transition is rejected when
	// the row has moved on (e.g. a shopper reserved it first).
	From string `json:"from"`
	To   string `json:"to"`
}

// CreateProduct lists a new single-unit garment.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.SKU == "" || req.Name == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "sku and name are required")
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "price must be a non-negative decimal")
		return
	}

	p := &product.Product{
		ID:          uuid.New().String(),
		SKU:         req.SKU,
		Name:        req.Name,
		Brand:       req.Brand,
		Size:        req.Size,
		Condition:   req.Condition,
		Description: req.Description,
		Price:       price,
		Tags:        req.Tags,
		Images:      req.Images,
		Status:      product.StatusAvailable,
	}
	if err := h.products.Create(r.Context(), p); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, h.toProductResponse(*p))
}

// ListAllProducts returns every product regardless of status.
func (h *Handler) ListAllProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListAll(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, h.toProductResponses(products))
}

// SetProductStatus transitions a unit's availability with the same
// compare-and-set the reservation path uses, so an admin withdrawing a
// garment can never clobber a shopper's live hold by accident.
func (h *Handler) SetProductStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	from, to := product.Status(req.From), product.Status(req.To)
	if !from.Valid() || !to.Valid() {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "unknown status value")
		return
	}

	id := chi.URLParam(r, "productID")
	if err := h.products.SetStatus(r.Context(), id, from, to); err != nil {
		if errors.Is(err, product.ErrStatusConflict) {
			respondError(w, r, http.StatusConflict, "status_conflict", "product status changed concurrently")
			return
		}
		respondDomainError(w, r, err)
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, h.toProductResponse(*p))
}
