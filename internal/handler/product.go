package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reworn/storefront/internal/domain/product"
)

// productResponse is the catalog read model.
type productResponse struct {
	ID          string   `json:"id"`
	SKU         string   `json:"sku"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Size        string   `json:"size"`
	Condition   string   `json:"condition"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Tags        []string `json:"tags"`
	Images      []string `json:"images"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at"`
}

// ListProducts returns the storefront catalog (available and reserved units).
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, h.toProductResponses(products))
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, h.toProductResponse(*p))
}

func (h *Handler) toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Brand:       p.Brand,
		Size:        p.Size,
		Condition:   p.Condition,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Tags:        p.Tags,
		Images:      h.imageURLs(p.Images),
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) toProductResponses(products []product.Product) []productResponse {
	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = h.toProductResponse(p)
	}
	return out
}
