// Package handler exposes the storefront REST API over chi.
package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/reworn/storefront/internal/domain/auth"
	"github.com/reworn/storefront/internal/domain/cart"
	"github.com/reworn/storefront/internal/domain/order"
	"github.com/reworn/storefront/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
	// TokenPepper is the HMAC key for session token hashing.
	TokenPepper []byte
}

// Handler wires the domain services to HTTP routes.
type Handler struct {
	products     product.Repository
	carts        *cart.Service
	orders       *order.Service
	sessions     auth.Repository
	pepper       []byte
	imageBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	carts *cart.Service,
	orders *order.Service,
	sessions auth.Repository,
) *Handler {
	return &Handler{
		products:     products,
		carts:        carts,
		orders:       orders,
		sessions:     sessions,
		pepper:       cfg.TokenPepper,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes returns the API router. Catalog reads are public; cart and order
// routes require a session; admin routes additionally require the admin
// scope.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/products", h.ListProducts)
	r.Get("/products/{productID}", h.GetProduct)

	r.Group(func(r chi.Router) {
		r.Use(h.Authenticate)

		r.Get("/cart", h.GetCart)
		r.Post("/cart/items", h.AddCartItem)
		r.Delete("/cart/items/{itemID}", h.RemoveCartItem)
		r.Post("/cart/extend", h.ExtendHold)

		r.Post("/orders", h.Checkout)
		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{orderID}", h.GetOrder)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Post("/products", h.CreateProduct)
			r.Get("/products", h.ListAllProducts)
			r.Patch("/products/{productID}/status", h.SetProductStatus)
		})
	})

	return r
}

// imageURL prefixes a stored image path with the configured base URL.
func (h *Handler) imageURL(path string) string {
	if path == "" {
		return ""
	}
	return h.imageBaseURL + path
}

func (h *Handler) imageURLs(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = h.imageURL(p)
	}
	return out
}
