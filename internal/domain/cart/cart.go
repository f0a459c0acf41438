// Package cart implements the reservation lifecycle for single-unit
// inventory. Adding a product to a cart and reserving its one physical unit
// are the same operation; the hold is bounded by a countdown and released
// lazily on the next read after it lapses.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrAlreadyInCart is returned when the product is already held by this
	// cart. Quantities are never incremented in a single-unit model.
	ErrAlreadyInCart = errors.New("product already in cart")

	// ErrUnavailable is returned when the product cannot be reserved: it is
	// held by another cart, sold, or hidden.
	ErrUnavailable = errors.New("product not available")

	// ErrItemNotFound is returned when the cart holds no item with the
	// requested ID.
	ErrItemNotFound = errors.New("cart item not found")

	// ErrEmptyCart is returned by operations that require at least one item.
	ErrEmptyCart = errors.New("cart is empty")
)

// Item is one reserved unit, with the product snapshot captured at add-time
// so the cart renders stably even if the listing is later edited.
type Item struct {
	ID        string
	ProductID string
	Name      string
	Brand     string
	Size      string
	Condition string
	Price     decimal.Decimal
	Image     string
	AddedAt   time.Time
}

// Cart is the persisted reservation state for one shopper. ExpiresAt is nil
// exactly when the cart has no items.
type Cart struct {
	UserID    string
	Items     []Item
	ExpiresAt *time.Time
}

// ExpiredAt reports whether the cart's hold has lapsed as of now.
// A cart without an expiry (empty cart) never expires.
func (c *Cart) ExpiredAt(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// TotalAmount is the sum of snapshot prices. Every item has quantity 1.
func (c *Cart) TotalAmount() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.Price)
	}
	return sum
}

// View is the read model returned to clients. ExpiresInMinutes is recomputed
// on every read from the server clock and is 0 for an empty cart.
type View struct {
	Items                 []Item
	TotalItems            int
	TotalAmount           decimal.Decimal
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ExpiresAt             *time.Time
	ExpiresInMinutes      int
}

// Repository defines persistence for carts.
//
// AddItem must atomically reserve the product (available -> reserved) and
// insert the item, setting the cart expiry when expiresAt is non-nil. It
// returns ErrAlreadyInCart when this cart already holds the product and
// ErrUnavailable when the reservation compare-and-set fails.
//
// RemoveItem releases the product back to available and clears the cart
// expiry when the last item goes. Expire releases every item and clears the
// expiry in one step.
type Repository interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	AddItem(ctx context.Context, userID string, item Item, expiresAt *time.Time) error
	RemoveItem(ctx context.Context, userID, itemID string) error
	SetExpiry(ctx context.Context, userID string, expiresAt time.Time) error
	Expire(ctx context.Context, userID string) error
}
