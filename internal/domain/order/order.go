// Package order implements the checkout transition: converting a live,
// non-expired cart into an immutable order while consuming its reservations.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyCart is returned when checkout is attempted with no held items.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrCartExpired is returned when the hold lapsed before checkout. It is
	// surfaced distinctly from validation failures so clients can prompt the
	// shopper to re-add items.
	ErrCartExpired = errors.New("cart hold expired")

	// ErrNotFound is returned when an order does not exist or belongs to a
	// different user.
	ErrNotFound = errors.New("order not found")
)

// ValidationError indicates a missing or malformed checkout field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid checkout field: %s", e.Field)
}

// PaymentMethod enumerates the accepted payment selections. Actual payment
// capture happens outside this system.
type PaymentMethod string

const (
	PaymentCOD      PaymentMethod = "cod"
	PaymentTransfer PaymentMethod = "bank_transfer"
	PaymentCard     PaymentMethod = "card"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentTransfer, PaymentCard:
		return true
	}
	return false
}

// Item is an order line frozen at checkout time. Quantity is always 1 in a
// single-unit inventory model but is stored explicitly for downstream
// consumers.
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Order is immutable once created; it snapshots the cart items and shipping
// details at the moment of checkout.
type Order struct {
	ID              string
	UserID          string
	Items           []Item
	TotalAmount     decimal.Decimal
	ShippingFee     decimal.Decimal
	PaymentMethod   PaymentMethod
	ShippingName    string
	ShippingPhone   string
	ShippingAddress string
	Notes           string
	CreatedAt       time.Time
}

// Repository defines persistence for orders.
//
// CreateFromCart must atomically persist the order, delete the source cart's
// items, mark the held units sold, and clear the cart expiry. A crash must
// never leave both an order and a live cart claiming the same unit.
type Repository interface {
	CreateFromCart(ctx context.Context, o *Order) error
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
}
