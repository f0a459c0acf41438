package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/reworn/storefront/internal/domain/cart"
)

// CheckoutRequest holds the shopper-supplied checkout fields. Items are not
// part of the request: the server-side cart is the only source of truth.
type CheckoutRequest struct {
	ShippingName    string
	ShippingPhone   string
	ShippingAddress string
	PaymentMethod   PaymentMethod
	Notes           string
}

// CartReader is the slice of the cart service checkout depends on. Snapshot
// applies lazy expiry before returning, so a lapsed hold is already released
// by the time checkout inspects it.
type CartReader interface {
	Snapshot(ctx context.Context, userID string) (*cart.Cart, error)
}

// Service converts carts into orders.
type Service struct {
	carts   CartReader
	orders  Repository
	cartCfg cart.Config
	now     func() time.Time
}

// NewService creates an order Service. A nil now defaults to time.Now.
func NewService(carts CartReader, orders Repository, cartCfg cart.Config, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		carts:   carts,
		orders:  orders,
		cartCfg: cartCfg,
		now:     now,
	}
}

// Checkout re-validates the cart server-side, snapshots its items at their
// reserved prices, and persists the order while consuming the reservations
// in one atomic repository call. Client display state is never trusted.
func (s *Service) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*Order, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	c, err := s.carts.Snapshot(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "read cart")
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}
	// Snapshot already released a lapsed hold, but the clock may cross the
	// boundary between that read and this check.
	if c.ExpiredAt(s.now()) {
		return nil, ErrCartExpired
	}

	items := make([]Item, len(c.Items))
	for i, it := range c.Items {
		items[i] = Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  1,
		}
	}

	total := c.TotalAmount()
	o := &Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		Items:           items,
		TotalAmount:     total,
		ShippingFee:     cart.ShippingFee(total, s.cartCfg.FreeShippingThreshold, s.cartCfg.FlatShippingFee),
		PaymentMethod:   req.PaymentMethod,
		ShippingName:    strings.TrimSpace(req.ShippingName),
		ShippingPhone:   strings.TrimSpace(req.ShippingPhone),
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		Notes:           strings.TrimSpace(req.Notes),
		CreatedAt:       s.now(),
	}

	if err := s.orders.CreateFromCart(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// ListByUser returns the user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Get returns one order, enforcing ownership.
func (s *Service) Get(ctx context.Context, userID, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

func validate(req CheckoutRequest) error {
	if strings.TrimSpace(req.ShippingName) == "" {
		return &ValidationError{Field: "shipping_name"}
	}
	if strings.TrimSpace(req.ShippingPhone) == "" {
		return &ValidationError{Field: "shipping_phone"}
	}
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return &ValidationError{Field: "shipping_address"}
	}
	if !req.PaymentMethod.Valid() {
		return &ValidationError{Field: "payment_method"}
	}
	return nil
}
