package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/reworn/storefront/internal/domain/product"
)

// Config holds the reservation and pricing knobs.
type Config struct {
	// HoldWindow is the countdown granted on first add and on each extend.
	HoldWindow time.Duration
	// FreeShippingThreshold is the subtotal at which the flat fee is waived.
	FreeShippingThreshold decimal.Decimal
	// FlatShippingFee applies below the threshold.
	FlatShippingFee decimal.Decimal
}

// Service owns the cart reservation lifecycle. All expiry decisions use the
// injected clock; the client-displayed countdown is cosmetic and is never
// trusted here.
type Service struct {
	carts    Repository
	products product.Repository
	cfg      Config
	now      func() time.Time
}

// NewService creates a cart Service. A nil now defaults to time.Now.
func NewService(carts Repository, products product.Repository, cfg Config, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		carts:    carts,
		products: products,
		cfg:      cfg,
		now:      now,
	}
}

// Get returns the shopper's cart, creating the empty view when none exists.
// Expiry is enforced here, lazily: a lapsed hold is released as a side effect
// of the read and the empty cart is returned.
func (s *Service) Get(ctx context.Context, userID string) (*View, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(c), nil
}

// AddItem reserves the product for this shopper. The first item starts a
// fresh hold window; later items join the existing countdown untouched.
func (s *Service) AddItem(ctx context.Context, userID, productID string) (*View, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, it := range c.Items {
		if it.ProductID == productID {
			return nil, ErrAlreadyInCart
		}
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, errors.Wrap(err, "get product")
	}
	if p.Status != product.StatusAvailable {
		return nil, ErrUnavailable
	}

	now := s.now()
	item := Item{
		ID:        uuid.New().String(),
		ProductID: p.ID,
		Name:      p.Name,
		Brand:     p.Brand,
		Size:      p.Size,
		Condition: p.Condition,
		Price:     p.Price,
		Image:     p.PrimaryImage(),
		AddedAt:   now,
	}

	// Start a window only when the cart was empty; an existing countdown is
	// never silently advanced by an add.
	var expiresAt *time.Time
	if len(c.Items) == 0 {
		t := now.Add(s.cfg.HoldWindow)
		expiresAt = &t
	}

	if err := s.carts.AddItem(ctx, userID, item, expiresAt); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// RemoveItem deletes one item and releases its reservation. Removing the
// last item clears the countdown.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (*View, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	found := false
	for _, it := range c.Items {
		if it.ID == itemID {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrItemNotFound
	}

	if err := s.carts.RemoveItem(ctx, userID, itemID); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// ExtendHold resets the countdown to a full window from now. The new expiry
// is always later than the remaining one since the extension window equals
// the initial window.
func (s *Service) ExtendHold(ctx context.Context, userID string) (*View, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	expiresAt := s.now().Add(s.cfg.HoldWindow)
	if err := s.carts.SetExpiry(ctx, userID, expiresAt); err != nil {
		return nil, errors.Wrap(err, "set expiry")
	}
	return s.Get(ctx, userID)
}

// Snapshot returns the raw cart after lazy expiry enforcement. Checkout uses
// it to re-validate server-side state at the moment of the call.
func (s *Service) Snapshot(ctx context.Context, userID string) (*Cart, error) {
	return s.load(ctx, userID)
}

// load fetches the cart and applies lazy expiry: a lapsed hold releases all
// items before the cart is returned.
func (s *Service) load(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	if c.ExpiredAt(s.now()) {
		if err := s.carts.Expire(ctx, userID); err != nil {
			return nil, errors.Wrap(err, "expire cart")
		}
		c = &Cart{UserID: userID}
	}
	return c, nil
}

// view computes the derived totals and the countdown for a cart.
func (s *Service) view(c *Cart) *View {
	total := c.TotalAmount()
	v := &View{
		Items:                 c.Items,
		TotalItems:            len(c.Items),
		TotalAmount:           total,
		ShippingFee:           ShippingFee(total, s.cfg.FreeShippingThreshold, s.cfg.FlatShippingFee),
		FreeShippingThreshold: s.cfg.FreeShippingThreshold,
		ExpiresAt:             c.ExpiresAt,
	}
	if c.ExpiresAt != nil {
		if remaining := c.ExpiresAt.Sub(s.now()); remaining > 0 {
			// Round up so a hold with any time left never displays as 0.
			v.ExpiresInMinutes = int((remaining + time.Minute - 1) / time.Minute)
		}
	}
	return v
}
