// Package product defines the single-unit catalog model. Every product row
// represents exactly one physical garment, so availability is a property of
// the product itself rather than a stock count.
package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the availability state of a single inventory unit.
type Status string

const (
	// StatusAvailable means the unit can be reserved by any shopper.
	StatusAvailable Status = "available"
	// StatusReserved means the unit is held in exactly one cart.
	StatusReserved Status = "reserved"
	// StatusSold means the unit has been consumed by a completed order.
	StatusSold Status = "sold"
	// StatusHidden means the unit is withdrawn from the storefront by an admin.
	StatusHidden Status = "hidden"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusSold, StatusHidden:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")

	// ErrStatusConflict is returned when a status transition loses a race:
	// the row was not in the expected prior state at update time.
	ErrStatusConflict = errors.New("product status conflict")
)

// Product represents one listed garment.
type Product struct {
	ID          string
	SKU         string
	Name        string
	Brand       string
	Size        string
	Condition   string
	Description string
	Price       decimal.Decimal
	Tags        Tags
	Images      Images
	Status      Status
	CreatedAt   time.Time
}

// PrimaryImage returns the first image path, or "" when none exist.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Repository defines persistence operations for the catalog.
//
// SetStatus must be an atomic compare-and-set: the row moves to the new
// status only if it is still in the expected prior status, and
// ErrStatusConflict is returned otherwise. The reservation lifecycle builds
// on this guarantee.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	ListAll(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	SetStatus(ctx context.Context, id string, from, to Status) error
}
