package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reworn/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, user_id, items, total_amount, shipping_fee, payment_method,
		 shipping_name, shipping_phone, shipping_address, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	consumeCartItemsSQL = `DELETE FROM cart_items WHERE cart_user_id = $1 RETURNING product_id`

	markProductsSoldSQL = `UPDATE products SET status = 'sold', updated_at = now()
		WHERE id = ANY($1) AND status = 'reserved'`

	orderColumns = `id, user_id, items, total_amount, shipping_fee, payment_method,
		shipping_name, shipping_phone, shipping_address, notes, created_at`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateFromCart persists the order and consumes the source cart in one
// transaction: items are deleted, the held units flip reserved -> sold, and
// the countdown is cleared. If the cart no longer holds every unit the order
// claims (the hold lapsed or a concurrent checkout won), the whole
// transaction rolls back with order.ErrCartExpired.
func (r *OrderRepository) CreateFromCart(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, createOrderSQL,
			o.ID, o.UserID, itemsJSON, o.TotalAmount, o.ShippingFee,
			string(o.PaymentMethod), o.ShippingName, o.ShippingPhone,
			o.ShippingAddress, o.Notes, o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("creating order %q: %w", o.ID, err)
		}

		rows, err := tx.Query(ctx, consumeCartItemsSQL, o.UserID)
		if err != nil {
			return fmt.Errorf("consuming cart items for %q: %w", o.UserID, err)
		}
		productIDs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
			var id string
			err := row.Scan(&id)
			return id, err
		})
		if err != nil {
			return fmt.Errorf("collecting consumed items for %q: %w", o.UserID, err)
		}
		// Count alone is not enough: a concurrent remove+add can swap one
		// unit for another without changing the cart size. The consumed
		// set must be exactly the units the order snapshot claims.
		if !sameProductSet(productIDs, o.Items) {
			return order.ErrCartExpired
		}

		tag, err := tx.Exec(ctx, markProductsSoldSQL, productIDs)
		if err != nil {
			return fmt.Errorf("marking products sold for order %q: %w", o.ID, err)
		}
		if int(tag.RowsAffected()) != len(productIDs) {
			// A unit slipped out of reserved state; the snapshot is stale.
			return order.ErrCartExpired
		}

		if _, err := tx.Exec(ctx, clearCartExpirySQL, o.UserID); err != nil {
			return fmt.Errorf("clearing expiry for %q: %w", o.UserID, err)
		}
		return nil
	})
}

// sameProductSet reports whether the consumed product IDs are exactly the
// ones the order items reference, in any ordering.
func sameProductSet(consumed []string, items []order.Item) bool {
	if len(consumed) != len(items) {
		return false
	}
	want := make(map[string]struct{}, len(items))
	for _, it := range items {
		want[it.ProductID] = struct{}{}
	}
	for _, id := range consumed {
		if _, ok := want[id]; !ok {
			return false
		}
		delete(want, id)
	}
	return len(want) == 0
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		itemsJSON     []byte
		paymentMethod string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON, &o.TotalAmount, &o.ShippingFee,
		&paymentMethod, &o.ShippingName, &o.ShippingPhone,
		&o.ShippingAddress, &o.Notes, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	o.PaymentMethod = order.PaymentMethod(paymentMethod)
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling items of order %q: %w", o.ID, err)
	}
	return o, nil
}
