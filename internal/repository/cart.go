package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reworn/storefront/internal/domain/cart"
)

const (
	getCartExpirySQL = `SELECT expires_at FROM carts WHERE user_id = $1`

	getCartItemsSQL = `SELECT id, product_id, name, brand, size, condition, price, image, added_at
		FROM cart_items WHERE cart_user_id = $1 ORDER BY added_at, id`

	upsertCartSQL = `INSERT INTO carts (user_id, expires_at) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET expires_at = COALESCE(EXCLUDED.expires_at, carts.expires_at), updated_at = now()`

	reserveProductSQL = `UPDATE products SET status = 'reserved', updated_at = now()
		WHERE id = $1 AND status = 'available'`

	insertCartItemSQL = `INSERT INTO cart_items
		(id, cart_user_id, product_id, name, brand, size, condition, price, image, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	deleteCartItemSQL = `DELETE FROM cart_items WHERE cart_user_id = $1 AND id = $2
		RETURNING product_id`

	countCartItemsSQL = `SELECT count(*) FROM cart_items WHERE cart_user_id = $1`

	setCartExpirySQL = `UPDATE carts SET expires_at = $2, updated_at = now() WHERE user_id = $1`

	clearCartExpirySQL = `UPDATE carts SET expires_at = NULL, updated_at = now() WHERE user_id = $1`

	deleteAllCartItemsSQL = `DELETE FROM cart_items WHERE cart_user_id = $1 RETURNING product_id`

	releaseProductsSQL = `UPDATE products SET status = 'available', updated_at = now()
		WHERE id = ANY($1) AND status = 'reserved'`
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint hits.
const pgUniqueViolation = "23505"

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. All
// multi-row mutations run in a single transaction so a reservation and its
// cart item can never disagree.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get loads the cart for a user. A user with no cart row gets an empty cart.
func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	c := &cart.Cart{UserID: userID}

	err := r.pool.QueryRow(ctx, getCartExpirySQL, userID).Scan(&c.ExpiresAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("getting cart for %q: %w", userID, err)
	}

	rows, err := r.pool.Query(ctx, getCartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting cart items for %q: %w", userID, err)
	}
	items, err := pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return nil, fmt.Errorf("scanning cart items for %q: %w", userID, err)
	}
	c.Items = items
	return c, nil
}

// AddItem reserves the product and inserts the item atomically. The
// reservation is a conditional write on the availability flag, so two
// concurrent adds for the same unit resolve to exactly one winner inside
// the database.
func (r *CartRepository) AddItem(ctx context.Context, userID string, item cart.Item, expiresAt *time.Time) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertCartSQL, userID, expiresAt); err != nil {
			return fmt.Errorf("upserting cart for %q: %w", userID, err)
		}

		tag, err := tx.Exec(ctx, reserveProductSQL, item.ProductID)
		if err != nil {
			return fmt.Errorf("reserving product %q: %w", item.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			return cart.ErrUnavailable
		}

		_, err = tx.Exec(ctx, insertCartItemSQL,
			item.ID, userID, item.ProductID, item.Name, item.Brand,
			item.Size, item.Condition, item.Price, item.Image, item.AddedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return cart.ErrAlreadyInCart
			}
			return fmt.Errorf("inserting cart item for product %q: %w", item.ProductID, err)
		}
		return nil
	})
}

// RemoveItem deletes the item and releases its unit. The expiry is cleared
// when the last item goes.
func (r *CartRepository) RemoveItem(ctx context.Context, userID, itemID string) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var productID string
		err := tx.QueryRow(ctx, deleteCartItemSQL, userID, itemID).Scan(&productID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return cart.ErrItemNotFound
			}
			return fmt.Errorf("deleting cart item %q: %w", itemID, err)
		}

		if _, err := tx.Exec(ctx, releaseProductsSQL, []string{productID}); err != nil {
			return fmt.Errorf("releasing product %q: %w", productID, err)
		}

		var remaining int
		if err := tx.QueryRow(ctx, countCartItemsSQL, userID).Scan(&remaining); err != nil {
			return fmt.Errorf("counting cart items for %q: %w", userID, err)
		}
		if remaining == 0 {
			if _, err := tx.Exec(ctx, clearCartExpirySQL, userID); err != nil {
				return fmt.Errorf("clearing expiry for %q: %w", userID, err)
			}
		}
		return nil
	})
}

// SetExpiry moves the cart's expiry. Only the explicit extend operation
// calls this; reads never advance the countdown.
func (r *CartRepository) SetExpiry(ctx context.Context, userID string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx, setCartExpirySQL, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("setting expiry for %q: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrEmptyCart
	}
	return nil
}

// Expire releases every held unit and clears the countdown in one
// transaction. Called lazily when a read observes a lapsed hold.
func (r *CartRepository) Expire(ctx context.Context, userID string) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, deleteAllCartItemsSQL, userID)
		if err != nil {
			return fmt.Errorf("deleting cart items for %q: %w", userID, err)
		}
		productIDs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
			var id string
			err := row.Scan(&id)
			return id, err
		})
		if err != nil {
			return fmt.Errorf("collecting released products for %q: %w", userID, err)
		}

		if len(productIDs) > 0 {
			if _, err := tx.Exec(ctx, releaseProductsSQL, productIDs); err != nil {
				return fmt.Errorf("releasing products for %q: %w", userID, err)
			}
		}

		if _, err := tx.Exec(ctx, clearCartExpirySQL, userID); err != nil {
			return fmt.Errorf("clearing expiry for %q: %w", userID, err)
		}
		return nil
	})
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var it cart.Item
	err := row.Scan(
		&it.ID, &it.ProductID, &it.Name, &it.Brand, &it.Size,
		&it.Condition, &it.Price, &it.Image, &it.AddedAt,
	)
	return it, err
}
