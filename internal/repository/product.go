package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reworn/storefront/internal/domain/product"
)

const (
	productColumns = `id, sku, name, brand, size, condition, description, price, tags, images, status, created_at`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE status IN ('available', 'reserved') ORDER BY created_at DESC, id`

	listAllProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	createProductSQL = `INSERT INTO products
		(id, sku, name, brand, size, condition, description, price, tags, images, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	setProductStatusSQL = `UPDATE products SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the storefront catalog: available and reserved units, newest
// first. Sold and hidden units are omitted.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListAll returns every product regardless of status, for the back office.
func (r *ProductRepository) ListAll(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listAllProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing all products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// Create inserts a new listing.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, createProductSQL,
		p.ID, p.SKU, p.Name, p.Brand, p.Size, p.Condition, p.Description,
		p.Price, []string(p.Tags), []string(p.Images), string(p.Status),
	)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// SetStatus performs the availability compare-and-set: the row transitions
// only if it is still in the expected prior status.
func (r *ProductRepository) SetStatus(ctx context.Context, id string, from, to product.Status) error {
	tag, err := r.pool.Exec(ctx, setProductStatusSQL, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("setting status of product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or another writer won the transition.
		if _, err := r.GetByID(ctx, id); errors.Is(err, product.ErrNotFound) {
			return product.ErrNotFound
		}
		return product.ErrStatusConflict
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p      product.Product
		tags   []string
		images []string
		status string
	)
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Brand, &p.Size, &p.Condition,
		&p.Description, &p.Price, &tags, &images, &status, &p.CreatedAt,
	)
	p.Tags = tags
	p.Images = images
	p.Status = product.Status(status)
	return p, err
}
