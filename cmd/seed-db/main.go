// Command seed-db loads the products seed file and a pair of test session
// tokens into the database. It is meant for local development and demo
// environments, not production.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/reworn/storefront/internal/repository"
)

type productJSON struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Size        string          `json:"size"`
	Condition   string          `json:"condition"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Tags        []string        `json:"tags"`
	Images      []string        `json:"images"`
}

// Existing rows keep their id and status: a seeded SKU that is already
// reserved or sold must not snap back to available.
const upsertProductSQL = `
INSERT INTO products (id, sku, name, brand, size, condition, description, price, tags, images)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (sku) DO UPDATE SET
    name        = EXCLUDED.name,
    brand       = EXCLUDED.brand,
    size        = EXCLUDED.size,
    condition   = EXCLUDED.condition,
    description = EXCLUDED.description,
    price       = EXCLUDED.price,
    tags        = EXCLUDED.tags,
    images      = EXCLUDED.images,
    updated_at  = now()`

const upsertSessionSQL = `
INSERT INTO sessions (id, token_hash, user_id, name, scopes, active)
VALUES ($1, $2, $3, $4, $5, TRUE)
ON CONFLICT (token_hash) DO UPDATE SET
    user_id = EXCLUDED.user_id,
    name    = EXCLUDED.name,
    scopes  = EXCLUDED.scopes,
    active  = TRUE`

func main() {
	var (
		databaseURL  string
		productsFile string
		shopperToken string
		adminToken   string
		pepper       string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&shopperToken, "shopper-token", "", "shopper session token to seed (or STORE_SEED_TOKEN env)")
	flag.StringVar(&adminToken, "admin-token", "", "admin session token to seed (or STORE_SEED_ADMIN_TOKEN env)")
	flag.StringVar(&pepper, "token-pepper", "", "HMAC pepper for token hashing (or STORE_TOKEN_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if shopperToken == "" {
		shopperToken = os.Getenv("STORE_SEED_TOKEN")
	}
	if shopperToken == "" {
		slog.Error("shopper token is required: set --shopper-token or STORE_SEED_TOKEN")
		os.Exit(1)
	}
	if adminToken == "" {
		adminToken = os.Getenv("STORE_SEED_ADMIN_TOKEN")
	}
	if pepper == "" {
		pepper = os.Getenv("STORE_TOKEN_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, shopperToken, adminToken, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, shopperToken, adminToken, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedSession(ctx, pool, shopperToken, pepper, "shopper", "Seed shopper", nil); err != nil {
		return errors.Wrap(err, "seed shopper session")
	}

	if adminToken != "" {
		if err := seedSession(ctx, pool, adminToken, pepper, "staff", "Seed admin", []string{"admin"}); err != nil {
			return errors.Wrap(err, "seed admin session")
		}
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if p.Tags == nil {
			p.Tags = []string{}
		}
		if p.Images == nil {
			p.Images = []string{}
		}
		if _, err := pool.Exec(ctx, upsertProductSQL,
			uuid.New().String(), p.SKU, p.Name, p.Brand, p.Size, p.Condition,
			p.Description, p.Price, p.Tags, p.Images,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.SKU)
		}

		slog.Info("upserted product", slog.String("sku", p.SKU), slog.String("name", p.Name))
	}

	return nil
}

func seedSession(ctx context.Context, pool *pgxpool.Pool, token, pepper, userID, name string, scopes []string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(token))
	tokenHash := hex.EncodeToString(mac.Sum(nil))

	if scopes == nil {
		scopes = []string{}
	}

	if _, err := pool.Exec(ctx, upsertSessionSQL,
		uuid.New().String(), tokenHash, userID, name, scopes,
	); err != nil {
		return errors.Wrapf(err, "upsert session for %s", userID)
	}

	slog.Info("upserted session", slog.String("user_id", userID), slog.String("name", name))

	return nil
}
