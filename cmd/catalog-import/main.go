// Command catalog-import loads supplier feed files into the products table.
//
// Feeds are gzipped JSONL files, one garment per line. Every unit in the
// store is a single physical item, so a SKU that shows up in more than one
// supplier feed is a listing conflict: such SKUs are skipped and reported
// instead of imported. Cross-feed detection uses one bloom filter per feed
// built in a first concurrent pass; the second pass re-streams each feed and
// tests its SKUs against the other feeds' filters.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/reworn/storefront/internal/repository"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

// feedRecord is one line of a supplier feed.
type feedRecord struct {
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

func (r feedRecord) valid() bool {
	return r.SKU != "" && r.Name != "" && !r.Price.IsNegative()
}

// fileResult holds the importable records and conflict SKUs from one feed.
type fileResult struct {
	records   []feedRecord
	conflicts []string
}

// A fresh row is listed as available; an existing SKU is a live unit whose
// status and id must survive re-import untouched.
const importProductSQL = `
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
    updated_at  = now()
WHERE products.status = 'available'`

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz feeds found in %s", dataDir)
	}
	sort.Strings(files)

	// Pass 1: one SKU bloom filter per feed, built concurrently.
	slog.Info("pass 1: building SKU filters", slog.Int("feeds", len(files)))

	filters, err := buildSKUFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build SKU filters")
	}

	// Pass 2: collect importable records, skipping cross-feed SKUs.
	slog.Info("pass 2: collecting records")

	results, err := collectRecords(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "collect records")
	}

	var records []feedRecord
	var conflicts int
	for i, r := range results {
		records = append(records, r.records...)
		conflicts += len(r.conflicts)
		for _, sku := range r.conflicts {
			slog.Warn("cross-feed SKU skipped",
				slog.String("sku", sku),
				slog.String("feed", filepath.Base(files[i])),
			)
		}
	}

	slog.Info("feeds scanned",
		slog.Int("importable", len(records)),
		slog.Int("conflicts", conflicts),
	)

	if len(records) == 0 {
		slog.Info("nothing to import")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return writeProducts(ctx, pool, records)
}

// buildSKUFilters creates one bloom filter per feed, concurrently.
func buildSKUFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFeed(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFeed(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamFeed(ctx, path, func(rec feedRecord) {
			filter.AddString(rec.SKU)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.String("feed", filepath.Base(path)),
					slog.Uint64("records", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for %s", path)
		}

		slog.Info("pass 1 complete",
			slog.String("feed", filepath.Base(path)),
			slog.Uint64("records", count),
		)

		filters[idx] = filter
		return nil
	}
}

// collectRecords re-streams each feed and partitions its records into
// importable ones and cross-feed conflicts.
func collectRecords(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]fileResult, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(collectFromFeed(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func collectFromFeed(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		var res fileResult
		seen := make(map[string]struct{})

		if err := streamFeed(ctx, path, func(rec feedRecord) {
			if !rec.valid() {
				slog.Warn("invalid record skipped",
					slog.String("feed", filepath.Base(path)),
					slog.String("sku", rec.SKU),
				)
				return
			}
			// Duplicate within the same feed: keep the first occurrence.
			if _, ok := seen[rec.SKU]; ok {
				return
			}
			seen[rec.SKU] = struct{}{}

			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(rec.SKU) {
					res.conflicts = append(res.conflicts, rec.SKU)
					return
				}
			}
			res.records = append(res.records, rec)
		}); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		results[idx] = res
		return nil
	}
}

// streamFeed opens a gzipped JSONL feed and calls fn for each record.
func streamFeed(ctx context.Context, path string, fn func(rec feedRecord)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec feedRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			slog.Warn("malformed feed line skipped",
				slog.String("feed", filepath.Base(path)),
				slog.String("error", err.Error()),
			)
			continue
		}
		fn(rec)
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writeProducts upserts the importable records.
func writeProducts(ctx context.Context, pool *pgxpool.Pool, records []feedRecord) error {
	slog.Info("writing products", slog.Int("count", len(records)))

	for i, rec := range records {
		if rec.Tags == nil {
			rec.Tags = []string{}
		}
		if rec.Images == nil {
			rec.Images = []string{}
		}
		if _, err := pool.Exec(ctx, importProductSQL,
			uuid.New().String(), rec.SKU, rec.Name, rec.Brand, rec.Size, rec.Condition,
			rec.Description, rec.Price, rec.Tags, rec.Images,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", rec.SKU)
		}

		if (i+1)%100 == 0 || i+1 == len(records) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(records)))
		}
	}

	return nil
}
