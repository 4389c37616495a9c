// Command seed-db loads a development dataset: the menu, dining tables, a
// starter discount, and an API key for local testing.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kopidulu/cafe-pos/internal/storage/postgres"
)

const (
	upsertProductSQL = `INSERT INTO products (id, sku, name, price, cost, stock, active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT (sku) DO UPDATE SET
			name = EXCLUDED.name, price = EXCLUDED.price, cost = EXCLUDED.cost,
			stock = EXCLUDED.stock, updated_at = now()`

	upsertTableSQL = `INSERT INTO tables (id, number, capacity)
		VALUES ($1, $2, $3)
		ON CONFLICT (number) DO UPDATE SET capacity = EXCLUDED.capacity, updated_at = now()`

	insertDiscountSQL = `INSERT INTO discounts
		(id, code, discount_type, value, min_purchase, start_date, end_date, usage_limit, active)
		VALUES ($1, $2, $3, $4, $5, CURRENT_DATE, CURRENT_DATE + INTERVAL '365 days', $6, TRUE)
		ON CONFLICT DO NOTHING`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (key_hash) DO UPDATE SET name = EXCLUDED.name, active = TRUE`
)

type seedProduct struct {
	sku   string
	name  string
	price string
	cost  string
	stock int
}

var menu = []seedProduct{
	{sku: "KOPI-001", name: "Espresso", price: "18000", cost: "6000", stock: 100},
	{sku: "KOPI-002", name: "Cafe Latte", price: "28000", cost: "9000", stock: 100},
	{sku: "KOPI-003", name: "Cappuccino", price: "30000", cost: "9500", stock: 100},
	{sku: "TEH-001", name: "Iced Lemon Tea", price: "22000", cost: "5000", stock: 80},
	{sku: "FOOD-001", name: "Croissant", price: "25000", cost: "12000", stock: 40},
	{sku: "FOOD-002", name: "Nasi Goreng", price: "45000", cost: "20000", stock: 30},
}

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or CAFEPOS_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or CAFEPOS_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("CAFEPOS_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or CAFEPOS_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("CAFEPOS_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedMenu(ctx, pool); err != nil {
		return errors.Wrap(err, "seed menu")
	}
	if err := seedTables(ctx, pool); err != nil {
		return errors.Wrap(err, "seed tables")
	}
	if err := seedDiscount(ctx, pool); err != nil {
		return errors.Wrap(err, "seed discount")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedMenu(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("upserting products", slog.Int("count", len(menu)))

	for _, p := range menu {
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			return errors.Wrapf(err, "parse price for %s", p.sku)
		}
		cost, err := decimal.NewFromString(p.cost)
		if err != nil {
			return errors.Wrapf(err, "parse cost for %s", p.sku)
		}

		if _, err := pool.Exec(ctx, upsertProductSQL,
			uuid.NewString(), p.sku, p.name, price, cost, p.stock); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.sku)
		}

		slog.Info("upserted product", slog.String("sku", p.sku), slog.String("name", p.name))
	}
	return nil
}

func seedTables(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("upserting tables")

	for number := 1; number <= 10; number++ {
		capacity := 2
		if number > 6 {
			capacity = 4
		}
		if _, err := pool.Exec(ctx, upsertTableSQL, uuid.NewString(), number, capacity); err != nil {
			return errors.Wrapf(err, "upsert table %d", number)
		}
	}
	return nil
}

func seedDiscount(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding starter discount", slog.String("code", "PROMO10"))

	minPurchase := decimal.NewFromInt(50000)
	_, err := pool.Exec(ctx, insertDiscountSQL,
		uuid.NewString(), "PROMO10", "PERCENTAGE", decimal.NewFromInt(10), minPurchase, 1000)
	if err != nil {
		return errors.Wrap(err, "insert PROMO10")
	}
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, upsertAPIKeySQL,
		"default", keyHash, "cashier-1", []string{"orders", "payments"})
	if err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"), slog.String("name", "cashier-1"))
	return nil
}
