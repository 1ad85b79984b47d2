package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"solestash/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT,
		brand TEXT,
		colorway TEXT,
		category TEXT,
		tags JSONB,
		image TEXT,
		description TEXT,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS listings (
		product_id TEXT NOT NULL REFERENCES products(id),
		store TEXT NOT NULL,
		url TEXT NOT NULL,
		retail_amount DOUBLE PRECISION,
		retail_currency TEXT,
		sale_amount DOUBLE PRECISION,
		sale_currency TEXT,
		discount_percent INT DEFAULT 0,
		sizes JSONB,
		available BOOLEAN DEFAULT FALSE,
		status TEXT DEFAULT 'active',
		failure_count INT DEFAULT 0,
		price_history JSONB,
		sizes_history JSONB,
		last_scraped TIMESTAMPTZ,
		PRIMARY KEY (product_id, store, url)
	);

	CREATE TABLE IF NOT EXISTS ingest_runs (
		id BIGSERIAL PRIMARY KEY,
		kind TEXT,
		started_at TIMESTAMPTZ,
		finished_at TIMESTAMPTZ,
		status TEXT,
		records_seen INT DEFAULT 0,
		products_new INT DEFAULT 0,
		listings_new INT DEFAULT 0,
		price_changes INT DEFAULT 0,
		sold_out INT DEFAULT 0,
		ended INT DEFAULT 0,
		errors_count INT DEFAULT 0,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS pipeline_logs (
		id BIGSERIAL PRIMARY KEY,
		run_id BIGINT,
		timestamp TIMESTAMPTZ,
		level TEXT,
		message TEXT,
		store TEXT
	);

	CREATE TABLE IF NOT EXISTS images (
		id UUID PRIMARY KEY,
		product_id TEXT,
		original_url TEXT UNIQUE,
		local_path TEXT,
		status TEXT DEFAULT 'pending',
		attempts INT DEFAULT 0,
		created_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status, last_scraped);
	CREATE INDEX IF NOT EXISTS idx_logs_run ON pipeline_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON ingest_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_images_pending ON images(status) WHERE status = 'pending';
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, brand, colorway, category, tags, image, description, created_at, updated_at
		FROM products WHERE id = $1`, id)

	p, err := scanProductPG(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	listings, err := s.listingsFor(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Listings = listings
	return p, nil
}

func (s *PostgresStore) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, brand, colorway, category, tags, image, description, created_at, updated_at
		FROM products ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProductPG(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range products {
		listings, err := s.listingsFor(ctx, products[i].ID)
		if err != nil {
			return nil, err
		}
		products[i].Listings = listings
	}
	return products, nil
}

func (s *PostgresStore) PutProduct(ctx context.Context, p *models.Product) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tagsJSON, _ := json.Marshal(p.Tags)
	_, err = tx.Exec(ctx, `
		INSERT INTO products (id, name, brand, colorway, category, tags, image, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			brand = EXCLUDED.brand,
			colorway = EXCLUDED.colorway,
			category = EXCLUDED.category,
			tags = EXCLUDED.tags,
			image = EXCLUDED.image,
			description = EXCLUDED.description,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.Name, p.Brand, p.Colorway, p.Category, tagsJSON, p.Image, p.Description,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM listings WHERE product_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clear listings: %w", err)
	}

	for i := range p.Listings {
		l := &p.Listings[i]
		sizesJSON, _ := json.Marshal(l.Sizes)
		priceHistJSON, _ := json.Marshal(l.PriceHistory)
		sizesHistJSON, _ := json.Marshal(l.SizesHistory)
		retailAmt, retailCur := priceParts(l.RetailPrice)
		saleAmt, saleCur := priceParts(l.SalePrice)

		_, err := tx.Exec(ctx, `
			INSERT INTO listings (product_id, store, url, retail_amount, retail_currency,
				sale_amount, sale_currency, discount_percent, sizes, available, status,
				failure_count, price_history, sizes_history, last_scraped)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			p.ID, l.Store, l.URL, retailAmt, retailCur, saleAmt, saleCur, l.DiscountPercent,
			sizesJSON, l.Available, l.Status, l.FailureCount,
			priceHistJSON, sizesHistJSON, l.LastScraped)
		if err != nil {
			return fmt.Errorf("insert listing %s/%s: %w", l.Store, l.URL, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetStaleListings(ctx context.Context, olderThan time.Duration, limit int) ([]ListingRef, error) {
	cutoff := time.Now().Add(-olderThan)
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, store, url, retail_amount, retail_currency, sale_amount, sale_currency,
			discount_percent, sizes, available, status, failure_count, price_history, sizes_history, last_scraped
		FROM listings
		WHERE status != 'ended' AND last_scraped < $1
		ORDER BY last_scraped ASC
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []ListingRef
	for rows.Next() {
		var ref ListingRef
		if err := scanListingPG(rows, &ref); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (s *PostgresStore) listingsFor(ctx context.Context, productID string) ([]models.Listing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, store, url, retail_amount, retail_currency, sale_amount, sale_currency,
			discount_percent, sizes, available, status, failure_count, price_history, sizes_history, last_scraped
		FROM listings WHERE product_id = $1 ORDER BY store, url`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var ref ListingRef
		if err := scanListingPG(rows, &ref); err != nil {
			return nil, err
		}
		listings = append(listings, ref.Listing)
	}
	return listings, rows.Err()
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.IngestRun) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO ingest_runs (kind, started_at, status)
		VALUES ($1, $2, $3)
		RETURNING id`,
		run.Kind, run.StartedAt, run.Status).Scan(&run.ID)
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *models.IngestRun) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE ingest_runs SET finished_at = $1, status = $2, records_seen = $3, products_new = $4,
			listings_new = $5, price_changes = $6, sold_out = $7, ended = $8, errors_count = $9, error_message = $10
		WHERE id = $11`,
		run.FinishedAt, run.Status, run.RecordsSeen, run.ProductsNew, run.ListingsNew,
		run.PriceChanges, run.SoldOut, run.Ended, run.ErrorsCount, run.ErrorMessage, run.ID)
	return err
}

func (s *PostgresStore) Log(ctx context.Context, runID *int64, level models.LogLevel, message, store string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pipeline_logs (run_id, timestamp, level, message, store)
		VALUES ($1, $2, $3, $4, $5)`,
		runID, time.Now(), level, message, store)
	return err
}

func (s *PostgresStore) EnqueueImage(ctx context.Context, productID, originalURL string) (uuid.UUID, error) {
	var existing uuid.UUID
	err := s.pool.QueryRow(ctx, `SELECT id FROM images WHERE original_url = $1`, originalURL).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if err != pgx.ErrNoRows {
		return uuid.Nil, err
	}

	id := uuid.New()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO images (id, product_id, original_url, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)`,
		id, productID, originalURL, models.ImageStatusPending, time.Now())
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (s *PostgresStore) GetPendingImages(ctx context.Context, limit int) ([]models.ImageEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, product_id, original_url, COALESCE(local_path, ''), status, attempts, created_at
		FROM images WHERE status = 'pending' ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ImageEntry
	for rows.Next() {
		var e models.ImageEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.OriginalURL, &e.LocalPath, &e.Status, &e.Attempts, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) UpdateImageStatus(ctx context.Context, id uuid.UUID, status, localPath string, attempts int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE images SET status = $1, local_path = $2, attempts = $3 WHERE id = $4`,
		status, localPath, attempts, id)
	return err
}

func scanProductPG(row pgx.Row) (*models.Product, error) {
	var p models.Product
	var tagsJSON []byte
	err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Colorway, &p.Category, &tagsJSON,
		&p.Image, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(tagsJSON) > 0 {
		json.Unmarshal(tagsJSON, &p.Tags)
	}
	return &p, nil
}

func scanListingPG(row pgx.Row, ref *ListingRef) error {
	l := &ref.Listing
	var sizesJSON, priceHistJSON, sizesHistJSON []byte
	var retailAmt, saleAmt *float64
	var retailCur, saleCur *string

	err := row.Scan(&ref.ProductID, &l.Store, &l.URL, &retailAmt, &retailCur, &saleAmt, &saleCur,
		&l.DiscountPercent, &sizesJSON, &l.Available, &l.Status, &l.FailureCount,
		&priceHistJSON, &sizesHistJSON, &l.LastScraped)
	if err != nil {
		return err
	}

	l.RetailPrice = priceFromPtr(retailAmt, retailCur)
	l.SalePrice = priceFromPtr(saleAmt, saleCur)
	if len(sizesJSON) > 0 {
		json.Unmarshal(sizesJSON, &l.Sizes)
	}
	if len(priceHistJSON) > 0 {
		json.Unmarshal(priceHistJSON, &l.PriceHistory)
	}
	if len(sizesHistJSON) > 0 {
		json.Unmarshal(sizesHistJSON, &l.SizesHistory)
	}
	return nil
}

func priceFromPtr(amt *float64, cur *string) *models.Price {
	if amt == nil || *amt <= 0 {
		return nil
	}
	p := &models.Price{Amount: *amt}
	if cur != nil {
		p.Currency = *cur
	}
	return p
}
