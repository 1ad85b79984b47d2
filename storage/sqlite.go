package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"solestash/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT,
		brand TEXT,
		colorway TEXT,
		category TEXT,
		tags JSON,
		image TEXT,
		description TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS listings (
		product_id TEXT NOT NULL,
		store TEXT NOT NULL,
		url TEXT NOT NULL,
		retail_amount REAL,
		retail_currency TEXT,
		sale_amount REAL,
		sale_currency TEXT,
		discount_percent INTEGER DEFAULT 0,
		sizes JSON,
		available BOOLEAN DEFAULT FALSE,
		status TEXT DEFAULT 'active',
		failure_count INTEGER DEFAULT 0,
		price_history JSON,
		sizes_history JSON,
		last_scraped DATETIME,
		PRIMARY KEY (product_id, store, url),
		FOREIGN KEY (product_id) REFERENCES products(id)
	);

	CREATE TABLE IF NOT EXISTS ingest_runs (
		id INTEGER PRIMARY KEY,
		kind TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		records_seen INTEGER DEFAULT 0,
		products_new INTEGER DEFAULT 0,
		listings_new INTEGER DEFAULT 0,
		price_changes INTEGER DEFAULT 0,
		sold_out INTEGER DEFAULT 0,
		ended INTEGER DEFAULT 0,
		errors_count INTEGER DEFAULT 0,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS pipeline_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		store TEXT
	);

	CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		product_id TEXT,
		original_url TEXT UNIQUE,
		local_path TEXT,
		status TEXT DEFAULT 'pending',
		attempts INTEGER DEFAULT 0,
		created_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status, last_scraped);
	CREATE INDEX IF NOT EXISTS idx_logs_run ON pipeline_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON ingest_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_images_pending ON images(status) WHERE status = 'pending';
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, brand, colorway, category, tags, image, description, created_at, updated_at
		FROM products WHERE id = ?`, id)

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
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

func (s *SQLiteStore) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, brand, colorway, category, tags, image, description, created_at, updated_at
		FROM products ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
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

// PutProduct replaces the product row and its listing set in one
// transaction. Each identity group writes exactly one product, so a
// batch can be interrupted between products without corruption.
func (s *SQLiteStore) PutProduct(ctx context.Context, p *models.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tagsJSON, _ := json.Marshal(p.Tags)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (id, name, brand, colorway, category, tags, image, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			brand = excluded.brand,
			colorway = excluded.colorway,
			category = excluded.category,
			tags = excluded.tags,
			image = excluded.image,
			description = excluded.description,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Brand, p.Colorway, p.Category, string(tagsJSON), p.Image, p.Description,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM listings WHERE product_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clear listings: %w", err)
	}

	for i := range p.Listings {
		l := &p.Listings[i]
		sizesJSON, _ := json.Marshal(l.Sizes)
		priceHistJSON, _ := json.Marshal(l.PriceHistory)
		sizesHistJSON, _ := json.Marshal(l.SizesHistory)
		retailAmt, retailCur := priceParts(l.RetailPrice)
		saleAmt, saleCur := priceParts(l.SalePrice)

		_, err := tx.ExecContext(ctx, `
			INSERT INTO listings (product_id, store, url, retail_amount, retail_currency,
				sale_amount, sale_currency, discount_percent, sizes, available, status,
				failure_count, price_history, sizes_history, last_scraped)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, l.Store, l.URL, retailAmt, retailCur, saleAmt, saleCur, l.DiscountPercent,
			string(sizesJSON), l.Available, l.Status, l.FailureCount,
			string(priceHistJSON), string(sizesHistJSON), l.LastScraped)
		if err != nil {
			return fmt.Errorf("insert listing %s/%s: %w", l.Store, l.URL, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetStaleListings(ctx context.Context, olderThan time.Duration, limit int) ([]ListingRef, error) {
	cutoff := time.Now().Add(-olderThan)
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, store, url, retail_amount, retail_currency, sale_amount, sale_currency,
			discount_percent, sizes, available, status, failure_count, price_history, sizes_history, last_scraped
		FROM listings
		WHERE status != 'ended' AND last_scraped < ?
		ORDER BY last_scraped ASC
		LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []ListingRef
	for rows.Next() {
		var ref ListingRef
		if err := scanListing(rows, &ref); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (s *SQLiteStore) listingsFor(ctx context.Context, productID string) ([]models.Listing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, store, url, retail_amount, retail_currency, sale_amount, sale_currency,
			discount_percent, sizes, available, status, failure_count, price_history, sizes_history, last_scraped
		FROM listings WHERE product_id = ? ORDER BY store, url`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var ref ListingRef
		if err := scanListing(rows, &ref); err != nil {
			return nil, err
		}
		listings = append(listings, ref.Listing)
	}
	return listings, rows.Err()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.IngestRun) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_runs (kind, started_at, status)
		VALUES (?, ?, ?)`,
		run.Kind, run.StartedAt, run.Status)
	if err != nil {
		return err
	}
	run.ID, err = result.LastInsertId()
	return err
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *models.IngestRun) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE ingest_runs SET finished_at = ?, status = ?, records_seen = ?, products_new = ?,
			listings_new = ?, price_changes = ?, sold_out = ?, ended = ?, errors_count = ?, error_message = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.RecordsSeen, run.ProductsNew, run.ListingsNew,
		run.PriceChanges, run.SoldOut, run.Ended, run.ErrorsCount, run.ErrorMessage, run.ID)
	return err
}

func (s *SQLiteStore) Log(ctx context.Context, runID *int64, level models.LogLevel, message, store string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_logs (run_id, timestamp, level, message, store)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, store)
	return err
}

func (s *SQLiteStore) EnqueueImage(ctx context.Context, productID, originalURL string) (uuid.UUID, error) {
	var existing string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM images WHERE original_url = ?`, originalURL).Scan(&existing)
	if err == nil {
		return uuid.Parse(existing)
	}
	if err != sql.ErrNoRows {
		return uuid.Nil, err
	}

	id := uuid.New()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO images (id, product_id, original_url, status, attempts, created_at)
		VALUES (?, ?, ?, ?, 0, ?)`,
		id.String(), productID, originalURL, models.ImageStatusPending, time.Now())
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (s *SQLiteStore) GetPendingImages(ctx context.Context, limit int) ([]models.ImageEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, original_url, COALESCE(local_path, ''), status, attempts, created_at
		FROM images WHERE status = 'pending' ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ImageEntry
	for rows.Next() {
		var e models.ImageEntry
		var id string
		if err := rows.Scan(&id, &e.ProductID, &e.OriginalURL, &e.LocalPath, &e.Status, &e.Attempts, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) UpdateImageStatus(ctx context.Context, id uuid.UUID, status, localPath string, attempts int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE images SET status = ?, local_path = ?, attempts = ? WHERE id = ?`,
		status, localPath, attempts, id.String())
	return err
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row scanner) (*models.Product, error) {
	var p models.Product
	var tagsJSON sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Colorway, &p.Category, &tagsJSON,
		&p.Image, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &p.Tags)
	}
	return &p, nil
}

func scanListing(row scanner, ref *ListingRef) error {
	l := &ref.Listing
	var sizesJSON, priceHistJSON, sizesHistJSON sql.NullString
	var retailAmt, saleAmt sql.NullFloat64
	var retailCur, saleCur sql.NullString

	err := row.Scan(&ref.ProductID, &l.Store, &l.URL, &retailAmt, &retailCur, &saleAmt, &saleCur,
		&l.DiscountPercent, &sizesJSON, &l.Available, &l.Status, &l.FailureCount,
		&priceHistJSON, &sizesHistJSON, &l.LastScraped)
	if err != nil {
		return err
	}

	l.RetailPrice = priceFromParts(retailAmt, retailCur)
	l.SalePrice = priceFromParts(saleAmt, saleCur)
	if sizesJSON.Valid {
		json.Unmarshal([]byte(sizesJSON.String), &l.Sizes)
	}
	if priceHistJSON.Valid {
		json.Unmarshal([]byte(priceHistJSON.String), &l.PriceHistory)
	}
	if sizesHistJSON.Valid {
		json.Unmarshal([]byte(sizesHistJSON.String), &l.SizesHistory)
	}
	return nil
}

func priceParts(p *models.Price) (interface{}, interface{}) {
	if p == nil {
		return nil, nil
	}
	return p.Amount, p.Currency
}

func priceFromParts(amt sql.NullFloat64, cur sql.NullString) *models.Price {
	if !amt.Valid || amt.Float64 <= 0 {
		return nil
	}
	return &models.Price{Amount: amt.Float64, Currency: cur.String}
}
