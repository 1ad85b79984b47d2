package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"solestash/models"
	"solestash/storage"
	"solestash/stores"
)

// memStore is an in-memory storage.Store for pipeline tests.
type memStore struct {
	products map[string]*models.Product
	runs     []*models.IngestRun
	images   map[string]models.ImageEntry
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]*models.Product{},
		images:   map[string]models.ImageEntry{},
	}
}

func (m *memStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.Listings = append([]models.Listing(nil), p.Listings...)
	return &cp, nil
}

func (m *memStore) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memStore) PutProduct(ctx context.Context, p *models.Product) error {
	cp := *p
	cp.Listings = append([]models.Listing(nil), p.Listings...)
	m.products[p.ID] = &cp
	return nil
}

func (m *memStore) GetStaleListings(ctx context.Context, olderThan time.Duration, limit int) ([]storage.ListingRef, error) {
	cutoff := time.Now().Add(-olderThan)
	var refs []storage.ListingRef
	for _, p := range m.products {
		for _, l := range p.Listings {
			if l.Status != models.ListingStatusEnded && l.LastScraped.Before(cutoff) {
				refs = append(refs, storage.ListingRef{ProductID: p.ID, Listing: l})
			}
		}
	}
	if len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

func (m *memStore) CreateRun(ctx context.Context, run *models.IngestRun) error {
	run.ID = int64(len(m.runs) + 1)
	m.runs = append(m.runs, run)
	return nil
}

func (m *memStore) UpdateRun(ctx context.Context, run *models.IngestRun) error { return nil }

func (m *memStore) Log(ctx context.Context, runID *int64, level models.LogLevel, message, store string) error {
	return nil
}

func (m *memStore) EnqueueImage(ctx context.Context, productID, originalURL string) (uuid.UUID, error) {
	if e, ok := m.images[originalURL]; ok {
		return e.ID, nil
	}
	e := models.ImageEntry{
		ID: uuid.New(), ProductID: productID, OriginalURL: originalURL,
		Status: models.ImageStatusPending, CreatedAt: time.Now(),
	}
	m.images[originalURL] = e
	return e.ID, nil
}

func (m *memStore) GetPendingImages(ctx context.Context, limit int) ([]models.ImageEntry, error) {
	var out []models.ImageEntry
	for _, e := range m.images {
		if e.Status == models.ImageStatusPending {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) UpdateImageStatus(ctx context.Context, id uuid.UUID, status, localPath string, attempts int) error {
	for url, e := range m.images {
		if e.ID == id {
			e.Status = status
			e.LocalPath = localPath
			e.Attempts = attempts
			m.images[url] = e
		}
	}
	return nil
}

func (m *memStore) Close() error { return nil }

func newTestIngest(store storage.Store) *IngestService {
	registry := stores.NewRegistry()
	merge := NewMergeService(testConfig(), registry)
	lifecycle := NewLifecycleService(merge)
	return NewIngestService(store, merge, lifecycle, registry)
}

func TestIngestBatch_NewProduct(t *testing.T) {
	store := newMemStore()
	svc := newTestIngest(store)
	ctx := context.Background()

	records := []models.RawRecord{
		{
			Name: "Nike Dunk Low", StyleCode: "DD1391-100",
			SalePrice: "€99,95", RetailPrice: "€119,95",
			Sizes: []string{"42", "43"},
			Image: "https://cdn.snipes.com/dunk.jpg",
			URL:   "https://www.snipes.com/p/00013801688962.html",
			Store: "snipes",
		},
	}

	report, err := svc.IngestBatch(ctx, records)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if report.ProductsNew != 1 || report.ListingsNew != 1 {
		t.Fatalf("report = %+v, want 1 new product with 1 listing", report)
	}

	p, _ := store.GetProduct(ctx, "DD1391-100")
	if p == nil {
		t.Fatal("product not persisted under its style code")
	}
	if p.Listings[0].DiscountPercent != 17 {
		t.Errorf("discount = %d, want 17", p.Listings[0].DiscountPercent)
	}
	if len(store.images) != 1 {
		t.Errorf("images queued = %d, want 1", len(store.images))
	}
}

func TestIngestBatch_CrossStoreGrouping(t *testing.T) {
	store := newMemStore()
	svc := newTestIngest(store)
	ctx := context.Background()

	records := []models.RawRecord{
		{
			Name: "Dunk Low Panda", StyleCode: "DD1391-100",
			SalePrice: "€99,95", Sizes: []string{"42"},
			URL: "https://www.snipes.com/p/dunk.html", Store: "snipes",
		},
		{
			Name: "Nike Dunk Low Retro White Black", StyleCode: "dd1391-100",
			SalePrice: "£95.00", Sizes: []string{"9"},
			URL: "https://www.mrporter.com/product/dunk/123", Store: "mrporter",
		},
	}

	report, err := svc.IngestBatch(ctx, records)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if report.ProductsNew != 1 {
		t.Fatalf("products new = %d, want style-code records grouped into 1", report.ProductsNew)
	}

	p, _ := store.GetProduct(ctx, "DD1391-100")
	if p == nil || len(p.Listings) != 2 {
		t.Fatal("want one product carrying both store listings")
	}
}

func TestIngestBatch_ReingestUpdatesExisting(t *testing.T) {
	store := newMemStore()
	svc := newTestIngest(store)
	ctx := context.Background()

	rec := models.RawRecord{
		Name: "Nike Dunk Low", StyleCode: "DD1391-100",
		SalePrice: "€99,95", Sizes: []string{"42"},
		URL: "https://www.snipes.com/p/dunk.html", Store: "snipes",
	}
	if _, err := svc.IngestBatch(ctx, []models.RawRecord{rec}); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	first, _ := store.GetProduct(ctx, "DD1391-100")
	created := first.CreatedAt

	// Same page again, lower price.
	rec.SalePrice = "€89,95"
	report, err := svc.IngestBatch(ctx, []models.RawRecord{rec})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if report.ProductsNew != 0 || report.ProductsMerged != 1 {
		t.Fatalf("report = %+v, want merge into existing", report)
	}
	if report.PriceChanges != 1 {
		t.Fatalf("price changes = %d, want 1", report.PriceChanges)
	}

	p, _ := store.GetProduct(ctx, "DD1391-100")
	if len(p.Listings) != 1 {
		t.Fatalf("listings = %d, want the same listing updated", len(p.Listings))
	}
	if p.Listings[0].SalePrice.Amount != 89.95 {
		t.Errorf("sale = %.2f, want 89.95", p.Listings[0].SalePrice.Amount)
	}
	if p.Listings[0].Status != models.ListingStatusPriceChanged {
		t.Errorf("status = %q, want price_changed", p.Listings[0].Status)
	}
	if !p.CreatedAt.Equal(created) {
		t.Error("CreatedAt must survive re-ingest")
	}
	if len(p.Listings[0].PriceHistory) != 2 {
		t.Errorf("price history = %d entries, want both prices", len(p.Listings[0].PriceHistory))
	}
}

func TestIngestBatch_URLIndexCatchesKeyDrift(t *testing.T) {
	store := newMemStore()
	svc := newTestIngest(store)
	ctx := context.Background()

	// First seen without a style code: slug-keyed.
	if _, err := svc.IngestBatch(ctx, []models.RawRecord{{
		Name: "Nike Dunk Low", SalePrice: "€99,95", Sizes: []string{"42"},
		URL: "https://www.snipes.com/p/dunk.html", Store: "snipes",
	}}); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	// Same page later gains a style code: must update the slug product,
	// not create a second one.
	report, err := svc.IngestBatch(ctx, []models.RawRecord{{
		Name: "Nike Dunk Low", StyleCode: "DD1391-100",
		SalePrice: "€99,95", Sizes: []string{"42"},
		URL: "https://www.snipes.com/p/dunk.html?utm=mail", Store: "snipes",
	}})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if report.ProductsNew != 0 || report.ProductsMerged != 1 {
		t.Fatalf("report = %+v, want existing product found via URL", report)
	}
	if len(store.products) != 1 {
		t.Fatalf("products stored = %d, want 1", len(store.products))
	}
}

func TestIngestBatch_EmptyRecordsDropped(t *testing.T) {
	store := newMemStore()
	svc := newTestIngest(store)

	report, err := svc.IngestBatch(context.Background(), []models.RawRecord{
		{URL: "https://www.snipes.com/p/gone.html", Store: "snipes"},
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if report.ProductsNew != 0 || len(store.products) != 0 {
		t.Fatal("empty records must not create products")
	}
}
