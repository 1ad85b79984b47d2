package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"solestash/models"
)

func TestRebuildIndex(t *testing.T) {
	store := newMemStore()
	now := time.Now()
	store.PutProduct(context.Background(), &models.Product{
		ID: "DD1391-100", Name: "Nike Dunk Low", Brand: "Nike",
		Category: models.CategorySneakers,
		Listings: []models.Listing{
			{Store: "snipes", URL: "https://www.snipes.com/p/dunk.html",
				SalePrice: &models.Price{Amount: 99.95, Currency: "EUR"}},
			{Store: "mrporter", URL: "https://www.mrporter.com/p/dunk",
				SalePrice: &models.Price{Amount: 95, Currency: "GBP"}},
		},
		CreatedAt: now, UpdatedAt: now,
	})

	dir := t.TempDir()
	svc := NewCatalogService(store, dir)

	index, err := svc.RebuildIndex(context.Background())
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if index.Count != 1 {
		t.Fatalf("count = %d, want 1", index.Count)
	}

	entry := index.Entries[0]
	if entry.StoreCount != 2 {
		t.Errorf("store count = %d, want 2", entry.StoreCount)
	}
	if entry.BestPrice == nil || entry.BestPrice.Amount != 95 {
		t.Errorf("best price = %+v, want lowest sale 95", entry.BestPrice)
	}

	data, err := os.ReadFile(filepath.Join(dir, "index.json"))
	if err != nil {
		t.Fatalf("index.json not written: %v", err)
	}
	var onDisk models.CatalogIndex
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("index.json invalid: %v", err)
	}
	if onDisk.Count != 1 {
		t.Fatalf("on-disk count = %d", onDisk.Count)
	}

	if _, err := os.Stat(filepath.Join(dir, "products", "DD1391-100.json")); err != nil {
		t.Fatalf("per-product document missing: %v", err)
	}
}

func TestRebuildIndex_Idempotent(t *testing.T) {
	store := newMemStore()
	store.PutProduct(context.Background(), &models.Product{ID: "dunk-low", Name: "Dunk Low"})

	dir := t.TempDir()
	svc := NewCatalogService(store, dir)

	if _, err := svc.RebuildIndex(context.Background()); err != nil {
		t.Fatalf("first rebuild: %v", err)
	}
	index, err := svc.RebuildIndex(context.Background())
	if err != nil {
		t.Fatalf("second rebuild: %v", err)
	}
	if index.Count != 1 {
		t.Fatalf("count = %d after rebuild, want 1", index.Count)
	}
}
