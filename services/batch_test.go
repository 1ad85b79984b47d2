package services

import (
	"context"
	"path/filepath"
	"testing"

	"solestash/models"
)

func TestLoadBatch(t *testing.T) {
	records, err := LoadBatch(filepath.Join("testdata", "batch_mixed.json"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	if records[0].StyleCode != "DD1391-100" {
		t.Errorf("first record style code = %q", records[0].StyleCode)
	}
	if len(records[0].Sizes) != 5 {
		t.Errorf("first record sizes = %v", records[0].Sizes)
	}
}

func TestLoadBatch_MissingFile(t *testing.T) {
	if _, err := LoadBatch(filepath.Join("testdata", "nope.json")); err == nil {
		t.Fatal("expected an error for a missing batch file")
	}
}

func TestIngestBatch_MixedFixture(t *testing.T) {
	records, err := LoadBatch(filepath.Join("testdata", "batch_mixed.json"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	store := newMemStore()
	svc := newTestIngest(store)
	ctx := context.Background()

	report, err := svc.IngestBatch(ctx, records)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	// Two dunk records share a style code; the jacket stands alone; the
	// empty record is dropped.
	if report.ProductsNew != 2 {
		t.Fatalf("products new = %d, want 2", report.ProductsNew)
	}
	if report.ListingsNew != 3 {
		t.Fatalf("listings new = %d, want 3", report.ListingsNew)
	}

	dunk, _ := store.GetProduct(ctx, "DD1391-100")
	if dunk == nil {
		t.Fatal("dunk not stored under its style code")
	}
	if len(dunk.Listings) != 2 {
		t.Fatalf("dunk listings = %d, want one per store", len(dunk.Listings))
	}
	if dunk.Colorway != "White/Black" {
		t.Errorf("dunk colorway = %q", dunk.Colorway)
	}
	if dunk.Category != models.CategorySneakers {
		t.Errorf("dunk category = %q", dunk.Category)
	}

	for i := range dunk.Listings {
		l := &dunk.Listings[i]
		if l.Store == "snipes" {
			if l.DiscountPercent != 17 {
				t.Errorf("snipes discount = %d, want 17", l.DiscountPercent)
			}
			if len(l.Sizes) != 5 || l.Sizes[0] != "EU 40" {
				t.Errorf("snipes sizes = %v, want EU forms", l.Sizes)
			}
		}
	}

	var jacket *models.Product
	for _, p := range store.products {
		if p.Category == models.CategoryClothing {
			jacket = p
		}
	}
	if jacket == nil {
		t.Fatal("jacket not classified as clothing")
	}
	if len(jacket.Listings) != 1 {
		t.Fatalf("jacket listings = %d", len(jacket.Listings))
	}
	for _, size := range jacket.Listings[0].Sizes {
		if size == "" {
			t.Error("letter sizes must pass through")
		}
	}
}
