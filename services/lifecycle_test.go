package services

import (
	"fmt"
	"testing"
	"time"

	"solestash/models"
)

func newTestLifecycle() *LifecycleService {
	return NewLifecycleService(newTestMerge())
}

func activeListing() *models.Listing {
	return &models.Listing{
		Store:       "snipes",
		URL:         "https://www.snipes.com/p/dunk.html",
		RetailPrice: &models.Price{Amount: 120, Currency: "EUR"},
		SalePrice:   &models.Price{Amount: 100, Currency: "EUR"},
		Sizes:       []string{"EU 42", "EU 43"},
		Available:   true,
		Status:      models.ListingStatusActive,
	}
}

func freshRecord(sale string, sizes []string) *models.RawRecord {
	return &models.RawRecord{
		Name:      "Dunk Low",
		SalePrice: sale,
		Sizes:     sizes,
		Store:     "snipes",
		URL:       "https://www.snipes.com/p/dunk.html",
	}
}

func TestApply_SoldOut(t *testing.T) {
	svc := newTestLifecycle()
	listing := activeListing()

	tr := svc.Apply(listing, freshRecord("€100", nil), time.Now())
	if listing.Status != models.ListingStatusSoldOut {
		t.Fatalf("status = %q, want sold_out", listing.Status)
	}
	if listing.Available {
		t.Error("sold out listing must not be available")
	}
	if !tr.SoldOut {
		t.Error("transition must flag sold out")
	}
}

func TestApply_PriceChanged(t *testing.T) {
	svc := newTestLifecycle()
	listing := activeListing()

	tr := svc.Apply(listing, freshRecord("€90", []string{"42"}), time.Now())
	if listing.Status != models.ListingStatusPriceChanged {
		t.Fatalf("status = %q, want price_changed", listing.Status)
	}
	if !tr.PriceChanged {
		t.Error("transition must flag price change")
	}
	if listing.SalePrice.Amount != 90 {
		t.Errorf("sale = %.0f, want 90", listing.SalePrice.Amount)
	}
	if listing.DiscountPercent != 25 {
		t.Errorf("discount = %d, want 25 against retail 120", listing.DiscountPercent)
	}
}

func TestApply_SoldOutOutranksPriceChange(t *testing.T) {
	svc := newTestLifecycle()
	listing := activeListing()

	svc.Apply(listing, freshRecord("€90", nil), time.Now())
	if listing.Status != models.ListingStatusSoldOut {
		t.Fatalf("status = %q, sold_out must outrank price_changed", listing.Status)
	}
}

func TestApply_EmptyRecordEnds(t *testing.T) {
	svc := newTestLifecycle()
	listing := activeListing()

	tr := svc.Apply(listing, &models.RawRecord{URL: listing.URL}, time.Now())
	if listing.Status != models.ListingStatusEnded {
		t.Fatalf("status = %q, want ended", listing.Status)
	}
	if !tr.Ended {
		t.Error("transition must flag ended")
	}
}

func TestApply_ResetsFailureCount(t *testing.T) {
	svc := newTestLifecycle()
	listing := activeListing()
	listing.FailureCount = 2

	svc.Apply(listing, freshRecord("€100", []string{"42"}), time.Now())
	if listing.FailureCount != 0 {
		t.Fatalf("failure count = %d, want reset to 0", listing.FailureCount)
	}
	if listing.Status != models.ListingStatusActive {
		t.Fatalf("status = %q, want active", listing.Status)
	}
}

func TestApplyFailure_Hysteresis(t *testing.T) {
	svc := newTestLifecycle()
	listing := activeListing()
	now := time.Now()

	for i := 1; i < models.FailureThreshold; i++ {
		tr := svc.ApplyFailure(listing, now)
		if listing.Status != models.ListingStatusError {
			t.Fatalf("after %d failures status = %q, want error", i, listing.Status)
		}
		if tr.Ended {
			t.Fatalf("failure %d must not end the listing", i)
		}
	}

	tr := svc.ApplyFailure(listing, now)
	if listing.Status != models.ListingStatusEnded {
		t.Fatalf("status = %q, want ended at threshold", listing.Status)
	}
	if !tr.Ended || listing.Available {
		t.Error("threshold failure must end and unlist")
	}
}

func TestApply_HistoryCap(t *testing.T) {
	svc := newTestLifecycle()
	listing := activeListing()
	for i := 0; i < models.HistoryCap; i++ {
		listing.PriceHistory = append(listing.PriceHistory, models.PriceEntry{
			Date: fmt.Sprintf("2026-07-%02d", i+1), Sale: float64(100 + i), Retail: 120,
		})
	}

	svc.Apply(listing, freshRecord("€90", []string{"42"}), time.Now())
	if len(listing.PriceHistory) != models.HistoryCap {
		t.Fatalf("history len = %d, want capped at %d", len(listing.PriceHistory), models.HistoryCap)
	}
	if listing.PriceHistory[0].Date != "2026-07-02" {
		t.Errorf("oldest entry = %s, want the second original entry after truncation", listing.PriceHistory[0].Date)
	}
	last := listing.PriceHistory[len(listing.PriceHistory)-1]
	if last.Sale != 90 {
		t.Errorf("newest entry sale = %.0f, want 90", last.Sale)
	}
}

func TestApply_SameDaySameValueNotAppended(t *testing.T) {
	svc := newTestLifecycle()
	listing := activeListing()
	now := time.Now()

	svc.Apply(listing, freshRecord("€100", []string{"42"}), now)
	priceLen := len(listing.PriceHistory)
	sizesLen := len(listing.SizesHistory)

	svc.Apply(listing, freshRecord("€100", []string{"42"}), now)
	if len(listing.PriceHistory) != priceLen {
		t.Fatalf("price history grew on same-day same-value check: %d -> %d", priceLen, len(listing.PriceHistory))
	}
	if len(listing.SizesHistory) != sizesLen {
		t.Fatalf("sizes history grew on same-day same-count check: %d -> %d", sizesLen, len(listing.SizesHistory))
	}
}

func TestApply_SwapBeforeHistory(t *testing.T) {
	svc := newTestLifecycle()
	listing := activeListing()

	rec := freshRecord("€80", []string{"42"})
	rec.RetailPrice = "€50"
	svc.Apply(listing, rec, time.Now())

	if listing.RetailPrice.Amount != 80 || listing.SalePrice.Amount != 50 {
		t.Fatalf("retail %.0f sale %.0f, want swapped to 80/50", listing.RetailPrice.Amount, listing.SalePrice.Amount)
	}
	if listing.DiscountPercent != 0 {
		t.Fatalf("discount = %d, want 0 after swap", listing.DiscountPercent)
	}
	last := listing.PriceHistory[len(listing.PriceHistory)-1]
	if last.Sale != 50 || last.Retail != 80 {
		t.Fatalf("history recorded %+v, want corrected prices", last)
	}
}
