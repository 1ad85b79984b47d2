package services

import (
	"time"

	"solestash/models"
	"solestash/normalize"
)

// Transition is the outcome of applying one check to a listing.
type Transition struct {
	From         string
	To           string
	PriceChanged bool
	SoldOut      bool
	Ended        bool
}

// LifecycleService drives the per-listing state machine across repeated
// checks. Each Apply/ApplyFailure mutates exactly one listing; callers
// own the per-identity isolation.
type LifecycleService struct {
	merge *MergeService
}

func NewLifecycleService(merge *MergeService) *LifecycleService {
	return &LifecycleService{merge: merge}
}

// Apply processes a successful check: the fetcher returned a record,
// possibly empty. Transition precedence: ended > sold_out >
// price_changed > active. A size count that moves without hitting zero
// is recorded in history but does not change status.
func (s *LifecycleService) Apply(listing *models.Listing, fresh *models.RawRecord, now time.Time) Transition {
	tr := Transition{From: listing.Status}
	listing.FailureCount = 0
	listing.LastScraped = now
	date := now.Format("2006-01-02")

	// 1. Nothing usable on the page: the listing ended.
	if fresh.Empty() {
		listing.Status = models.ListingStatusEnded
		listing.Available = false
		tr.To = listing.Status
		tr.Ended = true
		return tr
	}

	prevAvailable := 0
	if n := len(listing.Sizes); n > 0 {
		prevAvailable = n
	}
	prevSale := listing.SaleAmount()

	sizes := s.merge.NormalizeSizes(fresh)

	retail := normalize.ParsePrice(fresh.RetailPrice)
	sale := normalize.ParsePrice(fresh.SalePrice)
	// Swap correction runs before any history is recorded.
	retail, sale, swapped := normalize.CorrectPriceSwap(retail, sale)

	listing.Sizes = sizes
	listing.Available = len(sizes) > 0
	if retail != nil {
		listing.RetailPrice = retail
	}
	if sale != nil {
		listing.SalePrice = sale
	}
	if swapped {
		listing.DiscountPercent = 0
	} else if listing.RetailPrice != nil && listing.SalePrice != nil {
		listing.DiscountPercent = normalize.Discount(listing.RetailPrice.Amount, listing.SalePrice.Amount)
	}

	// 2-4. Status precedence.
	switch {
	case len(sizes) == 0 && prevAvailable > 0:
		listing.Status = models.ListingStatusSoldOut
		tr.SoldOut = true
	case sale != nil && prevSale > 0 && sale.Amount != prevSale:
		listing.Status = models.ListingStatusPriceChanged
		tr.PriceChanged = true
	default:
		listing.Status = models.ListingStatusActive
	}
	tr.To = listing.Status

	appendPriceHistory(listing, date)
	appendSizesHistory(listing, date, len(sizes), len(fresh.Sizes))

	return tr
}

// ApplyFailure processes a scrape-level failure (network, timeout,
// blocked). The listing only goes terminal after FailureThreshold
// consecutive failures; a lone timeout is not a delisting.
func (s *LifecycleService) ApplyFailure(listing *models.Listing, now time.Time) Transition {
	tr := Transition{From: listing.Status}
	listing.FailureCount++
	listing.LastScraped = now

	if listing.FailureCount >= models.FailureThreshold {
		listing.Status = models.ListingStatusEnded
		listing.Available = false
		tr.Ended = true
	} else {
		listing.Status = models.ListingStatusError
	}
	tr.To = listing.Status
	return tr
}

// appendPriceHistory appends unless the last entry already has the same
// date and the same prices, then truncates to the cap.
func appendPriceHistory(l *models.Listing, date string) {
	sale, retail := 0.0, 0.0
	if l.SalePrice != nil {
		sale = l.SalePrice.Amount
	}
	if l.RetailPrice != nil {
		retail = l.RetailPrice.Amount
	}
	if sale == 0 && retail == 0 {
		return
	}
	if n := len(l.PriceHistory); n > 0 {
		last := l.PriceHistory[n-1]
		if last.Date == date && last.Sale == sale && last.Retail == retail {
			return
		}
	}
	l.PriceHistory = append(l.PriceHistory, models.PriceEntry{Date: date, Sale: sale, Retail: retail})
	if len(l.PriceHistory) > models.HistoryCap {
		l.PriceHistory = l.PriceHistory[len(l.PriceHistory)-models.HistoryCap:]
	}
}

// appendSizesHistory mirrors the price policy, keyed on (date,
// available count).
func appendSizesHistory(l *models.Listing, date string, available, total int) {
	if n := len(l.SizesHistory); n > 0 {
		last := l.SizesHistory[n-1]
		if last.Date == date && last.Available == available {
			return
		}
	}
	l.SizesHistory = append(l.SizesHistory, models.SizesEntry{Date: date, Available: available, Total: total})
	if len(l.SizesHistory) > models.HistoryCap {
		l.SizesHistory = l.SizesHistory[len(l.SizesHistory)-models.HistoryCap:]
	}
}
