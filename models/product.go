package models

import "time"

// Product categories
const (
	CategorySneakers    = "Sneakers"
	CategoryClothing    = "Clothing"
	CategoryAccessories = "Accessories"
)

// Listing status
const (
	ListingStatusActive       = "active"
	ListingStatusPriceChanged = "price_changed"
	ListingStatusSoldOut      = "sold_out"
	ListingStatusEnded        = "ended"
	ListingStatusError        = "error"
)

// HistoryCap bounds both price and sizes histories per listing.
const HistoryCap = 30

// FailureThreshold is the number of consecutive fetch failures after
// which a listing is considered ended.
const FailureThreshold = 3

// Price is a parsed amount with its ISO currency code.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// PriceEntry is one point of a listing's price history.
type PriceEntry struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Sale   float64 `json:"sale"`
	Retail float64 `json:"retail"`
}

// SizesEntry is one point of a listing's availability history.
type SizesEntry struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Available int    `json:"available"`
	Total     int    `json:"total"`
}

// Listing is one store's offer of a product. A product owns its listings;
// the (Store, URL) pair is unique within a product.
type Listing struct {
	Store           string       `json:"store" db:"store"`
	URL             string       `json:"url" db:"url"`
	RetailPrice     *Price       `json:"retail_price" db:"retail_price"`
	SalePrice       *Price       `json:"sale_price" db:"sale_price"`
	DiscountPercent int          `json:"discount_percent" db:"discount_percent"`
	Sizes           []string     `json:"sizes" db:"sizes"`
	Available       bool         `json:"available" db:"available"`
	Status          string       `json:"status" db:"status"`
	FailureCount    int          `json:"failure_count" db:"failure_count"`
	PriceHistory    []PriceEntry `json:"price_history" db:"price_history"`
	SizesHistory    []SizesEntry `json:"sizes_history" db:"sizes_history"`
	LastScraped     time.Time    `json:"last_scraped" db:"last_scraped"`
}

// SaleAmount returns the current sale amount, or 0 if unknown.
func (l *Listing) SaleAmount() float64 {
	if l.SalePrice == nil {
		return 0
	}
	return l.SalePrice.Amount
}

// Product is the canonical merged entity for one physical item across
// stores. ID is derived once by the identity resolver and never
// recomputed after creation.
type Product struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Brand       string    `json:"brand" db:"brand"`
	Colorway    string    `json:"colorway" db:"colorway"`
	Category    string    `json:"category" db:"category"`
	Tags        []string  `json:"tags" db:"tags"`
	Image       string    `json:"image" db:"image"`
	Description string    `json:"description" db:"description"`
	Listings    []Listing `json:"listings" db:"listings"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// FindListing returns the listing for a (store, url) pair, or nil.
func (p *Product) FindListing(store, url string) *Listing {
	for i := range p.Listings {
		if p.Listings[i].Store == store && p.Listings[i].URL == url {
			return &p.Listings[i]
		}
	}
	return nil
}

// BestSalePrice returns the lowest current sale amount across listings
// that still have one, or nil when no listing carries a price.
func (p *Product) BestSalePrice() *Price {
	var best *Price
	for i := range p.Listings {
		sp := p.Listings[i].SalePrice
		if sp == nil || sp.Amount <= 0 {
			continue
		}
		if best == nil || sp.Amount < best.Amount {
			best = sp
		}
	}
	return best
}
