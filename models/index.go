package models

import "time"

// IndexEntry is the per-product summary served to the read-only frontend.
type IndexEntry struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Brand      string   `json:"brand"`
	Category   string   `json:"category"`
	Image      string   `json:"image"`
	BestPrice  *Price   `json:"best_price"`
	StoreCount int      `json:"store_count"`
	Tags       []string `json:"tags"`
}

// CatalogIndex is a derived projection over all products. It is rebuilt
// from the Product collection and never written back to it.
type CatalogIndex struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Count       int          `json:"count"`
	Entries     []IndexEntry `json:"entries"`
}
