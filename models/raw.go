package models

import "encoding/json"

// RawRecord is what the extractor hands us for a single product page.
// Price fields are free text exactly as scraped ("€ 129,95"); sizes are
// the raw store tokens before normalization.
type RawRecord struct {
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Colorway    string          `json:"colorway"`
	StyleCode   string          `json:"style_code"`
	SalePrice   string          `json:"sale_price"`
	RetailPrice string          `json:"retail_price"`
	Currency    string          `json:"currency"`
	Sizes       []string        `json:"sizes"`
	URL         string          `json:"url"`
	Store       string          `json:"store"`
	Tags        []string        `json:"tags"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// Empty reports whether the extractor returned nothing usable. A record
// with neither a name nor any price text is treated as a content-signal
// failure, not a fetch failure.
func (r *RawRecord) Empty() bool {
	if r == nil {
		return true
	}
	return r.Name == "" && r.SalePrice == "" && r.RetailPrice == ""
}
