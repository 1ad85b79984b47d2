package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BatchReport aggregates per-item outcomes for a batch. Failures never
// abort the batch; they end up here instead.
type BatchReport struct {
	RecordsSeen    int
	ProductsNew    int
	ProductsMerged int
	ListingsNew    int
	PriceChanges   int
	SoldOut        int
	Ended          []string // listing URLs that went terminal this batch
	ParseFailures  []string // "<url>: <what failed>"
	FetchFailures  []string
	Errors         int
}

// AddParseFailure records a degraded parse (price or size) for the summary.
func (r *BatchReport) AddParseFailure(url, what string) {
	r.ParseFailures = append(r.ParseFailures, fmt.Sprintf("%s: %s", url, what))
}

// Summary renders the human-readable end-of-batch report, listing dead
// listings and parse failures separately from successful updates.
func (r *BatchReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "processed %d records: %d new products, %d merged, %d new listings, %d price changes, %d sold out",
		r.RecordsSeen, r.ProductsNew, r.ProductsMerged, r.ListingsNew, r.PriceChanges, r.SoldOut)
	if len(r.Ended) > 0 {
		fmt.Fprintf(&b, "\nended listings (%d):", len(r.Ended))
		for _, u := range r.Ended {
			fmt.Fprintf(&b, "\n  - %s", u)
		}
	}
	if len(r.ParseFailures) > 0 {
		fmt.Fprintf(&b, "\nparse failures (%d):", len(r.ParseFailures))
		for _, f := range r.ParseFailures {
			fmt.Fprintf(&b, "\n  - %s", f)
		}
	}
	if len(r.FetchFailures) > 0 {
		fmt.Fprintf(&b, "\nfetch failures (%d):", len(r.FetchFailures))
		for _, f := range r.FetchFailures {
			fmt.Fprintf(&b, "\n  - %s", f)
		}
	}
	return b.String()
}

// ToJSON returns JSON-serializable run metadata.
func (r *BatchReport) ToJSON() json.RawMessage {
	data, _ := json.Marshal(map[string]int{
		"records_seen":    r.RecordsSeen,
		"products_new":    r.ProductsNew,
		"products_merged": r.ProductsMerged,
		"listings_new":    r.ListingsNew,
		"price_changes":   r.PriceChanges,
		"sold_out":        r.SoldOut,
		"ended":           len(r.Ended),
		"parse_failures":  len(r.ParseFailures),
		"fetch_failures":  len(r.FetchFailures),
		"errors":          r.Errors,
	})
	return data
}
