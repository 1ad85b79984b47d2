package services

import (
	"net/url"
	"strings"
	"time"

	"solestash/config"
	"solestash/identity"
	"solestash/models"
	"solestash/normalize"
	"solestash/stores"
)

// Placeholder colorways stores ship when they have nothing real.
var placeholderColorways = map[string]bool{
	"": true, "tbd": true, "n/a": true, "na": true, "-": true,
	"multi": true, "one color": true, "assorted": true,
}

const descriptionMax = 300

// MergeService turns a group of raw records sharing one identity into a
// single canonical product with one listing per store offer.
type MergeService struct {
	cfg      *config.Config
	registry *stores.Registry
}

func NewMergeService(cfg *config.Config, registry *stores.Registry) *MergeService {
	return &MergeService{cfg: cfg, registry: registry}
}

// Score rates a record's metadata completeness. Comparative bonuses
// (longest name, richest tags) are added by Merge, not here.
func Score(rec *models.RawRecord) int {
	score := 0
	if len(strings.TrimSpace(rec.Description)) > 20 {
		score += 3
	}
	if len(rec.Description) > 100 {
		score += 2
	}
	if !placeholderColorways[strings.ToLower(strings.TrimSpace(rec.Colorway))] {
		score += 3
	}
	if rec.Image != "" {
		score += 2
	}
	return score
}

// Merge builds the canonical product for one identity group. The group
// is never empty: every record resolves to at least a slug key. The
// productID is derived once by the caller and never recomputed.
func (s *MergeService) Merge(productID string, group []*models.RawRecord, now time.Time, report *models.BatchReport) *models.Product {
	base := s.selectBase(group)

	name := ""
	colorway := ""
	image := ""
	var texts []string
	var allTags []string
	for _, rec := range group {
		clean := s.adapterFor(rec).CleanName(rec.Name)
		// Longer names retain more descriptive detail.
		if len(clean) > len(name) {
			name = clean
		}
		if colorway == "" && !placeholderColorways[strings.ToLower(strings.TrimSpace(rec.Colorway))] {
			colorway = strings.TrimSpace(rec.Colorway)
		}
		if image == "" && rec.Image != "" {
			image = rec.Image
		}
		texts = append(texts, rec.Name, rec.Description)
		texts = append(texts, rec.Tags...)
		allTags = append(allTags, rec.Tags...)
	}

	// Category comes from the whole group so a store with a bare name
	// cannot misclassify the product.
	category := normalize.DetectCategory(texts...)

	brand := strings.TrimSpace(base.Brand)
	if brand == "" {
		brand = normalize.DetectBrand(name)
	}

	product := &models.Product{
		ID:          productID,
		Name:        name,
		Brand:       brand,
		Colorway:    colorway,
		Category:    category,
		Tags:        normalize.CleanTags(allTags, category),
		Image:       image,
		Description: normalize.TruncateDescription(base.Description, descriptionMax),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	seen := map[string]bool{}
	for _, rec := range group {
		listing := s.BuildListing(rec, now, report)
		dedupeKey := listing.Store + "|" + identity.NormalizeURL(listing.URL)
		if seen[dedupeKey] {
			continue
		}
		seen[dedupeKey] = true
		product.Listings = append(product.Listings, *listing)
	}

	return product
}

// selectBase picks the record with the richest metadata, ties resolved
// by encounter order.
func (s *MergeService) selectBase(group []*models.RawRecord) *models.RawRecord {
	maxName, maxTags := 0, 0
	for _, rec := range group {
		if len(rec.Name) > maxName {
			maxName = len(rec.Name)
		}
		if len(rec.Tags) > maxTags {
			maxTags = len(rec.Tags)
		}
	}

	best := group[0]
	bestScore := -1
	for _, rec := range group {
		score := Score(rec)
		if len(rec.Name) == maxName && maxName > 0 {
			score++
		}
		if len(rec.Tags) == maxTags && maxTags > 0 {
			score++
		}
		if score > bestScore {
			best = rec
			bestScore = score
		}
	}
	return best
}

// BuildListing normalizes one record into its store listing: prices
// parsed and swap-corrected, sizes converted to canonical EU form.
func (s *MergeService) BuildListing(rec *models.RawRecord, now time.Time, report *models.BatchReport) *models.Listing {
	retail := normalize.ParsePrice(rec.RetailPrice)
	sale := normalize.ParsePrice(rec.SalePrice)
	if sale == nil && rec.SalePrice != "" && report != nil {
		report.AddParseFailure(rec.URL, "sale price "+rec.SalePrice)
	}
	if retail == nil && rec.RetailPrice != "" && report != nil {
		report.AddParseFailure(rec.URL, "retail price "+rec.RetailPrice)
	}

	retail, sale, swapped := normalize.CorrectPriceSwap(retail, sale)
	discount := 0
	if !swapped && retail != nil && sale != nil {
		discount = normalize.Discount(retail.Amount, sale.Amount)
	}

	listing := &models.Listing{
		Store:           s.storeIDFor(rec),
		URL:             rec.URL,
		RetailPrice:     retail,
		SalePrice:       sale,
		DiscountPercent: discount,
		Sizes:           s.NormalizeSizes(rec),
		Status:          models.ListingStatusActive,
		LastScraped:     now,
	}
	listing.Available = len(listing.Sizes) > 0

	saleAmt, retailAmt := 0.0, 0.0
	if sale != nil {
		saleAmt = sale.Amount
	}
	if retail != nil {
		retailAmt = retail.Amount
	}
	date := now.Format("2006-01-02")
	if saleAmt > 0 || retailAmt > 0 {
		listing.PriceHistory = []models.PriceEntry{{Date: date, Sale: saleAmt, Retail: retailAmt}}
	}
	listing.SizesHistory = []models.SizesEntry{{Date: date, Available: len(listing.Sizes), Total: len(rec.Sizes)}}

	return listing
}

// NormalizeSizes converts the raw tokens into an ordered, deduplicated
// canonical size set.
func (s *MergeService) NormalizeSizes(rec *models.RawRecord) []string {
	ctx := normalize.SizeContextFor(rec.Name, rec.Tags, s.storeIDFor(rec), s.sizingFor(rec))
	seen := map[string]bool{}
	var out []string
	for _, token := range rec.Sizes {
		res := normalize.Size(token, ctx)
		if res.Display == "" || seen[res.Display] {
			continue
		}
		seen[res.Display] = true
		out = append(out, res.Display)
	}
	return out
}

func (s *MergeService) adapterFor(rec *models.RawRecord) stores.Adapter {
	return s.registry.Resolve(domainOf(rec.URL))
}

func (s *MergeService) storeIDFor(rec *models.RawRecord) string {
	if rec.Store != "" {
		return rec.Store
	}
	if sc := s.cfg.StoreFor(domainOf(rec.URL)); sc != nil {
		return sc.ID
	}
	return s.adapterFor(rec).Name()
}

// sizingFor prefers the store config, falling back to the adapter.
func (s *MergeService) sizingFor(rec *models.RawRecord) string {
	if sc, ok := s.cfg.Stores[rec.Store]; ok && sc.Sizing != "" {
		return sc.Sizing
	}
	if sc := s.cfg.StoreFor(domainOf(rec.URL)); sc != nil && sc.Sizing != "" {
		return sc.Sizing
	}
	return s.adapterFor(rec).Sizing()
}

func domainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
