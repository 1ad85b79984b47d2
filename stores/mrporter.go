package stores

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"solestash/models"
	"solestash/normalize"
)

// MrPorter carries the quirks of mrporter.com listings: ALL-CAPS
// brands, brand-prefixed names, size suffixes baked into variant names
// and thumbnail-resolution image URLs.
type MrPorter struct{}

func NewMrPorter() *MrPorter { return &MrPorter{} }

func (m *MrPorter) Name() string       { return "mrporter" }
func (m *MrPorter) BaseDomain() string { return "mrporter.com" }
func (m *MrPorter) Sizing() string     { return "us" }
func (m *MrPorter) Currency() string   { return "GBP" }

var (
	mrpSizeSuffixRe = regexp.MustCompile(`(?i)\s*[-–]\s*(?:(?:UK|EU|US)\s*)?\d+(?:[.,]5)?\s*$`)
	mrpImageWidthRe = regexp.MustCompile(`(\?|&)w(id)?=\d+`)
	mrpImageSizeRe  = regexp.MustCompile(`_(?:mini|small|thumb|pp)(\.[a-z]+)$`)
)

// CleanName drops the redundant brand prefix and any trailing size
// fragment a variant name carries.
func (m *MrPorter) CleanName(name string) string {
	name = normalize.CleanName(name)
	name = mrpSizeSuffixRe.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

func (m *MrPorter) ExtractFallback(doc *goquery.Document, pageURL string) *models.RawRecord {
	rec := &models.RawRecord{URL: pageURL, Store: m.Name()}
	rec.Brand = strings.TrimSpace(doc.Find(`[itemprop="brand"]`).First().Text())
	rec.Name = strings.TrimSpace(doc.Find(`[itemprop="name"]`).First().Text())
	if rec.Name == "" {
		rec.Name, _ = doc.Find(`meta[property="og:title"]`).Attr("content")
	}
	rec.Image, _ = doc.Find(`meta[property="og:image"]`).Attr("content")
	rec.Description, _ = doc.Find(`#product-details .description`).First().Html()
	doc.Find(`[data-testid="size-selector"] li:not(.sold-out)`).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			rec.Sizes = append(rec.Sizes, t)
		}
	})
	if rec.Empty() {
		return nil
	}
	return rec
}

func (m *MrPorter) PostProcess(rec *models.RawRecord) {
	rec.Brand = normalize.TitleCase(strings.TrimSpace(rec.Brand))

	name := m.CleanName(rec.Name)
	if rec.Brand != "" {
		prefix := strings.ToLower(rec.Brand) + " "
		if strings.HasPrefix(strings.ToLower(name), prefix) {
			name = strings.TrimSpace(name[len(prefix):])
		}
	}
	rec.Name = name

	rec.Image = m.upgradeImage(rec.Image)
	// Trust the scraped currency before the store default.
	if rec.Currency == "" {
		rec.Currency = m.Currency()
	}
	category := normalize.DetectCategory(rec.Name, rec.Description, strings.Join(rec.Tags, " "))
	rec.Tags = normalize.CleanTags(rec.Tags, category)
}

// upgradeImage rewrites known CDN thumbnail variants to their highest
// resolution form.
func (m *MrPorter) upgradeImage(u string) string {
	if u == "" {
		return u
	}
	u = mrpImageWidthRe.ReplaceAllString(u, "${1}w=2000")
	u = mrpImageSizeRe.ReplaceAllString(u, "_xxl$1")
	return u
}
