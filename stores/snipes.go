package stores

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"solestash/models"
	"solestash/normalize"
)

// Snipes profile: EU storefront, bare numerals are already EU sizes.
// Names occasionally carry a trailing colorway in ALL CAPS that
// duplicates the colorway field.
type Snipes struct{}

func NewSnipes() *Snipes { return &Snipes{} }

func (s *Snipes) Name() string       { return "snipes" }
func (s *Snipes) BaseDomain() string { return "snipes.com" }
func (s *Snipes) Sizing() string     { return "eu" }
func (s *Snipes) Currency() string   { return "EUR" }

var snipesColorSuffixRe = regexp.MustCompile(`\s+[A-Z]{3,}(?:[ /][A-Z]{3,}){1,3}$`)

func (s *Snipes) CleanName(name string) string {
	name = normalize.CleanName(name)
	return strings.TrimSpace(snipesColorSuffixRe.ReplaceAllString(name, ""))
}

func (s *Snipes) ExtractFallback(doc *goquery.Document, pageURL string) *models.RawRecord {
	rec := &models.RawRecord{URL: pageURL, Store: s.Name()}
	rec.Name = strings.TrimSpace(doc.Find(".product-name h1").First().Text())
	rec.Brand = strings.TrimSpace(doc.Find(".product-brand").First().Text())
	rec.Image, _ = doc.Find(`meta[property="og:image"]`).Attr("content")
	doc.Find(".size-tile:not(.unavailable)").Each(func(_ int, sel *goquery.Selection) {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			rec.Sizes = append(rec.Sizes, t)
		}
	})
	if rec.Empty() {
		return nil
	}
	return rec
}

func (s *Snipes) PostProcess(rec *models.RawRecord) {
	rec.Name = s.CleanName(rec.Name)
	if rec.Brand == "" {
		rec.Brand = normalize.DetectBrand(rec.Name)
	}
	if rec.Currency == "" {
		rec.Currency = s.Currency()
	}
	category := normalize.DetectCategory(rec.Name, strings.Join(rec.Tags, " "))
	rec.Tags = normalize.CleanTags(rec.Tags, category)
}
