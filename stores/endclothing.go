package stores

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"solestash/models"
	"solestash/normalize"
)

// EndClothing profile. END. pages ship a JSON-LD product block, which
// the fallback extractor prefers over scattered DOM nodes.
type EndClothing struct{}

func NewEndClothing() *EndClothing { return &EndClothing{} }

func (e *EndClothing) Name() string       { return "endclothing" }
func (e *EndClothing) BaseDomain() string { return "endclothing.com" }
func (e *EndClothing) Sizing() string     { return "us" }
func (e *EndClothing) Currency() string   { return "GBP" }

func (e *EndClothing) CleanName(name string) string {
	return normalize.CleanName(name)
}

type endJSONLD struct {
	Name        string `json:"name"`
	Image       string `json:"image"`
	Description string `json:"description"`
	Brand       struct {
		Name string `json:"name"`
	} `json:"brand"`
	SKU    string `json:"sku"`
	Offers struct {
		Price         json.Number `json:"price"`
		PriceCurrency string      `json:"priceCurrency"`
	} `json:"offers"`
}

func (e *EndClothing) ExtractFallback(doc *goquery.Document, pageURL string) *models.RawRecord {
	var rec *models.RawRecord
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var ld endJSONLD
		if err := json.Unmarshal([]byte(s.Text()), &ld); err != nil || ld.Name == "" {
			return true
		}
		rec = &models.RawRecord{
			URL:         pageURL,
			Store:       e.Name(),
			Name:        ld.Name,
			Brand:       ld.Brand.Name,
			Image:       ld.Image,
			Description: ld.Description,
			StyleCode:   ld.SKU,
			Currency:    ld.Offers.PriceCurrency,
		}
		if ld.Offers.Price != "" {
			rec.SalePrice = glyphFor(ld.Offers.PriceCurrency) + ld.Offers.Price.String()
		}
		return false
	})
	return rec
}

func (e *EndClothing) PostProcess(rec *models.RawRecord) {
	rec.Name = e.CleanName(rec.Name)
	if rec.Brand == "" {
		rec.Brand = normalize.DetectBrand(rec.Name)
	}
	if rec.Currency == "" {
		rec.Currency = e.Currency()
	}
	category := normalize.DetectCategory(rec.Name, rec.Description, strings.Join(rec.Tags, " "))
	rec.Tags = normalize.CleanTags(rec.Tags, category)
}
