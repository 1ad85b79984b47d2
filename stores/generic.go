package stores

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"solestash/models"
	"solestash/normalize"
)

// Generic is the profile for unmapped domains: detect brand, category
// and tags from the name text, no custom cleaning.
type Generic struct{}

func NewGeneric() *Generic { return &Generic{} }

func (g *Generic) Name() string       { return "generic" }
func (g *Generic) BaseDomain() string { return "" }
func (g *Generic) Sizing() string     { return "eu" }
func (g *Generic) Currency() string   { return "EUR" }

func (g *Generic) CleanName(name string) string {
	return normalize.CleanName(name)
}

// ExtractFallback reads OpenGraph metadata, which nearly every shop
// page carries.
func (g *Generic) ExtractFallback(doc *goquery.Document, pageURL string) *models.RawRecord {
	rec := &models.RawRecord{URL: pageURL}
	rec.Name, _ = doc.Find(`meta[property="og:title"]`).Attr("content")
	rec.Image, _ = doc.Find(`meta[property="og:image"]`).Attr("content")
	rec.Description, _ = doc.Find(`meta[property="og:description"]`).Attr("content")
	if amt, ok := doc.Find(`meta[property="product:price:amount"]`).Attr("content"); ok {
		cur, _ := doc.Find(`meta[property="product:price:currency"]`).Attr("content")
		rec.SalePrice = glyphFor(cur) + amt
		rec.Currency = cur
	}
	if rec.Empty() {
		return nil
	}
	return rec
}

func (g *Generic) PostProcess(rec *models.RawRecord) {
	rec.Name = g.CleanName(rec.Name)
	if rec.Brand == "" {
		rec.Brand = normalize.DetectBrand(rec.Name)
	}
	category := normalize.DetectCategory(rec.Name, strings.Join(rec.Tags, " "))
	rec.Tags = normalize.CleanTags(rec.Tags, category)
}

func glyphFor(iso string) string {
	switch strings.ToUpper(iso) {
	case "GBP":
		return "£"
	case "USD":
		return "$"
	default:
		return "€"
	}
}
