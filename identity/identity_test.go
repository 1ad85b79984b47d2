package identity

import (
	"testing"

	"solestash/models"
)

func TestKey_StyleCodeWins(t *testing.T) {
	rec := &models.RawRecord{Name: "Nike Dunk Low Panda", StyleCode: "dd1391-100"}
	if got := Key(rec); got != "DD1391-100" {
		t.Fatalf("Key = %q, want DD1391-100", got)
	}
}

func TestKey_TrailingCodeFromName(t *testing.T) {
	rec := &models.RawRecord{Name: "Nike Dunk Low DD1391-100"}
	if got := Key(rec); got != "DD1391-100" {
		t.Fatalf("Key = %q, want DD1391-100", got)
	}
}

func TestKey_SlugFallback(t *testing.T) {
	rec := &models.RawRecord{Name: "New Balance 550 White Grey"}
	if got := Key(rec); got != "new-balance-550-white-grey" {
		t.Fatalf("Key = %q, want slug", got)
	}
}

func TestCodeFromName(t *testing.T) {
	cases := map[string]string{
		"Nike Dunk Low DD1391-100":     "DD1391-100",
		"Air Jordan 1 Mid 554724-078":  "554724-078",
		"Yeezy Boost 350 V2 HQ6316":    "HQ6316",
		"Nike Air Max Black":           "",
		"Converse Chuck 70":            "", // bare number, no letter mix
		"DD1391-100":                   "", // single token is a name, not a code
		"Nike  Dunk   Low  DD1391-100": "DD1391-100",
	}
	for name, want := range cases {
		if got := CodeFromName(name); got != want {
			t.Errorf("CodeFromName(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"https://www.Snipes.com/p/Dunk-Low.html?color=white&utm=abc": "https://www.snipes.com/p/dunk-low.html",
		"https://store.com/product/":                                 "https://store.com/product",
		"https://store.com/product#reviews":                          "https://store.com/product",
	}
	for in, want := range cases {
		if got := NormalizeURL(in); got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSKUFromURL(t *testing.T) {
	cases := map[string]string{
		"https://www.snipes.com/p/00013801688962.html":        "00013801688962",
		"https://www.snipes.com/p/00013801688962.html?c=1":    "00013801688962",
		"https://shop.com/nike-dunk-low-dd1391.html":          "nike-dunk-low-dd1391",
		"https://shop.com/products/dunk-low":                  "",
		"https://shop.com/p/123.html":                         "", // too short for a numeric SKU
	}
	for in, want := range cases {
		if got := SKUFromURL(in); got != want {
			t.Errorf("SKUFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSameProduct_URLTier(t *testing.T) {
	a := &models.RawRecord{URL: "https://www.snipes.com/p/dunk.html?utm=x", Name: "Dunk Low"}
	b := &models.RawRecord{URL: "https://www.snipes.com/p/dunk.html", Name: "Nike Dunk Low Retro"}
	if !SameProduct(a, b) {
		t.Fatal("same normalized URL must match regardless of names")
	}
}

func TestSameProduct_SKUTier(t *testing.T) {
	a := &models.RawRecord{URL: "https://www.snipes.com/en/p/00013801688962.html", Name: "Dunk Low"}
	b := &models.RawRecord{URL: "https://www.snipes.com/fr/p/00013801688962.html?lang=fr", Name: "Nike Dunk"}
	if !SameProduct(a, b) {
		t.Fatal("same URL SKU must match across locale paths")
	}
}

func TestSameProduct_StyleCodeTier(t *testing.T) {
	a := &models.RawRecord{URL: "https://a.com/x", StyleCode: "DD1391-100"}
	b := &models.RawRecord{URL: "https://b.com/y", StyleCode: "dd1391-100"}
	if !SameProduct(a, b) {
		t.Fatal("equal style codes must match case-insensitively")
	}
}

func TestSameProduct_NoSignal(t *testing.T) {
	a := &models.RawRecord{URL: "https://a.com/x", Name: "Dunk Low"}
	b := &models.RawRecord{URL: "https://b.com/y", Name: "Dunk Low"}
	if SameProduct(a, b) {
		t.Fatal("matching names alone are not direct evidence")
	}
}
