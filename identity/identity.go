package identity

import (
	"net/url"
	"regexp"
	"strings"

	"solestash/models"
	"solestash/normalize"
)

var (
	// Trailing style-code token in a product name: hyphen-separated
	// alphanumerics, at least 5 chars, at least one digit.
	trailingCodeRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{3,}[A-Za-z0-9]$`)
	hasDigitRe     = regexp.MustCompile(`\d`)

	// SKU patterns inside product URLs: a long numeric run or a
	// hyphenated code directly before ".html".
	numericSKURe = regexp.MustCompile(`(\d{10,15})\.html`)
	codeSKURe    = regexp.MustCompile(`([a-z0-9]+(?:-[a-z0-9]+)+)\.html`)
)

// Key derives the stable identity key for a raw record. Preference
// order: explicit style code, style code extracted from the name's
// trailing token, then a slug of the cleaned name. The key is computed
// once at product creation and never again.
func Key(rec *models.RawRecord) string {
	if code := strings.TrimSpace(rec.StyleCode); code != "" {
		return strings.ToUpper(code)
	}
	if code := CodeFromName(rec.Name); code != "" {
		return code
	}
	return normalize.Slug(rec.Name)
}

// CodeFromName extracts a style-code-looking trailing token from a
// product name ("Nike Dunk Low DD1391-100" -> "DD1391-100"), or "".
func CodeFromName(name string) string {
	fields := strings.Fields(normalize.CleanName(name))
	if len(fields) < 2 {
		return ""
	}
	last := fields[len(fields)-1]
	if len(last) < 5 || !trailingCodeRe.MatchString(last) || !hasDigitRe.MatchString(last) {
		return ""
	}
	// A bare word like "Black" or a pure number is not a style code.
	if !strings.ContainsAny(last, "-") && !mixedAlnum(last) {
		return ""
	}
	return strings.ToUpper(last)
}

func mixedAlnum(s string) bool {
	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	return hasLetter && hasDigit
}

// NormalizeURL reduces a product URL to scheme+host+path, lowercased,
// query and fragment stripped, trailing slashes removed.
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimRight(strings.TrimSpace(raw), "/"))
	}
	s := strings.ToLower(u.Scheme + "://" + u.Host + u.Path)
	return strings.TrimRight(s, "/")
}

// SKUFromURL pulls a store SKU out of a product URL, or "".
func SKUFromURL(raw string) string {
	u := strings.ToLower(raw)
	if m := numericSKURe.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	if m := codeSKURe.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	return ""
}

// SameProduct decides whether two raw records denote the same physical
// product. URL and SKU equality are checked before style codes; all
// three outrank slug-based grouping, which callers fall back to via Key.
func SameProduct(a, b *models.RawRecord) bool {
	if a.URL != "" && b.URL != "" && NormalizeURL(a.URL) == NormalizeURL(b.URL) {
		return true
	}
	skuA, skuB := SKUFromURL(a.URL), SKUFromURL(b.URL)
	if skuA != "" && skuB != "" && skuA == skuB {
		return true
	}
	codeA := strings.ToUpper(strings.TrimSpace(a.StyleCode))
	codeB := strings.ToUpper(strings.TrimSpace(b.StyleCode))
	if codeA != "" && codeB != "" && codeA == codeB {
		return true
	}
	return false
}
