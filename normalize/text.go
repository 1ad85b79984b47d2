package normalize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	multiSpaceRe = regexp.MustCompile(`\s+`)
	nonWordRe    = regexp.MustCompile(`[^a-z0-9]+`)
)

// CleanName collapses whitespace and trims a scraped product name.
func CleanName(name string) string {
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(name, " "))
}

// Slug lowercases a name, collapses non-word runs to hyphens and caps
// the result at 60 characters. Used as the lowest-quality identity key.
func Slug(name string) string {
	s := strings.ToLower(CleanName(name))
	s = nonWordRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 60 {
		s = strings.Trim(s[:60], "-")
	}
	return s
}

// StripHTML extracts plain text from an HTML fragment. Unparseable
// input degrades to the raw string with tags crudely removed.
func StripHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return CleanName(regexp.MustCompile(`<[^>]*>`).ReplaceAllString(html, " "))
	}
	return CleanName(doc.Text())
}

// TruncateDescription strips markup and caps a description at max runes.
func TruncateDescription(html string, max int) string {
	text := StripHTML(html)
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max]))
}

// TitleCase rewrites an ALL-CAPS brand ("NIKE", "COMMON PROJECTS") into
// title casing. Mixed-case input is left alone.
func TitleCase(s string) string {
	if s == "" || s != strings.ToUpper(s) {
		return s
	}
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
