package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// SizeFlag qualifies a normalized size.
type SizeFlag int

const (
	SizeExact SizeFlag = iota
	SizeApprox
	SizeUnknown
)

// SizeResult is the canonical display form of a raw size token.
type SizeResult struct {
	Display string
	Flag    SizeFlag
}

// SizeContext carries what we know about the record the token came from.
// Sizing is the system the store reports bare numerals in ("eu" or "us").
type SizeContext struct {
	Store  string
	Sizing string
	Womens bool
	Kids   bool
}

// Tokens in this set pass through unchanged: letter sizes, one-size and
// waist-measured garments have no EU numeric equivalent.
var letterSizes = map[string]bool{
	"XXS": true, "XS": true, "S": true, "M": true, "L": true,
	"XL": true, "XXL": true, "XXXL": true, "2XL": true, "3XL": true,
	"4XL": true, "XS/S": true, "S/M": true, "M/L": true, "L/XL": true,
	"ONE SIZE": true, "ONESIZE": true, "OS": true, "O/S": true, "1SZ": true,
}

// US men's to EU. Half sizes included where stores actually carry them.
var usMenToEU = map[float64]float64{
	4: 36, 4.5: 36.5, 5: 37.5, 5.5: 38, 6: 38.5, 6.5: 39,
	7: 40, 7.5: 40.5, 8: 41, 8.5: 42, 9: 42.5, 9.5: 43,
	10: 44, 10.5: 44.5, 11: 45, 11.5: 45.5, 12: 46, 12.5: 47,
	13: 47.5, 14: 48.5, 15: 49.5,
}

// US women's to EU.
var usWomenToEU = map[float64]float64{
	5: 35.5, 5.5: 36, 6: 36.5, 6.5: 37.5, 7: 38, 7.5: 38.5,
	8: 39, 8.5: 40, 9: 40.5, 9.5: 41, 10: 42, 10.5: 42.5,
	11: 43, 11.5: 44, 12: 44.5,
}

// UK men's to EU.
var ukMenToEU = map[float64]float64{
	3: 35.5, 3.5: 36, 4: 36.5, 4.5: 37.5, 5: 38, 5.5: 38.5,
	6: 39, 6.5: 40, 7: 40.5, 7.5: 41, 8: 42, 8.5: 42.5,
	9: 43, 9.5: 44, 10: 44.5, 10.5: 45, 11: 45.5, 11.5: 46,
	12: 47, 13: 48,
}

// US kids, toddler "C" suffix.
var usKidsCToEU = map[float64]float64{
	4: 19.5, 4.5: 20, 5: 21, 5.5: 21.5, 6: 22, 6.5: 22.5,
	7: 23.5, 7.5: 24, 8: 25, 8.5: 25.5, 9: 26, 9.5: 26.5,
	10: 27, 10.5: 27.5, 11: 28, 11.5: 28.5, 12: 29.5, 12.5: 30,
	13: 31, 13.5: 31.5,
}

// US kids, youth "Y" suffix. Bare kids numerals are assumed to be on
// this scale as well.
var usKidsYToEU = map[float64]float64{
	1: 32, 1.5: 33, 2: 33.5, 2.5: 34, 3: 35, 3.5: 35.5,
	4: 36, 4.5: 36.5, 5: 37.5, 5.5: 38, 6: 38.5, 6.5: 39,
	7: 40,
}

// UK kids to EU, covering both infant and junior ranges.
var ukKidsToEU = map[float64]float64{
	3: 18.5, 3.5: 19, 4: 20, 4.5: 20.5, 5: 21, 5.5: 21.5,
	6: 22, 6.5: 22.5, 7: 23.5, 7.5: 24, 8: 25, 8.5: 25.5,
	9: 26, 9.5: 26.5, 10: 27, 10.5: 27.5, 11: 28, 11.5: 28.5,
	12: 29.5, 12.5: 30, 13: 31, 13.5: 31.5,
	1: 32, 1.5: 33, 2: 33.5, 2.5: 34,
}

var (
	waistRe   = regexp.MustCompile(`^W\d{2}(\s*/?\s*L\d{2})?$`)
	kidsRe    = regexp.MustCompile(`^(\d{1,2}(?:[.,]5)?)\s*([CY])$`)
	euRe      = regexp.MustCompile(`^EU\s*(\d{2}(?:[.,]5)?)$`)
	ukRe      = regexp.MustCompile(`^UK\s*(\d{1,2}(?:[.,]5)?)\s*([CY])?$`)
	numericRe = regexp.MustCompile(`^\d{1,2}(?:[.,]5)?$`)
)

// Size converts a raw store size token into its canonical EU display
// form. It never fails: tokens it cannot interpret come back unchanged,
// flagged SizeUnknown. Renormalizing an already canonical "EU n" token
// yields the same token.
func Size(token string, ctx SizeContext) SizeResult {
	tok := strings.ToUpper(strings.TrimSpace(token))
	if tok == "" {
		return SizeResult{Display: token, Flag: SizeUnknown}
	}

	// 1. Letter / one-size / waist tokens pass through.
	if letterSizes[tok] || waistRe.MatchString(tok) {
		return SizeResult{Display: tok, Flag: SizeExact}
	}

	// 2. Kids tokens with explicit C/Y suffix.
	if m := kidsRe.FindStringSubmatch(tok); m != nil {
		n, ok := parseSizeNumber(m[1])
		if !ok {
			return SizeResult{Display: token, Flag: SizeUnknown}
		}
		table := usKidsYToEU
		if m[2] == "C" {
			table = usKidsCToEU
		}
		if eu, ok := table[n]; ok {
			return SizeResult{Display: formatEU(eu), Flag: SizeExact}
		}
		return SizeResult{Display: token, Flag: SizeUnknown}
	}

	// 3. Explicit EU prefix is already canonical.
	if m := euRe.FindStringSubmatch(tok); m != nil {
		if n, ok := parseSizeNumber(m[1]); ok {
			return SizeResult{Display: formatEU(n), Flag: SizeExact}
		}
		return SizeResult{Display: token, Flag: SizeUnknown}
	}

	// 4. Explicit UK prefix, optionally with a kids suffix.
	if m := ukRe.FindStringSubmatch(tok); m != nil {
		n, ok := parseSizeNumber(m[1])
		if !ok {
			return SizeResult{Display: token, Flag: SizeUnknown}
		}
		if m[2] != "" || ctx.Kids {
			if eu, ok := ukKidsToEU[n]; ok {
				return SizeResult{Display: formatEU(eu), Flag: SizeExact}
			}
			return SizeResult{Display: token, Flag: SizeUnknown}
		}
		if eu, ok := ukMenToEU[n]; ok {
			return SizeResult{Display: formatEU(eu), Flag: SizeExact}
		}
		// Linear approximation, kept as-is from the original tables'
		// author. approximation
		return SizeResult{Display: formatEU(roundHalf(n + 33.5)), Flag: SizeApprox}
	}

	// 5. Bare numerals: disambiguated by the store's reporting system
	// and the record's population flags.
	if numericRe.MatchString(tok) {
		n, ok := parseSizeNumber(tok)
		if !ok {
			return SizeResult{Display: token, Flag: SizeUnknown}
		}
		if strings.EqualFold(ctx.Sizing, "eu") {
			return SizeResult{Display: formatEU(n), Flag: SizeExact}
		}
		switch {
		case ctx.Kids:
			// Bare kids numerals are assumed youth-US.
			if eu, ok := usKidsYToEU[n]; ok {
				return SizeResult{Display: formatEU(eu), Flag: SizeExact}
			}
			return SizeResult{Display: token, Flag: SizeUnknown}
		case ctx.Womens:
			if eu, ok := usWomenToEU[n]; ok {
				return SizeResult{Display: formatEU(eu), Flag: SizeExact}
			}
			return SizeResult{Display: formatEU(roundHalf(n + 31)), Flag: SizeApprox} // approximation
		default:
			if eu, ok := usMenToEU[n]; ok {
				return SizeResult{Display: formatEU(eu), Flag: SizeExact}
			}
			return SizeResult{Display: formatEU(roundHalf(n + 33)), Flag: SizeApprox} // approximation
		}
	}

	// 6. Everything else passes through untouched.
	return SizeResult{Display: token, Flag: SizeUnknown}
}

// SizeContextFor derives the women's/kids' flags from the owning
// record's name and tags.
func SizeContextFor(name string, tags []string, store, sizing string) SizeContext {
	hay := strings.ToLower(name)
	for _, t := range tags {
		hay += " " + strings.ToLower(t)
	}
	return SizeContext{
		Store:  store,
		Sizing: sizing,
		Womens: containsAny(hay, womensMarkers),
		Kids:   containsAny(hay, kidsMarkers),
	}
}

var womensMarkers = []string{"women", "wmns", "(w)", "womens", "ladies"}

var kidsMarkers = []string{"kids", "kid's", "(gs)", "(td)", "(ps)", "youth", "junior", "infant", "toddler", "little kids", "big kids"}

func containsAny(hay string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(hay, n) {
			return true
		}
	}
	return false
}

func parseSizeNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", ".")
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func roundHalf(n float64) float64 {
	return math.Round(n*2) / 2
}

func formatEU(n float64) string {
	return "EU " + strconv.FormatFloat(n, 'f', -1, 64)
}
