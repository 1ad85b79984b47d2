package normalize

import (
	"math"
	"strconv"
	"strings"

	"solestash/models"
)

var currencyGlyphs = map[string]string{
	"€": "EUR",
	"£": "GBP",
	"$": "USD",
}

// ParsePrice parses a currency-prefixed, locale-formatted price string
// ("€ 129,95", "£1,299.00", "$80"). Returns nil when the string is empty
// or unparseable; parse failures degrade, they never abort processing.
func ParsePrice(s string) *models.Price {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	currency := ""
	for glyph, iso := range currencyGlyphs {
		if strings.HasPrefix(s, glyph) {
			currency = iso
			s = strings.TrimSpace(strings.TrimPrefix(s, glyph))
			break
		}
	}
	if currency == "" {
		return nil
	}

	amount, ok := parseAmount(s)
	if !ok || amount <= 0 {
		return nil
	}
	return &models.Price{Amount: amount, Currency: currency}
}

// parseAmount handles both comma- and dot-decimal locales, including
// thousands separators ("1.299,00", "1,299.00", "1299").
func parseAmount(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		} else if r != ' ' && r != ' ' {
			break
		}
	}
	num := b.String()
	if num == "" {
		return 0, false
	}

	lastDot := strings.LastIndex(num, ".")
	lastComma := strings.LastIndex(num, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// Both present: the later one is the decimal separator.
		if lastComma > lastDot {
			num = strings.ReplaceAll(num, ".", "")
			num = strings.Replace(num, ",", ".", 1)
		} else {
			num = strings.ReplaceAll(num, ",", "")
		}
	case lastComma >= 0:
		num = normalizeSingleSeparator(num, ",")
	case lastDot >= 0:
		num = normalizeSingleSeparator(num, ".")
	}

	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// normalizeSingleSeparator decides whether a lone separator kind is
// decimal or thousands: exactly three trailing digits mean thousands.
func normalizeSingleSeparator(num, sep string) string {
	idx := strings.LastIndex(num, sep)
	if len(num)-idx-1 == 3 {
		return strings.ReplaceAll(num, sep, "")
	}
	head := strings.ReplaceAll(num[:idx], sep, "")
	return head + "." + num[idx+1:]
}

// Discount computes the integer discount percentage, clamped at 0.
// A zero retail yields 0 regardless of sale.
func Discount(retail, sale float64) int {
	if retail <= 0 || sale <= 0 {
		return 0
	}
	pct := math.Round((retail - sale) / retail * 100)
	if pct < 0 {
		return 0
	}
	return int(pct)
}

// CorrectPriceSwap swaps retail and sale when store data arrived
// transposed (retail below sale). Must run before any history is
// recorded. A swapped pair reports no discount: the transposition means
// the store's discount signal cannot be trusted.
func CorrectPriceSwap(retail, sale *models.Price) (*models.Price, *models.Price, bool) {
	if retail != nil && sale != nil && retail.Amount > 0 && sale.Amount > 0 && retail.Amount < sale.Amount {
		return sale, retail, true
	}
	return retail, sale, false
}
