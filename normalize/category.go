package normalize

import (
	"regexp"
	"strings"

	"solestash/models"
)

// Heuristic classifiers carried over from the original catalog; the
// patterns are approximate on purpose. approximation
var (
	clothingRe  = regexp.MustCompile(`(?i)\b(t-?shirt|tee|hoodie|sweat(shirt|er)|crewneck|jacket|coat|parka|vest|gilet|pants?|trousers?|shorts|jeans|denim|track ?(suit|pants)|fleece|cardigan|polo|shirt|knit|jersey|anorak|windbreaker|puffer|longsleeve|long sleeve)\b`)
	accessoryRe = regexp.MustCompile(`(?i)\b(cap|beanie|hat|bag|backpack|tote|wallet|belt|socks?|scarf|gloves?|keychain|lanyard|sunglasses|watch|necklace|bracelet|ring|earrings?|umbrella|bottle|mug|towel|blanket|pin|sticker)\b`)
)

// DetectCategory classifies a product from the union of its textual
// signals. Clothing patterns outrank accessory patterns; anything else
// is a sneaker, this being a sneaker catalog first.
func DetectCategory(texts ...string) string {
	hay := strings.Join(texts, " ")
	if clothingRe.MatchString(hay) {
		return models.CategoryClothing
	}
	if accessoryRe.MatchString(hay) {
		return models.CategoryAccessories
	}
	return models.CategorySneakers
}

// Store-specific generic labels that add nothing to a merged catalog.
var genericTagLabels = map[string]bool{
	"footwear":     true,
	"shoes":        true,
	"new arrivals": true,
	"new in":       true,
	"sale":         true,
	"all products": true,
	"apparel":      true,
	"latest":       true,
}

// CleanTags drops store-noise labels, deduplicates case-insensitively
// and guarantees the resolved category is present as a tag.
func CleanTags(tags []string, category string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(tags)+1)
	for _, t := range tags {
		t = CleanName(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] || genericTagLabels[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	if category != "" && !seen[strings.ToLower(category)] {
		out = append(out, category)
	}
	return out
}

var knownBrands = []string{
	"Nike", "Jordan", "Adidas", "New Balance", "Asics", "Puma", "Reebok",
	"Converse", "Vans", "Salomon", "Hoka", "On", "Saucony", "Mizuno",
	"Stone Island", "Carhartt", "Stussy", "Patta", "Palace", "Supreme",
	"The North Face", "Arc'teryx", "Common Projects", "Maison Margiela",
}

// DetectBrand guesses the brand from the leading words of a product
// name. Longer brand names are tried first so "New Balance" beats "On".
func DetectBrand(name string) string {
	clean := strings.ToLower(CleanName(name))
	best := ""
	for _, b := range knownBrands {
		lb := strings.ToLower(b)
		if (strings.HasPrefix(clean, lb+" ") || clean == lb) && len(b) > len(best) {
			best = b
		}
	}
	return best
}
