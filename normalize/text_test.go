package normalize

import (
	"strings"
	"testing"
)

func TestCleanName(t *testing.T) {
	if got := CleanName("  Nike   Dunk \n Low  "); got != "Nike Dunk Low" {
		t.Fatalf("CleanName = %q", got)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Nike Dunk Low 'Panda'":   "nike-dunk-low-panda",
		"  Air Max 90 / Infrared": "air-max-90-infrared",
		"ASICS Gel-Kayano 14":     "asics-gel-kayano-14",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}

	long := Slug(strings.Repeat("very long product name ", 10))
	if len(long) > 60 {
		t.Errorf("Slug length = %d, want capped at 60", len(long))
	}
	if strings.HasSuffix(long, "-") || strings.HasPrefix(long, "-") {
		t.Errorf("Slug %q has dangling hyphen", long)
	}
}

func TestStripHTML(t *testing.T) {
	in := `<p>Premium <b>leather</b> upper.</p><ul><li>Rubber sole</li></ul>`
	got := StripHTML(in)
	if strings.ContainsAny(got, "<>") {
		t.Fatalf("StripHTML left markup: %q", got)
	}
	if !strings.Contains(got, "Premium leather upper.") {
		t.Fatalf("StripHTML lost text: %q", got)
	}
}

func TestTruncateDescription(t *testing.T) {
	in := "<p>" + strings.Repeat("word ", 100) + "</p>"
	got := TruncateDescription(in, 50)
	if len([]rune(got)) > 50 {
		t.Fatalf("truncated length = %d, want <= 50", len([]rune(got)))
	}

	short := TruncateDescription("<p>short</p>", 300)
	if short != "short" {
		t.Fatalf("short description mangled: %q", short)
	}
}

func TestTitleCase(t *testing.T) {
	cases := map[string]string{
		"NIKE":            "Nike",
		"COMMON PROJECTS": "Common Projects",
		"New Balance":     "New Balance", // mixed case left alone
		"":                "",
	}
	for in, want := range cases {
		if got := TitleCase(in); got != want {
			t.Errorf("TitleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetectCategory(t *testing.T) {
	cases := []struct {
		texts []string
		want  string
	}{
		{[]string{"Nike Dunk Low"}, "Sneakers"},
		{[]string{"Carhartt WIP Detroit Jacket"}, "Clothing"},
		{[]string{"Nike Club Cap"}, "Accessories"},
		{[]string{"Hoodie", "Beanie"}, "Clothing"}, // clothing outranks accessories
		{[]string{""}, "Sneakers"},
	}
	for _, c := range cases {
		if got := DetectCategory(c.texts...); got != c.want {
			t.Errorf("DetectCategory(%v) = %q, want %q", c.texts, got, c.want)
		}
	}
}

func TestCleanTags(t *testing.T) {
	tags := []string{"Footwear", "Nike", "nike", "Sale", "  ", "Retro"}
	got := CleanTags(tags, "Sneakers")

	want := []string{"Nike", "Retro", "Sneakers"}
	if len(got) != len(want) {
		t.Fatalf("CleanTags = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("CleanTags = %v, want %v", got, want)
		}
	}
}

func TestDetectBrand(t *testing.T) {
	cases := map[string]string{
		"Nike Dunk Low":              "Nike",
		"New Balance 550":            "New Balance",
		"On Cloudmonster":            "On",
		"Unknown Brand Runner":       "",
		"common projects achilles":   "Common Projects",
	}
	for in, want := range cases {
		if got := DetectBrand(in); got != want {
			t.Errorf("DetectBrand(%q) = %q, want %q", in, got, want)
		}
	}
}
