package stores

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"solestash/models"
)

// Adapter is a per-store normalization profile. Every capability has a
// sane generic behavior; named adapters override what their store needs.
type Adapter interface {
	// Name is the store identifier used on listings.
	Name() string
	// BaseDomain is the token matched against page hosts ("mrporter").
	BaseDomain() string
	// Sizing is the system the store reports bare numeric sizes in.
	Sizing() string
	// Currency is the store default, used when a record carries none.
	Currency() string
	// CleanName rewrites a scraped product name.
	CleanName(name string) string
	// ExtractFallback pulls a record straight out of the page DOM when
	// the primary extractor came back empty. May return nil.
	ExtractFallback(doc *goquery.Document, pageURL string) *models.RawRecord
	// PostProcess fixes up a record in place after extraction.
	PostProcess(rec *models.RawRecord)
}

// Registry resolves a domain to its adapter. Resolution is exact
// domain, then substring on the adapter's base domain token, then the
// generic profile - a single O(adapters) pass, deterministic.
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry builds the registry with every named adapter registered.
func NewRegistry() *Registry {
	return &Registry{
		adapters: []Adapter{
			NewMrPorter(),
			NewEndClothing(),
			NewSnipes(),
		},
		generic: NewGeneric(),
	}
}

// Resolve returns the adapter for a domain. Never nil.
func (r *Registry) Resolve(domain string) Adapter {
	d := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "www."))
	for _, a := range r.adapters {
		if d == a.BaseDomain() || strings.HasSuffix(d, "."+a.BaseDomain()) {
			return a
		}
	}
	for _, a := range r.adapters {
		if strings.Contains(d, strings.Split(a.BaseDomain(), ".")[0]) {
			return a
		}
	}
	return r.generic
}

// Adapters returns the registered named adapters plus the generic one.
func (r *Registry) Adapters() []Adapter {
	return append(append([]Adapter{}, r.adapters...), r.generic)
}
