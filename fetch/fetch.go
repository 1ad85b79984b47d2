package fetch

import (
	"context"
	"errors"

	"solestash/models"
	"solestash/stores"
)

// Scrape-level failures: these feed the lifecycle failure counter and
// never mutate product metadata.
var (
	ErrNetwork = errors.New("fetch: network error")
	ErrTimeout = errors.New("fetch: timeout")
	ErrBlocked = errors.New("fetch: blocked")
)

// Fetcher is the external extraction collaborator. A returned error is
// a scrape failure; a returned record that is Empty() is a
// content-signal failure (page loaded, product gone) and is the
// caller's cue to end the listing.
type Fetcher interface {
	Fetch(ctx context.Context, url string, adapter stores.Adapter) (*models.RawRecord, error)
}
