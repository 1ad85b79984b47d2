package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"solestash/httputil"
	"solestash/models"
	"solestash/stores"
)

const maxBodyBytes = 1024 * 1024

// HTTPFetcher fetches store pages over plain HTTP and extracts a record
// through the resolved adapter's DOM fallback.
type HTTPFetcher struct {
	clients *httputil.Clients
}

func NewHTTPFetcher(clients *httputil.Clients) *HTTPFetcher {
	return &HTTPFetcher{clients: clients}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string, adapter stores.Adapter) (*models.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")

	resp, err := f.clients.Scraping.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == 404 || resp.StatusCode == 410:
		// Page gone: a content signal, not a scrape failure.
		return &models.RawRecord{URL: pageURL}, nil
	case resp.StatusCode == 403 || resp.StatusCode == 429:
		return nil, fmt.Errorf("%w: status %d", ErrBlocked, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: parse body: %v", ErrNetwork, err)
	}

	if isRemovedPage(doc) {
		return &models.RawRecord{URL: pageURL}, nil
	}

	rec := adapter.ExtractFallback(doc, pageURL)
	if rec == nil {
		rec = &models.RawRecord{URL: pageURL}
	}
	if !rec.Empty() {
		if rec.Store == "" {
			rec.Store = adapter.Name()
		}
		adapter.PostProcess(rec)
	}
	return rec, nil
}

// isRemovedPage looks for soft-404 markers stores use instead of real
// status codes.
func isRemovedPage(doc *goquery.Document) bool {
	markers := []string{
		"no longer available",
		"has been removed",
		"product not found",
		"out of stock and no longer",
	}
	body := strings.ToLower(doc.Find("body").Text())
	for _, m := range markers {
		if strings.Contains(body, m) {
			return true
		}
	}
	return false
}
