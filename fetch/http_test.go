package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"solestash/httputil"
	"solestash/stores"
)

func testClients(server *httptest.Server) *httputil.Clients {
	return &httputil.Clients{Scraping: server.Client(), Plain: server.Client()}
}

const productPage = `<html><head>
	<meta property="og:title" content="Nike Dunk Low">
	<meta property="og:image" content="https://cdn.shop.io/dunk.jpg">
	<meta property="product:price:amount" content="99.95">
	<meta property="product:price:currency" content="EUR">
</head><body>product</body></html>`

func TestFetch_ExtractsRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(productPage))
	}))
	defer server.Close()

	f := NewHTTPFetcher(testClients(server))
	rec, err := f.Fetch(context.Background(), server.URL+"/p/dunk", stores.NewGeneric())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if rec.Empty() {
		t.Fatal("expected a populated record")
	}
	if rec.Name != "Nike Dunk Low" {
		t.Errorf("Name = %q", rec.Name)
	}
	if rec.Store != "generic" {
		t.Errorf("Store = %q, want adapter name filled in", rec.Store)
	}
}

func TestFetch_GoneIsContentSignal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewHTTPFetcher(testClients(server))
	rec, err := f.Fetch(context.Background(), server.URL+"/p/gone", stores.NewGeneric())
	if err != nil {
		t.Fatalf("404 must not be a fetch error, got %v", err)
	}
	if !rec.Empty() {
		t.Fatalf("404 must yield an empty record, got %+v", rec)
	}
}

func TestFetch_SoftRemovedPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>This product is no longer available.</body></html>`))
	}))
	defer server.Close()

	f := NewHTTPFetcher(testClients(server))
	rec, err := f.Fetch(context.Background(), server.URL+"/p/soft-gone", stores.NewGeneric())
	if err != nil {
		t.Fatalf("soft 404 must not be a fetch error, got %v", err)
	}
	if !rec.Empty() {
		t.Fatal("soft 404 must yield an empty record")
	}
}

func TestFetch_BlockedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	f := NewHTTPFetcher(testClients(server))
	_, err := f.Fetch(context.Background(), server.URL+"/p/x", stores.NewGeneric())
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("err = %v, want ErrBlocked", err)
	}
}

func TestFetch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := NewHTTPFetcher(testClients(server))
	_, err := f.Fetch(context.Background(), server.URL+"/p/x", stores.NewGeneric())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
}
