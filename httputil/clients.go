package httputil

import (
	"net/http"
	"net/url"
	"time"

	"solestash/config"
)

type Clients struct {
	Scraping *http.Client // proxied, for store pages
	Plain    *http.Client // direct, for CDN image downloads
}

func NewClients(proxyCfg *config.ProxyConfig) *Clients {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyCfg.URL != "" {
		if proxyURL, err := url.Parse(proxyCfg.URL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	scraping := &http.Client{
		Timeout:   20 * time.Second,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return &Clients{
		Scraping: scraping,
		Plain:    &http.Client{Timeout: 30 * time.Second},
	}
}
