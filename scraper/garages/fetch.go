package garages

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"garage-scraper/config"
	"garage-scraper/utils"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher retrieves the raw status page.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// FetchError reports a non-success response from the status page.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// HTTPFetcher issues a plain GET for the status page.
type HTTPFetcher struct {
	url    string
	client *resty.Client
}

func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent)
	return &HTTPFetcher{url: url, client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context) (string, error) {
	res, err := f.client.R().
		SetContext(ctx).
		Get(f.url)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", f.url, err)
	}
	if !res.IsSuccess() {
		return "", &FetchError{URL: f.url, StatusCode: res.StatusCode()}
	}
	return res.String(), nil
}

// NewFetcher picks the fetcher for cfg.FetchMode.
func NewFetcher(cfg *config.Config, logger *utils.Logger) (Fetcher, error) {
	switch cfg.FetchMode {
	case "", "http":
		return NewHTTPFetcher(cfg.SourceURL, cfg.FetchTimeout()), nil
	case "browser":
		return NewBrowserFetcher(cfg.SourceURL, cfg.ChromeBin, cfg.FetchTimeout(), logger), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode %q", cfg.FetchMode)
	}
}
