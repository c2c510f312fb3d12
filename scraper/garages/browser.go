package garages

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"garage-scraper/utils"
)

// BrowserFetcher loads the status page in headless Chrome and returns the
// rendered DOM. Useful when the tables are filled in client-side.
type BrowserFetcher struct {
	url       string
	chromeBin string
	timeout   time.Duration
	logger    *utils.Logger
}

func NewBrowserFetcher(url, chromeBin string, timeout time.Duration, logger *utils.Logger) *BrowserFetcher {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	return &BrowserFetcher{url: url, chromeBin: chromeBin, timeout: timeout, logger: logger}
}

func (f *BrowserFetcher) Fetch(ctx context.Context) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if f.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(f.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, f.timeout)
	defer cancelTimeout()

	resp, err := chromedp.RunResponse(browserCtx, chromedp.Navigate(f.url))
	if err != nil {
		return "", fmt.Errorf("fetch %s: navigate: %w", f.url, err)
	}
	if resp != nil && (resp.Status < 200 || resp.Status >= 300) {
		return "", &FetchError{URL: f.url, StatusCode: int(resp.Status)}
	}

	var html string
	err = chromedp.Run(browserCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("fetch %s: read dom: %w", f.url, err)
	}

	f.logger.Debug("[browser] Rendered %s (%d bytes)", f.url, len(html))
	return html, nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
