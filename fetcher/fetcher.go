// Package fetcher implements document acquisition: a single HTTP GET with
// redirect stabilization. The final post-redirect URL is reported so
// callers can re-anchor link resolution on the stable address.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Result is the outcome of a fetch.
type Result struct {
	// FinalURL is the URL the response actually came from, after the
	// client followed the redirect chain. The chain is bounded by the
	// HTTP client (ten hops), so stabilization always terminates.
	FinalURL   string
	Body       []byte
	StatusCode int
}

// Fetcher performs HTTP GETs for the view and render paths. Fetches are
// stateless and safe to run concurrently.
type Fetcher struct {
	client *http.Client
	ua     string
	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.ua = ua }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher with sensible defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		ua:     "Mozilla/5.0 (compatible; XRLView/1.0)",
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// NormalizeTarget defaults the scheme to http when the target omits one.
func NormalizeTarget(raw string) string {
	if strings.HasPrefix(raw, "http") {
		return raw
	}
	return "http://" + raw
}

// Fetch GETs a URL, follows redirects, and returns the body together with
// the stabilized URL. A transport failure or a status of 400 and above is
// an error: the caller aborts, nothing partial is produced.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetcher: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetcher: get %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetcher: get %s: status %d", pageURL, resp.StatusCode)
	}

	// Cap read to 10MB to prevent runaway downloads.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("fetcher: read body: %w", err)
	}

	res := &Result{
		FinalURL:   resp.Request.URL.String(),
		Body:       body,
		StatusCode: resp.StatusCode,
	}

	f.logger.Debug("fetcher: fetched",
		"url", pageURL, "final_url", res.FinalURL,
		"status", resp.StatusCode, "size", len(body))

	return res, nil
}
