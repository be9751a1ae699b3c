package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/xrl/fetcher"
	"github.com/hazyhaar/xrl/render"
)

type fakeRenderer struct {
	manifest *render.Manifest
	err      error

	gotViewURL string
	gotBaseURL string
}

func (f *fakeRenderer) Render(_ context.Context, viewURL, baseURL string) (*render.Manifest, error) {
	f.gotViewURL = viewURL
	f.gotBaseURL = baseURL
	return f.manifest, f.err
}

func newTestServer(t *testing.T, renderer ManifestRenderer) (*httptest.Server, *Config) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ImagesDir = t.TempDir()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := New(cfg, fetcher.New(fetcher.WithLogger(logger)), renderer, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(svc.Router())
	t.Cleanup(ts.Close)
	return ts, cfg
}

// noFollow stops at the first redirect so tests can inspect Location.
var noFollow = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestViewMissingURL(t *testing.T) {
	ts, _ := newTestServer(t, &fakeRenderer{})

	resp, body := get(t, ts.URL+"/xrl")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if !strings.Contains(body, "URL parameter is missing.") {
		t.Errorf("body = %q", body)
	}
}

func TestViewAssemblesZones(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><head><title>Probe</title></head><body>
			<nav class="XRL-head">probe nav</nav>
			<div class="XRL-main"><p>probe main text</p></div>
			<div class="XRL-ignore">probe discarded</div>
		</body></html>`)
	}))
	defer upstream.Close()

	ts, _ := newTestServer(t, &fakeRenderer{})

	resp, body := get(t, ts.URL+"/xrl?url="+url.QueryEscape(upstream.URL))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %q", resp.StatusCode, body)
	}
	if !strings.Contains(body, "XRL View - Probe") {
		t.Error("rewritten title missing")
	}
	if !strings.Contains(body, "probe main text") {
		t.Error("main zone content missing")
	}
	if !strings.Contains(body, "probe nav") {
		t.Error("head zone content missing")
	}
	if strings.Contains(body, "probe discarded") {
		t.Error("ignored content leaked into the view")
	}
}

func TestViewRedirectStabilization(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "<html><body>final</body></html>")
	})
	upstream := httptest.NewServer(mux)
	defer upstream.Close()

	ts, _ := newTestServer(t, &fakeRenderer{})

	resp, err := noFollow.Get(ts.URL + "/xrl?url=" + url.QueryEscape(upstream.URL+"/moved"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.Contains(loc, url.QueryEscape(upstream.URL+"/final")) {
		t.Errorf("Location = %q, want stabilized final URL", loc)
	}
	if !strings.Contains(loc, "/xrl?url=") {
		t.Errorf("Location = %q, want view path", loc)
	}
}

func TestViewFetchFailure(t *testing.T) {
	ts, _ := newTestServer(t, &fakeRenderer{})

	resp, _ := get(t, ts.URL+"/xrl?url="+url.QueryEscape("http://127.0.0.1:1/unreachable"))
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
}

func TestRenderReturnsManifest(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<html><body><div class="XRL-main">m</div></body></html>`)
	}))
	defer upstream.Close()

	fake := &fakeRenderer{manifest: &render.Manifest{
		FullPage: render.ImageInfo{URL: "http://x/images/full_page.png", Width: 2000, Height: 4200},
		Main:     []render.ImageInfo{{URL: "http://x/images/XRL_main-0.png", Width: 900, Height: 600}},
	}}
	ts, _ := newTestServer(t, fake)

	resp, body := get(t, ts.URL+"/render?url="+url.QueryEscape(upstream.URL))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %q", resp.StatusCode, body)
	}

	var man render.Manifest
	if err := json.Unmarshal([]byte(body), &man); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if man.FullPage.Width != 2000 {
		t.Errorf("full page width = %d", man.FullPage.Width)
	}
	if len(man.Main) != 1 {
		t.Errorf("main captures = %d, want 1", len(man.Main))
	}

	if !strings.Contains(fake.gotViewURL, "/xrl?url="+url.QueryEscape(upstream.URL)) {
		t.Errorf("renderer got viewURL %q", fake.gotViewURL)
	}
	if fake.gotBaseURL == "" || !strings.HasPrefix(fake.gotViewURL, fake.gotBaseURL) {
		t.Errorf("viewURL %q not under base %q", fake.gotViewURL, fake.gotBaseURL)
	}
}

func TestRenderFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "<html><body>ok</body></html>")
	}))
	defer upstream.Close()

	ts, _ := newTestServer(t, &fakeRenderer{err: errors.New("browser gone")})

	resp, _ := get(t, ts.URL+"/render?url="+url.QueryEscape(upstream.URL))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestImageServing(t *testing.T) {
	ts, cfg := newTestServer(t, &fakeRenderer{})

	if err := os.WriteFile(filepath.Join(cfg.ImagesDir, "XRL_main-0.png"), []byte("png-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, body := get(t, ts.URL+"/images/XRL_main-0.png")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body != "png-bytes" {
		t.Errorf("body = %q", body)
	}

	resp, _ = get(t, ts.URL+"/images/absent.png")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("absent image status = %d, want 404", resp.StatusCode)
	}
}

func TestExampleSiteServing(t *testing.T) {
	ts, _ := newTestServer(t, &fakeRenderer{})

	resp, body := get(t, ts.URL+"/blog")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(body, "XRL-main") {
		t.Error("example page missing zone markers")
	}

	resp, _ = get(t, ts.URL+"/style.css")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("style.css status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/css" {
		t.Errorf("style.css Content-Type = %q", ct)
	}

	resp, _ = get(t, ts.URL+"/no-such-site")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown name status = %d, want 404", resp.StatusCode)
	}
}

func TestCustomSites(t *testing.T) {
	ts, _ := newTestServer(t, &fakeRenderer{})

	// Rebind site 1.
	resp, body := get(t, ts.URL+"/custom/1?url="+url.QueryEscape("https://rebound.example"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rebind status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Site 1 updated to https://rebound.example") {
		t.Errorf("rebind body = %q", body)
	}

	// Redirect to the new target.
	resp, err := noFollow.Get(ts.URL + "/custom/1")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("redirect status = %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://rebound.example" {
		t.Errorf("Location = %q", loc)
	}

	// Numeric shorthand resolves through the same registry.
	resp, err = noFollow.Get(ts.URL + "/1")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if loc := resp.Header.Get("Location"); loc != "https://rebound.example" {
		t.Errorf("shorthand Location = %q", loc)
	}

	// Unknown IDs are a 404, for both read and rebind.
	resp, _ = get(t, ts.URL+"/custom/99")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown ID status = %d", resp.StatusCode)
	}
	resp, _ = get(t, ts.URL+"/custom/99?url=https://x.example")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown ID rebind status = %d", resp.StatusCode)
	}
}

func TestRoutesListing(t *testing.T) {
	ts, _ := newTestServer(t, &fakeRenderer{})

	resp, body := get(t, ts.URL+"/routes")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var routes map[string][]siteLink
	if err := json.Unmarshal([]byte(body), &routes); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	var names []string
	for _, link := range routes["example_sites"] {
		names = append(names, link.Name)
	}
	found := false
	for _, n := range names {
		if n == "blog" {
			found = true
		}
	}
	if !found {
		t.Errorf("example_sites = %v, want blog entry", names)
	}
	if len(routes["custom_sites"]) != 3 {
		t.Errorf("custom_sites = %d entries, want 3", len(routes["custom_sites"]))
	}
}

func TestIndexCatalog(t *testing.T) {
	ts, _ := newTestServer(t, &fakeRenderer{})

	resp, body := get(t, ts.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, want := range []string{"/xrl?url=", "/render?url=", "/routes", "blog"} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}
}

func TestFavicon(t *testing.T) {
	ts, _ := newTestServer(t, &fakeRenderer{})

	resp, body := get(t, ts.URL+"/favicon.ico")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(body) == 0 {
		t.Error("empty favicon")
	}
}
