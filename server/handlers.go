package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/xrl/classify"
	"github.com/hazyhaar/xrl/fetcher"
)

// staticFiles maps directly servable example assets to content types.
var staticFiles = map[string]string{
	"style.css": "text/css",
	"xrl.js":    "text/javascript",
}

// baseURL reconstructs the public base for self-referencing links.
func (s *Server) baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// targetParam validates the url query parameter shared by the view and
// render paths. A missing parameter is rejected before any work begins.
func targetParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		http.Error(w, "URL parameter is missing.", http.StatusBadRequest)
		return "", false
	}
	return fetcher.NormalizeTarget(raw), true
}

// handleView serves the assembled XRL layout for a target URL.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	target, ok := targetParam(w, r)
	if !ok {
		return
	}

	res, err := s.fetch.Fetch(r.Context(), target)
	if err != nil {
		s.logger.Error("server: view fetch failed", "url", target, "error", err)
		http.Error(w, "failed to fetch target", http.StatusBadGateway)
		return
	}

	// Stabilize redirects: point the client at the final URL so the
	// classified page and its base reference agree on the origin.
	if res.FinalURL != target {
		http.Redirect(w, r, s.baseURL(r)+"/xrl?url="+url.QueryEscape(res.FinalURL), http.StatusFound)
		return
	}

	result, err := classify.Classify(bytes.NewReader(res.Body), target)
	if err != nil {
		s.logger.Error("server: classify failed", "url", target, "error", err)
		http.Error(w, "failed to classify document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "xrl_emulator.html", newViewData(result)); err != nil {
		s.logger.Error("server: view template failed", "url", target, "error", err)
	}
}

// handleRender runs the capture pipeline and returns the zone manifest.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	target, ok := targetParam(w, r)
	if !ok {
		return
	}

	res, err := s.fetch.Fetch(r.Context(), target)
	if err != nil {
		s.logger.Error("server: render fetch failed", "url", target, "error", err)
		http.Error(w, "failed to fetch target", http.StatusBadGateway)
		return
	}
	if res.FinalURL != target {
		http.Redirect(w, r, s.baseURL(r)+"/render?url="+url.QueryEscape(res.FinalURL), http.StatusFound)
		return
	}

	base := s.baseURL(r)
	viewURL := base + "/xrl?url=" + url.QueryEscape(target)

	man, err := s.renderer.Render(r.Context(), viewURL, base)
	if err != nil {
		s.logger.Error("server: render failed", "url", target, "error", err)
		http.Error(w, "failed to render target", http.StatusInternalServerError)
		return
	}

	writeJSON(w, man)
}

// handleImage serves a captured screenshot by filename.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(chi.URLParam(r, "filename"))
	http.ServeFile(w, r, filepath.Join(s.cfg.ImagesDir, name))
}

// handleCustom redirects to a registered custom site, or rebinds it when
// a url parameter is given. Unknown IDs are a 404 before anything else.
func (s *Server) handleCustom(w http.ResponseWriter, r *http.Request) {
	num, err := strconv.Atoi(chi.URLParam(r, "num"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if raw := r.URL.Query().Get("url"); raw != "" {
		if !s.sites.Set(num, raw) {
			http.NotFound(w, r)
			return
		}
		s.logger.Info("server: custom site updated", "id", num, "url", raw)
		fmt.Fprintf(w, "Site %d updated to %s", num, raw)
		return
	}

	target, ok := s.sites.Get(num)
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// handleNamed serves static assets, embedded example sites, and numeric
// shorthands for custom sites, in that order.
func (s *Server) handleNamed(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if ct, ok := staticFiles[name]; ok {
		data, err := examplesFS.ReadFile("examples/" + name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", ct)
		w.Write(data)
		return
	}

	if data, err := examplesFS.ReadFile("examples/" + name + ".html"); err == nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data)
		return
	}

	if num, err := strconv.Atoi(name); err == nil {
		if target, ok := s.sites.Get(num); ok {
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
	}

	http.NotFound(w, r)
}

func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	data, err := examplesFS.ReadFile("examples/favicon.ico")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/vnd.microsoft.icon")
	w.Write(data)
}

type siteLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// handleRoutes returns JSON describing available example and custom
// site links.
func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	base := s.baseURL(r)

	var examples []siteLink
	for _, name := range exampleSiteNames() {
		examples = append(examples, siteLink{Name: name, URL: base + "/" + name})
	}
	var custom []siteLink
	for _, id := range s.sites.IDs() {
		custom = append(custom, siteLink{
			Name: fmt.Sprintf("custom-%d", id),
			URL:  fmt.Sprintf("%s/custom/%d", base, id),
		})
	}

	writeJSON(w, map[string][]siteLink{
		"example_sites": examples,
		"custom_sites":  custom,
	})
}

type endpointRow struct {
	Example     string
	Route       string
	Description string
}

type indexSite struct {
	Label   string
	Link    string
	ViewURL string
}

// handleIndex renders the endpoint catalog.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	base := s.baseURL(r)

	endpoints := []endpointRow{
		{"", "/", "Page providing an overview of different app routes"},
		{"blog", "/{name}", "Serves an embedded example site"},
		{"custom/1", "/custom/{num}", "Redirects to the registered custom site"},
		{"custom/1?url=https://go.dev", "/custom/{num}?url={url}", "Rebinds a custom site number"},
		{"xrl?url=" + base + "/blog", "/xrl?url={url}", "Serves the emulated XRL layout for a given link"},
		{"render?url=" + base + "/blog", "/render?url={url}", "Renders per-zone images for a given link"},
		{"images/full_page.png", "/images/{filename}", "Fetches a captured image by filename"},
		{"routes", "/routes", "Serves JSON detailing example and custom site links"},
	}

	var examples []indexSite
	for _, name := range exampleSiteNames() {
		examples = append(examples, indexSite{
			Label:   name,
			Link:    name,
			ViewURL: "xrl?url=" + url.QueryEscape(base+"/"+name),
		})
	}
	var custom []indexSite
	for _, id := range s.sites.IDs() {
		target, _ := s.sites.Get(id)
		custom = append(custom, indexSite{
			Label:   target,
			Link:    fmt.Sprintf("custom/%d", id),
			ViewURL: "xrl?url=" + url.QueryEscape(target),
		})
	}

	data := struct {
		BaseURL      string
		Endpoints    []endpointRow
		ExampleSites []indexSite
		CustomSites  []indexSite
	}{base, endpoints, examples, custom}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "endpoints.html", data); err != nil {
		s.logger.Error("server: index template failed", "error", err)
	}
}

// exampleSiteNames lists the embedded example pages, sorted.
func exampleSiteNames() []string {
	entries, err := fs.ReadDir(examplesFS, "examples")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".html") {
			names = append(names, strings.TrimSuffix(e.Name(), ".html"))
		}
	}
	sort.Strings(names)
	return names
}

// viewData is the template-friendly projection of a classifier Result.
type viewData struct {
	Title      string
	Main       []template.HTML
	Head       []template.HTML
	Left       []template.HTML
	Right      []template.HTML
	Below      []template.HTML
	HeadList   []template.HTML
	FooterList []template.HTML
	StyleList  []template.HTML
	ScriptList []template.HTML
}

func newViewData(res *classify.Result) viewData {
	return viewData{
		Title:      res.Title,
		Main:       asHTML(res.Main),
		Head:       asHTML(res.Head),
		Left:       asHTML(res.Left),
		Right:      asHTML(res.Right),
		Below:      asHTML(res.Below),
		HeadList:   asHTML(res.HeadList),
		FooterList: asHTML(res.FooterList),
		StyleList:  asHTML(res.StyleList),
		ScriptList: asHTML(res.ScriptList),
	}
}

// asHTML marks classified fragments as pre-rendered markup. The fragments
// come straight from the fetched document; the emulator reproduces them
// as-is, it does not sanitize.
func asHTML(in []string) []template.HTML {
	out := make([]template.HTML, len(in))
	for i, h := range in {
		out[i] = template.HTML(h)
	}
	return out
}
