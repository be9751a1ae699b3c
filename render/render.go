// Package render drives the screenshot pipeline: load the assembled XRL
// page in headless Chrome, resolve element visibility once for the whole
// page, then isolate and capture each zone element in turn.
//
// The browser session is a single shared resource. All renders funnel
// through one worker goroutine; classification-only requests never touch
// it and need no serialization.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/xrl/render/internal/browser"
)

// Config configures the Renderer.
type Config struct {
	// ImagesDir is where per-request captures are written under
	// deterministic names (full_page.png, {zone}-{index}.png).
	ImagesDir string

	// BrowserRemote is the WebSocket URL of an external Chrome.
	// Empty = launch a local one.
	BrowserRemote string

	// WindowWidth and WindowHeight size the capture viewport.
	WindowWidth  int
	WindowHeight int

	Logger *slog.Logger
}

// Renderer owns the browser session and the serialized render queue.
// Create one per process, call Run in a goroutine, then Render from any
// number of request handlers.
type Renderer struct {
	cfg    Config
	mgr    *browser.Manager
	jobs   chan renderJob
	logger *slog.Logger

	// exec runs one render job. renderOne in production; tests swap in
	// fakes to exercise the queue without a browser.
	exec func(ctx context.Context, viewURL, baseURL string) (*Manifest, error)
}

type renderJob struct {
	ctx     context.Context
	viewURL string
	baseURL string
	reply   chan renderReply
}

type renderReply struct {
	manifest *Manifest
	err      error
}

// New creates a Renderer. The browser is launched lazily on the first
// render.
func New(cfg Config) *Renderer {
	if cfg.ImagesDir == "" {
		cfg.ImagesDir = "images"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &Renderer{
		cfg: cfg,
		mgr: browser.NewManager(browser.Config{
			RemoteURL:    cfg.BrowserRemote,
			WindowWidth:  cfg.WindowWidth,
			WindowHeight: cfg.WindowHeight,
			Logger:       cfg.Logger,
		}),
		jobs:   make(chan renderJob),
		logger: cfg.Logger,
	}
	r.exec = r.renderOne
	return r
}

// Run consumes the render queue until ctx is cancelled, then shuts the
// browser down. The browser session is bound to ctx here, not to any
// job's context: jobs come from HTTP requests whose contexts die when
// the response is written, and the session must outlive them all.
// Exactly one Run must be active per Renderer.
func (r *Renderer) Run(ctx context.Context) {
	r.mgr.Start(ctx)
	defer r.mgr.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-r.jobs:
			man, err := r.exec(job.ctx, job.viewURL, job.baseURL)
			job.reply <- renderReply{manifest: man, err: err}
		}
	}
}

// Render captures a loaded XRL view page and returns the manifest. The
// call blocks until the single worker picks the job up and finishes it;
// concurrent callers queue behind each other, which is what keeps the
// shared session and the deterministic image names safe.
func (r *Renderer) Render(ctx context.Context, viewURL, baseURL string) (*Manifest, error) {
	job := renderJob{
		ctx:     ctx,
		viewURL: viewURL,
		baseURL: baseURL,
		reply:   make(chan renderReply, 1),
	}

	select {
	case r.jobs <- job:
	case <-ctx.Done():
		return nil, fmt.Errorf("render: queue: %w", ctx.Err())
	}

	select {
	case rep := <-job.reply:
		return rep.manifest, rep.err
	case <-ctx.Done():
		return nil, fmt.Errorf("render: wait: %w", ctx.Err())
	}
}

// recyclable reports whether a render failure implicates the browser
// session. A canceled caller context means the client went away, not that
// Chrome misbehaved, so the session stays up for the next job.
func recyclable(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// renderOne executes one full render against the shared session. On a
// genuine browser failure the session is recycled: after a navigation or
// capture error it is not guaranteed reusable, so the next job gets a
// fresh Chrome.
func (r *Renderer) renderOne(ctx context.Context, viewURL, baseURL string) (man *Manifest, err error) {
	defer func() {
		if recyclable(err) {
			r.mgr.Recycle()
		}
	}()

	tab, err := browser.OpenTab(ctx, r.mgr, viewURL)
	if err != nil {
		return nil, fmt.Errorf("render: open tab: %w", err)
	}
	defer tab.Close()

	mutated, err := resolveVisibility(tab.Page)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("render: visibility resolved", "url", viewURL, "forced_visible", mutated)

	snap := &snapshotter{dir: r.cfg.ImagesDir, baseURL: baseURL, logger: r.logger}
	man, err = snap.run(rodPage{page: tab.Page})
	if err != nil {
		return nil, err
	}

	r.logger.Info("render: captured",
		"url", viewURL,
		"head", len(man.Head), "left", len(man.Left), "right", len(man.Right),
		"main", len(man.Main), "below", len(man.Below))
	return man, nil
}
