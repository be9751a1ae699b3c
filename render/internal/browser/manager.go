// Package browser manages the shared Chrome headless session used by the
// render pipeline: launch or remote-connect via Rod, recycle after a
// failed capture, shut down on exit.
//
// The session is a single process-lifetime resource. It is not safe to
// interleave navigation and capture across requests; the render queue
// serializes all access to it.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// WindowWidth and WindowHeight size the capture viewport. The window
	// is deliberately tall so below-the-fold zones render without
	// scrolling. Defaults: 2000 x 6000.
	WindowWidth  int
	WindowHeight int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.WindowWidth <= 0 {
		c.WindowWidth = 2000
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = 6000
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns the Chrome session lifecycle. Create one per process and
// access it from a single worker.
type Manager struct {
	cfg        Config
	mu         sync.RWMutex
	sessionCtx context.Context
	browser    *rod.Browser
	lnch       *launcher.Launcher
	startAt    time.Time
	closed     bool
}

// NewManager creates a browser Manager. Call Start with the process
// context; the session is launched lazily by the first Ensure call.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Config returns the manager configuration after defaults were applied.
func (m *Manager) Config() Config {
	return m.cfg
}

// Start binds the session lifetime context. Chrome launched by later
// Ensure calls is connected under this context, so the session outlives
// every individual render and dies with the process. Without Start the
// session runs under context.Background.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	m.sessionCtx = ctx
	m.mu.Unlock()
}

// Ensure returns the live Rod browser handle, launching Chrome on first
// use or after a recycle.
func (m *Manager) Ensure() (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil {
		return m.browser, nil
	}

	ctx := m.sessionCtx
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := m.launch(ctx)
	if err != nil {
		return nil, err
	}
	m.browser = b
	m.startAt = time.Now()
	return b, nil
}

// Recycle kills the current Chrome so the next Ensure starts a fresh one.
// Called after a failed render: the session is not guaranteed reusable
// once navigation or capture has errored.
func (m *Manager) Recycle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return
	}
	m.cfg.Logger.Info("browser: recycling", "uptime", time.Since(m.startAt))
	m.cleanup()
}

// Close shuts down Chrome for good.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cleanup()
	return nil
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	log := m.cfg.Logger

	var wsURL string
	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled").
			Set("window-size", fmt.Sprintf("%d,%d", m.cfg.WindowWidth, m.cfg.WindowHeight))

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome",
			"url", wsURL, "window", fmt.Sprintf("%dx%d", m.cfg.WindowWidth, m.cfg.WindowHeight))
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	// Ignore certificate errors for dev/testing.
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}

	return b, nil
}

func (m *Manager) cleanup() {
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
}
