package render

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// element is one capturable target on the live page. *rod.Element backs it
// in production; tests substitute fakes.
type element interface {
	// isolate recomputes isolation state for this element from the full
	// marker-class set: target, ancestors, and descendants are shown,
	// every other marked element on the page is hidden.
	isolate() error
	// size reports the rendered dimensions after isolation.
	size() (width, height int, err error)
	// screenshot captures exactly this element as PNG.
	screenshot() ([]byte, error)
}

// pageHandle is the live-page surface the snapshotter drives.
type pageHandle interface {
	// prepare resets the body transform and strips max-width/max-height
	// from container-marked elements so captures are never clipped.
	prepare() error
	// fullPage returns the root content element.
	fullPage() (element, error)
	// zones returns the five capture categories in extraction order.
	zones() (*zoneSet, error)
}

// zoneSet holds the per-category element lists read from the live page.
// Main keeps only the first main-marked element; the rest lead Below,
// mirroring the classifier's cardinality rule.
type zoneSet struct {
	head, left, right, main, below []element
}

func (z *zoneSet) ordered() []struct {
	name string
	els  []element
} {
	return []struct {
		name string
		els  []element
	}{
		{ZoneHead, z.head},
		{ZoneLeft, z.left},
		{ZoneRight, z.right},
		{ZoneMain, z.main},
		{ZoneBelow, z.below},
	}
}

// snapshotter captures per-zone screenshots into dir and builds the
// manifest with URLs anchored at baseURL.
type snapshotter struct {
	dir     string
	baseURL string
	logger  *slog.Logger
}

// run executes the capture sequence on a prepared page. Any failure
// aborts: no partial manifest is ever returned.
func (s *snapshotter) run(p pageHandle) (*Manifest, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("render: create images dir: %w", err)
	}

	if err := p.prepare(); err != nil {
		return nil, fmt.Errorf("render: prepare page: %w", err)
	}

	man := newManifest()

	// Full page goes first, unconditionally, before any isolation has
	// touched element visibility.
	full, err := p.fullPage()
	if err != nil {
		return nil, fmt.Errorf("render: locate full page: %w", err)
	}
	w, h, err := full.size()
	if err != nil {
		return nil, fmt.Errorf("render: measure full page: %w", err)
	}
	img, err := full.screenshot()
	if err != nil {
		return nil, fmt.Errorf("render: screenshot full page: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, "full_page.png"), img, 0o644); err != nil {
		return nil, fmt.Errorf("render: write full_page.png: %w", err)
	}
	man.FullPage = ImageInfo{URL: s.imageURL("full_page.png"), Width: w, Height: h}

	zs, err := p.zones()
	if err != nil {
		return nil, fmt.Errorf("render: collect zones: %w", err)
	}

	for _, zone := range zs.ordered() {
		for i, el := range zone.els {
			if err := el.isolate(); err != nil {
				return nil, fmt.Errorf("render: isolate %s[%d]: %w", zone.name, i, err)
			}
			// File names carry the element index, so a skipped
			// zero-size element leaves a gap rather than shifting
			// later names.
			info, captured, err := s.capture(el, fmt.Sprintf("%s-%d.png", zone.name, i))
			if err != nil {
				return nil, fmt.Errorf("render: capture %s[%d]: %w", zone.name, i, err)
			}
			if !captured {
				s.logger.Debug("render: skipped zero-size element", "zone", zone.name, "index", i)
				continue
			}
			man.appendZone(zone.name, info)
		}
	}

	return man, nil
}

// capture measures an element and, when it has nonzero size, writes its
// screenshot and returns the descriptor. Zero size reports captured=false
// with no error.
func (s *snapshotter) capture(el element, name string) (ImageInfo, bool, error) {
	w, h, err := el.size()
	if err != nil {
		return ImageInfo{}, false, fmt.Errorf("render: measure %s: %w", name, err)
	}
	if w == 0 || h == 0 {
		return ImageInfo{}, false, nil
	}

	img, err := el.screenshot()
	if err != nil {
		return ImageInfo{}, false, fmt.Errorf("render: screenshot %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), img, 0o644); err != nil {
		return ImageInfo{}, false, fmt.Errorf("render: write %s: %w", name, err)
	}

	return ImageInfo{URL: s.imageURL(name), Width: w, Height: h}, true, nil
}

func (s *snapshotter) imageURL(name string) string {
	return strings.TrimSuffix(s.baseURL, "/") + "/images/" + name
}
