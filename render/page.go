package render

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/xrl/classify"
)

// prepareJS resets the body transform and removes sizing constraints from
// container-marked elements so captures are never clipped by max-width or
// max-height rules.
const prepareJS = `() => {
	document.body.style.transform = 'scale(1)';
	document.body.style.transformOrigin = '0 0';
	document.querySelectorAll('.` + classify.MarkerContainer + `').forEach((container) => {
		container.style.maxWidth = 'none';
		container.style.maxHeight = 'none';
	});
}`

// isolationJS runs with `this` bound to the capture target. It shows the
// target, its ancestors, and its descendants (script/style/head/meta tags
// excepted), then walks every marker-class element on the page: shown when
// on the target's ancestor path, hidden otherwise. Because the pass always
// visits the complete marker set, no state from the previous element's
// isolation survives into this one.
const isolationJS = `() => {
	const skip = new Set(['SCRIPT', 'STYLE', 'HEAD', 'META']);
	const path = new Set();
	for (let node = this; node; node = node.parentElement) {
		path.add(node);
	}

	const show = (el) => {
		if (skip.has(el.tagName) || !el.style) return;
		el.style.visibility = 'visible';
		if (window.getComputedStyle(el).display === 'none') {
			el.style.display = 'flex';
		}
	};

	path.forEach(show);
	this.querySelectorAll('*').forEach(show);

	document.querySelectorAll('%s').forEach((el) => {
		if (path.has(el)) {
			show(el);
			return;
		}
		el.style.visibility = 'hidden';
		el.style.display = 'none';
	});
}`

func isolationScript() string {
	return fmt.Sprintf(isolationJS, classify.Selector(classify.IsolationMarkers))
}

// rodPage adapts a live Rod page to the snapshotter.
type rodPage struct {
	page *rod.Page
}

func (r rodPage) prepare() error {
	_, err := r.page.Eval(prepareJS)
	return err
}

func (r rodPage) fullPage() (element, error) {
	el, err := r.page.Element("body")
	if err != nil {
		return nil, fmt.Errorf("body element: %w", err)
	}
	return rodElement{el}, nil
}

// zones reads the capture categories from the live page. The assembled
// page carries the classifier's markers, legacy wrapper included; reading
// them back from the DOM keeps capture order identical to extraction
// order. Extra main-marked elements are demoted to the front of below,
// the same cardinality rule the classifier applies.
func (r rodPage) zones() (*zoneSet, error) {
	find := func(marker string) ([]element, error) {
		els, err := r.page.Elements("." + marker)
		if err != nil {
			return nil, fmt.Errorf("find .%s: %w", marker, err)
		}
		out := make([]element, 0, len(els))
		for _, el := range els {
			out = append(out, rodElement{el})
		}
		return out, nil
	}

	head, err := find(classify.MarkerHead)
	if err != nil {
		return nil, err
	}
	left, err := find(classify.MarkerLeft)
	if err != nil {
		return nil, err
	}
	right, err := find(classify.MarkerRight)
	if err != nil {
		return nil, err
	}
	mains, err := find(classify.MarkerMain)
	if err != nil {
		return nil, err
	}
	below, err := find(classify.MarkerBelow)
	if err != nil {
		return nil, err
	}

	zs := &zoneSet{head: head, left: left, right: right}
	if len(mains) > 0 {
		zs.main = mains[:1]
		zs.below = append(mains[1:], below...)
	} else {
		zs.below = below
	}
	return zs, nil
}

// rodElement adapts a Rod element to the capture interface.
type rodElement struct {
	el *rod.Element
}

func (e rodElement) isolate() error {
	_, err := e.el.Eval(isolationScript())
	return err
}

func (e rodElement) size() (int, int, error) {
	res, err := e.el.Eval(`() => ({width: this.offsetWidth, height: this.offsetHeight})`)
	if err != nil {
		return 0, 0, err
	}
	return res.Value.Get("width").Int(), res.Value.Get("height").Int(), nil
}

func (e rodElement) screenshot() ([]byte, error) {
	return e.el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
}
