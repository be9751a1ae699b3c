package render

import (
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/xrl/classify"
)

// visibilityJS walks every zone-marked element and collects the minimal
// set needing correction: the element itself plus any ancestor with zero
// rendered size or hidden visibility, deduplicated across targets. The
// collected set is forced into the layout. Returns the number of mutated
// elements, so a second pass over an already-visible tree observably
// returns zero.
const visibilityJS = `() => {
	const updates = new Set();
	document.querySelectorAll('%s').forEach((element) => {
		const style = window.getComputedStyle(element);
		if (element.offsetWidth === 0 || element.offsetHeight === 0 || style.visibility === 'hidden') {
			let parent = element.parentElement;
			while (parent) {
				if (!updates.has(parent)) {
					const parentStyle = window.getComputedStyle(parent);
					if (parent.offsetWidth === 0 || parent.offsetHeight === 0 || parentStyle.visibility === 'hidden') {
						updates.add(parent);
					}
				}
				parent = parent.parentElement;
			}
			updates.add(element);
		}
	});
	updates.forEach((element) => {
		element.style.display = 'flex';
		element.style.visibility = 'visible';
	});
	return updates.size;
}`

// visibilityScript binds the zone selectors into the resolver pass.
func visibilityScript() string {
	return fmt.Sprintf(visibilityJS, classify.Selector(classify.ContentMarkers))
}

// resolveVisibility runs the resolver once against a loaded page and
// returns how many elements it had to force visible. Idempotent: with the
// tree already visible the count is zero and nothing is mutated.
func resolveVisibility(page *rod.Page) (int, error) {
	res, err := page.Eval(visibilityScript())
	if err != nil {
		return 0, fmt.Errorf("render: resolve visibility: %w", err)
	}
	return res.Value.Int(), nil
}
