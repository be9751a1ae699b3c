package classify

import "strings"

// Marker classes are the case-sensitive tokens recognised on source
// elements. The first six assign content to zones; element and container
// are layout hints consumed only by the capture pipeline.
const (
	MarkerHead      = "XRL-head"
	MarkerLeft      = "XRL-left"
	MarkerRight     = "XRL-right"
	MarkerMain      = "XRL-main"
	MarkerBelow     = "XRL-below"
	MarkerIgnore    = "XRL-ignore"
	MarkerElement   = "XRL-element"
	MarkerContainer = "XRL-container"
)

// LegacyID is the id of the synthetic wrapper holding unmarked leftover
// content. The wrapper carries the below marker so it is captured like any
// other below entry.
const LegacyID = "XRL-computed-legacy"

// ContentMarkers lists the five zone classes in extraction order.
var ContentMarkers = []string{MarkerHead, MarkerLeft, MarkerRight, MarkerMain, MarkerBelow}

// IsolationMarkers lists every class recomputed on each isolation pass.
// Container is excluded: it is a sizing hint, never hidden or shown.
var IsolationMarkers = []string{
	MarkerHead, MarkerLeft, MarkerRight, MarkerMain,
	MarkerBelow, MarkerIgnore, MarkerElement,
}

// Selector joins marker classes into a CSS class selector list.
func Selector(markers []string) string {
	parts := make([]string, len(markers))
	for i, m := range markers {
		parts[i] = "." + m
	}
	return strings.Join(parts, ", ")
}
