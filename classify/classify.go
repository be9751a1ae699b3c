// Package classify partitions a fetched document into the six XRL zones.
//
// The pipeline: parse → rewrite title → insert base reference → absolutise
// resource links → discard ignore subtrees → extract marked elements per
// zone → wrap the remainder as legacy content → lift head/footer/script/
// stylesheet tags into auxiliary lists.
//
// Extraction is destructive: a node is detached from the tree the moment it
// is classified, and every query runs against the already-reduced tree.
// Together these guarantee that each node lands in exactly one zone and
// that nothing outside the ignore subtrees is lost.
package classify

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Result is the classifier output consumed by the layout templates and the
// MCP view tool. Zone entries and auxiliary entries are serialised HTML.
type Result struct {
	Title string `json:"title"`

	// Main has at most one entry; overflow main elements are demoted to
	// the front of Below. Below always ends with the legacy wrapper.
	Main  []string `json:"xrl_main"`
	Head  []string `json:"xrl_head"`
	Left  []string `json:"xrl_left"`
	Right []string `json:"xrl_right"`
	Below []string `json:"xrl_below"`

	HeadList   []string `json:"head_list"`
	FooterList []string `json:"footer_list"`
	StyleList  []string `json:"style_list"`
	ScriptList []string `json:"script_list"`
}

// Classify reads an HTML document and partitions it into zones for the
// given target URL. The step order is load-bearing: ignore removal must
// precede zone extraction, zone extraction must precede legacy wrapping,
// and the auxiliary pass must run over the fully partitioned tree.
func Classify(r io.Reader, target string) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("classify: parse document: %w", err)
	}

	title := rewriteTitle(doc)
	insertBase(doc, target)
	rewriteLinks(doc, target)

	// Ignore subtrees go first so nothing nested under them can be
	// independently classified below.
	extractMarked(doc, MarkerIgnore)

	head := extractMarked(doc, MarkerHead)
	left := extractMarked(doc, MarkerLeft)
	right := extractMarked(doc, MarkerRight)
	mains := extractMarked(doc, MarkerMain)
	explicitBelow := extractMarked(doc, MarkerBelow)

	var main []*html.Node
	var overflow []*html.Node
	if len(mains) > 0 {
		main = mains[:1]
		overflow = mains[1:]
	}

	below := make([]*html.Node, 0, len(overflow)+len(explicitBelow)+1)
	below = append(below, overflow...)
	below = append(below, explicitBelow...)
	below = append(below, wrapLegacy(doc))

	// Auxiliary lists come out of every zone subtree, legacy wrapper
	// included, so no zone delivered downstream still contains a raw
	// head, footer, script, or stylesheet link tag.
	roots := make([]*html.Node, 0, len(head)+len(left)+len(right)+len(main)+len(below))
	roots = append(roots, head...)
	roots = append(roots, left...)
	roots = append(roots, right...)
	roots = append(roots, main...)
	roots = append(roots, below...)

	headList := pull(roots, isTag(atom.Head))
	footerList := pull(roots, isTag(atom.Footer))
	scriptList := pull(roots, isTag(atom.Script))

	var styleList []*html.Node
	for _, n := range pull(roots, isTag(atom.Link)) {
		if hasRelToken(n, "stylesheet") {
			styleList = append(styleList, n)
		} else {
			headList = append(headList, n)
		}
	}

	return &Result{
		Title:      title,
		Main:       renderNodes(main),
		Head:       renderNodes(head),
		Left:       renderNodes(left),
		Right:      renderNodes(right),
		Below:      renderNodes(below),
		HeadList:   renderNodes(headList),
		FooterList: renderNodes(footerList),
		StyleList:  renderNodes(styleList),
		ScriptList: renderNodes(scriptList),
	}, nil
}

// rewriteTitle prefixes an existing title with "XRL View - ", or creates a
// plain "XRL View" title when the page has none.
func rewriteTitle(doc *goquery.Document) string {
	if t := doc.Find("title").First(); t.Length() > 0 {
		title := "XRL View - " + t.Text()
		t.SetText(title)
		return title
	}

	title := &html.Node{Type: html.ElementNode, DataAtom: atom.Title, Data: "title"}
	title.AppendChild(&html.Node{Type: html.TextNode, Data: "XRL View"})
	ensureHead(doc).AppendChild(title)
	return "XRL View"
}

// insertBase places <base href=target> as the first child of head, so any
// link the rewrite pass did not touch still resolves against the origin.
func insertBase(doc *goquery.Document, target string) {
	base := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Base,
		Data:     "base",
		Attr:     []html.Attribute{{Key: "href", Val: target}},
	}
	h := ensureHead(doc)
	if h.FirstChild != nil {
		h.InsertBefore(base, h.FirstChild)
	} else {
		h.AppendChild(base)
	}
}

// ensureHead returns the document head, creating one when the parser did
// not synthesise it.
func ensureHead(doc *goquery.Document) *html.Node {
	if h := doc.Find("head").First(); h.Length() > 0 {
		return h.Nodes[0]
	}
	head := &html.Node{Type: html.ElementNode, DataAtom: atom.Head, Data: "head"}
	if root := doc.Find("html").First(); root.Length() > 0 {
		n := root.Nodes[0]
		if n.FirstChild != nil {
			n.InsertBefore(head, n.FirstChild)
		} else {
			n.AppendChild(head)
		}
	} else {
		doc.Nodes[0].AppendChild(head)
	}
	return head
}

// extractMarked detaches every element carrying the marker class, in
// document order, and returns the detached nodes. Once detached, a node is
// invisible to later queries, so overlapping marker nesting can never
// extract the same subtree twice.
func extractMarked(doc *goquery.Document, marker string) []*html.Node {
	sel := doc.Find("." + marker)
	nodes := make([]*html.Node, len(sel.Nodes))
	copy(nodes, sel.Nodes)
	for _, n := range nodes {
		detach(n)
	}
	return nodes
}

// wrapLegacy moves whatever remains of the document into a synthetic below
// container. The doctype node is dropped: it has no place inside a div.
func wrapLegacy(doc *goquery.Document) *html.Node {
	wrapper := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
		Attr: []html.Attribute{
			{Key: "class", Val: MarkerBelow},
			{Key: "id", Val: LegacyID},
		},
	}
	root := doc.Nodes[0]
	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		root.RemoveChild(c)
		if c.Type != html.DoctypeNode {
			wrapper.AppendChild(c)
		}
		c = next
	}
	return wrapper
}

// pull detaches every node below the given roots matching pred and returns
// them in document order.
func pull(roots []*html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for _, root := range roots {
		for _, n := range findAll(root, pred) {
			detach(n)
			out = append(out, n)
		}
	}
	return out
}
