package classify

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// detach removes a node from its parent, keeping its subtree intact.
// Detaching an already-detached node is a no-op.
func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// findAll walks a subtree depth-first in document order and returns every
// node below root matching pred. The root itself is not tested, so a zone
// element can never be pulled out of its own zone by an auxiliary pass.
func findAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if pred(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

// isTag matches element nodes by atom.
func isTag(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

// attrVal returns the value of the named attribute, or "".
func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// hasRelToken reports whether a link node's rel attribute contains the
// given token (rel is a space-separated list).
func hasRelToken(n *html.Node, token string) bool {
	for _, t := range strings.Fields(attrVal(n, "rel")) {
		if t == token {
			return true
		}
	}
	return false
}

// renderNode serialises an HTML node subtree back to a string.
func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	html.Render(&buf, n)
	return buf.String()
}

func renderNodes(nodes []*html.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, renderNode(n))
	}
	return out
}
