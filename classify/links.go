package classify

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// ResolveLink makes a resource reference absolute against a base URL.
// Links that already carry a network location (absolute and
// protocol-relative forms) are returned unchanged; everything else is
// resolved with standard relative-reference resolution.
func ResolveLink(link, base string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host != "" {
		return link
	}
	b, err := url.Parse(base)
	if err != nil {
		return link
	}
	return b.ResolveReference(u).String()
}

// rewriteLinks applies ResolveLink to every resource reference in the
// document, in document order: src on script/img tags, href on link tags,
// and content on meta tags whose itemprop is "image". The attribute checks
// are a first-match chain per tag.
func rewriteLinks(doc *goquery.Document, base string) {
	doc.Find("script, link, img, meta").Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("src"); ok {
			s.SetAttr("src", ResolveLink(v, base))
		} else if v, ok := s.Attr("href"); ok {
			s.SetAttr("href", ResolveLink(v, base))
		} else if v, ok := s.Attr("content"); ok && v != "" && s.AttrOr("itemprop", "") == "image" {
			s.SetAttr("content", ResolveLink(v, base))
		}
	})
}
