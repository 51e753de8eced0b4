package crawler

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Page is the parsed content of one fetched HTML document.
type Page struct {
	Title string
	Text  string
	Links []string
}

// ExtractPage parses HTML and pulls out the title, the visible text, and all
// outgoing links resolved against the page URL. Script, style, and noscript
// subtrees are skipped.
func ExtractPage(root *html.Node, base *url.URL) Page {
	var page Page
	var text strings.Builder
	seen := make(map[string]struct{})

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "title":
				if page.Title == "" && n.FirstChild != nil {
					page.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "a":
				if link, ok := resolveHref(n, base); ok {
					if _, dup := seen[link]; !dup {
						seen[link] = struct{}{}
						page.Links = append(page.Links, link)
					}
				}
			}
		case html.TextNode:
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				text.WriteString(trimmed)
				text.WriteByte(' ')
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	page.Text = strings.TrimSpace(text.String())
	return page
}

// resolveHref extracts, resolves, and normalises an anchor's href.
func resolveHref(n *html.Node, base *url.URL) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key != "href" {
			continue
		}
		ref, err := url.Parse(strings.TrimSpace(attr.Val))
		if err != nil {
			return "", false
		}
		resolved := base.ResolveReference(ref)
		return NormalizeURL(resolved)
	}
	return "", false
}

// NormalizeURL strips fragments and rejects non-HTTP schemes so the same
// page is never queued twice under different spellings.
func NormalizeURL(u *url.URL) (string, bool) {
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	clean := *u
	clean.Fragment = ""
	return clean.String(), true
}
