package launch

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// PageSnapshot is a compact rendering of a page's DOM: scripts, styles and
// comments removed, only targeting attributes kept. Content injected by
// extensions shows up here.
type PageSnapshot struct {
	Title     string `json:"title"`
	HTML      string `json:"html"`
	Truncated bool   `json:"truncated"`
}

var (
	droppedElements = map[string]bool{
		"script": true, "style": true, "noscript": true, "template": true,
		"iframe": true, "embed": true, "object": true, "svg": true,
	}

	voidElements = map[string]bool{
		"area": true, "base": true, "br": true, "col": true, "embed": true,
		"hr": true, "img": true, "input": true, "link": true, "meta": true,
		"source": true, "track": true, "wbr": true,
	}

	blockElements = map[string]bool{
		"html": true, "head": true, "body": true, "div": true, "p": true,
		"section": true, "article": true, "header": true, "footer": true,
		"nav": true, "main": true, "aside": true, "ul": true, "ol": true,
		"li": true, "table": true, "tr": true, "form": true, "pre": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	}

	keptAttributes = map[string]bool{
		"id": true, "class": true, "role": true, "name": true,
		"href": true, "src": true, "alt": true, "type": true, "aria-label": true,
	}
)

// Snapshot parses rawHTML and renders it compactly, stopping once maxLength
// bytes of output have been produced. A maxLength of zero means no limit.
func Snapshot(rawHTML string, maxLength int) (*PageSnapshot, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	w := &snapshotWriter{limit: maxLength}
	w.node(doc, 0)
	return &PageSnapshot{
		Title:     findTitle(doc),
		HTML:      strings.TrimSpace(w.buf.String()),
		Truncated: w.truncated,
	}, nil
}

type snapshotWriter struct {
	buf       strings.Builder
	limit     int
	truncated bool
}

func (w *snapshotWriter) write(s string) {
	if w.truncated {
		return
	}
	if remaining := w.limit - w.buf.Len(); w.limit > 0 && len(s) > remaining {
		w.buf.WriteString(s[:remaining])
		w.buf.WriteString("...")
		w.truncated = true
		return
	}
	w.buf.WriteString(s)
}

func (w *snapshotWriter) node(n *html.Node, depth int) {
	if w.truncated {
		return
	}

	switch n.Type {
	case html.TextNode:
		if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
			w.write(text)
		}
	case html.ElementNode:
		w.element(n, depth)
	case html.DocumentNode:
		w.children(n, depth)
	}
}

func (w *snapshotWriter) element(n *html.Node, depth int) {
	tag := strings.ToLower(n.Data)
	if droppedElements[tag] {
		return
	}

	block := blockElements[tag]
	if block && depth > 0 {
		w.write("\n" + strings.Repeat("  ", depth))
	}

	var open strings.Builder
	open.WriteString("<" + tag)
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if keptAttributes[key] || strings.HasPrefix(key, "data-") {
			fmt.Fprintf(&open, ` %s="%s"`, key, html.EscapeString(attr.Val))
		}
	}
	open.WriteString(">")
	w.write(open.String())

	if voidElements[tag] {
		return
	}

	w.children(n, depth+1)

	if block {
		w.write("\n" + strings.Repeat("  ", depth))
	}
	w.write("</" + tag + ">")
}

func (w *snapshotWriter) children(n *html.Node, depth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c, depth)
	}
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		var text strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				text.WriteString(c.Data)
			}
		}
		return strings.TrimSpace(text.String())
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitle(c); title != "" {
			return title
		}
	}
	return ""
}
