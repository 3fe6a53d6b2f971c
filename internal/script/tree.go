package script

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node is the minimal view of a parsed markup tree the segmenter needs.
// Any parser that can expose children and text content can feed FromTree.
type Node interface {
	// Children returns element children and non-blank text children in
	// document order.
	Children() []Node

	// TextContent returns the concatenated text of all descendants.
	TextContent() string
}

// htmlNode adapts an *html.Node to Node.
type htmlNode struct {
	n *html.Node
}

// ParseHTML parses a chapter body fragment and returns its <body> element.
func ParseHTML(markup string) (Node, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("unable to parse markup: %w", err)
	}
	body := findBody(doc)
	if body == nil {
		return nil, ErrNoBody
	}
	return htmlNode{n: body}, nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func (h htmlNode) Children() []Node {
	var out []Node
	for c := h.n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			out = append(out, htmlNode{n: c})
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				out = append(out, htmlNode{n: c})
			}
		}
	}
	return out
}

func (h htmlNode) TextContent() string {
	if h.n.Type == html.TextNode {
		return h.n.Data
	}
	var b strings.Builder
	collectText(h.n, &b)
	return b.String()
}

func collectText(n *html.Node, b *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			collectText(c, b)
		}
	}
}

// contentRoot skips redundant wrappers: it descends into a sole child that
// carries all of its parent's text, as long as that child only wraps other
// elements. A child holding text directly is a block, not a wrapper.
func contentRoot(root Node) Node {
	for {
		children := root.Children()
		if len(children) != 1 {
			return root
		}
		child := children[0]
		if child.TextContent() != root.TextContent() || !isWrapper(child) {
			return root
		}
		root = child
	}
}

func isWrapper(n Node) bool {
	children := n.Children()
	if len(children) == 0 {
		return false
	}
	for _, c := range children {
		if strings.TrimSpace(c.TextContent()) == "" {
			continue
		}
		if len(c.Children()) == 0 {
			return false
		}
	}
	return true
}
