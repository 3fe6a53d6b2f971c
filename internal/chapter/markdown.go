package chapter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ficreader/narrator/utils"
)

// FromMarkdown converts a markdown document to a chapter. The first heading
// becomes the title and is left out of the body; without one the fallback
// title is used.
func FromMarkdown(fallback string, data []byte) (Chapter, error) {
	source := utils.RemoveFrontmatter(data)

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	title := fallback
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if n.Kind() != ast.KindHeading {
			continue
		}
		title = strings.TrimSpace(plainText(n, source))
		doc.RemoveChild(doc, n)
		break
	}

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, source, doc); err != nil {
		return Chapter{}, fmt.Errorf("unable to render markdown: %w", err)
	}

	return Chapter{Title: title, HTML: buf.String()}, nil
}

// plainText collects the text segments below n.
func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
