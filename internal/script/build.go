package script

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNoBody is returned when parsed markup has no body element.
var ErrNoBody = errors.New("markup has no body")

// UntitledHeading is spoken when a chapter has a blank title.
const UntitledHeading = "Untitled"

// doubleBreak matches two consecutive line breaks in any common spelling.
var doubleBreak = regexp.MustCompile(`(?i)<br\s*/?>\s*<br\s*/?>`)

// Normalize turns double line breaks into explicit paragraph boundaries.
func Normalize(markup string) string {
	return doubleBreak.ReplaceAllString(markup, "</p><p>")
}

// Build segments a chapter into a script. It is pure and deterministic: the
// same title and markup always yield the same chunks. Markup that cannot be
// parsed degrades to a script holding only the heading.
func Build(title, markup string) Script {
	root, err := ParseHTML(Normalize(markup))
	if err != nil {
		return Script{heading(title)}
	}
	return FromTree(title, root)
}

// FromTree segments an already parsed tree.
func FromTree(title string, root Node) Script {
	out := Script{heading(title)}
	if root == nil {
		return out
	}
	for _, block := range contentRoot(root).Children() {
		out = append(out, Block(block.TextContent())...)
	}
	return out
}

// Block splits the text of one source block into chunks. The last chunk
// breaks after; a block without text yields nothing.
func Block(text string) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []Chunk
	for _, s := range splitDialog(text) {
		if strings.TrimSpace(s.text) == "" {
			continue
		}
		chunks = append(chunks, Chunk{Text: s.text, Kind: s.kind})
	}
	if len(chunks) > 0 {
		chunks[len(chunks)-1].BreaksAfter = true
	}
	return chunks
}

func heading(title string) Chunk {
	title = strings.TrimSpace(title)
	if title == "" {
		title = UntitledHeading
	}
	return Chunk{Text: title, Kind: KindHeading, BreaksAfter: true}
}
