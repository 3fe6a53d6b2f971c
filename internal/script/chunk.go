// Package script turns a chapter's title and markup into a speakable script:
// an ordered list of typed chunks that a narrator reads one at a time.
package script

import "strings"

// Kind identifies how a chunk should be voiced.
type Kind int

const (
	// KindHeading is the chapter title.
	KindHeading Kind = iota
	// KindNarration is prose outside of quotation marks.
	KindNarration
	// KindDialog is text inside quotation marks.
	KindDialog
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindNarration:
		return "narration"
	case KindDialog:
		return "dialog"
	default:
		return "unknown"
	}
}

// Chunk is the smallest speakable unit of a script.
type Chunk struct {
	Text        string // Text to speak, never blank
	Kind        Kind   // How the text is voiced
	BreaksAfter bool   // True on the last chunk of a source block
}

// Script is the ordered chunk sequence of one chapter.
// The first chunk of a non-empty script is always the heading.
type Script []Chunk

// Stats summarizes a script.
type Stats struct {
	Chunks    int
	Blocks    int
	Narration int
	Dialog    int
	Words     int
}

// Stats counts chunks per kind, source blocks and words.
func (s Script) Stats() Stats {
	var st Stats
	for _, c := range s {
		st.Chunks++
		st.Words += len(strings.Fields(c.Text))
		switch c.Kind {
		case KindNarration:
			st.Narration++
		case KindDialog:
			st.Dialog++
		}
		if c.BreaksAfter && c.Kind != KindHeading {
			st.Blocks++
		}
	}
	return st
}
