package script

import (
	"strings"
	"unicode"
)

// quote describes one family of quotation marks.
type quote struct {
	closers    string
	apostrophe bool // opens only when leading, closes only when trailing
}

// openers maps every recognized opening quotation mark to the marks that
// close it. Straight and curly, low-nine, guillemets and single guillemets
// are always openers outside of dialog; apostrophes only open when leading.
var openers = map[rune]quote{
	'"':      {closers: "\"\u201d"},
	'\u201c': {closers: "\u201d\""},              // “ ”
	'\u201e': {closers: "\u201c\u201d"},          // „ “
	'\u00ab': {closers: "\u00bb"},                // « »
	'\u2039': {closers: "\u203a"},                // ‹ ›
	'\'':     {closers: "'\u2019", apostrophe: true},
	'\u2018': {closers: "\u2019'", apostrophe: true}, // ‘ ’
}

// segment is one split span of a block before blank spans are dropped.
type segment struct {
	text string
	kind Kind
}

// splitDialog splits block text into alternating narration and dialog spans.
// The first span is always narration. An opening mark with no matching
// closing mark leaves the rest of the block as dialog, unless another
// unambiguous opening mark starts a new dialog span first. Apostrophes inside
// dialog never open a nested span.
func splitDialog(text string) []segment {
	runes := []rune(text)

	var (
		segs    []segment
		buf     strings.Builder
		kind    = KindNarration
		current *quote
	)
	flush := func(next Kind) {
		segs = append(segs, segment{text: buf.String(), kind: kind})
		buf.Reset()
		kind = next
	}

	for i, r := range runes {
		if current != nil {
			if closesQuote(*current, runes, i) {
				flush(KindNarration)
				current = nil
				continue
			}
			if q, ok := openers[r]; ok && !q.apostrophe && !strings.ContainsRune(current.closers, r) {
				flush(KindDialog)
				current = &q
				continue
			}
			buf.WriteRune(r)
			continue
		}

		if q, ok := openers[r]; ok && (!q.apostrophe || leading(runes, i)) {
			flush(KindDialog)
			current = &q
			continue
		}
		buf.WriteRune(r)
	}
	flush(kind)

	return segs
}

func closesQuote(q quote, runes []rune, i int) bool {
	if !strings.ContainsRune(q.closers, runes[i]) {
		return false
	}
	if q.apostrophe {
		return trailing(runes, i)
	}
	return true
}

// leading reports whether the mark at i starts a word.
func leading(runes []rune, i int) bool {
	if i == 0 {
		return true
	}
	prev := runes[i-1]
	return unicode.IsSpace(prev) || strings.ContainsRune("([{\u2014\u2013-\"\u201c", prev)
}

// trailing reports whether the mark at i ends a word, so contractions such
// as "don't" are not mistaken for closing marks.
func trailing(runes []rune, i int) bool {
	if i == len(runes)-1 {
		return true
	}
	next := runes[i+1]
	return !unicode.IsLetter(next) && !unicode.IsDigit(next)
}
