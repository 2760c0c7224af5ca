/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: finder.go
Description: Timestamp field selection. Locates timestamps inside free text and picks the
(field, format) pair that matches the largest share of sampled values across a set of
candidate columns.
*/

package timestamp

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Span marks a timestamp found inside a larger text
type Span struct {
	Start  int
	End    int
	Format Format
	Layout string
}

// Locator finds timestamps of a fixed list of formats inside free text
type Locator struct {
	formats []Format
	search  *regexp.Regexp
}

// NewLocator builds a locator over the inline formats among formats. Earlier formats win
// when several match at the same position.
func NewLocator(formats ...Format) *Locator {
	l := &Locator{}
	parts := make([]string, 0, len(formats))
	for _, f := range formats {
		if f.inline {
			l.formats = append(l.formats, f)
			parts = append(parts, `(?:`+f.pattern+`)`)
		}
	}
	if len(parts) > 0 {
		l.search = regexp.MustCompile(strings.Join(parts, "|"))
	}
	return l
}

var defaultLocator = NewLocator(builtin...)

// LocatorFor returns a locator that tries pinned before the built-in formats, or the
// built-in locator when pinned is nil
func LocatorFor(pinned *Format) *Locator {
	if pinned == nil || !pinned.inline {
		return defaultLocator
	}
	formats := []Format{*pinned}
	for _, f := range builtin {
		if f.Name != pinned.Name {
			formats = append(formats, f)
		}
	}
	return NewLocator(formats...)
}

// Locate returns the leftmost built-in timestamp in text
func Locate(text string) (Span, bool) {
	return defaultLocator.Locate(text)
}

// LocateAll returns every non-overlapping built-in timestamp span in text
func LocateAll(text string) []Span {
	return defaultLocator.LocateAll(text)
}

// LocateAtStart reports the built-in timestamp that begins at position 0 of text, if any
func LocateAtStart(text string) (Span, bool) {
	return defaultLocator.LocateAtStart(text)
}

// Locate returns the leftmost timestamp in text. Candidates must sit on word boundaries
// and must validate against one of the format's layouts.
func (l *Locator) Locate(text string) (Span, bool) {
	if l.search == nil {
		return Span{}, false
	}
	offset := 0
	for offset < len(text) {
		loc := l.search.FindStringIndex(text[offset:])
		if loc == nil {
			return Span{}, false
		}
		start := offset + loc[0]
		if span, ok := l.spanAt(text, start); ok {
			return span, true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return Span{}, false
}

// LocateAll returns every non-overlapping timestamp span in text, left to right
func (l *Locator) LocateAll(text string) []Span {
	var spans []Span
	offset := 0
	for offset < len(text) {
		span, ok := l.Locate(text[offset:])
		if !ok {
			break
		}
		span.Start += offset
		span.End += offset
		spans = append(spans, span)
		offset = span.End
	}
	return spans
}

// LocateAtStart reports the timestamp that begins at position 0 of text, if any
func (l *Locator) LocateAtStart(text string) (Span, bool) {
	span, ok := l.Locate(text)
	if !ok || span.Start != 0 {
		return Span{}, false
	}
	return span, true
}

// spanAt tries every format in order at start
func (l *Locator) spanAt(text string, start int) (Span, bool) {
	if start > 0 && isWordByte(text[start-1]) {
		return Span{}, false
	}
	for _, f := range l.formats {
		m := f.prefix.FindString(text[start:])
		if m == "" {
			continue
		}
		stop := start + len(m)
		if stop < len(text) && isWordByte(text[stop]) {
			continue
		}
		if layout, ok := f.Match(m); ok {
			return Span{Start: start, End: stop, Format: f, Layout: layout}, true
		}
	}
	return Span{}, false
}

func isWordByte(b byte) bool {
	r := rune(b)
	return b < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// Column is the ordered list of values observed for one field, one entry per record.
// Missing values are represented by empty strings.
type Column struct {
	Name   string
	Values []string
}

// SelectOptions narrows the search for a timestamp field
type SelectOptions struct {
	MajorityFraction float64 // Share of values that must match, exclusive
	PinnedField      string  // Only consider this field
	PinnedFormat     *Format // Only consider this format
}

// Selection is the chosen timestamp field and format
type Selection struct {
	Field    string
	Format   Format
	Layout   string
	Fraction float64
}

// Select picks the (field, format) pair matching the highest fraction of values.
// Ties prefer the earliest column, then the higher-ranked format.
func Select(columns []Column, opts SelectOptions) (Selection, bool) {
	formats := builtin
	if opts.PinnedFormat != nil {
		formats = []Format{*opts.PinnedFormat}
	}

	var best Selection
	found := false
	for _, col := range columns {
		if opts.PinnedField != "" && col.Name != opts.PinnedField {
			continue
		}
		if len(col.Values) == 0 {
			continue
		}
		for _, f := range formats {
			fraction, layout := score(col.Values, f)
			if fraction <= opts.MajorityFraction {
				continue
			}
			if !found || fraction > best.Fraction {
				best = Selection{Field: col.Name, Format: f, Layout: layout, Fraction: fraction}
				found = true
			}
		}
	}
	return best, found
}

// score returns the share of values matching f and the most frequent layout among them
func score(values []string, f Format) (float64, string) {
	matched := 0
	layoutCounts := make(map[string]int)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if layout, ok := f.Match(v); ok {
			matched++
			layoutCounts[layout]++
		}
	}
	if matched == 0 {
		return 0, ""
	}

	bestLayout := ""
	bestCount := -1
	for _, layout := range f.Layouts {
		if c := layoutCounts[layout]; c > bestCount {
			bestLayout, bestCount = layout, c
		}
	}
	return float64(matched) / float64(len(values)), bestLayout
}
