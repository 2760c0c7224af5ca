/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: formats.go
Description: Ranked list of recognised timestamp formats. Each format pairs an anchored
regular expression (cheap rejection) with the Go layouts that validate a candidate value.
Epoch formats are numeric and only ever match whole values.
*/

package timestamp

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Format is one recognisable timestamp shape
type Format struct {
	Name    string   // Stable identifier reported in the structure description
	Layouts []string // Go layouts tried in order; empty for epoch formats
	Example string   // Human-readable example value

	pattern  string         // Unanchored regex body
	anchored *regexp.Regexp // ^pattern$
	prefix   *regexp.Regexp // ^pattern, for inline formats
	epochDiv int64          // 1 for seconds, 1000 for millis, 0 for layout formats
	inline   bool           // May be located inside free text
}

// Epoch bounds: values outside 2000-01-01 .. 2100-01-01 are not treated as timestamps
var (
	minEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxEpoch = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
)

func newFormat(name, pattern, example string, inline bool, epochDiv int64, layouts ...string) Format {
	f := Format{
		Name:     name,
		Layouts:  layouts,
		Example:  example,
		pattern:  pattern,
		epochDiv: epochDiv,
		inline:   inline,
	}
	if pattern != "" {
		f.anchored = regexp.MustCompile(`^(?:` + pattern + `)$`)
	}
	if inline {
		f.prefix = regexp.MustCompile(`^(?:` + pattern + `)`)
	}
	return f
}

// builtin is ordered from most to least specific; the order doubles as tie-break rank
var builtin = []Format{
	newFormat("ISO8601",
		`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(?::\d{2}(?:[.,]\d{1,9})?)?(?:Z|[+-]\d{2}:?\d{2})?`,
		"2024-01-01T12:00:00Z", true, 0,
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05-0700",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05-0700",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04Z07:00",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
	),
	newFormat("HTTPDATE",
		`\d{2}/[A-Z][a-z]{2}/\d{4}:\d{2}:\d{2}:\d{2} [+-]\d{4}`,
		"17/Feb/2026:12:00:00 +0000", true, 0,
		"02/Jan/2006:15:04:05 -0700",
	),
	newFormat("RFC1123",
		`[A-Z][a-z]{2}, \d{2} [A-Z][a-z]{2} \d{4} \d{2}:\d{2}:\d{2} (?:[A-Z]{3,4}|[+-]\d{4})`,
		"Mon, 02 Jan 2006 15:04:05 MST", true, 0,
		time.RFC1123Z,
		time.RFC1123,
	),
	newFormat("SYSLOG",
		`[A-Z][a-z]{2} [ \d]\d \d{2}:\d{2}:\d{2}`,
		"Jan  2 15:04:05", true, 0,
		"Jan _2 15:04:05",
		"Jan 02 15:04:05",
	),
	newFormat("US_DATETIME",
		`\d{2}/\d{2}/\d{4} \d{2}:\d{2}:\d{2}`,
		"01/02/2006 15:04:05", true, 0,
		"01/02/2006 15:04:05",
	),
	newFormat("ISO8601_DATE",
		`\d{4}-\d{2}-\d{2}`,
		"2024-01-01", true, 0,
		"2006-01-02",
	),
	newFormat("UNIX_MS", `\d{13}`, "1704110400000", false, 1000),
	newFormat("UNIX", `\d{10}(?:\.\d{1,6})?`, "1704110400", false, 1),
}

// Formats returns the built-in formats in rank order
func Formats() []Format {
	out := make([]Format, len(builtin))
	copy(out, builtin)
	return out
}

// Lookup resolves a pinned timestamp format. Known names match case-insensitively;
// anything containing a Go reference-time component is treated as a custom layout.
func Lookup(spec string) (Format, bool) {
	for _, f := range builtin {
		if strings.EqualFold(f.Name, spec) {
			return f, true
		}
	}
	if strings.Contains(spec, "2006") || strings.Contains(spec, "15:04") || strings.Contains(spec, "Jan") {
		return newFormat(spec, LayoutPattern(spec), spec, true, 0, spec), true
	}
	return Format{}, false
}

// layoutElements maps Go reference-time elements to the text they parse, longest first
// where one element prefixes another
var layoutElements = []struct{ elem, pattern string }{
	{"January", `[A-Z][a-z]+`},
	{"Monday", `[A-Z][a-z]+`},
	{"2006", `\d{4}`},
	{"Z07:00", `(?:Z|[+-]\d{2}:\d{2})`},
	{"Z0700", `(?:Z|[+-]\d{4})`},
	{"Z07", `(?:Z|[+-]\d{2})`},
	{"-07:00", `[+-]\d{2}:\d{2}`},
	{"-0700", `[+-]\d{4}`},
	{"-07", `[+-]\d{2}`},
	{"Jan", `[A-Z][a-z]{2}`},
	{"Mon", `[A-Z][a-z]{2}`},
	{"MST", `[A-Z]{3,5}`},
	{"002", `\d{3}`},
	{"01", `\d{2}`},
	{"02", `\d{2}`},
	{"03", `\d{2}`},
	{"04", `\d{2}`},
	{"05", `\d{2}`},
	{"06", `\d{2}`},
	{"15", `\d{2}`},
	{"_2", `[ \d]\d`},
	{"PM", `[AP]M`},
	{"pm", `[ap]m`},
	{"1", `\d{1,2}`},
	{"2", `\d{1,2}`},
	{"3", `\d{1,2}`},
	{"4", `\d{1,2}`},
	{"5", `\d{1,2}`},
}

// LayoutPattern derives an unanchored regex body matching the values a Go layout parses.
// Seconds accept an optional fraction, as time.Parse does.
func LayoutPattern(layout string) string {
	var b strings.Builder
	for i := 0; i < len(layout); {
		if n, pattern, ok := fraction(layout, i); ok {
			b.WriteString(pattern)
			i += n
			continue
		}
		matched := false
		for _, e := range layoutElements {
			if strings.HasPrefix(layout[i:], e.elem) {
				b.WriteString(e.pattern)
				i += len(e.elem)
				matched = true
				if e.elem == "05" {
					if _, _, explicit := fraction(layout, i); !explicit {
						b.WriteString(`(?:[.,]\d{1,9})?`)
					}
				}
				break
			}
		}
		if matched {
			continue
		}
		r, size := utf8.DecodeRuneInString(layout[i:])
		b.WriteString(regexp.QuoteMeta(string(r)))
		i += size
	}
	return b.String()
}

// fraction recognises a fractional-second element (.000 or ,999) at i and returns its
// length and pattern
func fraction(layout string, i int) (int, string, bool) {
	if i+1 >= len(layout) || (layout[i] != '.' && layout[i] != ',') {
		return 0, "", false
	}
	digit := layout[i+1]
	if digit != '0' && digit != '9' {
		return 0, "", false
	}
	j := i + 1
	for j < len(layout) && layout[j] == digit {
		j++
	}
	if j < len(layout) && layout[j] >= '0' && layout[j] <= '9' {
		return 0, "", false
	}
	n := j - i - 1
	if digit == '0' {
		return j - i, `[.,]\d{` + strconv.Itoa(n) + `}`, true
	}
	return j - i, `(?:[.,]\d{1,` + strconv.Itoa(n) + `})?`, true
}

// IsEpoch reports whether the format is a numeric epoch
func (f Format) IsEpoch() bool {
	return f.epochDiv != 0
}

// Pattern returns the unanchored regex body for the format, or a permissive catch-all
// when it has none
func (f Format) Pattern() string {
	if f.pattern == "" {
		return `.+?`
	}
	return f.pattern
}

// Match reports whether value is a timestamp in this format and returns the layout that
// parsed it. Epoch formats return an empty layout.
func (f Format) Match(value string) (string, bool) {
	if f.anchored != nil && !f.anchored.MatchString(value) {
		return "", false
	}
	if f.IsEpoch() {
		_, ok := f.parseEpoch(value)
		return "", ok
	}
	for _, layout := range f.Layouts {
		if _, err := time.Parse(layout, value); err == nil {
			return layout, true
		}
	}
	return "", false
}

// Parse converts value into a time using this format
func (f Format) Parse(value string) (time.Time, bool) {
	if f.IsEpoch() {
		return f.parseEpoch(value)
	}
	if f.anchored != nil && !f.anchored.MatchString(value) {
		return time.Time{}, false
	}
	for _, layout := range f.Layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (f Format) parseEpoch(value string) (time.Time, bool) {
	whole := value
	frac := ""
	if i := strings.IndexByte(value, '.'); i >= 0 {
		whole, frac = value[:i], value[i+1:]
	}
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	var t time.Time
	if f.epochDiv == 1000 {
		t = time.UnixMilli(n).UTC()
	} else {
		nanos := int64(0)
		if frac != "" {
			padded := (frac + "000000000")[:9]
			nanos, _ = strconv.ParseInt(padded, 10, 64)
		}
		t = time.Unix(n, nanos).UTC()
	}
	if t.Unix() < minEpoch || t.Unix() >= maxEpoch {
		return time.Time{}, false
	}
	return t, true
}

// HasZone reports whether values in the given layout carry their own time zone
func HasZone(f Format, layout string) bool {
	if f.IsEpoch() {
		return true
	}
	return strings.Contains(layout, "Z07") || strings.Contains(layout, "-0700") ||
		strings.Contains(layout, "MST")
}

// Detect returns the first built-in format matching the whole value
func Detect(value string) (Format, string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Format{}, "", false
	}
	for _, f := range builtin {
		if layout, ok := f.Match(value); ok {
			return f, layout, true
		}
	}
	return Format{}, "", false
}
