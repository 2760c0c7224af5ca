/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tokens.go
Description: Typed tokenizer for free text. Splits a record into timestamps, IPv4 addresses,
numbers, words, quoted strings, bracketed groups and single punctuation characters, and
records for each token whether whitespace preceded it.
*/

package tokenize

import (
	"net/netip"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kleascm/structfinder/pkg/timestamp"
)

// Kind is the lexical class of a token
type Kind int

const (
	KindPunct Kind = iota
	KindWord
	KindNumber
	KindIP
	KindQuoted
	KindBracketed
	KindTimestamp
)

var kindNames = map[Kind]string{
	KindPunct:     "punct",
	KindWord:      "word",
	KindNumber:    "number",
	KindIP:        "ip",
	KindQuoted:    "quoted",
	KindBracketed: "bracketed",
	KindTimestamp: "timestamp",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Token is one lexical unit of a record
type Token struct {
	Kind        Kind
	Text        string
	SpaceBefore bool
	Start       int
	End         int
	Format      string // Timestamp format name for KindTimestamp
}

var (
	ipv4Prefix   = regexp.MustCompile(`^\d{1,3}(?:\.\d{1,3}){3}`)
	numberPrefix = regexp.MustCompile(`^-?\d+(?:\.\d+)?`)
	wordPrefix   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)
)

// Tokens splits text into typed tokens, recognising the built-in timestamp formats
func Tokens(text string) []Token {
	return TokensWith(text, timestamp.LocatorFor(nil))
}

// TokensWith splits text into typed tokens, recognising the timestamps loc finds
func TokensWith(text string, loc *timestamp.Locator) []Token {
	spans := loc.LocateAll(text)
	var out []Token
	space := false
	i := 0
	for i < len(text) {
		c := text[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			space = true
			i++
			continue
		}

		tok, next := nextToken(text, i, spans)
		tok.SpaceBefore = space
		out = append(out, tok)
		space = false
		i = next
	}
	return out
}

func nextToken(text string, i int, spans []timestamp.Span) (Token, int) {
	rest := text[i:]

	for _, span := range spans {
		if span.Start == i {
			return Token{Kind: KindTimestamp, Text: text[span.Start:span.End], Start: i, End: span.End,
				Format: span.Format.Name}, span.End
		}
	}

	if m := ipv4Prefix.FindString(rest); m != "" && !continuesWord(text, i+len(m)) {
		if addr, err := netip.ParseAddr(m); err == nil && addr.Is4() {
			return Token{Kind: KindIP, Text: m, Start: i, End: i + len(m)}, i + len(m)
		}
	}
	if m := numberPrefix.FindString(rest); m != "" && (m[0] != '-' || signAllowed(text, i)) {
		return Token{Kind: KindNumber, Text: m, Start: i, End: i + len(m)}, i + len(m)
	}
	if m := wordPrefix.FindString(rest); m != "" {
		return Token{Kind: KindWord, Text: m, Start: i, End: i + len(m)}, i + len(m)
	}

	switch rest[0] {
	case '"':
		if end := quotedEnd(rest); end > 0 {
			return Token{Kind: KindQuoted, Text: rest[:end], Start: i, End: i + end}, i + end
		}
	case '[':
		if end := strings.IndexByte(rest, ']'); end > 0 && !spanInside(spans, i, i+end) &&
			!strings.ContainsAny(rest[1:end], "\n[") {
			return Token{Kind: KindBracketed, Text: rest[:end+1], Start: i, End: i + end + 1}, i + end + 1
		}
	}

	_, size := utf8.DecodeRuneInString(rest)
	return Token{Kind: KindPunct, Text: rest[:size], Start: i, End: i + size}, i + size
}

// quotedEnd returns the length of a double-quoted string at the start of s, or 0
func quotedEnd(s string) int {
	for j := 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		case '\n':
			return 0
		}
	}
	return 0
}

func spanInside(spans []timestamp.Span, start, end int) bool {
	for _, s := range spans {
		if s.Start > start && s.Start < end {
			return true
		}
	}
	return false
}

// signAllowed reports whether a '-' at i may start a negative number: it must not follow
// a word character, as in ranges like 10-20 or names like job-7
func signAllowed(text string, i int) bool {
	if i == 0 {
		return true
	}
	c := text[i-1]
	return !(isDigit(c) || c == '_' || c == '.' || (c|0x20 >= 'a' && c|0x20 <= 'z'))
}

func continuesWord(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	c := text[i]
	return c == '_' || c == '.' && i+1 < len(text) && isDigit(text[i+1]) ||
		isDigit(c) || (c|0x20 >= 'a' && c|0x20 <= 'z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
