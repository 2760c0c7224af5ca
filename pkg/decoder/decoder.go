/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: decoder.go
Description: Sample decoder. Detects the character encoding of a raw byte sample from byte
order marks and validity scoring over a short list of candidate charsets, detects the
line-ending convention by majority vote, and splits the decoded text into offset-tagged lines.
*/

package decoder

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/kleascm/structfinder/pkg/structure"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultMaxControlCharRatio is the share of non-whitespace control characters above
// which a decoding is considered binary garbage
const DefaultMaxControlCharRatio = 0.05

// Line is one decoded line with the byte offset of its first character in the decoded text
type Line struct {
	Text   string
	Offset int
}

// Decoded is the result of decoding a sample
type Decoded struct {
	Charset            string
	HasByteOrderMarker bool
	LineEnding         structure.LineEnding
	Lines              []Line
}

// Options control decoding
type Options struct {
	Charset             string  // Pinned charset name; empty means detect
	MaxControlCharRatio float64 // Zero means DefaultMaxControlCharRatio
}

type candidate struct {
	name string
	enc  encoding.Encoding
}

var (
	utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
)

// ByteBudget bounds the encoded bytes that lines lines of at most lineLimit characters
// can occupy: a CRLF per line and up to four bytes per character
func ByteBudget(lines, lineLimit int) int {
	return lines * (lineLimit + 2) * 4
}

// Prefix cuts a sample longer than maxBytes after the last line break within the first
// maxBytes, so that no line or character is split. The second result reports whether
// anything was cut.
func Prefix(sample []byte, maxBytes int) ([]byte, bool) {
	if maxBytes <= 0 || len(sample) <= maxBytes {
		return sample, false
	}
	cut := sample[:maxBytes]
	if i := bytes.LastIndexByte(cut, '\n'); i >= 0 {
		end := i + 1
		// UTF-16LE and UTF-32LE line feeds continue with zero bytes
		for n := 0; n < 3 && end < len(sample) && sample[end] == 0; n++ {
			end++
		}
		return sample[:end], true
	}
	for back := 1; back <= utf8.UTFMax && back <= len(cut); back++ {
		if utf8.RuneStart(cut[len(cut)-back]) {
			if !utf8.FullRune(cut[len(cut)-back:]) {
				cut = cut[:len(cut)-back]
			}
			break
		}
	}
	return cut, true
}

// Decode detects the sample's charset and line endings and splits it into lines
func Decode(sample []byte, opts Options) (*Decoded, error) {
	if opts.MaxControlCharRatio <= 0 {
		opts.MaxControlCharRatio = DefaultMaxControlCharRatio
	}

	body, bomCharset := stripBOM(sample)
	hasBOM := bomCharset != ""

	var candidates []candidate
	switch {
	case opts.Charset != "":
		c, err := lookupCharset(opts.Charset)
		if err != nil {
			return nil, err
		}
		candidates = []candidate{c}
	case hasBOM:
		candidates = []candidate{byName(bomCharset)}
	default:
		candidates = detectCandidates(body)
	}

	for _, c := range candidates {
		text, ok := decodeWith(c, body, opts.MaxControlCharRatio)
		if !ok {
			continue
		}
		lines, ending := splitLines(text)
		return &Decoded{
			Charset:            c.name,
			HasByteOrderMarker: hasBOM,
			LineEnding:         ending,
			Lines:              lines,
		}, nil
	}

	if opts.Charset != "" {
		return nil, structure.NewErrorWithHint(structure.KindUnrecognizedEncoding,
			"drop the charset override to let the encoding be detected",
			"sample is not valid %s text", opts.Charset)
	}
	return nil, structure.NewErrorWithHint(structure.KindUnrecognizedEncoding,
		"the sample may be binary or compressed; supply a text sample",
		"no candidate encoding decodes the sample without invalid sequences")
}

// stripBOM removes a leading byte order mark and reports the charset it implies
func stripBOM(sample []byte) ([]byte, string) {
	switch {
	case bytes.HasPrefix(sample, []byte{0xEF, 0xBB, 0xBF}):
		return sample[3:], "UTF-8"
	case bytes.HasPrefix(sample, []byte{0xFF, 0xFE}):
		return sample[2:], "UTF-16LE"
	case bytes.HasPrefix(sample, []byte{0xFE, 0xFF}):
		return sample[2:], "UTF-16BE"
	}
	return sample, ""
}

// detectCandidates orders the candidate charsets for a sample without a BOM
func detectCandidates(body []byte) []candidate {
	out := []candidate{byName("UTF-8")}
	if le, be := nulPattern(body); le || be {
		if le {
			out = append(out, byName("UTF-16LE"))
		}
		if be {
			out = append(out, byName("UTF-16BE"))
		}
	}
	return append(out, byName("windows-1252"), byName("ISO-8859-1"))
}

// nulPattern reports whether the sample looks like BOM-less UTF-16: NUL bytes concentrated
// on odd (little endian) or even (big endian) positions
func nulPattern(body []byte) (le, be bool) {
	if len(body) < 2 {
		return false, false
	}
	var even, odd int
	for i, b := range body {
		if b != 0 {
			continue
		}
		if i%2 == 0 {
			even++
		} else {
			odd++
		}
	}
	half := len(body) / 2
	return odd > half/2 && even < odd/4, even > half/2 && odd < even/4
}

func byName(name string) candidate {
	switch name {
	case "UTF-8":
		return candidate{name: "UTF-8", enc: nil}
	case "UTF-16LE":
		return candidate{name: "UTF-16LE", enc: utf16LE}
	case "UTF-16BE":
		return candidate{name: "UTF-16BE", enc: utf16BE}
	case "windows-1252":
		return candidate{name: "windows-1252", enc: charmap.Windows1252}
	default:
		return candidate{name: "ISO-8859-1", enc: charmap.ISO8859_1}
	}
}

// lookupCharset resolves a pinned charset through the IANA registry
func lookupCharset(name string) (candidate, error) {
	if strings.EqualFold(name, "UTF-8") || strings.EqualFold(name, "UTF8") {
		return byName("UTF-8"), nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return candidate{}, structure.NewErrorWithHint(structure.KindInconsistentOverrides,
			"use an IANA charset name such as UTF-8, UTF-16LE or ISO-8859-1",
			"unknown charset override %q", name)
	}
	canonical, err := ianaindex.IANA.Name(enc)
	if err != nil {
		canonical = name
	}
	if enc == unicode.UTF8 {
		return byName("UTF-8"), nil
	}
	return candidate{name: canonical, enc: enc}, nil
}

// decodeWith decodes body and scores the result. A nil encoding means UTF-8, which is
// validated strictly rather than decoded with replacement.
func decodeWith(c candidate, body []byte, maxControl float64) (string, bool) {
	var text string
	if c.enc == nil {
		if !utf8.Valid(body) {
			return "", false
		}
		text = string(body)
	} else {
		out, _, err := transform.Bytes(c.enc.NewDecoder(), body)
		if err != nil {
			return "", false
		}
		text = string(out)
		if strings.ContainsRune(text, utf8.RuneError) {
			return "", false
		}
	}
	return text, plausibleText(text, maxControl)
}

// plausibleText rejects decodings dominated by control characters
func plausibleText(text string, maxControl float64) bool {
	if text == "" {
		return true
	}
	total, control := 0, 0
	for _, r := range text {
		total++
		switch {
		case r == '\t' || r == '\n' || r == '\r' || r == '\f':
		case r < 0x20 || r == 0x7F || (r >= 0x80 && r < 0xA0):
			control++
		}
	}
	return float64(control)/float64(total) <= maxControl
}

// splitLines splits on LF, strips a trailing CR from each line and votes on the ending
func splitLines(text string) ([]Line, structure.LineEnding) {
	var lines []Line
	crlf, lf := 0, 0
	offset := 0
	for offset < len(text) {
		idx := strings.IndexByte(text[offset:], '\n')
		if idx < 0 {
			lines = append(lines, Line{Text: strings.TrimSuffix(text[offset:], "\r"), Offset: offset})
			break
		}
		raw := text[offset : offset+idx]
		if strings.HasSuffix(raw, "\r") {
			crlf++
			raw = raw[:len(raw)-1]
		} else {
			lf++
		}
		lines = append(lines, Line{Text: raw, Offset: offset})
		offset += idx + 1
	}

	ending := structure.LineEndingLF
	if crlf > lf {
		ending = structure.LineEndingCRLF
	}
	return lines, ending
}
