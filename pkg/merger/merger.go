/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: merger.go
Description: Line merger. Derives a record start signature from the decoded lines (leading
timestamp, opening brace or opening angle bracket) and folds continuation lines into the
preceding record, capping each record at a byte size limit.
*/

package merger

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kleascm/structfinder/pkg/decoder"
	"github.com/kleascm/structfinder/pkg/timestamp"
)

// DefaultMinStartMatches is the number of lines a derived start signature must match
const DefaultMinStartMatches = 2

// Record is one logical record built from one or more lines
type Record struct {
	Text      string // Lines joined with \n
	Lines     int    // Number of source lines merged into this record
	Offset    int    // Offset of the first line in the decoded text
	Truncated bool   // Continuation lines were dropped to respect the size limit
}

// Options control merging
type Options struct {
	SizeLimit       int            // Maximum record length in bytes; <= 0 disables the cap
	StartPattern    *regexp.Regexp // Pinned start signature; nil means derive one
	MinStartMatches int            // Zero means DefaultMinStartMatches
}

// Result is the merged record stream
type Result struct {
	Records      []Record
	StartPattern string // Signature that was applied, empty when every line is a record
	Merged       bool   // At least one record spans several lines
	Truncated    int    // Number of truncated records
}

// Merge groups lines into records
func Merge(lines []decoder.Line, opts Options) Result {
	if opts.MinStartMatches <= 0 {
		opts.MinStartMatches = DefaultMinStartMatches
	}

	start := opts.StartPattern
	if start == nil {
		start = deriveStart(lines, opts.MinStartMatches)
	}
	if start == nil {
		return singleLineRecords(lines, opts.SizeLimit)
	}

	var res Result
	res.StartPattern = start.String()
	var cur *Record
	var buf strings.Builder

	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = buf.String()
		if cur.Lines > 1 {
			res.Merged = true
		}
		if cur.Truncated {
			res.Truncated++
		}
		res.Records = append(res.Records, *cur)
		cur = nil
		buf.Reset()
	}

	for _, line := range lines {
		if strings.TrimSpace(line.Text) == "" {
			continue
		}
		if cur == nil || start.MatchString(line.Text) {
			flush()
			cur = &Record{Offset: line.Offset, Lines: 1}
			text := line.Text
			if opts.SizeLimit > 0 && len(text) > opts.SizeLimit {
				text = truncate(text, opts.SizeLimit)
				cur.Truncated = true
			}
			buf.WriteString(text)
			continue
		}
		if cur.Truncated {
			continue
		}
		if opts.SizeLimit > 0 && buf.Len()+1+len(line.Text) > opts.SizeLimit {
			cur.Truncated = true
			continue
		}
		buf.WriteByte('\n')
		buf.WriteString(line.Text)
		cur.Lines++
	}
	flush()
	return res
}

func singleLineRecords(lines []decoder.Line, limit int) Result {
	var res Result
	for _, line := range lines {
		if strings.TrimSpace(line.Text) == "" {
			continue
		}
		rec := Record{Text: line.Text, Lines: 1, Offset: line.Offset}
		if limit > 0 && len(rec.Text) > limit {
			rec.Text = truncate(rec.Text, limit)
			rec.Truncated = true
			res.Truncated++
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

// truncate cuts text to at most limit bytes without splitting a rune
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}

var (
	braceStart = regexp.MustCompile(`^\{`)
	angleStart = regexp.MustCompile(`^<[A-Za-z_]`)
	declStart  = regexp.MustCompile(`^\s*<\?xml`)
)

// deriveStart picks the first confident start signature, or nil
func deriveStart(lines []decoder.Line, minMatches int) *regexp.Regexp {
	first := ""
	for _, line := range lines {
		if strings.TrimSpace(line.Text) != "" {
			first = line.Text
			break
		}
	}
	if first == "" {
		return nil
	}

	var candidates []*regexp.Regexp
	if span, ok := timestamp.LocateAtStart(first); ok {
		candidates = append(candidates, regexp.MustCompile(`^`+span.Format.Pattern()))
	}
	candidates = append(candidates, braceStart, declStart, angleStart)

	for _, re := range candidates {
		if !re.MatchString(first) {
			continue
		}
		matches := 0
		for _, line := range lines {
			if re.MatchString(line.Text) {
				matches++
			}
		}
		if matches >= minMatches {
			return re
		}
	}
	return nil
}
