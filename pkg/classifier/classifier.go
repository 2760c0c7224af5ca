/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: classifier.go
Description: Format classifier. Decides whether a record stream is JSON, XML, delimited or
semi-structured text: JSON and XML must hold for every record, delimited needs a delimiter
whose modal column count is shared by a clear majority of records, and anything else is
treated as free text.
*/

package classifier

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/kleascm/structfinder/pkg/merger"
	"github.com/kleascm/structfinder/pkg/structure"
	"github.com/kleascm/structfinder/pkg/timestamp"
	"github.com/kleascm/structfinder/pkg/tokenize"
)

// Candidates are the delimiters considered, in tie-break order
var Candidates = []rune{',', '\t', '|', ';'}

// Pinned carries the decisions fixed by overrides
type Pinned struct {
	Format    structure.Format
	Delimiter rune
}

// Thresholds tune classification
type Thresholds struct {
	MajorityFraction float64
	MinRecords       int
}

// Decision is the classifier's verdict
type Decision struct {
	Format      structure.Format
	Delimiter   rune
	Agreement   float64 // Share of records agreeing with the modal column count
	Columns     int     // Modal column count for delimited decisions
	Explanation []string
}

// Vote is the delimiter score for one candidate
type Vote struct {
	Delimiter rune
	Columns   int
	Agreement float64
}

// Classify decides the format family of records
func Classify(records []merger.Record, pinned Pinned, th Thresholds) (Decision, error) {
	if len(records) < th.MinRecords {
		return Decision{}, structure.NewErrorWithHint(structure.KindNoConsistentFormat,
			"supply a larger sample",
			"only %d non-blank records in the sample, at least %d are needed", len(records), th.MinRecords)
	}

	if pinned.Delimiter != 0 {
		v := VoteFor(records, pinned.Delimiter)
		return Decision{
			Format:      structure.FormatDelimited,
			Delimiter:   pinned.Delimiter,
			Agreement:   v.Agreement,
			Columns:     v.Columns,
			Explanation: []string{fmt.Sprintf("Delimiter %q was pinned by override", pinned.Delimiter)},
		}, nil
	}

	switch pinned.Format {
	case structure.FormatJSON, structure.FormatXML, structure.FormatSemiStructured:
		return Decision{
			Format:      pinned.Format,
			Explanation: []string{fmt.Sprintf("Format %s was pinned by override", pinned.Format)},
		}, nil
	case structure.FormatDelimited:
		best, ok := bestVote(records, 0)
		if !ok {
			return Decision{}, structure.NewErrorWithHint(structure.KindInconsistentOverrides,
				"pin --delimiter explicitly",
				"format was pinned to %s but no candidate delimiter splits the records into columns",
				structure.FormatDelimited)
		}
		return Decision{
			Format:    structure.FormatDelimited,
			Delimiter: best.Delimiter,
			Agreement: best.Agreement,
			Columns:   best.Columns,
			Explanation: []string{
				fmt.Sprintf("Format %s was pinned by override", pinned.Format),
				fmt.Sprintf("Delimiter %q splits %.0f%% of records into %d columns", best.Delimiter, best.Agreement*100, best.Columns),
			},
		}, nil
	}

	if allRecords(records, IsJSONObject) {
		return Decision{Format: structure.FormatJSON,
			Explanation: []string{"Every record is a single JSON object"}}, nil
	}
	if allRecords(records, func(s string) bool { _, ok := XMLRoot(s); return ok }) {
		return Decision{Format: structure.FormatXML,
			Explanation: []string{"Every record is a well-formed XML element"}}, nil
	}
	if best, ok := bestVote(records, th.MajorityFraction); ok {
		return Decision{
			Format:    structure.FormatDelimited,
			Delimiter: best.Delimiter,
			Agreement: best.Agreement,
			Columns:   best.Columns,
			Explanation: []string{fmt.Sprintf("Delimiter %q splits %.0f%% of records into %d columns",
				best.Delimiter, best.Agreement*100, best.Columns)},
		}, nil
	}
	return Decision{Format: structure.FormatSemiStructured,
		Explanation: []string{"No JSON, XML or delimited structure found, treating records as free text"}}, nil
}

// bestVote returns the candidate with the highest agreement strictly above minAgreement.
// Candidates that only ever occur inside timestamps are not delimiters.
func bestVote(records []merger.Record, minAgreement float64) (Vote, bool) {
	var best Vote
	found := false
	var spans [][]timestamp.Span
	for _, d := range Candidates {
		v := VoteFor(records, d)
		if v.Columns < 2 || v.Agreement <= minAgreement {
			continue
		}
		if found && v.Agreement <= best.Agreement {
			continue
		}
		if spans == nil {
			spans = make([][]timestamp.Span, len(records))
			for i, r := range records {
				spans[i] = timestamp.LocateAll(r.Text)
			}
		}
		if insideTimestamps(records, spans, d) {
			continue
		}
		best, found = v, true
	}
	return best, found
}

// insideTimestamps reports whether every occurrence of delim falls inside a located
// timestamp, as the comma of 10:00:00,123 does
func insideTimestamps(records []merger.Record, spans [][]timestamp.Span, delim rune) bool {
	seen := false
	for i, r := range records {
		for pos, c := range r.Text {
			if c != delim {
				continue
			}
			seen = true
			if !covered(spans[i], pos) {
				return false
			}
		}
	}
	return seen
}

func covered(spans []timestamp.Span, pos int) bool {
	for _, s := range spans {
		if pos >= s.Start && pos < s.End {
			return true
		}
	}
	return false
}

// VoteFor computes the modal column count for delim and the share of records having it.
// Rows that are malformed under double quoting are counted without quoting.
func VoteFor(records []merger.Record, delim rune) Vote {
	counts := make(map[int]int)
	for _, r := range records {
		n := tokenize.CountColumns(r.Text, delim, '"')
		if n < 0 {
			n = tokenize.CountColumns(r.Text, delim, 0)
		}
		counts[n]++
	}
	modal, freq := 0, 0
	for n, c := range counts {
		if c > freq || (c == freq && n > modal) {
			modal, freq = n, c
		}
	}
	v := Vote{Delimiter: delim, Columns: modal}
	if len(records) > 0 {
		v.Agreement = float64(freq) / float64(len(records))
	}
	return v
}

func allRecords(records []merger.Record, pred func(string) bool) bool {
	for _, r := range records {
		if !pred(r.Text) {
			return false
		}
	}
	return len(records) > 0
}

// IsJSONObject reports whether text is exactly one JSON object
func IsJSONObject(text string) bool {
	trimmed := bytes.TrimSpace([]byte(text))
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}

// XMLRoot returns the root element name when text is one well-formed XML element,
// optionally preceded by a declaration, comments or processing instructions
func XMLRoot(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "<") {
		return "", false
	}
	dec := xml.NewDecoder(strings.NewReader(trimmed))
	depth := 0
	root := ""
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if root != "" {
					return "", false
				}
				root = t.Name.Local
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return "", false
			}
		}
	}
	return root, root != "" && depth == 0
}
