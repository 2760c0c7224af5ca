/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: delimited.go
Description: Delimited structure inference engine. Picks the quote character, settles the
modal column count, detects a header row, names the columns and collects per-column values
from the records that have the expected number of columns.
*/

package inference

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kleascm/structfinder/pkg/fieldtype"
	"github.com/kleascm/structfinder/pkg/structure"
	"github.com/kleascm/structfinder/pkg/tokenize"
)

// quoteCandidates are tried in tie-break order; zero means no quoting
var quoteCandidates = []rune{'"', 0, '\''}

var identifierLike = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_ .\-/()]*$`)

// DelimitedInferenceEngine infers structure from delimited records
type DelimitedInferenceEngine struct{}

// NewDelimitedInferenceEngine creates a new delimited inference engine
func NewDelimitedInferenceEngine() *DelimitedInferenceEngine {
	return &DelimitedInferenceEngine{}
}

// Format returns the format handled by this engine
func (e *DelimitedInferenceEngine) Format() structure.Format {
	return structure.FormatDelimited
}

// InferStructure splits records into columns and names them
func (e *DelimitedInferenceEngine) InferStructure(in Input) (*Analysis, error) {
	ov := in.Overrides
	delim := in.Delimiter
	if r, ok := ov.DelimiterRune(); ok {
		delim = r
	}
	if delim == 0 {
		return nil, structure.NewError(structure.KindInvalidRequest, "delimited inference needs a delimiter")
	}

	a := &Analysis{Format: structure.FormatDelimited, Delimiter: delim}

	texts := make([]string, len(in.Records))
	for i, r := range in.Records {
		texts[i] = r.Text
	}

	quote, pinnedQuote := ov.QuoteRune()
	if !pinnedQuote {
		quote = detectQuote(texts, delim)
		a.explain(fmt.Sprintf("Quote character %s gives the most consistent rows", describeQuote(quote)))
	}
	a.Quote = quote

	columns, agreement := modalColumns(texts, delim, quote)
	if ov != nil && ov.Delimiter != "" && (columns < 2 || agreement <= in.Options.MajorityFraction) {
		return nil, structure.NewErrorWithHint(structure.KindInconsistentOverrides,
			"check the delimiter override or let the format be detected",
			"delimiter %q does not split the records consistently: %d columns in %.0f%% of records",
			delim, columns, agreement*100)
	}
	if columns < 1 {
		return nil, structure.NewError(structure.KindNoConsistentFormat, "no record splits into columns")
	}

	var rows [][]string
	firstUsable := false
	for i, t := range texts {
		values, ok := tokenize.SplitRow(t, delim, quote)
		if !ok || len(values) != columns {
			continue
		}
		if i == 0 {
			firstUsable = true
		}
		rows = append(rows, values)
	}
	if excluded := len(texts) - len(rows); excluded > 0 {
		a.explain(fmt.Sprintf("Excluded %d records without %d columns", excluded, columns))
	}

	if ov != nil && ov.ShouldTrimFields != nil {
		a.ShouldTrim = *ov.ShouldTrimFields
	} else {
		a.ShouldTrim = delim != '\t' && hasPadding(rows)
	}
	if a.ShouldTrim {
		for _, row := range rows {
			for i := range row {
				row[i] = strings.TrimSpace(row[i])
			}
		}
	}

	switch {
	case ov != nil && ov.HasHeaderRow != nil:
		a.HasHeaderRow = *ov.HasHeaderRow
		if a.HasHeaderRow && !firstUsable && len(rows) > 0 {
			a.explain(fmt.Sprintf("Pinned header taken from the first record with %d columns", columns))
		}
	default:
		a.HasHeaderRow = firstUsable && looksLikeHeader(rows)
		if a.HasHeaderRow {
			a.explain("First row holds column names")
		}
	}

	var names []string
	data := rows
	if a.HasHeaderRow && len(rows) > 0 {
		names = headerNames(rows[0])
		data = rows[1:]
	} else {
		names = genericNames(columns)
	}
	if ov != nil && len(ov.ColumnNames) > 0 {
		if len(ov.ColumnNames) != columns {
			return nil, structure.NewErrorWithHint(structure.KindInconsistentOverrides,
				fmt.Sprintf("supply exactly %d column names", columns),
				"%d column names were pinned but the records have %d columns", len(ov.ColumnNames), columns)
		}
		names = append([]string(nil), ov.ColumnNames...)
	}

	set := newColumnSet()
	for _, name := range names {
		set.get(name)
	}
	for _, row := range data {
		set.nextRecord()
		for i, v := range row {
			set.add(names[i], fieldtype.Value{Text: v})
		}
	}
	a.Columns = set.columns(nil)
	a.Records = len(data)
	return a, nil
}

// detectQuote returns the candidate that yields well-formed modal rows for the most records
func detectQuote(texts []string, delim rune) rune {
	best, bestScore := quoteCandidates[0], -1
	for _, q := range quoteCandidates {
		if q == delim {
			continue
		}
		columns, agreement := modalColumns(texts, delim, q)
		score := int(agreement*float64(len(texts)) + 0.5)
		if columns < 1 {
			score = 0
		}
		if score > bestScore {
			best, bestScore = q, score
		}
	}
	return best
}

// modalColumns returns the most common well-formed column count and its share of texts
func modalColumns(texts []string, delim, quote rune) (int, float64) {
	counts := make(map[int]int)
	for _, t := range texts {
		if n := tokenize.CountColumns(t, delim, quote); n > 0 {
			counts[n]++
		}
	}
	modal, freq := 0, 0
	for n, c := range counts {
		if c > freq || (c == freq && n > modal) {
			modal, freq = n, c
		}
	}
	if len(texts) == 0 {
		return 0, 0
	}
	return modal, float64(freq) / float64(len(texts))
}

func hasPadding(rows [][]string) bool {
	for _, row := range rows {
		for _, v := range row {
			if v != strings.TrimSpace(v) {
				return true
			}
		}
	}
	return false
}

// looksLikeHeader applies the header heuristics to the first row
func looksLikeHeader(rows [][]string) bool {
	if len(rows) < 2 {
		return false
	}
	first := rows[0]
	seen := make(map[string]bool, len(first))
	for _, v := range first {
		if v == "" || seen[v] {
			return false
		}
		seen[v] = true
		if fieldtype.Infer(fieldtype.Text(v), fieldtype.Options{}).Type != structure.TypeKeyword {
			return false
		}
	}

	data := rows[1:]
	for col := range first {
		values := make([]string, len(data))
		for i, row := range data {
			values[i] = row[col]
		}
		t := fieldtype.Infer(fieldtype.Text(values...), fieldtype.Options{}).Type
		if t != structure.TypeKeyword {
			return true
		}
	}

	// Every column is keyword: the first row must read like names that never recur as data
	for col, name := range first {
		if !identifierLike.MatchString(name) {
			return false
		}
		for _, row := range data {
			if row[col] == name {
				return false
			}
		}
	}
	return true
}

// headerNames turns a header row into unique column names
func headerNames(row []string) []string {
	names := make([]string, len(row))
	used := make(map[string]bool, len(row))
	for i, v := range row {
		name := strings.TrimSpace(v)
		if name == "" {
			name = "column" + strconv.Itoa(i+1)
		}
		base := name
		for n := 2; used[name]; n++ {
			name = base + "_" + strconv.Itoa(n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func genericNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "column" + strconv.Itoa(i+1)
	}
	return names
}

func describeQuote(q rune) string {
	if q == 0 {
		return "none"
	}
	return strconv.QuoteRune(q)
}
