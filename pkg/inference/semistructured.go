/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: semistructured.go
Description: Semi-structured text inference engine. Folds the token streams of all records
into one template by longest common subsequence, renders the template as an RE2 pattern with
named captures and applies that pattern to the records to extract field values. Falls back to
a single message field when the records share too little structure.
*/

package inference

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kleascm/structfinder/pkg/fieldtype"
	"github.com/kleascm/structfinder/pkg/merger"
	"github.com/kleascm/structfinder/pkg/structure"
	"github.com/kleascm/structfinder/pkg/timestamp"
	"github.com/kleascm/structfinder/pkg/tokenize"
)

// FallbackPattern is used when no template can be synthesized
const FallbackPattern = `^(?P<message>.*)$`

// maxTemplateTokens caps the tokens of one record that take part in synthesis
const maxTemplateTokens = 128

var logLevels = map[string]bool{
	"TRACE": true, "DEBUG": true, "INFO": true, "NOTICE": true, "WARN": true, "WARNING": true,
	"ERROR": true, "ERR": true, "CRITICAL": true, "FATAL": true, "SEVERE": true, "ALERT": true,
}

// slot is one position of the template
type slot struct {
	kind    tokenize.Kind
	literal string
	format  string
	varying bool
	gap     bool // Other content may precede this slot
	spaced  int  // Observations with whitespace before
	seen    int
	values  map[string]bool
}

type template struct {
	slots       []*slot
	trailingGap bool
}

// TextInferenceEngine infers structure from free-text records
type TextInferenceEngine struct{}

// NewTextInferenceEngine creates a new semi-structured text inference engine
func NewTextInferenceEngine() *TextInferenceEngine {
	return &TextInferenceEngine{}
}

// Format returns the format handled by this engine
func (e *TextInferenceEngine) Format() structure.Format {
	return structure.FormatSemiStructured
}

// InferStructure synthesizes or applies a capture pattern
func (e *TextInferenceEngine) InferStructure(in Input) (*Analysis, error) {
	a := &Analysis{Format: structure.FormatSemiStructured}

	if in.Overrides != nil && in.Overrides.GrokPattern != "" {
		set, matched, err := applyPattern(in.Overrides.GrokPattern, in.Records)
		if err != nil {
			return nil, structure.NewError(structure.KindInconsistentOverrides, "grok pattern does not compile: %v", err)
		}
		if float64(matched) <= in.Options.MajorityFraction*float64(len(in.Records)) {
			return nil, structure.NewErrorWithHint(structure.KindInconsistentOverrides,
				"adjust the grok pattern or let it be inferred",
				"grok pattern matches only %d of %d records", matched, len(in.Records))
		}
		a.GrokPattern = in.Overrides.GrokPattern
		a.Columns = set.columns(nil)
		a.Records = matched
		a.explain(fmt.Sprintf("Pinned grok pattern matches %d of %d records", matched, len(in.Records)))
		return a, nil
	}

	var pinnedTS *timestamp.Format
	if in.Overrides != nil && in.Overrides.TimestampFormat != "" {
		if f, ok := timestamp.Lookup(in.Overrides.TimestampFormat); ok {
			pinnedTS = &f
		}
	}
	pattern, similarity, ok := synthesize(in.Records, in.Options.SimilarityCutoff, timestamp.LocatorFor(pinnedTS))
	if ok {
		set, matched, err := applyPattern(pattern, in.Records)
		if err == nil && float64(matched) > in.Options.MajorityFraction*float64(len(in.Records)) {
			a.GrokPattern = pattern
			a.Columns = set.columns(nil)
			a.Records = matched
			a.explain(fmt.Sprintf("Records share a template with mean similarity %.2f", similarity))
			if matched < len(in.Records) {
				a.explain(fmt.Sprintf("Excluded %d records that do not match the template", len(in.Records)-matched))
			}
			return a, nil
		}
	}

	set, matched, _ := applyPattern(FallbackPattern, in.Records)
	a.GrokPattern = FallbackPattern
	a.Columns = set.columns(nil)
	a.Records = matched
	a.explain(fmt.Sprintf("Records share too little structure (similarity %.2f), using a single message field", similarity))
	return a, nil
}

// applyPattern matches every record against pattern in dot-all mode and collects the
// named captures of matching records
func applyPattern(pattern string, records []merger.Record) (*columnSet, int, error) {
	re, err := regexp.Compile(`(?s)` + pattern)
	if err != nil {
		return nil, 0, err
	}
	set := newColumnSet()
	names := re.SubexpNames()
	for _, name := range names {
		if name != "" {
			set.get(name)
		}
	}
	matched := 0
	for _, rec := range records {
		m := re.FindStringSubmatch(rec.Text)
		if m == nil {
			continue
		}
		matched++
		set.nextRecord()
		done := make(map[string]bool)
		for i, name := range names {
			if name == "" || done[name] {
				continue
			}
			done[name] = true
			set.add(name, fieldtype.Value{Text: m[i]})
		}
	}
	return set, matched, nil
}

// synthesize builds the template pattern and reports the mean similarity. loc decides
// which timestamps become single tokens.
func synthesize(records []merger.Record, cutoff float64, loc *timestamp.Locator) (string, float64, bool) {
	if len(records) == 0 {
		return "", 0, false
	}
	tmpl := &template{}
	first, truncated := recordTokens(records[0].Text, loc)
	tmpl.trailingGap = truncated
	for _, tok := range first {
		s := &slot{kind: tok.Kind, literal: tok.Text, format: tok.Format, seen: 1, values: map[string]bool{tok.Text: true}}
		if tok.SpaceBefore {
			s.spaced = 1
		}
		tmpl.slots = append(tmpl.slots, s)
	}

	total := 0.0
	for _, rec := range records[1:] {
		tokens, truncated := recordTokens(rec.Text, loc)
		if truncated {
			tmpl.trailingGap = true
		}
		total += tmpl.fold(tokens)
		if len(tmpl.slots) == 0 {
			return "", 0, false
		}
	}
	similarity := 1.0
	if len(records) > 1 {
		similarity = total / float64(len(records)-1)
	}
	if len(tmpl.slots) == 0 || similarity < cutoff {
		return "", similarity, false
	}
	return tmpl.render(), similarity, true
}

// recordTokens tokenizes the first line of a record; truncated is set when later lines or
// tokens beyond the cap were left out
func recordTokens(text string, loc *timestamp.Locator) ([]tokenize.Token, bool) {
	line, rest, multi := strings.Cut(text, "\n")
	truncated := multi && strings.TrimSpace(rest) != ""
	tokens := tokenize.TokensWith(line, loc)
	if len(tokens) > maxTemplateTokens {
		tokens = tokens[:maxTemplateTokens]
		truncated = true
	}
	return tokens, truncated
}

func (s *slot) matches(tok tokenize.Token) bool {
	if s.kind != tok.Kind {
		return false
	}
	switch s.kind {
	case tokenize.KindPunct:
		return s.literal == tok.Text
	case tokenize.KindTimestamp:
		return s.format == tok.Format
	}
	return true
}

// fold aligns tokens against the template and keeps only the common slots.
// It returns the similarity of tokens to the template before folding.
func (t *template) fold(tokens []tokenize.Token) float64 {
	m, n := len(t.slots), len(tokens)
	longest := m
	if n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}

	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			switch {
			case t.slots[i].matches(tokens[j]):
				dp[i][j] = dp[i+1][j+1] + 1
			case dp[i+1][j] >= dp[i][j+1]:
				dp[i][j] = dp[i+1][j]
			default:
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	var kept []*slot
	i, j := 0, 0
	pendingGap := false
	for i < m && j < n {
		s := t.slots[i]
		switch {
		case s.matches(tokens[j]) && dp[i][j] == dp[i+1][j+1]+1:
			tok := tokens[j]
			if pendingGap {
				s.gap = true
			}
			pendingGap = false
			if tok.Text != s.literal {
				s.varying = true
			}
			if len(s.values) < 32 {
				s.values[tok.Text] = true
			}
			s.seen++
			if tok.SpaceBefore {
				s.spaced++
			}
			kept = append(kept, s)
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			pendingGap = true
			i++
		default:
			pendingGap = true
			j++
		}
	}
	if i < m || j < n || pendingGap {
		t.trailingGap = true
	}
	t.slots = kept
	return float64(dp[0][0]) / float64(longest)
}

// render turns the template into a pattern with named captures
func (t *template) render() string {
	var b strings.Builder
	b.WriteString("^")
	used := make(map[string]int)
	for idx, s := range t.slots {
		if s.gap {
			b.WriteString(".*?")
		}
		switch {
		case s.spaced == 0:
		case s.spaced == s.seen:
			b.WriteString(`\s+`)
		default:
			b.WriteString(`\s*`)
		}

		if s.kind != tokenize.KindTimestamp && !s.varying {
			b.WriteString(regexp.QuoteMeta(s.literal))
			continue
		}
		name := uniqueName(t.captureName(idx), used)
		switch s.kind {
		case tokenize.KindTimestamp:
			f, _ := timestamp.Lookup(s.format)
			b.WriteString(`(?P<` + name + `>` + f.Pattern() + `)`)
		case tokenize.KindIP:
			b.WriteString(`(?P<` + name + `>\d{1,3}(?:\.\d{1,3}){3})`)
		case tokenize.KindNumber:
			b.WriteString(`(?P<` + name + `>-?\d+(?:\.\d+)?)`)
		case tokenize.KindQuoted:
			b.WriteString(`"(?P<` + name + `>(?:[^"\\]|\\.)*)"`)
		case tokenize.KindBracketed:
			b.WriteString(`\[(?P<` + name + `>[^\]\n]*)\]`)
		default:
			b.WriteString(`(?P<` + name + `>\w+)`)
		}
	}
	if t.trailingGap {
		b.WriteString(`\s*(?P<` + uniqueName("message", used) + `>.*)`)
	}
	b.WriteString("$")
	return b.String()
}

var nameSanitizer = regexp.MustCompile(`[^A-Za-z0-9_]`)

// captureName prefers a preceding key= or key: literal, then the token kind
func (t *template) captureName(idx int) string {
	s := t.slots[idx]
	if idx >= 2 && !s.gap {
		sep, key := t.slots[idx-1], t.slots[idx-2]
		if sep.kind == tokenize.KindPunct && !sep.gap && (sep.literal == "=" || sep.literal == ":") &&
			key.kind == tokenize.KindWord && !key.varying {
			return nameSanitizer.ReplaceAllString(key.literal, "_")
		}
	}
	switch s.kind {
	case tokenize.KindTimestamp:
		return "timestamp"
	case tokenize.KindIP:
		return "ipaddress"
	case tokenize.KindNumber:
		return "number"
	case tokenize.KindQuoted:
		return "quoted"
	case tokenize.KindBracketed:
		return "bracketed"
	}
	levels := 0
	for v := range s.values {
		if logLevels[strings.ToUpper(v)] {
			levels++
		}
	}
	if levels > 0 && levels == len(s.values) {
		return "loglevel"
	}
	return "field"
}

func uniqueName(name string, used map[string]int) string {
	used[name]++
	if used[name] == 1 {
		return name
	}
	return name + strconv.Itoa(used[name])
}
