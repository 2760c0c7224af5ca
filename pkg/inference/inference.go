/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: inference.go
Description: Entry point for format-specific structure inference. Provides the
InferenceEngine interface implemented once per format family and the Analysis type the
engines hand to the assembler: ordered columns of raw values plus the format parameters
each engine discovered.
*/

package inference

import (
	"github.com/kleascm/structfinder/pkg/fieldtype"
	"github.com/kleascm/structfinder/pkg/merger"
	"github.com/kleascm/structfinder/pkg/structure"
)

// InferenceEngine defines the interface for format-specific structure inference
type InferenceEngine interface {
	InferStructure(in Input) (*Analysis, error)
	Format() structure.Format
}

// Options are the thresholds engines consult
type Options struct {
	MajorityFraction float64 // Exclusive share needed for a majority decision
	SimilarityCutoff float64 // Minimum mean template similarity for free text
}

// Input is what every engine receives
type Input struct {
	Records   []merger.Record
	Overrides *structure.Overrides
	Delimiter rune // Delimiter chosen by the classifier, delimited only
	Options   Options
}

// Column is every value observed for one field. Samples holds one entry per usable
// record (empty when the record lacks the field) and feeds timestamp selection.
type Column struct {
	Name    string
	Values  []fieldtype.Value
	Samples []string
}

// Analysis is the outcome of one engine run
type Analysis struct {
	Format  structure.Format
	Columns []Column
	Records int // Usable records after exclusions

	// Delimited parameters
	Delimiter    rune
	Quote        rune
	HasHeaderRow bool
	ShouldTrim   bool

	// XML parameters
	RootElement string

	// Semi-structured parameters
	GrokPattern string

	Explanation []string
}

// ColumnNames returns the analysis column names in order
func (a *Analysis) ColumnNames() []string {
	names := make([]string, len(a.Columns))
	for i, c := range a.Columns {
		names[i] = c.Name
	}
	return names
}

func (a *Analysis) explain(msg string) {
	a.Explanation = append(a.Explanation, msg)
}

// NewEngine returns the inference engine for the given format
func NewEngine(format structure.Format) InferenceEngine {
	switch format {
	case structure.FormatDelimited:
		return NewDelimitedInferenceEngine()
	case structure.FormatJSON:
		return NewJSONInferenceEngine()
	case structure.FormatXML:
		return NewXMLInferenceEngine()
	case structure.FormatSemiStructured:
		return NewTextInferenceEngine()
	default:
		return nil
	}
}

// columnSet accumulates columns in first-observation order
type columnSet struct {
	order   []string
	index   map[string]*Column
	records int
}

func newColumnSet() *columnSet {
	return &columnSet{index: make(map[string]*Column)}
}

func (s *columnSet) get(name string) *Column {
	col, ok := s.index[name]
	if !ok {
		col = &Column{Name: name, Samples: make([]string, s.records)}
		s.index[name] = col
		s.order = append(s.order, name)
	}
	return col
}

// nextRecord opens a new usable record; every column gets an empty sample slot
func (s *columnSet) nextRecord() {
	s.records++
	for _, name := range s.order {
		col := s.index[name]
		col.Samples = append(col.Samples, "")
	}
}

// add records a value for name in the current record
func (s *columnSet) add(name string, v fieldtype.Value) {
	col := s.get(name)
	col.Values = append(col.Values, v)
	if s.records > 0 && col.Samples[s.records-1] == "" && v.Kind != fieldtype.KindNull {
		col.Samples[s.records-1] = v.Text
	}
}

func (s *columnSet) columns(keep func(name string) bool) []Column {
	out := make([]Column, 0, len(s.order))
	for _, name := range s.order {
		if keep != nil && !keep(name) {
			continue
		}
		out = append(out, *s.index[name])
	}
	return out
}
