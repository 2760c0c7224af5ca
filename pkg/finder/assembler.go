/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: assembler.go
Description: Packages the decoder, merger and analyzer outcomes into a structure
description. Types every column, selects the timestamp field and reconciles the result
with the caller's timestamp and format overrides.
*/

package finder

import (
	"fmt"
	"strings"

	"github.com/kleascm/structfinder/pkg/decoder"
	"github.com/kleascm/structfinder/pkg/fieldtype"
	"github.com/kleascm/structfinder/pkg/inference"
	"github.com/kleascm/structfinder/pkg/merger"
	"github.com/kleascm/structfinder/pkg/structure"
	"github.com/kleascm/structfinder/pkg/timestamp"
)

// sampleStartRecords is the number of leading records echoed in the description
const sampleStartRecords = 2

// assembly is everything the assembler consumes
type assembly struct {
	decoded  *decoder.Decoded
	lines    int
	merged   merger.Result
	analysis *inference.Analysis
	pinned   bool // Format was pinned by override
	notes    []string
}

func (f *Finder) assemble(c *call, in assembly) (*structure.Description, error) {
	a := in.analysis
	th := f.cfg.Thresholds

	if a.Records < th.MinRecords {
		if in.pinned && a.Records == 0 {
			return nil, structure.NewErrorWithHint(structure.KindInconsistentOverrides,
				"drop the format override to let it be inferred",
				"format was pinned to %s but no record parses as %s", a.Format, a.Format)
		}
		return nil, structure.NewErrorWithHint(structure.KindInsufficientSample,
			"supply a larger sample or raise --lines-to-sample",
			"only %d usable %s records remain, at least %d are needed", a.Records, a.Format, th.MinRecords)
	}

	desc := &structure.Description{
		NumLinesAnalyzed:      in.lines,
		NumRecordsAnalyzed:    a.Records,
		SampleStart:           sampleStart(in.merged.Records),
		Charset:               in.decoded.Charset,
		HasByteOrderMarker:    in.decoded.HasByteOrderMarker,
		LineEnding:            in.decoded.LineEnding,
		MultilineStartPattern: in.merged.StartPattern,
		TruncatedRecords:      in.merged.Truncated,
		Format:                a.Format,
		Explanation:           append([]string(nil), in.notes...),
	}

	switch a.Format {
	case structure.FormatDelimited:
		desc.Delimiter = string(a.Delimiter)
		if a.Quote != 0 {
			desc.Quote = string(a.Quote)
		}
		desc.HasHeaderRow = structure.BoolPtr(a.HasHeaderRow)
		desc.ShouldTrimFields = structure.BoolPtr(a.ShouldTrim)
		desc.ColumnNames = a.ColumnNames()
	case structure.FormatXML:
		desc.RootElement = a.RootElement
	case structure.FormatSemiStructured:
		desc.GrokPattern = a.GrokPattern
	}
	desc.Explanation = append(desc.Explanation, a.Explanation...)

	// Field types
	opts := fieldtype.Options{TopHits: th.TopHits}
	desc.Fields = make([]structure.Field, len(a.Columns))
	candidates := make([]timestamp.Column, 0, len(a.Columns))
	for i, col := range a.Columns {
		res := fieldtype.Infer(col.Values, opts)
		desc.Fields[i] = structure.Field{Name: col.Name, Type: res.Type, DateFormat: res.DateFormat, Stats: res.Stats}
		if timestampCandidate(res.Type) {
			candidates = append(candidates, timestamp.Column{Name: col.Name, Values: col.Samples})
		}
	}

	if err := f.selectTimestamp(c, desc, a.Columns, candidates); err != nil {
		return nil, err
	}
	return desc, nil
}

// timestampCandidate reports whether a field of type t may hold timestamps
func timestampCandidate(t structure.FieldType) bool {
	switch t {
	case structure.TypeDate, structure.TypeKeyword, structure.TypeLong, structure.TypeDouble:
		return true
	}
	return false
}

// selectTimestamp picks the timestamp field, honouring pinned field and format
func (f *Finder) selectTimestamp(c *call, desc *structure.Description, columns []inference.Column, candidates []timestamp.Column) error {
	pinnedField := ""
	if c.overrides != nil {
		pinnedField = c.overrides.TimestampField
	}
	if pinnedField != "" {
		if _, ok := desc.Field(pinnedField); !ok {
			return structure.NewErrorWithHint(structure.KindInconsistentOverrides,
				"pick one of: "+strings.Join(desc.FieldNames(), ", "),
				"pinned timestamp field %q is not in the inferred schema", pinnedField)
		}
	}

	sel, ok := timestamp.Select(candidates, timestamp.SelectOptions{
		MajorityFraction: f.cfg.Thresholds.MajorityFraction,
		PinnedField:      pinnedField,
		PinnedFormat:     c.pinnedTS,
	})
	if !ok {
		switch {
		case pinnedField != "" && c.pinnedTS != nil:
			return structure.NewError(structure.KindInconsistentOverrides,
				"pinned timestamp field %q does not hold %s timestamps", pinnedField, c.pinnedTS.Name)
		case pinnedField != "":
			return structure.NewError(structure.KindInconsistentOverrides,
				"pinned timestamp field %q does not hold recognisable timestamps", pinnedField)
		case c.pinnedTS != nil:
			return structure.NewError(structure.KindInconsistentOverrides,
				"no field holds %s timestamps", c.pinnedTS.Name)
		}
		desc.Explanation = append(desc.Explanation, "No field holds timestamps in a majority of records")
		return nil
	}

	desc.TimestampField = sel.Field
	desc.TimestampFormat = &structure.TimestampFormat{Name: sel.Format.Name, GoLayout: sel.Layout}
	desc.NeedClientTimezone = !timestamp.HasZone(sel.Format, sel.Layout)
	desc.Explanation = append(desc.Explanation, fmt.Sprintf("Field %q holds %s timestamps in %.0f%% of records",
		sel.Field, sel.Format.Name, sel.Fraction*100))
	if desc.NeedClientTimezone {
		desc.Explanation = append(desc.Explanation, "Timestamps carry no time zone; the client must supply one")
	}

	for i, field := range desc.Fields {
		if field.Name != sel.Field {
			continue
		}
		if field.Type != structure.TypeDate || field.DateFormat != sel.Format.Name {
			res := fieldtype.ApplyDate(columns[i].Values, sel.Format.Name, fieldtype.Options{TopHits: f.cfg.Thresholds.TopHits})
			desc.Fields[i] = structure.Field{Name: field.Name, Type: res.Type, DateFormat: res.DateFormat, Stats: res.Stats}
		}
		break
	}
	return nil
}

// sampleStart echoes the leading records of the sample
func sampleStart(records []merger.Record) string {
	n := len(records)
	if n > sampleStartRecords {
		n = sampleStartRecords
	}
	var b strings.Builder
	for _, rec := range records[:n] {
		b.WriteString(rec.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
