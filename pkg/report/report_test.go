/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report_test.go
Description: Tests for rendering structure descriptions as text, JSON, YAML and TOML.
*/

package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/kleascm/structfinder/pkg/structure"
	"github.com/kleascm/structfinder/pkg/timestamp"
	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleDescription() *structure.Description {
	lo, hi := 20.0, 39.0
	return &structure.Description{
		NumLinesAnalyzed:   21,
		NumRecordsAnalyzed: 20,
		Charset:            "UTF-8",
		LineEnding:         structure.LineEndingLF,
		Format:             structure.FormatDelimited,
		Delimiter:          ",",
		Quote:              `"`,
		HasHeaderRow:       structure.BoolPtr(true),
		ColumnNames:        []string{"id", "age"},
		Fields: []structure.Field{
			{Name: "id", Type: structure.TypeLong, Stats: structure.FieldStats{Count: 20, Cardinality: 20}},
			{Name: "age", Type: structure.TypeLong, Stats: structure.FieldStats{
				Count: 20, Cardinality: 20, MinValue: &lo, MaxValue: &hi,
				TopHits: []structure.TopHit{{Value: "20", Count: 1}},
			}},
		},
		Explanation: []string{"Delimiter ',' splits 100% of records into 2 columns"},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "JSON": FormatJSON, "yml": FormatYAML, "toml": FormatTOML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("csv")
	assert.Error(t, err)
}

func TestRenderDocuments(t *testing.T) {
	desc := sampleDescription()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, desc, FormatJSON))
	var fromJSON structure.Description
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(t, desc.ColumnNames, fromJSON.ColumnNames)
	assert.Equal(t, 39.0, *fromJSON.Fields[1].Stats.MaxValue)

	buf.Reset()
	require.NoError(t, Render(&buf, desc, FormatYAML))
	var fromYAML map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, "delimited", fromYAML["format"])
	assert.NotContains(t, fromYAML, "timestamp_format")

	buf.Reset()
	require.NoError(t, Render(&buf, desc, FormatTOML))
	var fromTOML map[string]interface{}
	require.NoError(t, toml.Unmarshal(buf.Bytes(), &fromTOML))
	assert.Equal(t, "req-1", fromTOML["request_id"])
	assert.Len(t, fromTOML["fields"], 2)
}

func TestRenderText(t *testing.T) {
	pterm.DisableColor()
	defer pterm.EnableColor()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleDescription(), FormatText))
	out := buf.String()
	assert.Contains(t, out, "delimited")
	assert.Contains(t, out, "Header row")
	assert.Contains(t, out, "20 .. 39")
	assert.Contains(t, out, "1. Delimiter")
}

func TestRenderUnknownFormat(t *testing.T) {
	assert.Error(t, Render(&bytes.Buffer{}, sampleDescription(), "csv"))
}

func TestRenderTimestampFormats(t *testing.T) {
	pterm.DisableColor()
	defer pterm.EnableColor()

	var buf bytes.Buffer
	require.NoError(t, RenderTimestampFormats(&buf, timestamp.Formats()))
	assert.Contains(t, buf.String(), "ISO8601")
	assert.Contains(t, buf.String(), "(epoch)")
}
