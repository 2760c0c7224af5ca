/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: inference_test.go
Description: Tests for the delimited, JSON, XML and semi-structured inference engines.
*/

package inference

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/kleascm/structfinder/pkg/fieldtype"
	"github.com/kleascm/structfinder/pkg/merger"
	"github.com/kleascm/structfinder/pkg/structure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var opts = Options{MajorityFraction: 0.5, SimilarityCutoff: 0.6}

func recs(texts ...string) []merger.Record {
	out := make([]merger.Record, len(texts))
	for i, t := range texts {
		out[i] = merger.Record{Text: t, Lines: 1}
	}
	return out
}

func column(t *testing.T, a *Analysis, name string) Column {
	t.Helper()
	for _, c := range a.Columns {
		if c.Name == name {
			return c
		}
	}
	require.Failf(t, "missing column", "%s not in %v", name, a.ColumnNames())
	return Column{}
}

func texts(c Column) []string {
	out := make([]string, len(c.Values))
	for i, v := range c.Values {
		out[i] = v.Text
	}
	return out
}

func TestNewEngine(t *testing.T) {
	for _, f := range []structure.Format{structure.FormatDelimited, structure.FormatJSON,
		structure.FormatXML, structure.FormatSemiStructured} {
		e := NewEngine(f)
		require.NotNil(t, e)
		assert.Equal(t, f, e.Format())
	}
	assert.Nil(t, NewEngine("parquet"))
}

func TestDelimitedHeaderAndTypes(t *testing.T) {
	lines := []string{"id,name,age"}
	for i := 0; i < 20; i++ {
		lines = append(lines, fmt.Sprintf("%d,user%d,%d", i, i, 20+i))
	}
	a, err := NewEngine(structure.FormatDelimited).InferStructure(Input{Records: recs(lines...), Delimiter: ',', Options: opts})
	require.NoError(t, err)
	assert.True(t, a.HasHeaderRow)
	assert.Equal(t, '"', a.Quote)
	assert.Equal(t, []string{"id", "name", "age"}, a.ColumnNames())
	assert.Equal(t, 20, a.Records)
	assert.Len(t, column(t, a, "age").Samples, 20)
}

func TestDelimitedPinnedHeaderSkipsShortRecords(t *testing.T) {
	a, err := NewDelimitedInferenceEngine().InferStructure(Input{
		Records:   recs("x", "id,name", "1,a", "2,b"),
		Delimiter: ',',
		Overrides: &structure.Overrides{HasHeaderRow: structure.BoolPtr(true)},
		Options:   opts,
	})
	require.NoError(t, err)
	assert.True(t, a.HasHeaderRow)
	assert.Equal(t, []string{"id", "name"}, a.ColumnNames())
	assert.Equal(t, 2, a.Records)
	assert.Equal(t, []string{"1", "2"}, texts(column(t, a, "id")))
	assert.Contains(t, a.Explanation, "Pinned header taken from the first record with 2 columns")
}

func TestDelimitedNoHeader(t *testing.T) {
	a, err := NewDelimitedInferenceEngine().InferStructure(Input{
		Records: recs("1|a", "2|b", "3|c"), Delimiter: '|', Options: opts})
	require.NoError(t, err)
	assert.False(t, a.HasHeaderRow)
	assert.Equal(t, []string{"column1", "column2"}, a.ColumnNames())
	assert.Equal(t, 3, a.Records)
}

func TestDelimitedAllKeywordHeader(t *testing.T) {
	a, err := NewDelimitedInferenceEngine().InferStructure(Input{
		Records: recs("city,country", "Paris,France", "Tokyo,Japan"), Delimiter: ',', Options: opts})
	require.NoError(t, err)
	assert.True(t, a.HasHeaderRow)

	a, err = NewDelimitedInferenceEngine().InferStructure(Input{
		Records: recs("red,blue", "red,green", "blue,red"), Delimiter: ',', Options: opts})
	require.NoError(t, err)
	assert.False(t, a.HasHeaderRow)
}

func TestDelimitedQuotesTrimAndExclusion(t *testing.T) {
	a, err := NewDelimitedInferenceEngine().InferStructure(Input{
		Records: recs(`name, note`, `a, "x, y"`, `b, "z"`, `broken`), Delimiter: ',', Options: opts})
	require.NoError(t, err)
	assert.Equal(t, '"', a.Quote)
	assert.True(t, a.ShouldTrim)
	assert.Equal(t, []string{"name", "note"}, a.ColumnNames())
	assert.Equal(t, []string{"x, y", "z"}, texts(column(t, a, "note")))
	assert.Equal(t, 2, a.Records)
}

func TestDelimitedSingleQuote(t *testing.T) {
	a, err := NewDelimitedInferenceEngine().InferStructure(Input{
		Records: recs(`k,v`, `1,'a,b'`, `2,'c,d'`, `3,'e'`), Delimiter: ',', Options: opts})
	require.NoError(t, err)
	assert.Equal(t, '\'', a.Quote)
	assert.Equal(t, []string{"a,b", "c,d", "e"}, texts(column(t, a, "v")))
}

func TestDelimitedHeaderNames(t *testing.T) {
	assert.Equal(t, []string{"a", "column2", "a_2"}, headerNames([]string{"a", " ", "a"}))
}

func TestDelimitedOverrides(t *testing.T) {
	_, err := NewDelimitedInferenceEngine().InferStructure(Input{
		Records:   recs("plain text line", "another line here"),
		Overrides: &structure.Overrides{Delimiter: ","},
		Delimiter: ',', Options: opts})
	assert.Equal(t, structure.KindInconsistentOverrides, structure.KindOf(err))

	_, err = NewDelimitedInferenceEngine().InferStructure(Input{
		Records:   recs("1,2", "3,4"),
		Overrides: &structure.Overrides{ColumnNames: []string{"only"}},
		Delimiter: ',', Options: opts})
	assert.Equal(t, structure.KindInconsistentOverrides, structure.KindOf(err))

	a, err := NewDelimitedInferenceEngine().InferStructure(Input{
		Records:   recs("x,y", "1,2", "3,4"),
		Overrides: &structure.Overrides{ColumnNames: []string{"a", "b"}, HasHeaderRow: structure.BoolPtr(true)},
		Delimiter: ',', Options: opts})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, a.ColumnNames())
	assert.Equal(t, 2, a.Records)
}

func TestJSONPaths(t *testing.T) {
	a, err := NewJSONInferenceEngine().InferStructure(Input{Records: recs(
		`{"ts":"2024-01-01T00:00:00Z","user":{"id":1,"name":"a"},"tags":["x","y"]}`,
		`{"ts":"2024-01-01T00:00:01Z","user":{"id":2.5},"extra":true}`,
		`not json`,
	), Options: opts})
	require.NoError(t, err)
	assert.Equal(t, []string{"ts", "user.id", "user.name", "tags", "extra"}, a.ColumnNames())
	assert.Equal(t, 2, a.Records)
	assert.Equal(t, []string{"x", "y"}, texts(column(t, a, "tags")))
	assert.Equal(t, []string{"a", ""}, column(t, a, "user.name").Samples)
	assert.Equal(t, fieldtype.KindNumber, column(t, a, "user.id").Values[1].Kind)
}

func TestJSONKeepArraysAndConflicts(t *testing.T) {
	a, err := NewJSONInferenceEngine().InferStructure(Input{
		Records:   recs(`{"a":[1, {"b":2}],"c":1}`, `{"a":[],"c":{"d":2}}`),
		Overrides: &structure.Overrides{KeepArrays: true},
		Options:   opts})
	require.NoError(t, err)
	assert.Equal(t, []string{`[1,{"b":2}]`, `[]`}, texts(column(t, a, "a")))

	c := column(t, a, "c")
	res := fieldtype.Infer(c.Values, fieldtype.Options{})
	assert.Equal(t, structure.TypeUnmapped, res.Type)
	column(t, a, "c.d")
}

func TestXMLPaths(t *testing.T) {
	a, err := NewXMLInferenceEngine().InferStructure(Input{Records: recs(
		`<event id="1"><time>2024-01-01T00:00:00Z</time><user><name>a</name></user></event>`,
		`<event id="2"><time>2024-01-01T00:00:01Z</time><user><name>b</name></user></event>`,
		`<other/>`,
		`<broken>`,
	), Options: opts})
	require.NoError(t, err)
	assert.Equal(t, "event", a.RootElement)
	assert.Equal(t, []string{"@id", "time", "user.name"}, a.ColumnNames())
	assert.Equal(t, 2, a.Records)
	assert.Equal(t, []string{"1", "2"}, texts(column(t, a, "@id")))
}

func TestTextTemplate(t *testing.T) {
	var lines []string
	for i := 0; i < 50; i++ {
		lines = append(lines, fmt.Sprintf("2024-01-01T00:00:%02dZ INFO started job %d", i%60, i))
	}
	a, err := NewTextInferenceEngine().InferStructure(Input{Records: recs(lines...), Options: opts})
	require.NoError(t, err)
	assert.Equal(t, []string{"timestamp", "number"}, a.ColumnNames())
	assert.Equal(t, 50, a.Records)
	assert.Contains(t, a.GrokPattern, `INFO\s+started\s+job`)
	assert.Equal(t, "7", column(t, a, "number").Samples[7])
	regexp.MustCompile(a.GrokPattern)
}

func TestTextKeyNamesAndLevels(t *testing.T) {
	a, err := NewTextInferenceEngine().InferStructure(Input{Records: recs(
		"INFO host=10.0.0.1 took=12 msg done",
		"WARN host=10.0.0.2 took=7 msg slow request",
		"ERROR host=10.0.0.3 took=9 msg failed",
	), Options: opts})
	require.NoError(t, err)
	assert.Equal(t, []string{"loglevel", "host", "took", "field", "message"}, a.ColumnNames())
	assert.Equal(t, []string{"done", "slow", "failed"}, texts(column(t, a, "field")))
	assert.Equal(t, []string{"", "request", ""}, texts(column(t, a, "message")))
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, texts(column(t, a, "host")))
}

func TestTextSignedNumbers(t *testing.T) {
	a, err := NewTextInferenceEngine().InferStructure(Input{Records: recs(
		"val -3 ok", "val 5 ok", "val -12.5 ok", "val 7 ok",
	), Options: opts})
	require.NoError(t, err)
	assert.Equal(t, `^val\s+(?P<number>-?\d+(?:\.\d+)?)\s+ok$`, a.GrokPattern)
	assert.Equal(t, []string{"-3", "5", "-12.5", "7"}, texts(column(t, a, "number")))
}

func TestTextFallback(t *testing.T) {
	a, err := NewTextInferenceEngine().InferStructure(Input{Records: recs(
		"completely different", "12 34 56 78 !!", `"quoted" [bracket] 1.2.3.4`,
	), Options: opts})
	require.NoError(t, err)
	assert.Equal(t, FallbackPattern, a.GrokPattern)
	assert.Equal(t, []string{"message"}, a.ColumnNames())
	assert.Equal(t, 3, a.Records)
}

func TestTextPinnedPattern(t *testing.T) {
	in := Input{Records: recs("a 1", "b 2", "c x"), Options: opts,
		Overrides: &structure.Overrides{GrokPattern: `^(?P<letter>\w) (?P<digit>\d)$`}}
	a, err := NewTextInferenceEngine().InferStructure(in)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Records)
	assert.Equal(t, []string{"letter", "digit"}, a.ColumnNames())

	in.Overrides.GrokPattern = `^(?P<digit>\d+)$`
	_, err = NewTextInferenceEngine().InferStructure(in)
	assert.Equal(t, structure.KindInconsistentOverrides, structure.KindOf(err))
}

func TestTextMultilineRecords(t *testing.T) {
	records := []merger.Record{
		{Text: "2024-01-01T00:00:00Z ERROR boom\n  at Foo\n  at Bar", Lines: 3},
		{Text: "2024-01-01T00:00:01Z ERROR bang", Lines: 1},
		{Text: "2024-01-01T00:00:02Z ERROR bust\n  at Baz", Lines: 2},
	}
	a, err := NewTextInferenceEngine().InferStructure(Input{Records: records, Options: opts})
	require.NoError(t, err)
	assert.Equal(t, 3, a.Records)
	assert.Equal(t, "boom", column(t, a, "field").Values[0].Text)
	assert.Equal(t, "at Foo\n  at Bar", column(t, a, "message").Values[0].Text)
	assert.Equal(t, "", column(t, a, "message").Values[1].Text)
}
