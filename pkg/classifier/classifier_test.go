/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: classifier_test.go
Description: Tests for format classification and the delimiter vote.
*/

package classifier

import (
	"fmt"
	"testing"

	"github.com/kleascm/structfinder/pkg/merger"
	"github.com/kleascm/structfinder/pkg/structure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var th = Thresholds{MajorityFraction: 0.5, MinRecords: 2}

func recs(texts ...string) []merger.Record {
	out := make([]merger.Record, len(texts))
	for i, t := range texts {
		out[i] = merger.Record{Text: t, Lines: 1}
	}
	return out
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		records []merger.Record
		format  structure.Format
		delim   rune
	}{
		{"json", recs(`{"a":1}`, `{"a":2,"b":"x"}`), structure.FormatJSON, 0},
		{"xml", recs(`<r><a>1</a></r>`, `<?xml version="1.0"?><r a="2"/>`), structure.FormatXML, 0},
		{"csv", recs("id,name", "1,a", "2,b"), structure.FormatDelimited, ','},
		{"tsv", recs("a\tb\tc", "1\t2\t3"), structure.FormatDelimited, '\t'},
		{"pipe beats semicolon", recs("a|b;c", "1|2;3"), structure.FormatDelimited, '|'},
		{"quoted commas", recs(`1,"x,y"`, `2,"z"`), structure.FormatDelimited, ','},
		{"text", recs("INFO started job 1", "INFO started job 2"), structure.FormatSemiStructured, 0},
		{"mixed json and text", recs(`{"a":1}`, "hello"), structure.FormatSemiStructured, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Classify(tc.records, Pinned{}, th)
			require.NoError(t, err)
			assert.Equal(t, tc.format, d.Format)
			assert.Equal(t, tc.delim, d.Delimiter)
			assert.NotEmpty(t, d.Explanation)
		})
	}
}

func TestClassifyCommaFractionTimestampsAreText(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, fmt.Sprintf("2024-01-01 10:00:%02d,123 WARN [main] job %d started", i, i))
	}
	d, err := Classify(recs(lines...), Pinned{}, th)
	require.NoError(t, err)
	assert.Equal(t, structure.FormatSemiStructured, d.Format)
	assert.Zero(t, d.Delimiter)

	// A comma outside the timestamp still counts
	for i := range lines {
		lines[i] += ",done"
	}
	d, err = Classify(recs(lines...), Pinned{}, th)
	require.NoError(t, err)
	assert.Equal(t, structure.FormatDelimited, d.Format)
	assert.Equal(t, ',', d.Delimiter)
}

func TestClassifyDelimiterNeedsMajority(t *testing.T) {
	var lines []string
	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			lines = append(lines, fmt.Sprintf("a,b,%d", i))
		} else {
			lines = append(lines, fmt.Sprintf("a,%d", i))
		}
	}
	d, err := Classify(recs(lines...), Pinned{}, th)
	require.NoError(t, err)
	assert.Equal(t, structure.FormatSemiStructured, d.Format)
}

func TestClassifyTooFewRecords(t *testing.T) {
	_, err := Classify(recs("only one"), Pinned{}, th)
	assert.Equal(t, structure.KindNoConsistentFormat, structure.KindOf(err))
}

func TestClassifyPinned(t *testing.T) {
	d, err := Classify(recs("a b c", "d e f"), Pinned{Delimiter: ' '}, th)
	require.NoError(t, err)
	assert.Equal(t, structure.FormatDelimited, d.Format)
	assert.Equal(t, 3, d.Columns)

	d, err = Classify(recs("a,b", "c,d"), Pinned{Format: structure.FormatSemiStructured}, th)
	require.NoError(t, err)
	assert.Equal(t, structure.FormatSemiStructured, d.Format)

	_, err = Classify(recs("plain", "text"), Pinned{Format: structure.FormatDelimited}, th)
	assert.Equal(t, structure.KindInconsistentOverrides, structure.KindOf(err))
}

func TestXMLRoot(t *testing.T) {
	root, ok := XMLRoot("<!-- c --><event id=\"1\"><x/></event>")
	assert.True(t, ok)
	assert.Equal(t, "event", root)

	_, ok = XMLRoot("<a/><b/>")
	assert.False(t, ok)
	_, ok = XMLRoot("<a>")
	assert.False(t, ok)
	_, ok = XMLRoot("text <a/>")
	assert.False(t, ok)
}
