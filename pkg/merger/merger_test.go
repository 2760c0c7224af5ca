/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: merger_test.go
Description: Tests for start signature derivation, continuation folding and the size cap.
*/

package merger

import (
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kleascm/structfinder/pkg/decoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toLines(text string) []decoder.Line {
	var out []decoder.Line
	offset := 0
	for _, l := range strings.Split(text, "\n") {
		out = append(out, decoder.Line{Text: l, Offset: offset})
		offset += len(l) + 1
	}
	return out
}

func TestMergeStackTraces(t *testing.T) {
	text := strings.Join([]string{
		"2024-01-01T00:00:00Z ERROR boom",
		"  at com.example.Foo(Foo.java:1)",
		"  at com.example.Bar(Bar.java:2)",
		"2024-01-01T00:00:01Z INFO recovered",
		"",
		"2024-01-01T00:00:02Z INFO done",
	}, "\n")

	res := Merge(toLines(text), Options{SizeLimit: 10000})
	require.Len(t, res.Records, 3)
	assert.True(t, res.Merged)
	assert.NotEmpty(t, res.StartPattern)
	assert.Equal(t, 3, res.Records[0].Lines)
	assert.Contains(t, res.Records[0].Text, "Bar.java")
	assert.Equal(t, "2024-01-01T00:00:02Z INFO done", res.Records[2].Text)
}

func TestMergeNoConfidentSignature(t *testing.T) {
	res := Merge(toLines("2024-01-01T00:00:00Z only one\nplain line\nanother"), Options{})
	assert.Empty(t, res.StartPattern)
	assert.False(t, res.Merged)
	assert.Len(t, res.Records, 3)
}

func TestMergePrettyJSON(t *testing.T) {
	text := "{\n  \"a\": 1\n}\n{\n  \"a\": 2\n}"
	res := Merge(toLines(text), Options{})
	require.Len(t, res.Records, 2)
	assert.Equal(t, "{\n  \"a\": 1\n}", res.Records[0].Text)
}

func TestMergeXMLIgnoresClosingTags(t *testing.T) {
	text := "<row>\n  <id>1</id>\n</row>\n<row>\n  <id>2</id>\n</row>"
	res := Merge(toLines(text), Options{})
	require.Len(t, res.Records, 2)
	assert.Equal(t, 3, res.Records[1].Lines)
}

func TestMergeSizeLimit(t *testing.T) {
	text := "{\n" + strings.Repeat("x", 20) + "\n" + strings.Repeat("y", 20) + "\n}\n{\n}"
	res := Merge(toLines(text), Options{SizeLimit: 30})
	require.Len(t, res.Records, 2)
	assert.True(t, res.Records[0].Truncated)
	assert.LessOrEqual(t, len(res.Records[0].Text), 30)
	assert.Equal(t, 1, res.Truncated)
	assert.False(t, res.Records[1].Truncated)
}

func TestMergeSizeLimitKeepsRunes(t *testing.T) {
	res := Merge(toLines("abécd\nxyézz"), Options{SizeLimit: 3})
	require.Len(t, res.Records, 2)
	assert.Equal(t, "ab", res.Records[0].Text)
	assert.Equal(t, "xy", res.Records[1].Text)
	assert.Equal(t, 2, res.Truncated)

	res = Merge(toLines("{ é\n}\n{ ü\n}"), Options{SizeLimit: 3})
	require.Len(t, res.Records, 2)
	for _, rec := range res.Records {
		assert.True(t, utf8.ValidString(rec.Text), "%q", rec.Text)
		assert.Equal(t, "{ ", rec.Text)
		assert.True(t, rec.Truncated)
	}
}

func TestMergePinnedPattern(t *testing.T) {
	text := "BEGIN a\nmore\nBEGIN b"
	res := Merge(toLines(text), Options{StartPattern: regexp.MustCompile(`^BEGIN`)})
	require.Len(t, res.Records, 2)
	assert.Equal(t, "BEGIN a\nmore", res.Records[0].Text)
	assert.Equal(t, "^BEGIN", res.StartPattern)
}

func TestMergeLeadingContinuationFormsRecord(t *testing.T) {
	text := "preamble\nBEGIN a\nBEGIN b"
	res := Merge(toLines(text), Options{StartPattern: regexp.MustCompile(`^BEGIN`)})
	require.Len(t, res.Records, 3)
	assert.Equal(t, "preamble", res.Records[0].Text)
}
