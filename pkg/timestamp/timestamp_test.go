/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: timestamp_test.go
Description: Tests for timestamp detection, inline location and field selection.
*/

package timestamp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		value  string
		format string
		layout string
	}{
		{"2024-01-01T00:00:00Z", "ISO8601", "2006-01-02T15:04:05Z07:00"},
		{"2024-01-01T00:00:00.123+02:00", "ISO8601", "2006-01-02T15:04:05Z07:00"},
		{"2024-01-01 10:11:12,345", "ISO8601", "2006-01-02 15:04:05"},
		{"2024-01-01", "ISO8601_DATE", "2006-01-02"},
		{"17/Feb/2026:12:00:00 +0000", "HTTPDATE", "02/Jan/2006:15:04:05 -0700"},
		{"Feb  7 08:01:02", "SYSLOG", "Jan _2 15:04:05"},
		{"Mon, 02 Jan 2006 15:04:05 -0700", "RFC1123", "Mon, 02 Jan 2006 15:04:05 -0700"},
		{"01/31/2024 23:59:59", "US_DATETIME", "01/02/2006 15:04:05"},
		{"1704067200", "UNIX", ""},
		{"1704067200000", "UNIX_MS", ""},
	}
	for _, tc := range cases {
		t.Run(tc.value, func(t *testing.T) {
			f, layout, ok := Detect(tc.value)
			require.True(t, ok)
			assert.Equal(t, tc.format, f.Name)
			assert.Equal(t, tc.layout, layout)
		})
	}
}

func TestDetectRejects(t *testing.T) {
	for _, v := range []string{"", "hello", "2024-13-45", "0000000001", "12345", "9999999999999"} {
		_, _, ok := Detect(v)
		assert.False(t, ok, v)
	}
}

func TestLocate(t *testing.T) {
	span, ok := Locate(`127.0.0.1 - - [17/Feb/2026:12:00:00 +0000] "GET / HTTP/1.1" 200 5`)
	require.True(t, ok)
	assert.Equal(t, "HTTPDATE", span.Format.Name)
	assert.Equal(t, 15, span.Start)

	span, ok = LocateAtStart("2024-01-01T00:00:00Z INFO started job 7")
	require.True(t, ok)
	assert.Equal(t, "ISO8601", span.Format.Name)
	assert.Equal(t, len("2024-01-01T00:00:00Z"), span.End)

	_, ok = LocateAtStart("INFO 2024-01-01T00:00:00Z")
	assert.False(t, ok)

	_, ok = Locate("build12024-01-01x")
	assert.False(t, ok)
}

func TestSelect(t *testing.T) {
	columns := []Column{
		{Name: "id", Values: []string{"1", "2", "3", "4"}},
		{Name: "when", Values: []string{"2024-01-01", "2024-01-02", "bad", "2024-01-04"}},
		{Name: "at", Values: []string{"2024-01-01T00:00:00Z", "2024-01-01T00:00:01Z", "2024-01-01T00:00:02Z", "2024-01-01T00:00:03Z"}},
	}
	sel, ok := Select(columns, SelectOptions{MajorityFraction: 0.5})
	require.True(t, ok)
	assert.Equal(t, "at", sel.Field)
	assert.Equal(t, "ISO8601", sel.Format.Name)
	assert.Equal(t, 1.0, sel.Fraction)

	sel, ok = Select(columns, SelectOptions{MajorityFraction: 0.5, PinnedField: "when"})
	require.True(t, ok)
	assert.Equal(t, "when", sel.Field)
	assert.Equal(t, 0.75, sel.Fraction)

	_, ok = Select(columns, SelectOptions{MajorityFraction: 0.5, PinnedField: "id"})
	assert.False(t, ok)
}

func TestSelectTiePrefersEarliestField(t *testing.T) {
	values := []string{"2024-01-01T00:00:00Z", "2024-01-01T00:00:01Z"}
	sel, ok := Select([]Column{{Name: "first", Values: values}, {Name: "second", Values: values}},
		SelectOptions{MajorityFraction: 0.5})
	require.True(t, ok)
	assert.Equal(t, "first", sel.Field)
}

func TestSelectNeedsStrictMajority(t *testing.T) {
	_, ok := Select([]Column{{Name: "half", Values: []string{"2024-01-01", "nope"}}},
		SelectOptions{MajorityFraction: 0.5})
	assert.False(t, ok)
}

func TestLookup(t *testing.T) {
	f, ok := Lookup("iso8601")
	require.True(t, ok)
	assert.Equal(t, "ISO8601", f.Name)

	f, ok = Lookup("2006/01/02 15:04")
	require.True(t, ok)
	assert.Equal(t, "2006/01/02 15:04", f.Name)
	_, ok = f.Match("2024/03/04 05:06")
	assert.True(t, ok)

	_, ok = Lookup("not-a-format")
	assert.False(t, ok)
}

func TestLayoutPattern(t *testing.T) {
	cases := []struct {
		layout string
		want   string
		value  string
	}{
		{"2006/01/02 15:04", `\d{4}/\d{2}/\d{2} \d{2}:\d{2}`, "2024/01/02 10:00"},
		{"02.01.2006 15:04:05", `\d{2}\.\d{2}\.\d{4} \d{2}:\d{2}:\d{2}(?:[.,]\d{1,9})?`, "31.12.2024 23:59:58,125"},
		{"Jan _2 2006 3:04PM", `[A-Z][a-z]{2} [ \d]\d \d{4} \d{1,2}:\d{2}[AP]M`, "Feb  3 2024 9:15AM"},
		{"2006-01-02 15:04:05.000 -0700", `\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}[.,]\d{3} [+-]\d{4}`, "2024-01-02 10:00:00.123 +0100"},
	}
	for _, tc := range cases {
		t.Run(tc.layout, func(t *testing.T) {
			assert.Equal(t, tc.want, LayoutPattern(tc.layout))
			f, ok := Lookup(tc.layout)
			require.True(t, ok)
			layout, ok := f.Match(tc.value)
			assert.True(t, ok)
			assert.Equal(t, tc.layout, layout)
		})
	}
}

func TestLocatorForCustomLayout(t *testing.T) {
	text := "at 2024/01/02 10:00 x"
	_, ok := Locate(text)
	assert.False(t, ok)

	f, ok := Lookup("2006/01/02 15:04")
	require.True(t, ok)
	span, ok := LocatorFor(&f).Locate(text)
	require.True(t, ok)
	assert.Equal(t, "2024/01/02 10:00", text[span.Start:span.End])
	assert.Equal(t, "2006/01/02 15:04", span.Format.Name)

	spans := LocatorFor(&f).LocateAll("2024-01-01T00:00:00Z then 2024/01/02 10:00")
	require.Len(t, spans, 2)
	assert.Equal(t, "ISO8601", spans[0].Format.Name)
	assert.Equal(t, "2006/01/02 15:04", spans[1].Format.Name)
	assert.Same(t, defaultLocator, LocatorFor(nil))
}

func TestHasZone(t *testing.T) {
	iso, _ := Lookup("ISO8601")
	assert.True(t, HasZone(iso, "2006-01-02T15:04:05Z07:00"))
	assert.False(t, HasZone(iso, "2006-01-02 15:04:05"))
	unix, _ := Lookup("UNIX")
	assert.True(t, HasZone(unix, ""))
}
