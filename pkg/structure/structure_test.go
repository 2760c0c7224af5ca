/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: structure_test.go
Description: Tests for overrides validation and error kind classification.
*/

package structure

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestOverridesValidate(t *testing.T) {
	cases := []struct {
		name    string
		o       Overrides
		wantErr bool
	}{
		{"empty", Overrides{}, false},
		{"delimiter only", Overrides{Delimiter: "|"}, false},
		{"delimiter with json", Overrides{Delimiter: ",", Format: FormatJSON}, true},
		{"multi char delimiter", Overrides{Delimiter: "::"}, true},
		{"quote equals delimiter", Overrides{Delimiter: "'", Quote: strPtr("'")}, true},
		{"pinned no quote", Overrides{Quote: strPtr("")}, false},
		{"grok without names", Overrides{GrokPattern: `^\d+ (\w+)$`}, true},
		{"grok with names", Overrides{GrokPattern: `^(?P<n>\d+) (?P<w>\w+)$`}, false},
		{"grok with xml", Overrides{GrokPattern: `(?P<n>\d+)`, Format: FormatXML}, true},
		{"grok with delimiter", Overrides{GrokPattern: `(?P<n>\d+)`, Delimiter: ","}, true},
		{"bad grok", Overrides{GrokPattern: `(?P<n>\d+`}, true},
		{"bad multiline", Overrides{MultilineStartPattern: `[`}, true},
		{"unknown format", Overrides{Format: Format("parquet")}, true},
		{"duplicate columns", Overrides{ColumnNames: []string{"a", "a"}}, true},
		{"keep arrays with csv", Overrides{KeepArrays: true, Format: FormatDelimited}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.o.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindInconsistentOverrides, KindOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEffectiveFormat(t *testing.T) {
	assert.Equal(t, Format(""), (&Overrides{}).EffectiveFormat())
	assert.Equal(t, FormatDelimited, (&Overrides{Delimiter: ";"}).EffectiveFormat())
	assert.Equal(t, FormatDelimited, (&Overrides{HasHeaderRow: BoolPtr(false)}).EffectiveFormat())
	assert.Equal(t, FormatSemiStructured, (&Overrides{GrokPattern: `(?P<a>.*)`}).EffectiveFormat())
	assert.Equal(t, FormatXML, (&Overrides{Format: FormatXML}).EffectiveFormat())

	var nilOverrides *Overrides
	assert.Equal(t, Format(""), nilOverrides.EffectiveFormat())
}

func TestQuoteRune(t *testing.T) {
	r, ok := (&Overrides{Quote: strPtr("")}).QuoteRune()
	assert.True(t, ok)
	assert.Equal(t, rune(0), r)

	r, ok = (&Overrides{Quote: strPtr("'")}).QuoteRune()
	assert.True(t, ok)
	assert.Equal(t, '\'', r)

	_, ok = (&Overrides{}).QuoteRune()
	assert.False(t, ok)
}

func TestErrorKinds(t *testing.T) {
	err := NewErrorWithHint(KindTimeout, "raise --timeout", "took longer than %s", "1s")
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Contains(t, Hints(err), "raise --timeout")

	wrapped := errors.Wrap(err, "find structure")
	assert.Equal(t, KindTimeout, KindOf(wrapped))
	assert.Contains(t, wrapped.Error(), "took longer than 1s")

	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat("csv")
	assert.True(t, ok)
	assert.Equal(t, FormatDelimited, f)

	_, ok = ParseFormat("avro")
	assert.False(t, ok)
}
