/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tokenize_test.go
Description: Tests for the delimited row splitter and the typed text tokenizer.
*/

package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRow(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		delim  rune
		quote  rune
		want   []string
		wantOK bool
	}{
		{"plain", "a,b,c", ',', '"', []string{"a", "b", "c"}, true},
		{"quoted delimiter", `1,"x,y",2`, ',', '"', []string{"1", "x,y", "2"}, true},
		{"doubled quote", `"say ""hi""",2`, ',', '"', []string{`say "hi"`, "2"}, true},
		{"single quote", `'a|b'|c`, '|', '\'', []string{"a|b", "c"}, true},
		{"no quoting", `"a,b"`, ',', 0, []string{`"a`, `b"`}, true},
		{"unterminated", `"abc,d`, ',', '"', nil, false},
		{"junk after quote", `"ab"c,d`, ',', '"', nil, false},
		{"empty fields", ",,", ',', '"', []string{"", "", ""}, true},
		{"tab", "a\tb", '\t', '"', []string{"a", "b"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := SplitRow(tc.text, tc.delim, tc.quote)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.want, got)
			}
		})
	}
	assert.Equal(t, -1, CountColumns(`"x`, ',', '"'))
}

func kinds(tokens []Token) []Kind {
	out := make([]Kind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestTokens(t *testing.T) {
	tokens := Tokens(`2024-01-01T00:00:00Z INFO host=10.0.0.1 took 12.5ms msg="a b" [worker-1]`)
	assert.Equal(t, []Kind{
		KindTimestamp, KindWord, KindWord, KindPunct, KindIP, KindWord, KindNumber, KindWord,
		KindWord, KindPunct, KindQuoted, KindBracketed,
	}, kinds(tokens))

	assert.Equal(t, "ISO8601", tokens[0].Format)
	assert.False(t, tokens[0].SpaceBefore)
	assert.True(t, tokens[1].SpaceBefore)
	assert.False(t, tokens[3].SpaceBefore)
	assert.Equal(t, "12.5", tokens[6].Text)
	assert.False(t, tokens[7].SpaceBefore)
	assert.Equal(t, `"a b"`, tokens[10].Text)
}

func TestTokensBracketedTimestamp(t *testing.T) {
	tokens := Tokens(`[17/Feb/2026:12:00:00 +0000] GET`)
	require.Len(t, tokens, 4)
	assert.Equal(t, []Kind{KindPunct, KindTimestamp, KindPunct, KindWord}, kinds(tokens))
}

func TestTokensVersionIsNotIP(t *testing.T) {
	tokens := Tokens("v 1.2.3.4.5")
	assert.NotContains(t, kinds(tokens), KindIP)
}

func TestTokensSignedNumbers(t *testing.T) {
	tokens := Tokens("delta=-3 range 10-20 job-7 (-0.5)")
	var numbers []string
	for _, tok := range tokens {
		if tok.Kind == KindNumber {
			numbers = append(numbers, tok.Text)
		}
	}
	assert.Equal(t, []string{"-3", "10", "20", "7", "-0.5"}, numbers)
}
