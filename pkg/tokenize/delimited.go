/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: delimited.go
Description: Delimited row splitter with a configurable quote character. A zero quote
disables quoting. Doubled quotes inside a quoted value are unescaped.
*/

package tokenize

import "strings"

// SplitRow splits one record into values. ok is false when a quoted value is not
// terminated or a closing quote is followed by something other than the delimiter.
func SplitRow(text string, delim, quote rune) (values []string, ok bool) {
	if quote == 0 {
		return strings.Split(text, string(delim)), true
	}

	var cur strings.Builder
	runes := []rune(text)
	inQuotes := false
	afterQuote := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inQuotes:
			if r == quote {
				if i+1 < len(runes) && runes[i+1] == quote {
					cur.WriteRune(quote)
					i++
					continue
				}
				inQuotes = false
				afterQuote = true
				continue
			}
			cur.WriteRune(r)
		case r == delim:
			values = append(values, cur.String())
			cur.Reset()
			afterQuote = false
		case afterQuote:
			if r != ' ' && r != '\t' {
				return nil, false
			}
		case r == quote && strings.TrimSpace(cur.String()) == "":
			cur.Reset()
			inQuotes = true
		default:
			cur.WriteRune(r)
		}
	}
	if inQuotes {
		return nil, false
	}
	return append(values, cur.String()), true
}

// CountColumns returns the number of values SplitRow would produce, or -1 when the
// row is malformed for the given quote
func CountColumns(text string, delim, quote rune) int {
	values, ok := SplitRow(text, delim, quote)
	if !ok {
		return -1
	}
	return len(values)
}
