/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: fieldtype.go
Description: Field type inference. Assigns the most specific type that every observed value
of a field satisfies, in the order boolean, long, double, ip, date, keyword. Values that
arrive with a JSON kind keep that kind; mixed kinds fall back to keyword.
*/

package fieldtype

import (
	"math"
	"net/netip"
	"strconv"
	"strings"

	"github.com/kleascm/structfinder/pkg/structure"
	"github.com/kleascm/structfinder/pkg/timestamp"
)

// Kind is the syntactic kind a value arrived with
type Kind int

const (
	KindText   Kind = iota // Untyped text; the type is inferred from its content
	KindBool               // JSON true/false
	KindNumber             // JSON number
	KindNull               // JSON null, ignored
	KindNested             // Object value where scalars were also seen
)

// Value is one observation of a field
type Value struct {
	Text string
	Kind Kind
}

// Text wraps untyped strings as values
func Text(values ...string) []Value {
	out := make([]Value, len(values))
	for i, v := range values {
		out[i] = Value{Text: v}
	}
	return out
}

// Options tune inference
type Options struct {
	TopHits int // Maximum number of frequent values to keep; zero means 10
}

// Result is the inferred type of one field with its statistics
type Result struct {
	Type       structure.FieldType
	DateFormat string
	Stats      structure.FieldStats
}

// Infer determines the type of a field from all of its values
func Infer(values []Value, opts Options) Result {
	if opts.TopHits <= 0 {
		opts.TopHits = 10
	}

	var present []Value
	nested := false
	kinds := make(map[Kind]bool)
	for _, v := range values {
		switch v.Kind {
		case KindNull:
			continue
		case KindNested:
			nested = true
			continue
		}
		if v.Kind == KindText && strings.TrimSpace(v.Text) == "" {
			continue
		}
		present = append(present, v)
		kinds[v.Kind] = true
	}

	res := Result{Type: structure.TypeKeyword}
	switch {
	case nested:
		res.Type = structure.TypeUnmapped
	case len(present) == 0:
	case len(kinds) > 1:
	case kinds[KindBool]:
		res.Type = structure.TypeBoolean
	case kinds[KindNumber]:
		res.Type = numericType(present)
	default:
		res.Type, res.DateFormat = textType(present)
	}

	res.Stats = computeStats(present, res.Type, res.DateFormat, opts.TopHits)
	return res
}

func numericType(values []Value) structure.FieldType {
	for _, v := range values {
		if _, err := strconv.ParseInt(v.Text, 10, 64); err != nil {
			return structure.TypeDouble
		}
	}
	return structure.TypeLong
}

// textType walks the specificity ladder for untyped values
func textType(values []Value) (structure.FieldType, string) {
	texts := make([]string, len(values))
	for i, v := range values {
		texts[i] = strings.TrimSpace(v.Text)
	}

	switch {
	case all(texts, isBool):
		return structure.TypeBoolean, ""
	case all(texts, isLong):
		return structure.TypeLong, ""
	case all(texts, isDouble):
		return structure.TypeDouble, ""
	case all(texts, isIP):
		return structure.TypeIP, ""
	}
	if name, ok := dateFormat(texts); ok {
		return structure.TypeDate, name
	}
	return structure.TypeKeyword, ""
}

// dateFormat returns the first timestamp format matching every value
func dateFormat(texts []string) (string, bool) {
	for _, f := range timestamp.Formats() {
		matched := true
		for _, t := range texts {
			if _, ok := f.Match(t); !ok {
				matched = false
				break
			}
		}
		if matched {
			return f.Name, true
		}
	}
	return "", false
}

func all(values []string, pred func(string) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}

func isBool(s string) bool {
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}

func isLong(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isDouble(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsInf(f, 0) && !math.IsNaN(f)
}

func isIP(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

// IsNumeric reports whether t is long or double
func IsNumeric(t structure.FieldType) bool {
	return t == structure.TypeLong || t == structure.TypeDouble
}
