/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: json_inference.go
Description: JSON structure inference engine. Parses each record as a JSON object with a
streaming decoder so key order survives, flattens nested objects into dotted paths, folds
array elements into their array's path and records every scalar with its JSON kind.
*/

package inference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/kleascm/structfinder/pkg/fieldtype"
	"github.com/kleascm/structfinder/pkg/structure"
)

// JSON node kinds
const (
	TypeNull   = "null"
	TypeBool   = "bool"
	TypeNumber = "number"
	TypeString = "string"
	TypeArray  = "array"
	TypeObject = "object"
)

// node is an order-preserving JSON value
type node struct {
	kind     string
	text     string // Scalar text; numbers keep their literal form
	keys     []string
	children []*node // Object members, parallel to keys
	elems    []*node // Array elements
}

// FieldInfo tracks how one path was observed across records
type FieldInfo struct {
	Scalar bool // Seen holding a scalar or array of scalars
	Object bool // Seen holding an object
}

// JSONInferenceEngine infers structure from JSON records
type JSONInferenceEngine struct{}

// NewJSONInferenceEngine creates a new JSON inference engine
func NewJSONInferenceEngine() *JSONInferenceEngine {
	return &JSONInferenceEngine{}
}

// Format returns the format handled by this engine
func (e *JSONInferenceEngine) Format() structure.Format {
	return structure.FormatJSON
}

// InferStructure parses every record and collects values per dotted path
func (e *JSONInferenceEngine) InferStructure(in Input) (*Analysis, error) {
	keepArrays := in.Overrides != nil && in.Overrides.KeepArrays
	a := &Analysis{Format: structure.FormatJSON}

	set := newColumnSet()
	info := make(map[string]*FieldInfo)
	skipped := 0
	for _, rec := range in.Records {
		root, err := parseJSON(rec.Text)
		if err != nil || root.kind != TypeObject {
			skipped++
			continue
		}
		set.nextRecord()
		analyzeValue(root, "", set, info, keepArrays)
	}
	if skipped > 0 {
		a.explain(fmt.Sprintf("Excluded %d records that are not JSON objects", skipped))
	}

	for _, path := range set.order {
		if fi := info[path]; fi.Scalar && fi.Object {
			set.add(path, fieldtype.Value{Kind: fieldtype.KindNested})
			a.explain(fmt.Sprintf("Field %q holds both objects and scalars and is left unmapped", path))
		}
	}

	a.Columns = set.columns(func(name string) bool { return info[name].Scalar })
	a.Records = set.records
	return a, nil
}

// parseJSON decodes exactly one JSON value from text
func parseJSON(text string) (*node, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	n, err := parseNode(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	return n, nil
}

func parseNode(dec *json.Decoder) (*node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, "read token")
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			n := &node{kind: TypeObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, errors.Wrap(err, "read key")
				}
				key, _ := keyTok.(string)
				child, err := parseNode(dec)
				if err != nil {
					return nil, err
				}
				n.keys = append(n.keys, key)
				n.children = append(n.children, child)
			}
			_, err := dec.Token()
			return n, err
		case '[':
			n := &node{kind: TypeArray}
			for dec.More() {
				elem, err := parseNode(dec)
				if err != nil {
					return nil, err
				}
				n.elems = append(n.elems, elem)
			}
			_, err := dec.Token()
			return n, err
		}
		return nil, errors.Newf("unexpected delimiter %v", t)
	case bool:
		return &node{kind: TypeBool, text: fmt.Sprintf("%v", t)}, nil
	case json.Number:
		return &node{kind: TypeNumber, text: t.String()}, nil
	case string:
		return &node{kind: TypeString, text: t}, nil
	case nil:
		return &node{kind: TypeNull}, nil
	}
	return nil, errors.Newf("unexpected token %v", tok)
}

// analyzeValue recursively walks a value and records scalars under their path
func analyzeValue(n *node, path string, set *columnSet, info map[string]*FieldInfo, keepArrays bool) {
	fi := func() *FieldInfo {
		f, ok := info[path]
		if !ok {
			f = &FieldInfo{}
			info[path] = f
		}
		return f
	}

	switch n.kind {
	case TypeObject:
		if path != "" {
			fi().Object = true
			set.get(path)
		}
		for i, key := range n.keys {
			analyzeValue(n.children[i], joinPath(path, key), set, info, keepArrays)
		}
	case TypeArray:
		if keepArrays {
			fi().Scalar = true
			set.add(path, fieldtype.Value{Text: encodeNode(n)})
			return
		}
		if len(n.elems) == 0 {
			fi().Scalar = true
			set.get(path)
			return
		}
		for _, elem := range n.elems {
			analyzeValue(elem, path, set, info, keepArrays)
		}
	case TypeBool:
		fi().Scalar = true
		set.add(path, fieldtype.Value{Text: n.text, Kind: fieldtype.KindBool})
	case TypeNumber:
		fi().Scalar = true
		set.add(path, fieldtype.Value{Text: n.text, Kind: fieldtype.KindNumber})
	case TypeNull:
		fi().Scalar = true
		set.add(path, fieldtype.Value{Kind: fieldtype.KindNull})
	default:
		fi().Scalar = true
		set.add(path, fieldtype.Value{Text: n.text})
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// encodeNode renders a node back to compact JSON, keeping key order
func encodeNode(n *node) string {
	var buf bytes.Buffer
	writeNode(&buf, n)
	return buf.String()
}

func writeNode(buf *bytes.Buffer, n *node) {
	switch n.kind {
	case TypeObject:
		buf.WriteByte('{')
		for i, key := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, _ := json.Marshal(key)
			buf.Write(k)
			buf.WriteByte(':')
			writeNode(buf, n.children[i])
		}
		buf.WriteByte('}')
	case TypeArray:
		buf.WriteByte('[')
		for i, elem := range n.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeNode(buf, elem)
		}
		buf.WriteByte(']')
	case TypeString:
		s, _ := json.Marshal(n.text)
		buf.Write(s)
	case TypeNull:
		buf.WriteString("null")
	default:
		buf.WriteString(n.text)
	}
}
