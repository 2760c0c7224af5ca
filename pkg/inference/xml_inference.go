/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: xml_inference.go
Description: XML structure inference engine. Settles the root element as the most frequent
top-level tag, then collects leaf text and attributes of every record under paths relative
to that root.
*/

package inference

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/kleascm/structfinder/pkg/fieldtype"
	"github.com/kleascm/structfinder/pkg/structure"
)

// xmlPair is one observed value with its path relative to the root element
type xmlPair struct {
	path  string
	value string
}

// xmlDoc is one parsed record
type xmlDoc struct {
	root  string
	pairs []xmlPair
}

// XMLInferenceEngine infers structure from XML records
type XMLInferenceEngine struct{}

// NewXMLInferenceEngine creates a new XML inference engine
func NewXMLInferenceEngine() *XMLInferenceEngine {
	return &XMLInferenceEngine{}
}

// Format returns the format handled by this engine
func (e *XMLInferenceEngine) Format() structure.Format {
	return structure.FormatXML
}

// InferStructure parses every record and groups values by element path
func (e *XMLInferenceEngine) InferStructure(in Input) (*Analysis, error) {
	a := &Analysis{Format: structure.FormatXML}

	var docs []xmlDoc
	rootCounts := make(map[string]int)
	var rootOrder []string
	for _, rec := range in.Records {
		doc, err := parseXML(rec.Text)
		if err != nil {
			continue
		}
		if rootCounts[doc.root] == 0 {
			rootOrder = append(rootOrder, doc.root)
		}
		rootCounts[doc.root]++
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, structure.NewError(structure.KindNoConsistentFormat, "no record is well-formed XML")
	}

	root := ""
	for _, r := range rootOrder {
		if rootCounts[r] > rootCounts[root] {
			root = r
		}
	}
	a.RootElement = root
	a.explain(fmt.Sprintf("Root element <%s> appears in %d of %d records", root, rootCounts[root], len(in.Records)))

	set := newColumnSet()
	for _, doc := range docs {
		if doc.root != root {
			continue
		}
		set.nextRecord()
		for _, p := range doc.pairs {
			set.add(p.path, fieldtype.Value{Text: p.value})
		}
	}
	a.Columns = set.columns(nil)
	a.Records = set.records
	if excluded := len(in.Records) - set.records; excluded > 0 {
		a.explain(fmt.Sprintf("Excluded %d records that are malformed or have another root", excluded))
	}
	return a, nil
}

type xmlFrame struct {
	path     string
	hasChild bool
	text     strings.Builder
}

// parseXML walks one record and returns its root name and leaf values
func parseXML(text string) (xmlDoc, error) {
	dec := xml.NewDecoder(strings.NewReader(strings.TrimSpace(text)))
	var doc xmlDoc
	var stack []*xmlFrame
	closed := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return xmlDoc{}, errors.Wrap(err, "parse xml record")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 {
				if closed {
					return xmlDoc{}, errors.New("more than one root element")
				}
				doc.root = t.Name.Local
				stack = append(stack, &xmlFrame{})
				addAttrs(&doc, "", t.Attr)
				continue
			}
			parent := stack[len(stack)-1]
			parent.hasChild = true
			path := joinPath(parent.path, t.Name.Local)
			stack = append(stack, &xmlFrame{path: path})
			addAttrs(&doc, path, t.Attr)
		case xml.EndElement:
			if len(stack) == 0 {
				return xmlDoc{}, errors.New("unbalanced end element")
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			value := strings.TrimSpace(top.text.String())
			switch {
			case top.hasChild:
			case top.path != "":
				doc.pairs = append(doc.pairs, xmlPair{path: top.path, value: value})
			case value != "":
				doc.pairs = append(doc.pairs, xmlPair{path: doc.root, value: value})
			}
			if len(stack) == 0 {
				closed = true
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	if doc.root == "" || len(stack) != 0 {
		return xmlDoc{}, errors.New("record has no complete root element")
	}
	return doc, nil
}

func addAttrs(doc *xmlDoc, path string, attrs []xml.Attr) {
	for _, attr := range attrs {
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
			continue
		}
		doc.pairs = append(doc.pairs, xmlPair{path: joinPath(path, "@"+attr.Name.Local), value: attr.Value})
	}
}
