/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Core types for the structure finder. Defines format families, field types,
field schema entries with statistics, and the immutable Description that is the terminal
artifact of one inference call.
*/

package structure

// Format is the top-level structural category of a sample
type Format string

const (
	FormatDelimited      Format = "delimited"
	FormatJSON           Format = "json"
	FormatXML            Format = "xml"
	FormatSemiStructured Format = "semi_structured_text"
)

// Valid reports whether f names a known format family
func (f Format) Valid() bool {
	switch f {
	case FormatDelimited, FormatJSON, FormatXML, FormatSemiStructured:
		return true
	}
	return false
}

// ParseFormat maps a user-supplied name onto a Format
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "delimited", "csv", "tsv":
		return FormatDelimited, true
	case "json", "ndjson":
		return FormatJSON, true
	case "xml":
		return FormatXML, true
	case "semi_structured_text", "text", "semi_structured":
		return FormatSemiStructured, true
	}
	return "", false
}

// FieldType is the inferred data type of a field
type FieldType string

const (
	TypeBoolean  FieldType = "boolean"
	TypeLong     FieldType = "long"
	TypeDouble   FieldType = "double"
	TypeKeyword  FieldType = "keyword"
	TypeIP       FieldType = "ip"
	TypeDate     FieldType = "date"
	TypeUnmapped FieldType = "unmapped"
)

// LineEnding is the detected line terminator convention
type LineEnding string

const (
	LineEndingLF   LineEnding = "lf"
	LineEndingCRLF LineEnding = "crlf"
)

// TopHit is one frequent value of a field
type TopHit struct {
	Value string `json:"value" yaml:"value" toml:"value"`
	Count int    `json:"count" yaml:"count" toml:"count"`
}

// FieldStats summarises the values observed for one field
type FieldStats struct {
	Count       int      `json:"count" yaml:"count" toml:"count"`
	Cardinality int      `json:"cardinality" yaml:"cardinality" toml:"cardinality"`
	MinValue    *float64 `json:"min_value,omitempty" yaml:"min_value,omitempty" toml:"min_value,omitempty"`
	MaxValue    *float64 `json:"max_value,omitempty" yaml:"max_value,omitempty" toml:"max_value,omitempty"`
	MeanValue   *float64 `json:"mean_value,omitempty" yaml:"mean_value,omitempty" toml:"mean_value,omitempty"`
	Earliest    string   `json:"earliest,omitempty" yaml:"earliest,omitempty" toml:"earliest,omitempty"`
	Latest      string   `json:"latest,omitempty" yaml:"latest,omitempty" toml:"latest,omitempty"`
	TopHits     []TopHit `json:"top_hits,omitempty" yaml:"top_hits,omitempty" toml:"top_hits,omitempty"`
}

// Field is one entry of the field schema
type Field struct {
	Name       string     `json:"name" yaml:"name" toml:"name"`                                                    // Unique within one structure
	Type       FieldType  `json:"type" yaml:"type" toml:"type"`                                                    // Inferred data type
	DateFormat string     `json:"date_format,omitempty" yaml:"date_format,omitempty" toml:"date_format,omitempty"` // Timestamp format name for date fields
	Stats      FieldStats `json:"stats" yaml:"stats" toml:"stats"`                                                 // Observed value statistics
}

// TimestampFormat names a recognised timestamp layout
type TimestampFormat struct {
	Name     string `json:"name" yaml:"name" toml:"name"`                                              // e.g. ISO8601, SYSLOG, UNIX_MS
	GoLayout string `json:"go_layout,omitempty" yaml:"go_layout,omitempty" toml:"go_layout,omitempty"` // Layout for time.Parse, empty for epochs
}

// Description is the complete output of one inference call. It depends only on the
// sample and the overrides, so repeated calls yield equal descriptions.
// Callers receive their own copy; the engine keeps no reference to it.
type Description struct {
	NumLinesAnalyzed   int        `json:"num_lines_analyzed" yaml:"num_lines_analyzed" toml:"num_lines_analyzed"`
	NumRecordsAnalyzed int        `json:"num_records_analyzed" yaml:"num_records_analyzed" toml:"num_records_analyzed"`
	SampleStart        string     `json:"sample_start" yaml:"sample_start" toml:"sample_start"`
	Charset            string     `json:"charset" yaml:"charset" toml:"charset"`
	HasByteOrderMarker bool       `json:"has_byte_order_marker" yaml:"has_byte_order_marker" toml:"has_byte_order_marker"`
	LineEnding         LineEnding `json:"line_ending" yaml:"line_ending" toml:"line_ending"`

	MultilineStartPattern string `json:"multiline_start_pattern,omitempty" yaml:"multiline_start_pattern,omitempty" toml:"multiline_start_pattern,omitempty"`
	TruncatedRecords      int    `json:"truncated_records,omitempty" yaml:"truncated_records,omitempty" toml:"truncated_records,omitempty"`

	Format Format `json:"format" yaml:"format" toml:"format"`

	// Delimited parameters
	Delimiter        string   `json:"delimiter,omitempty" yaml:"delimiter,omitempty" toml:"delimiter,omitempty"`
	Quote            string   `json:"quote,omitempty" yaml:"quote,omitempty" toml:"quote,omitempty"`
	HasHeaderRow     *bool    `json:"has_header_row,omitempty" yaml:"has_header_row,omitempty" toml:"has_header_row,omitempty"`
	ColumnNames      []string `json:"column_names,omitempty" yaml:"column_names,omitempty" toml:"column_names,omitempty"`
	ShouldTrimFields *bool    `json:"should_trim_fields,omitempty" yaml:"should_trim_fields,omitempty" toml:"should_trim_fields,omitempty"`

	// XML parameters
	RootElement string `json:"root_element,omitempty" yaml:"root_element,omitempty" toml:"root_element,omitempty"`

	// Semi-structured parameters
	GrokPattern string `json:"grok_pattern,omitempty" yaml:"grok_pattern,omitempty" toml:"grok_pattern,omitempty"`

	Fields []Field `json:"fields" yaml:"fields" toml:"fields"`

	TimestampField     string           `json:"timestamp_field,omitempty" yaml:"timestamp_field,omitempty" toml:"timestamp_field,omitempty"`
	TimestampFormat    *TimestampFormat `json:"timestamp_format,omitempty" yaml:"timestamp_format,omitempty" toml:"timestamp_format,omitempty"`
	NeedClientTimezone bool             `json:"need_client_timezone" yaml:"need_client_timezone" toml:"need_client_timezone"`

	Explanation []string `json:"explanation,omitempty" yaml:"explanation,omitempty" toml:"explanation,omitempty"`
}

// Field returns the schema entry with the given name
func (d *Description) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns the schema field names in order
func (d *Description) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}
