/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report.go
Description: Renders structure descriptions for people and machines. Supports JSON, YAML
and TOML documents plus a terminal view built from pterm tables.
*/

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/kleascm/structfinder/pkg/structure"
	"github.com/kleascm/structfinder/pkg/timestamp"
	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"
)

// Format selects an output encoding
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Formats lists the supported output formats
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatTOML}

// ParseFormat maps a flag value onto a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", errors.Newf("unsupported output format: %s (supported: text, json, yaml, toml)", s)
}

// Render writes desc to w in the given format
func Render(w io.Writer, desc *structure.Description, format Format) error {
	var data []byte
	var err error

	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(desc, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	case FormatYAML:
		data, err = yaml.Marshal(desc)
	case FormatTOML:
		data, err = toml.Marshal(desc)
	case FormatText, "":
		var text string
		text, err = renderText(desc)
		data = []byte(text)
	default:
		return errors.Newf("unsupported output format: %s", format)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to render structure as %s", format)
	}

	_, err = w.Write(data)
	return errors.Wrap(err, "write report")
}

// renderText builds the terminal view: a summary table, the field table and the
// reasoning steps
func renderText(desc *structure.Description) (string, error) {
	var b strings.Builder

	summary := pterm.TableData{{"Property", "Value"}}
	add := func(key, value string) {
		if value != "" {
			summary = append(summary, []string{key, value})
		}
	}
	add("Format", string(desc.Format))
	add("Charset", desc.Charset)
	add("Byte order marker", strconv.FormatBool(desc.HasByteOrderMarker))
	add("Line ending", string(desc.LineEnding))
	add("Lines analyzed", strconv.Itoa(desc.NumLinesAnalyzed))
	add("Records analyzed", strconv.Itoa(desc.NumRecordsAnalyzed))
	add("Multiline start", desc.MultilineStartPattern)
	if desc.TruncatedRecords > 0 {
		add("Truncated records", strconv.Itoa(desc.TruncatedRecords))
	}
	add("Delimiter", printable(desc.Delimiter))
	if desc.Format == structure.FormatDelimited {
		add("Quote", printable(desc.Quote))
	}
	if desc.HasHeaderRow != nil {
		add("Header row", strconv.FormatBool(*desc.HasHeaderRow))
	}
	if desc.ShouldTrimFields != nil {
		add("Trim fields", strconv.FormatBool(*desc.ShouldTrimFields))
	}
	add("Root element", desc.RootElement)
	add("Grok pattern", desc.GrokPattern)
	add("Timestamp field", desc.TimestampField)
	if desc.TimestampFormat != nil {
		add("Timestamp format", desc.TimestampFormat.Name)
		add("Need client timezone", strconv.FormatBool(desc.NeedClientTimezone))
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(summary).Srender()
	if err != nil {
		return "", err
	}
	b.WriteString(table)
	b.WriteString("\n\n")

	fields := pterm.TableData{{"Field", "Type", "Count", "Cardinality", "Range", "Top value"}}
	for _, f := range desc.Fields {
		typ := string(f.Type)
		if f.DateFormat != "" {
			typ += " (" + f.DateFormat + ")"
		}
		top := ""
		if len(f.Stats.TopHits) > 0 {
			top = fmt.Sprintf("%s (%d)", clip(f.Stats.TopHits[0].Value, 30), f.Stats.TopHits[0].Count)
		}
		fields = append(fields, []string{
			f.Name, typ,
			strconv.Itoa(f.Stats.Count), strconv.Itoa(f.Stats.Cardinality),
			valueRange(f.Stats), top,
		})
	}
	table, err = pterm.DefaultTable.WithHasHeader().WithData(fields).Srender()
	if err != nil {
		return "", err
	}
	b.WriteString(table)
	b.WriteString("\n")

	if len(desc.Explanation) > 0 {
		b.WriteString("\nExplanation:\n")
		for i, step := range desc.Explanation {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
		}
	}
	if desc.SampleStart != "" {
		b.WriteString("\nSample start:\n")
		for _, line := range strings.Split(strings.TrimRight(desc.SampleStart, "\n"), "\n") {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String(), nil
}

func valueRange(s structure.FieldStats) string {
	switch {
	case s.MinValue != nil && s.MaxValue != nil:
		return strconv.FormatFloat(*s.MinValue, 'g', -1, 64) + " .. " + strconv.FormatFloat(*s.MaxValue, 'g', -1, 64)
	case s.Earliest != "":
		return s.Earliest + " .. " + s.Latest
	}
	return ""
}

func printable(s string) string {
	switch s {
	case "":
		return ""
	case "\t":
		return `\t`
	case " ":
		return "space"
	}
	return s
}

func clip(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", `\n`)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// RenderTimestampFormats writes the built-in timestamp formats as a table
func RenderTimestampFormats(w io.Writer, formats []timestamp.Format) error {
	data := pterm.TableData{{"Name", "Example", "Layouts"}}
	for _, f := range formats {
		layouts := strings.Join(f.Layouts, " | ")
		if f.IsEpoch() {
			layouts = "(epoch)"
		}
		data = append(data, []string{f.Name, f.Example, layouts})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "render timestamp formats")
	}
	_, err = fmt.Fprintln(w, table)
	return errors.Wrap(err, "write timestamp formats")
}
