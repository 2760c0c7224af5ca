/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: formatter.go
Description: Custom log formatters for the structure finder. CustomFormatter renders
coloured, single-line entries with sorted fields; StageFormatter adds a pipeline stage
prefix so the decode, merge, classify and analyze steps of one request line up.
*/

package logging

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CustomFormatter provides readable, structured logging output
type CustomFormatter struct {
	Timestamp bool
	Caller    bool
	Colors    bool
}

// Format formats a log entry
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return f.format(entry, "", nil), nil
}

func (f *CustomFormatter) format(entry *logrus.Entry, prefix string, value func(string, interface{}) string) []byte {
	var output strings.Builder
	if value == nil {
		value = func(_ string, v interface{}) string { return f.formatValue(v) }
	}

	if f.Timestamp {
		timestamp := entry.Time.Format("2006-01-02 15:04:05.000")
		output.WriteString(f.paint(36, timestamp) + " ") // Cyan
	}

	level := strings.ToUpper(entry.Level.String())
	output.WriteString(f.paint(f.getLevelColor(entry.Level), level) + " ")

	if prefix != "" {
		output.WriteString(f.paint(35, "["+prefix+"]") + " ") // Magenta
	}

	if f.Caller && entry.HasCaller() {
		caller := fmt.Sprintf("%s:%d", entry.Caller.File, entry.Caller.Line)
		output.WriteString(f.paint(33, "["+caller+"]") + " ") // Yellow
	}

	output.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		output.WriteString(" ")
		output.WriteString(f.formatFields(entry.Data, value))
	}

	output.WriteString("\n")
	return []byte(output.String())
}

func (f *CustomFormatter) paint(color int, s string) string {
	if !f.Colors {
		return s
	}
	return fmt.Sprintf("\033[%dm%s\033[0m", color, s)
}

// getLevelColor returns the ANSI color code for a log level
func (f *CustomFormatter) getLevelColor(level logrus.Level) int {
	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return 37 // White
	case logrus.InfoLevel:
		return 32 // Green
	case logrus.WarnLevel:
		return 33 // Yellow
	case logrus.ErrorLevel:
		return 31 // Red
	case logrus.FatalLevel, logrus.PanicLevel:
		return 35 // Magenta
	default:
		return 37
	}
}

// formatFields renders fields in key order
func (f *CustomFormatter) formatFields(fields logrus.Fields, value func(string, interface{}) string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		formatted := value(key, fields[key])
		if f.Colors {
			parts = append(parts, fmt.Sprintf("\033[34m%s\033[0m=\033[32m%s\033[0m", key, formatted)) // Blue key, Green value
		} else {
			parts = append(parts, fmt.Sprintf("%s=%s", key, formatted))
		}
	}
	return strings.Join(parts, " ")
}

// formatValue formats a field value appropriately
func (f *CustomFormatter) formatValue(value interface{}) string {
	switch v := value.(type) {
	case time.Duration:
		return v.String()
	case time.Time:
		return v.Format("15:04:05.000")
	case error:
		return fmt.Sprintf("%q", v.Error())
	case string:
		if len(v) > 50 {
			return fmt.Sprintf("%q...", v[:50])
		}
		if strings.ContainsAny(v, " \t\n\"") {
			return fmt.Sprintf("%q", v)
		}
		return v
	case []byte:
		if len(v) > 20 {
			return fmt.Sprintf("[%d bytes]", len(v))
		}
		return fmt.Sprintf("%x", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// StageFormatter prefixes entries with the pipeline stage they belong to
type StageFormatter struct {
	CustomFormatter
}

// Format formats an entry, moving the stage field into the prefix
func (f *StageFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	prefix := f.getStagePrefix(entry)
	if _, ok := entry.Data["stage"]; ok {
		data := make(logrus.Fields, len(entry.Data))
		for k, v := range entry.Data {
			if k != "stage" {
				data[k] = v
			}
		}
		copied := *entry
		copied.Data = data
		entry = &copied
	}
	return f.format(entry, prefix, f.formatStageValue), nil
}

// getStagePrefix returns the stage name, or a prefix derived from the message
func (f *StageFormatter) getStagePrefix(entry *logrus.Entry) string {
	if stage, ok := entry.Data["stage"].(string); ok && stage != "" {
		return strings.ToUpper(stage)
	}
	switch {
	case strings.Contains(entry.Message, "Structure found"):
		return "RESULT"
	case strings.Contains(entry.Message, "Structure finding failed"):
		return "FAILED"
	case strings.Contains(entry.Message, "Statistics update"):
		return "STATS"
	case strings.Contains(entry.Message, "Dispatcher"):
		return "DISPATCH"
	default:
		return ""
	}
}

// formatStageValue shortens request ids and formats durations
func (f *StageFormatter) formatStageValue(key string, value interface{}) string {
	switch key {
	case "request_id":
		if s, ok := value.(string); ok && len(s) > 8 {
			return s[:8]
		}
	case "duration", "uptime":
		if d, ok := value.(time.Duration); ok {
			return d.Round(time.Microsecond).String()
		}
	case "agreement", "similarity", "fraction":
		if v, ok := value.(float64); ok {
			return fmt.Sprintf("%.2f", v)
		}
	}
	return f.formatValue(value)
}
