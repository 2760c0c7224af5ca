/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: overrides.go
Description: Caller-pinned decisions. Each field pins one decision point of the inference
pipeline; a zero value defers to inference. Validate rejects combinations that contradict
each other before any inference runs.
*/

package structure

import (
	"regexp"
	"unicode/utf8"
)

// Overrides holds one optional value per decision point
type Overrides struct {
	Charset               string   `json:"charset,omitempty" mapstructure:"charset"`
	Format                Format   `json:"format,omitempty" mapstructure:"format"`
	Delimiter             string   `json:"delimiter,omitempty" mapstructure:"delimiter"`
	Quote                 *string  `json:"quote,omitempty" mapstructure:"quote"` // Pointer so that "no quoting" can be pinned
	HasHeaderRow          *bool    `json:"has_header_row,omitempty" mapstructure:"has_header_row"`
	ColumnNames           []string `json:"column_names,omitempty" mapstructure:"column_names"`
	ShouldTrimFields      *bool    `json:"should_trim_fields,omitempty" mapstructure:"should_trim_fields"`
	TimestampField        string   `json:"timestamp_field,omitempty" mapstructure:"timestamp_field"`
	TimestampFormat       string   `json:"timestamp_format,omitempty" mapstructure:"timestamp_format"`
	GrokPattern           string   `json:"grok_pattern,omitempty" mapstructure:"grok_pattern"`
	MultilineStartPattern string   `json:"multiline_start_pattern,omitempty" mapstructure:"multiline_start_pattern"`
	KeepArrays            bool     `json:"keep_arrays,omitempty" mapstructure:"keep_arrays"`
}

// hasDelimitedOverrides reports whether any delimited-only decision is pinned
func (o *Overrides) hasDelimitedOverrides() bool {
	return o.Delimiter != "" || o.Quote != nil || o.HasHeaderRow != nil ||
		len(o.ColumnNames) > 0 || o.ShouldTrimFields != nil
}

// EffectiveFormat returns the format implied by the pinned values, or "" when the
// format is left to inference
func (o *Overrides) EffectiveFormat() Format {
	if o == nil {
		return ""
	}
	if o.Format != "" {
		return o.Format
	}
	if o.hasDelimitedOverrides() {
		return FormatDelimited
	}
	if o.GrokPattern != "" {
		return FormatSemiStructured
	}
	return ""
}

// DelimiterRune returns the pinned delimiter, if any
func (o *Overrides) DelimiterRune() (rune, bool) {
	if o == nil || o.Delimiter == "" {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(o.Delimiter)
	return r, true
}

// QuoteRune returns the pinned quote character; a pinned empty quote yields (0, true)
func (o *Overrides) QuoteRune() (rune, bool) {
	if o == nil || o.Quote == nil {
		return 0, false
	}
	if *o.Quote == "" {
		return 0, true
	}
	r, _ := utf8.DecodeRuneInString(*o.Quote)
	return r, true
}

// Validate checks the overrides for contradictions that are visible before inference
func (o *Overrides) Validate() error {
	if o == nil {
		return nil
	}
	if o.Format != "" && !o.Format.Valid() {
		return NewErrorWithHint(KindInconsistentOverrides,
			"use one of delimited, json, xml, semi_structured_text",
			"unknown format override %q", o.Format)
	}

	pinned := o.Format
	if o.hasDelimitedOverrides() && pinned != "" && pinned != FormatDelimited {
		return NewError(KindInconsistentOverrides,
			"delimiter, quote, header and column overrides require format %s, but format %s was pinned",
			FormatDelimited, pinned)
	}
	if o.GrokPattern != "" && pinned != "" && pinned != FormatSemiStructured {
		return NewError(KindInconsistentOverrides,
			"a grok pattern requires format %s, but format %s was pinned", FormatSemiStructured, pinned)
	}
	if o.GrokPattern != "" && o.hasDelimitedOverrides() {
		return NewError(KindInconsistentOverrides, "a grok pattern cannot be combined with delimited overrides")
	}
	if o.KeepArrays && pinned != "" && pinned != FormatJSON {
		return NewError(KindInconsistentOverrides,
			"keeping arrays requires format %s, but format %s was pinned", FormatJSON, pinned)
	}

	if o.Delimiter != "" && utf8.RuneCountInString(o.Delimiter) != 1 {
		return NewErrorWithHint(KindInconsistentOverrides, "use a single character such as ',' or '\\t'",
			"delimiter override %q must be a single character", o.Delimiter)
	}
	if o.Quote != nil {
		if utf8.RuneCountInString(*o.Quote) > 1 {
			return NewError(KindInconsistentOverrides, "quote override %q must be at most one character", *o.Quote)
		}
		if *o.Quote != "" && *o.Quote == o.Delimiter {
			return NewError(KindInconsistentOverrides, "quote and delimiter overrides are both %q", o.Delimiter)
		}
	}
	if len(o.ColumnNames) > 0 {
		seen := make(map[string]bool, len(o.ColumnNames))
		for _, name := range o.ColumnNames {
			if name == "" {
				return NewError(KindInconsistentOverrides, "column name overrides must not be empty")
			}
			if seen[name] {
				return NewError(KindInconsistentOverrides, "duplicate column name override %q", name)
			}
			seen[name] = true
		}
	}

	if o.GrokPattern != "" {
		re, err := regexp.Compile(o.GrokPattern)
		if err != nil {
			return NewError(KindInconsistentOverrides, "grok pattern does not compile: %v", err)
		}
		named := 0
		for _, name := range re.SubexpNames() {
			if name != "" {
				named++
			}
		}
		if named == 0 {
			return NewErrorWithHint(KindInconsistentOverrides, "name captures with (?P<field>...)",
				"grok pattern %q has no named captures", o.GrokPattern)
		}
	}
	if o.MultilineStartPattern != "" {
		if _, err := regexp.Compile(o.MultilineStartPattern); err != nil {
			return NewError(KindInconsistentOverrides, "multiline start pattern does not compile: %v", err)
		}
	}
	return nil
}
