/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: find.go
Description: The find command. Reads one or more samples from files or stdin, runs them
through the structure finder on the dispatcher pool with the pinned overrides, and renders
each description as text, JSON, YAML or TOML.
*/

package commands

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/kleascm/structfinder/pkg/config"
	"github.com/kleascm/structfinder/pkg/finder"
	"github.com/kleascm/structfinder/pkg/report"
	"github.com/kleascm/structfinder/pkg/structure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewFindCommand creates the find command and binds its flags
func NewFindCommand() *cobra.Command {
	defaults := config.Default()

	findCmd := &cobra.Command{
		Use:   "find [file|-]...",
		Short: "Infer the structure of text samples",
		Long: `Infer the structure of one or more text samples: charset, line endings, multi-line
records, format (delimited, NDJSON, XML or semi-structured text), format parameters, field
types and the timestamp field. Reads stdin when no file or "-" is given. Every inferred
decision can be pinned with the override flags.`,
		RunE: RunFind,
	}

	// Sampling flags
	findCmd.Flags().Int("lines-to-sample", defaults.Defaults.LinesToSample, "Maximum number of lines to analyze")
	findCmd.Flags().Int("line-merge-size-limit", defaults.Defaults.LineMergeSizeLimit, "Maximum size in bytes of a merged multi-line record")
	findCmd.Flags().Duration("timeout", defaults.Defaults.Timeout, "Maximum time per sample")
	findCmd.Flags().Int("workers", 0, "Number of parallel workers (0 = auto-detect)")
	findCmd.Flags().StringP("output", "o", string(report.FormatText), "Output format (text, json, yaml, toml)")
	findCmd.Flags().String("save-dir", "", "Also save each description to this directory")

	// Override flags
	findCmd.Flags().String("charset", "", "Pin the sample charset (e.g. UTF-8, ISO-8859-1, UTF-16LE)")
	findCmd.Flags().String("format", "", "Pin the format (delimited, json, xml, semi_structured_text)")
	findCmd.Flags().String("delimiter", "", `Pin the field delimiter (a single character, "\t" or "tab")`)
	findCmd.Flags().String("quote", "", `Pin the quote character ("" disables quoting)`)
	findCmd.Flags().Bool("has-header-row", false, "Pin whether the first delimited row is a header")
	findCmd.Flags().StringSlice("column-names", nil, "Pin the delimited column names")
	findCmd.Flags().String("timestamp-field", "", "Pin the timestamp field")
	findCmd.Flags().String("timestamp-format", "", "Pin the timestamp format (a name from `formats` or a Go layout)")
	findCmd.Flags().String("grok-pattern", "", "Pin the semi-structured pattern (regexp with named captures)")
	findCmd.Flags().String("multiline-start-pattern", "", "Pin the regexp matching the first line of each record")
	findCmd.Flags().Bool("keep-arrays", false, "Keep JSON arrays as single fields instead of flattening")
	findCmd.Flags().Bool("trim-fields", false, "Pin whether delimited fields are trimmed")

	// Bind flags to viper
	viper.BindPFlag("defaults.lines_to_sample", findCmd.Flags().Lookup("lines-to-sample"))
	viper.BindPFlag("defaults.line_merge_size_limit", findCmd.Flags().Lookup("line-merge-size-limit"))
	viper.BindPFlag("defaults.timeout", findCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("workers", findCmd.Flags().Lookup("workers"))
	viper.BindPFlag("output", findCmd.Flags().Lookup("output"))
	viper.BindPFlag("save_dir", findCmd.Flags().Lookup("save-dir"))

	return findCmd
}

// sampleOutcome is the result of one sample
type sampleOutcome struct {
	id     string
	source string
	desc   *structure.Description
	err    error
}

// RunFind infers the structure of every sample named on the command line
func RunFind(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()

	output, err := report.ParseFormat(viper.GetString("output"))
	if err != nil {
		return err
	}
	overrides, err := overridesFromFlags(cmd)
	if err != nil {
		return err
	}

	sources := args
	if len(sources) == 0 {
		sources = []string{"-"}
	}
	samples := make([][]byte, len(sources))
	total := 0
	budget := sampleBudget(cfg)
	for i, source := range sources {
		if samples[i], err = readSample(cmd.InOrStdin(), source, budget); err != nil {
			return err
		}
		total += len(samples[i])
	}
	logger.Debug("Samples read", map[string]interface{}{"samples": len(samples), "bytes": total})

	f := finder.New(cfg, logger.GetLogger())
	workers := cfg.WorkerCount()
	if workers > len(samples) {
		workers = len(samples)
	}
	d := finder.NewDispatcher(f, workers, nil)
	defer d.Close()

	if output == report.FormatText {
		fmt.Fprintf(cmd.ErrOrStderr(), "🔍 Finding structure of %d sample(s) with %d worker(s)\n", len(samples), workers)
	}
	startTime := time.Now()

	outcomes := make([]sampleOutcome, len(samples))
	var wg sync.WaitGroup
	for i := range samples {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := uuid.NewString()
			desc, err := d.Submit(cmd.Context(), finder.Request{ID: id, Sample: samples[i], Overrides: overrides}, cfg.Defaults.Timeout)
			outcomes[i] = sampleOutcome{id: id, source: sources[i], desc: desc, err: err}
		}(i)
	}
	wg.Wait()

	stats := d.Stats()
	logger.LogStats(stats.Calls, stats.Succeeded, stats.Failed, stats.TimedOut)
	if output == report.FormatText {
		fmt.Fprintf(cmd.ErrOrStderr(), "✅ Finished in %v\n\n", time.Since(startTime).Round(time.Millisecond))
	}

	if saveDir := viper.GetString("save_dir"); saveDir != "" {
		for _, o := range outcomes {
			if o.err != nil {
				continue
			}
			path, err := report.Save(saveDir, o.source, o.id, o.desc, output)
			if err != nil {
				logger.Error("Saving description failed", map[string]interface{}{"sample": o.source, "dir": saveDir})
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "💾 Saved %s\n", path)
		}
	}

	// A single sample keeps its error kind and hints
	if len(outcomes) == 1 {
		if outcomes[0].err != nil {
			return outcomes[0].err
		}
		return report.Render(cmd.OutOrStdout(), outcomes[0].desc, output)
	}

	failed := 0
	for _, o := range outcomes {
		if o.err != nil {
			failed++
			logger.Warning("Sample failed", map[string]interface{}{"sample": o.source, "request_id": o.id})
			fmt.Fprintf(cmd.ErrOrStderr(), "❌ %s: %v\n", o.source, o.err)
			if hint := structure.Hints(o.err); hint != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "   %s\n", hint)
			}
			continue
		}
		if output == report.FormatText {
			fmt.Fprintf(cmd.OutOrStdout(), "📄 %s\n", o.source)
		}
		if err := report.Render(cmd.OutOrStdout(), o.desc, output); err != nil {
			return err
		}
	}
	if failed > 0 {
		return errors.Newf("%d of %d samples failed", failed, len(outcomes))
	}
	return nil
}

// overridesFromFlags collects the override flags the user set; nil when none were set
func overridesFromFlags(cmd *cobra.Command) (*structure.Overrides, error) {
	flags := cmd.Flags()
	o := &structure.Overrides{}
	set := false

	str := func(name string) string {
		if !flags.Changed(name) {
			return ""
		}
		set = true
		v, _ := flags.GetString(name)
		return v
	}
	boolPtr := func(name string) *bool {
		if !flags.Changed(name) {
			return nil
		}
		set = true
		v, _ := flags.GetBool(name)
		return &v
	}

	o.Charset = str("charset")
	if name := str("format"); name != "" {
		format, ok := structure.ParseFormat(strings.ToLower(name))
		if !ok {
			return nil, structure.NewErrorWithHint(structure.KindInvalidRequest,
				"use one of delimited, json, xml, semi_structured_text",
				"unknown format %q", name)
		}
		o.Format = format
		if strings.EqualFold(name, "tsv") && !flags.Changed("delimiter") {
			o.Delimiter = "\t"
		}
	}
	if d := str("delimiter"); d != "" {
		o.Delimiter = unescapeChar(d)
	}
	if flags.Changed("quote") {
		q := unescapeChar(str("quote"))
		o.Quote = &q
	}
	o.HasHeaderRow = boolPtr("has-header-row")
	o.ShouldTrimFields = boolPtr("trim-fields")
	if flags.Changed("column-names") {
		set = true
		o.ColumnNames, _ = flags.GetStringSlice("column-names")
	}
	o.TimestampField = str("timestamp-field")
	o.TimestampFormat = str("timestamp-format")
	o.GrokPattern = str("grok-pattern")
	o.MultilineStartPattern = str("multiline-start-pattern")
	if keep := boolPtr("keep-arrays"); keep != nil {
		o.KeepArrays = *keep
	}

	if !set {
		return nil, nil
	}
	return o, nil
}

// unescapeChar turns the shell-friendly spellings of separators into the character itself
func unescapeChar(s string) string {
	switch strings.ToLower(s) {
	case `\t`, "tab":
		return "\t"
	case "space":
		return " "
	case "pipe":
		return "|"
	case "comma":
		return ","
	case "semicolon":
		return ";"
	}
	return s
}
