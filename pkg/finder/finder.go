/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: finder.go
Description: The structure finder entry point. Runs one sample through decoding, line
merging, format classification, format-specific analysis and field typing, consults the
caller's overrides at every stage boundary and checks the call deadline between stages.
A Finder holds configuration only, so concurrent calls share no mutable state.
*/

package finder

import (
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/structfinder/pkg/classifier"
	"github.com/kleascm/structfinder/pkg/config"
	"github.com/kleascm/structfinder/pkg/decoder"
	"github.com/kleascm/structfinder/pkg/inference"
	"github.com/kleascm/structfinder/pkg/logging"
	"github.com/kleascm/structfinder/pkg/merger"
	"github.com/kleascm/structfinder/pkg/structure"
	"github.com/kleascm/structfinder/pkg/timestamp"
	"github.com/sirupsen/logrus"
)

// Pipeline stage names, used in logs and timeout diagnostics
const (
	StageDecode   = "decode"
	StageMerge    = "merge"
	StageClassify = "classify"
	StageAnalyze  = "analyze"
	StageAssemble = "assemble"
)

// Request is one structure finding call
type Request struct {
	ID                 string // Correlates log entries; empty gets a generated id
	Sample             []byte
	LinesToSample      int                  // Zero uses the configured default
	LineMergeSizeLimit int                  // Zero uses the configured default
	Overrides          *structure.Overrides // Nil infers everything
	Deadline           time.Time            // Zero uses the configured default timeout
}

// Finder infers the structure of text samples
type Finder struct {
	cfg *config.Config
	log logrus.FieldLogger
}

// New creates a finder. A nil config uses config.Default(); a nil logger discards output.
func New(cfg *config.Config, logger logrus.FieldLogger) *Finder {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &Finder{cfg: cfg, log: logger}
}

// call carries the state of one FindStructure invocation
type call struct {
	id        string
	start     time.Time
	deadline  time.Time
	overrides *structure.Overrides
	pinnedTS  *timestamp.Format
	log       logrus.FieldLogger
}

// FindStructure infers the structure of req.Sample
func (f *Finder) FindStructure(req Request) (*structure.Description, error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	c := &call{id: id, start: time.Now(), overrides: req.Overrides, log: f.log}

	desc, err := f.run(c, req)
	if err != nil {
		logging.FailureEntry(f.log, c.id, err).Warn("Structure finding failed")
		return nil, err
	}
	logging.ResultEntry(f.log, c.id, desc, time.Since(c.start)).Info("Structure found")
	return desc, nil
}

func (f *Finder) run(c *call, req Request) (*structure.Description, error) {
	linesToSample, mergeLimit, err := f.limits(req)
	if err != nil {
		return nil, err
	}
	if err := req.Overrides.Validate(); err != nil {
		return nil, err
	}
	if req.Overrides != nil && req.Overrides.TimestampFormat != "" {
		tf, ok := timestamp.Lookup(req.Overrides.TimestampFormat)
		if !ok {
			return nil, structure.NewErrorWithHint(structure.KindInconsistentOverrides,
				"run `structfinder formats` to list the supported timestamp formats",
				"unknown timestamp format override %q", req.Overrides.TimestampFormat)
		}
		c.pinnedTS = &tf
	}

	c.deadline = req.Deadline
	if c.deadline.IsZero() {
		c.deadline = c.start.Add(f.cfg.Defaults.Timeout)
	}
	if len(req.Sample) == 0 {
		return nil, structure.NewErrorWithHint(structure.KindInsufficientSample,
			"supply a sample with at least a few records", "sample is empty")
	}
	if err := c.checkDeadline(StageDecode); err != nil {
		return nil, err
	}

	// Decode
	charset := ""
	if req.Overrides != nil {
		charset = req.Overrides.Charset
	}
	sample, capped := decoder.Prefix(req.Sample, decoder.ByteBudget(linesToSample, mergeLimit))
	decoded, err := decoder.Decode(sample, decoder.Options{
		Charset:             charset,
		MaxControlCharRatio: f.cfg.Thresholds.MaxControlCharRatio,
	})
	if err != nil {
		return nil, err
	}
	lines := decoded.Lines
	var notes []string
	if capped {
		notes = append(notes, fmt.Sprintf("Read the first %d of %d sample bytes", len(sample), len(req.Sample)))
	}
	if len(lines) > linesToSample {
		notes = append(notes, fmt.Sprintf("Analyzed the first %d of %d lines", linesToSample, len(lines)))
		lines = lines[:linesToSample]
	}
	notes = append(notes, fmt.Sprintf("Decoded the sample as %s with %s line endings", decoded.Charset, decoded.LineEnding))
	c.stage(StageDecode, logrus.Fields{"charset": decoded.Charset, "lines": len(lines), "bom": decoded.HasByteOrderMarker})
	if err := c.checkDeadline(StageMerge); err != nil {
		return nil, err
	}

	// Merge
	mergeOpts := merger.Options{SizeLimit: mergeLimit, MinStartMatches: f.cfg.Thresholds.MinStartMatches}
	if req.Overrides != nil && req.Overrides.MultilineStartPattern != "" {
		mergeOpts.StartPattern = regexp.MustCompile(req.Overrides.MultilineStartPattern)
	}
	merged := merger.Merge(lines, mergeOpts)
	switch {
	case merged.Merged:
		notes = append(notes, fmt.Sprintf("Merged lines into %d multi-line records starting at %s", len(merged.Records), merged.StartPattern))
	case merged.StartPattern != "":
		notes = append(notes, fmt.Sprintf("Records start at %s and each spans one line", merged.StartPattern))
	}
	if merged.Truncated > 0 {
		c.entry().WithField("truncated", merged.Truncated).Warn("Records exceeded the line merge size limit")
		notes = append(notes, fmt.Sprintf("Truncated %d records at %d bytes", merged.Truncated, mergeLimit))
	}
	c.stage(StageMerge, logrus.Fields{"records": len(merged.Records), "merged": merged.Merged})
	if len(merged.Records) < f.cfg.Thresholds.MinRecords {
		return nil, structure.NewErrorWithHint(structure.KindInsufficientSample,
			"supply a larger sample or raise --lines-to-sample",
			"only %d records survived merging, at least %d are needed",
			len(merged.Records), f.cfg.Thresholds.MinRecords)
	}
	if err := c.checkDeadline(StageClassify); err != nil {
		return nil, err
	}

	// Classify
	pinned := classifier.Pinned{Format: req.Overrides.EffectiveFormat()}
	if d, ok := req.Overrides.DelimiterRune(); ok {
		pinned.Delimiter = d
	}
	decision, err := classifier.Classify(merged.Records, pinned, classifier.Thresholds{
		MajorityFraction: f.cfg.Thresholds.MajorityFraction,
		MinRecords:       f.cfg.Thresholds.MinRecords,
	})
	if err != nil {
		return nil, err
	}
	notes = append(notes, decision.Explanation...)
	c.stage(StageClassify, logrus.Fields{"format": decision.Format, "agreement": decision.Agreement})
	if err := c.checkDeadline(StageAnalyze); err != nil {
		return nil, err
	}

	// Analyze
	engine := inference.NewEngine(decision.Format)
	if engine == nil {
		return nil, structure.NewError(structure.KindNoConsistentFormat, "no analyzer for format %s", decision.Format)
	}
	analysis, err := engine.InferStructure(inference.Input{
		Records:   merged.Records,
		Overrides: req.Overrides,
		Delimiter: decision.Delimiter,
		Options: inference.Options{
			MajorityFraction: f.cfg.Thresholds.MajorityFraction,
			SimilarityCutoff: f.cfg.Thresholds.SimilarityCutoff,
		},
	})
	if err != nil {
		if pinned.Format != "" && structure.KindOf(err) == structure.KindNoConsistentFormat {
			return nil, structure.NewErrorWithHint(structure.KindInconsistentOverrides,
				"drop the format override to let it be inferred",
				"format was pinned to %s but the sample does not parse as %s: %v", pinned.Format, pinned.Format, err)
		}
		return nil, err
	}
	if analysis.GrokPattern == inference.FallbackPattern && pinned.Format == "" {
		c.entry().Warn("Records share too little structure, falling back to a single message field")
	}
	c.stage(StageAnalyze, logrus.Fields{"format": analysis.Format, "records": analysis.Records, "fields": len(analysis.Columns)})
	if err := c.checkDeadline(StageAssemble); err != nil {
		return nil, err
	}

	// Assemble
	desc, err := f.assemble(c, assembly{
		decoded:  decoded,
		lines:    len(lines),
		merged:   merged,
		analysis: analysis,
		pinned:   pinned.Format != "",
		notes:    notes,
	})
	if err != nil {
		return nil, err
	}
	c.stage(StageAssemble, logrus.Fields{"fields": len(desc.Fields), "timestamp_field": desc.TimestampField})
	return desc, nil
}

// limits resolves the request's sampling limits against the configuration
func (f *Finder) limits(req Request) (int, int, error) {
	lines := req.LinesToSample
	if lines == 0 {
		lines = f.cfg.Defaults.LinesToSample
	}
	if lines < 2 {
		return 0, 0, structure.NewError(structure.KindInvalidRequest,
			"lines to sample must be at least 2, got %d", req.LinesToSample)
	}
	if lines > f.cfg.Thresholds.MaxLinesToSample {
		lines = f.cfg.Thresholds.MaxLinesToSample
	}

	limit := req.LineMergeSizeLimit
	if limit == 0 {
		limit = f.cfg.Defaults.LineMergeSizeLimit
	}
	if limit < 1 {
		return 0, 0, structure.NewError(structure.KindInvalidRequest,
			"line merge size limit must be positive, got %d", req.LineMergeSizeLimit)
	}
	return lines, limit, nil
}

// checkDeadline fails with Timeout once the call deadline has passed
func (c *call) checkDeadline(next string) error {
	if time.Now().Before(c.deadline) {
		return nil
	}
	return structure.NewErrorWithHint(structure.KindTimeout,
		"raise --timeout or sample fewer lines",
		"structure finding timed out after %s before the %s stage", time.Since(c.start).Round(time.Millisecond), next)
}

func (c *call) entry() *logrus.Entry {
	return c.log.WithField("request_id", c.id)
}

func (c *call) stage(name string, fields logrus.Fields) {
	logging.StageEntry(c.log, c.id, name).WithFields(fields).
		WithField("duration", time.Since(c.start)).Debug("Stage completed")
}
