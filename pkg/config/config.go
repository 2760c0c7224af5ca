/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Configuration for the structure finder. Holds inference thresholds, request
defaults and dispatcher sizing. Loaded from viper (config file, STRUCTFINDER_ environment
variables and bound flags) and checked with validator tags.
*/

package config

import (
	"runtime"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix read by Load
const EnvPrefix = "STRUCTFINDER"

// Thresholds tune every inference decision
type Thresholds struct {
	MajorityFraction    float64 `mapstructure:"majority_fraction" json:"majority_fraction" validate:"gte=0,lt=1"`
	MinRecords          int     `mapstructure:"min_records" json:"min_records" validate:"gte=1"`
	SimilarityCutoff    float64 `mapstructure:"similarity_cutoff" json:"similarity_cutoff" validate:"gte=0,lte=1"`
	MaxLinesToSample    int     `mapstructure:"max_lines_to_sample" json:"max_lines_to_sample" validate:"gte=2"`
	MaxControlCharRatio float64 `mapstructure:"max_control_char_ratio" json:"max_control_char_ratio" validate:"gte=0,lte=1"`
	MinStartMatches     int     `mapstructure:"min_start_matches" json:"min_start_matches" validate:"gte=1"`
	TopHits             int     `mapstructure:"top_hits" json:"top_hits" validate:"gte=0,lte=100"`
}

// Defaults are applied to requests that leave a limit unset
type Defaults struct {
	LinesToSample      int           `mapstructure:"lines_to_sample" json:"lines_to_sample" validate:"gte=2"`
	LineMergeSizeLimit int           `mapstructure:"line_merge_size_limit" json:"line_merge_size_limit" validate:"gte=1"`
	Timeout            time.Duration `mapstructure:"timeout" json:"timeout" validate:"gt=0"`
}

// Config is the complete structure finder configuration
type Config struct {
	Thresholds Thresholds `mapstructure:"thresholds" json:"thresholds" validate:"required"`
	Defaults   Defaults   `mapstructure:"defaults" json:"defaults" validate:"required"`
	Workers    int        `mapstructure:"workers" json:"workers" validate:"gte=0"` // Zero means one per CPU
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Thresholds: Thresholds{
			MajorityFraction:    0.5,
			MinRecords:          2,
			SimilarityCutoff:    0.6,
			MaxLinesToSample:    10000,
			MaxControlCharRatio: 0.05,
			MinStartMatches:     2,
			TopHits:             10,
		},
		Defaults: Defaults{
			LinesToSample:      1000,
			LineMergeSizeLimit: 10000,
			Timeout:            25 * time.Second,
		},
		Workers: 0,
	}
}

// SetDefaults registers every default under its viper key so that partial config files
// and environment variables merge over them
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("thresholds.majority_fraction", d.Thresholds.MajorityFraction)
	v.SetDefault("thresholds.min_records", d.Thresholds.MinRecords)
	v.SetDefault("thresholds.similarity_cutoff", d.Thresholds.SimilarityCutoff)
	v.SetDefault("thresholds.max_lines_to_sample", d.Thresholds.MaxLinesToSample)
	v.SetDefault("thresholds.max_control_char_ratio", d.Thresholds.MaxControlCharRatio)
	v.SetDefault("thresholds.min_start_matches", d.Thresholds.MinStartMatches)
	v.SetDefault("thresholds.top_hits", d.Thresholds.TopHits)
	v.SetDefault("defaults.lines_to_sample", d.Defaults.LinesToSample)
	v.SetDefault("defaults.line_merge_size_limit", d.Defaults.LineMergeSizeLimit)
	v.SetDefault("defaults.timeout", d.Defaults.Timeout)
	v.SetDefault("workers", d.Workers)
}

// Load reads the configuration held by v. Environment variables use the STRUCTFINDER_
// prefix with dots replaced by underscores, e.g. STRUCTFINDER_THRESHOLDS_TOP_HITS.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field against its validate tag
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

// WorkerCount resolves the dispatcher pool size
func (c *Config) WorkerCount() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}
