/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config_test.go
Description: Tests for configuration defaults, viper loading and validation.
*/

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.5, cfg.Thresholds.MajorityFraction)
	assert.Equal(t, 2, cfg.Thresholds.MinRecords)
	assert.Equal(t, 10000, cfg.Thresholds.MaxLinesToSample)
	assert.Equal(t, 1000, cfg.Defaults.LinesToSample)
	assert.Equal(t, 25*time.Second, cfg.Defaults.Timeout)
	assert.Greater(t, cfg.WorkerCount(), 0)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "structfinder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
thresholds:
  top_hits: 5
  similarity_cutoff: 0.8
defaults:
  timeout: 3s
workers: 4
`), 0o644))

	t.Setenv("STRUCTFINDER_THRESHOLDS_MIN_RECORDS", "7")

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Thresholds.TopHits)
	assert.Equal(t, 0.8, cfg.Thresholds.SimilarityCutoff)
	assert.Equal(t, 7, cfg.Thresholds.MinRecords)
	assert.Equal(t, 3*time.Second, cfg.Defaults.Timeout)
	assert.Equal(t, 4, cfg.WorkerCount())
	assert.Equal(t, 0.5, cfg.Thresholds.MajorityFraction)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"majority of one":    func(c *Config) { c.Thresholds.MajorityFraction = 1 },
		"zero min records":   func(c *Config) { c.Thresholds.MinRecords = 0 },
		"cutoff above one":   func(c *Config) { c.Thresholds.SimilarityCutoff = 1.5 },
		"one line sampled":   func(c *Config) { c.Defaults.LinesToSample = 1 },
		"no timeout":         func(c *Config) { c.Defaults.Timeout = 0 },
		"negative workers":   func(c *Config) { c.Workers = -1 },
		"too many top hits":  func(c *Config) { c.Thresholds.TopHits = 1000 },
		"zero merge size":    func(c *Config) { c.Defaults.LineMergeSizeLimit = 0 },
		"tiny sampling cap":  func(c *Config) { c.Thresholds.MaxLinesToSample = 1 },
		"zero start matches": func(c *Config) { c.Thresholds.MinStartMatches = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	t.Setenv("STRUCTFINDER_THRESHOLDS_MAJORITY_FRACTION", "2")
	_, err := Load(viper.New())
	assert.Error(t, err)
}
