/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the structfinder commands. Provides configuration loading,
logging setup and sample reading used across all command implementations.
*/

package commands

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/kleascm/structfinder/pkg/config"
	"github.com/kleascm/structfinder/pkg/decoder"
	"github.com/kleascm/structfinder/pkg/logging"
	"github.com/spf13/viper"
)

// Version is stamped at build time with -ldflags "-X ...commands.Version=..."
var Version = "dev"

// LoadConfig loads configuration from the config file, environment and bound flags
func LoadConfig() (*config.Config, error) {
	// Set config file if specified
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	return cfg, nil
}

// SetupLogging configures the logging system from the log_* keys
func SetupLogging() (*logging.Logger, error) {
	logConfig := logging.DefaultConfig()
	if level := viper.GetString("log_level"); level != "" {
		logConfig.Level = logging.LogLevel(level)
	}
	if format := viper.GetString("log_format"); format != "" {
		logConfig.Format = logging.LogFormat(format)
	}
	if viper.GetBool("json_logs") {
		logConfig.Format = logging.LogFormatJSON
	}
	logConfig.OutputDir = viper.GetString("log_dir")
	if n := viper.GetInt("log_max_files"); n > 0 {
		logConfig.MaxFiles = n
	}
	if n := viper.GetInt64("log_max_size"); n > 0 {
		logConfig.MaxSize = n
	}
	logConfig.Compress = viper.GetBool("log_compress")

	logger, err := logging.NewLogger(logConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to setup logging")
	}
	return logger, nil
}

// sampleBudget is the number of bytes read per sample: one more than the finder can use,
// so that it sees the sample was cut
func sampleBudget(cfg *config.Config) int64 {
	lines := cfg.Defaults.LinesToSample
	if lines > cfg.Thresholds.MaxLinesToSample {
		lines = cfg.Thresholds.MaxLinesToSample
	}
	return int64(decoder.ByteBudget(lines, cfg.Defaults.LineMergeSizeLimit)) + 1
}

// readSample reads at most limit bytes of the sample named by path, or of stdin when path
// is "-" or empty
func readSample(stdin io.Reader, path string, limit int64) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(io.LimitReader(stdin, limit))
		if err != nil {
			return nil, errors.Wrap(err, "failed to read sample from stdin")
		}
		return data, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sample %s", path)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, limit))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sample %s", path)
	}
	return data, nil
}
