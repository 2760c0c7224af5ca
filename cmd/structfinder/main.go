/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Main command-line interface for structfinder. Provides the find, formats,
logs and version commands, configuration file and environment handling, and logging
options shared by every command.
*/

package main

import (
	"fmt"
	"os"

	"github.com/kleascm/structfinder/cmd/structfinder/commands"
	"github.com/kleascm/structfinder/pkg/structure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Configuration
	configFile string
	logLevel   string
	jsonLogs   bool

	// Logging configuration
	logDir      string
	logFormat   string
	logMaxFiles int
	logMaxSize  int64
	logCompress bool
)

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:   "structfinder",
		Short: "structfinder - infer the structure of text samples",
		Long: `structfinder examines a sample of a text file and infers how to parse it: charset,
line endings, multi-line records, format (delimited, NDJSON, XML or semi-structured text),
format parameters, field types and the timestamp field with its format.`,
		Version:       commands.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// Add persistent flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Use JSON log format")

	// Add logging-specific flags
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Log output directory (empty logs to stderr only)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "custom", "Log format (text, json, custom)")
	rootCmd.PersistentFlags().IntVar(&logMaxFiles, "log-max-files", 10, "Maximum number of log files to keep")
	rootCmd.PersistentFlags().Int64Var(&logMaxSize, "log-max-size", 100*1024*1024, "Maximum log file size in bytes")
	rootCmd.PersistentFlags().BoolVar(&logCompress, "log-compress", false, "Compress rotated log files")

	// Bind flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("json_logs", rootCmd.PersistentFlags().Lookup("json-logs"))
	viper.BindPFlag("log_dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("log_max_files", rootCmd.PersistentFlags().Lookup("log-max-files"))
	viper.BindPFlag("log_max_size", rootCmd.PersistentFlags().Lookup("log-max-size"))
	viper.BindPFlag("log_compress", rootCmd.PersistentFlags().Lookup("log-compress"))

	// Add commands to root
	rootCmd.AddCommand(commands.NewFindCommand())
	rootCmd.AddCommand(commands.NewFormatsCommand())
	rootCmd.AddCommand(commands.NewLogsCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if kind := structure.KindOf(err); kind != "" {
			fmt.Fprintf(os.Stderr, "Kind: %s\n", kind)
		}
		if hint := structure.Hints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
