/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logs.go
Description: The logs command. Summarises the log files written with --log-dir: level
counts, structures found, failures by error kind and disk usage.
*/

package commands

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/kleascm/structfinder/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewLogsCommand creates the logs command
func NewLogsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Summarise structfinder log files",
		Long: `Summarise the log files in --log-dir: how many structures were found, how many calls
failed and with which error kind, and how much disk the logs use.`,
		Args: cobra.NoArgs,
		RunE: SummariseLogs,
	}
}

// SummariseLogs prints the log analysis and file statistics for log_dir
func SummariseLogs(cmd *cobra.Command, args []string) error {
	logDir := viper.GetString("log_dir")
	if logDir == "" {
		return errors.New("no log directory configured, pass --log-dir")
	}

	analysis, err := logging.NewLogAnalyzer(logDir).AnalyzeLogs()
	if err != nil {
		return err
	}
	stats, err := logging.NewLogManager(logDir, 1, 1, false).GetLogStats()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "📁 %s\n\n", logDir)
	fmt.Fprintln(out, analysis.GetLogSummary())
	fmt.Fprintf(out, "\nDisk usage: %d files, %d bytes (%d compressed)\n",
		stats.TotalFiles, stats.TotalSize, stats.CompressedFiles)
	return nil
}
