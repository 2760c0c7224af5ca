/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Log file management for the structure finder. Rotates oversized files,
compresses rotated files with gzip, enforces a retention count and summarises log
directories by level and by structure-finding outcome.
*/

package logging

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// LogManager provides log rotation and retention
type LogManager struct {
	logDir   string
	maxFiles int
	maxSize  int64
	compress bool
}

// NewLogManager creates a new log manager
func NewLogManager(logDir string, maxFiles int, maxSize int64, compress bool) *LogManager {
	return &LogManager{
		logDir:   logDir,
		maxFiles: maxFiles,
		maxSize:  maxSize,
		compress: compress,
	}
}

// RotateLogs rotates log files when they exceed size limits
func (lm *LogManager) RotateLogs() error {
	files, err := filepath.Glob(filepath.Join(lm.logDir, filePrefix+"*.log"))
	if err != nil {
		return errors.Wrap(err, "failed to glob log files")
	}

	for _, file := range files {
		if err := lm.rotateFile(file); err != nil {
			return errors.Wrapf(err, "failed to rotate file %s", file)
		}
	}

	return nil
}

// rotateFile rotates a single log file
func (lm *LogManager) rotateFile(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return err
	}

	if stat.Size() < lm.maxSize {
		return nil
	}

	rotatedPath := fmt.Sprintf("%s.%s", path, time.Now().Format("2006-01-02_15-04-05"))
	if err := os.Rename(path, rotatedPath); err != nil {
		return err
	}

	if lm.compress {
		return lm.compressFile(rotatedPath)
	}
	return nil
}

// compressFile compresses a log file using gzip and removes the original
func (lm *LogManager) compressFile(path string) error {
	source, err := os.Open(path)
	if err != nil {
		return err
	}
	defer source.Close()

	compressed, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer compressed.Close()

	gzipWriter := gzip.NewWriter(compressed)
	if _, err := io.Copy(gzipWriter, source); err != nil {
		gzipWriter.Close()
		return err
	}
	if err := gzipWriter.Close(); err != nil {
		return err
	}

	return os.Remove(path)
}

// CleanupOldLogs removes the oldest log files beyond the retention count
func (lm *LogManager) CleanupOldLogs() error {
	files, err := filepath.Glob(filepath.Join(lm.logDir, filePrefix+"*.log*"))
	if err != nil {
		return errors.Wrap(err, "failed to glob log files")
	}

	if len(files) <= lm.maxFiles {
		return nil
	}

	// Oldest first
	sort.Slice(files, func(i, j int) bool {
		statI, errI := os.Stat(files[i])
		statJ, errJ := os.Stat(files[j])
		if errI != nil || errJ != nil {
			return files[i] < files[j]
		}
		if statI.ModTime().Equal(statJ.ModTime()) {
			return files[i] < files[j]
		}
		return statI.ModTime().Before(statJ.ModTime())
	})

	filesToRemove := len(files) - lm.maxFiles
	for i := 0; i < filesToRemove; i++ {
		if err := os.Remove(files[i]); err != nil {
			return errors.Wrapf(err, "failed to remove file %s", files[i])
		}
	}

	return nil
}

// GetLogStats returns statistics about log files
func (lm *LogManager) GetLogStats() (*LogStats, error) {
	files, err := filepath.Glob(filepath.Join(lm.logDir, filePrefix+"*.log*"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to glob log files")
	}

	stats := &LogStats{TotalFiles: len(files)}
	for _, file := range files {
		stat, err := os.Stat(file)
		if err != nil {
			continue
		}

		stats.TotalSize += stat.Size()
		if stats.OldestFile.IsZero() || stat.ModTime().Before(stats.OldestFile) {
			stats.OldestFile = stat.ModTime()
		}
		if stat.ModTime().After(stats.NewestFile) {
			stats.NewestFile = stat.ModTime()
		}

		if strings.HasSuffix(file, ".gz") {
			stats.CompressedFiles++
		} else {
			stats.UncompressedFiles++
		}
	}

	return stats, nil
}

// LogStats holds statistics about log files
type LogStats struct {
	TotalFiles        int       `json:"total_files"`
	TotalSize         int64     `json:"total_size"`
	CompressedFiles   int       `json:"compressed_files"`
	UncompressedFiles int       `json:"uncompressed_files"`
	OldestFile        time.Time `json:"oldest_file"`
	NewestFile        time.Time `json:"newest_file"`
}

// LogAnalyzer summarises uncompressed log files
type LogAnalyzer struct {
	logDir string
}

// NewLogAnalyzer creates a new log analyzer
func NewLogAnalyzer(logDir string) *LogAnalyzer {
	return &LogAnalyzer{logDir: logDir}
}

// AnalyzeLogs counts levels and structure-finding outcomes across all log files
func (la *LogAnalyzer) AnalyzeLogs() (*LogAnalysis, error) {
	files, err := filepath.Glob(filepath.Join(la.logDir, filePrefix+"*.log"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to glob log files")
	}

	analysis := &LogAnalysis{
		StartTime:  time.Now(),
		LogFiles:   len(files),
		ErrorKinds: make(map[string]int64),
	}

	for _, file := range files {
		if err := la.analyzeFile(file, analysis); err != nil {
			return nil, errors.Wrapf(err, "failed to analyze file %s", file)
		}
	}

	return analysis, nil
}

// analyzeFile analyzes a single log file
func (la *LogAnalyzer) analyzeFile(path string, analysis *LogAnalysis) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		la.analyzeLine(scanner.Text(), analysis)
	}

	return scanner.Err()
}

// ansiEscape matches the colour codes written by CustomFormatter
var ansiEscape = regexp.MustCompile("\x1b\\[[0-9;]*m")

// analyzeLine analyzes a single log line
func (la *LogAnalyzer) analyzeLine(line string, analysis *LogAnalysis) {
	analysis.TotalLines++
	line = ansiEscape.ReplaceAllString(line, "")

	upper := strings.ToUpper(line)
	switch {
	case strings.Contains(upper, "DEBUG"):
		analysis.DebugCount++
	case strings.Contains(upper, "INFO"):
		analysis.InfoCount++
	case strings.Contains(upper, "WARN"):
		analysis.WarningCount++
	case strings.Contains(upper, "ERROR"):
		analysis.ErrorCount++
	case strings.Contains(upper, "FATAL"):
		analysis.FatalCount++
	}

	switch {
	case strings.Contains(line, "Structure found"):
		analysis.FoundCount++
	case strings.Contains(line, "Structure finding failed"):
		analysis.FailedCount++
		if kind := fieldValue(line, "error_kind"); kind != "" {
			analysis.ErrorKinds[kind]++
		}
	case strings.Contains(line, "Stage completed"):
		analysis.StageCount++
	}
}

// fieldValue extracts key=value or "key":"value" from a text or JSON log line
func fieldValue(line, key string) string {
	for _, marker := range []string{key + "=", `"` + key + `":"`} {
		idx := strings.Index(line, marker)
		if idx < 0 {
			continue
		}
		rest := line[idx+len(marker):]
		end := strings.IndexAny(rest, " \"\x1b")
		if end < 0 {
			end = len(rest)
		}
		return rest[:end]
	}
	return ""
}

// LogAnalysis holds the results of log analysis
type LogAnalysis struct {
	StartTime    time.Time        `json:"start_time"`
	LogFiles     int              `json:"log_files"`
	TotalLines   int64            `json:"total_lines"`
	DebugCount   int64            `json:"debug_count"`
	InfoCount    int64            `json:"info_count"`
	WarningCount int64            `json:"warning_count"`
	ErrorCount   int64            `json:"error_count"`
	FatalCount   int64            `json:"fatal_count"`
	FoundCount   int64            `json:"found_count"`
	FailedCount  int64            `json:"failed_count"`
	StageCount   int64            `json:"stage_count"`
	ErrorKinds   map[string]int64 `json:"error_kinds"`
}

// GetLogSummary returns a summary of the log analysis
func (la *LogAnalysis) GetLogSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Log Analysis Summary:\n"+
		"  Files: %d\n"+
		"  Total Lines: %d\n"+
		"  Debug: %d\n"+
		"  Info: %d\n"+
		"  Warning: %d\n"+
		"  Error: %d\n"+
		"  Fatal: %d\n"+
		"  Structures Found: %d\n"+
		"  Failures: %d\n"+
		"  Stages: %d",
		la.LogFiles, la.TotalLines, la.DebugCount, la.InfoCount,
		la.WarningCount, la.ErrorCount, la.FatalCount, la.FoundCount,
		la.FailedCount, la.StageCount,
	)

	kinds := make([]string, 0, len(la.ErrorKinds))
	for kind := range la.ErrorKinds {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(&b, "\n    %s: %d", kind, la.ErrorKinds[kind])
	}
	return b.String()
}
