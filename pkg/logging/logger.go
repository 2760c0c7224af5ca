/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger.go
Description: Logging system for the structure finder. Provides structured logging with
timestamped files, JSON, text and custom formats, an async queue for fire-and-forget
messages and entry helpers for stages, results and failures.
*/

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kleascm/structfinder/pkg/structure"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warn"
	LogLevelError   LogLevel = "error"
	LogLevelFatal   LogLevel = "fatal"
)

// LogFormat represents the logging format
type LogFormat string

const (
	LogFormatJSON   LogFormat = "json"
	LogFormatText   LogFormat = "text"
	LogFormatCustom LogFormat = "custom"
)

// filePrefix names every log file written by the logger
const filePrefix = "structfinder_"

// LoggerConfig holds the configuration for the logger
type LoggerConfig struct {
	Level     LogLevel  `json:"level"`
	Format    LogFormat `json:"format"`
	OutputDir string    `json:"output_dir"` // Empty disables file output
	MaxFiles  int       `json:"max_files"`
	MaxSize   int64     `json:"max_size"` // in bytes
	Timestamp bool      `json:"timestamp"`
	Caller    bool      `json:"caller"`
	Colors    bool      `json:"colors"`
	Compress  bool      `json:"compress"`

	Output io.Writer `json:"-"` // Console sink, defaults to stderr
}

// DefaultConfig returns the console-only configuration used by the CLI
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:     LogLevelInfo,
		Format:    LogFormatCustom,
		MaxFiles:  10,
		MaxSize:   100 * 1024 * 1024, // 100MB
		Timestamp: true,
		Caller:    false,
		Colors:    true,
	}
}

// Validate checks the LoggerConfig for invalid or missing values.
// Returns an error if the config is invalid, or nil if valid.
func (c *LoggerConfig) Validate() error {
	if c.OutputDir != "" {
		if c.MaxFiles <= 0 {
			return errors.New("max_files must be positive")
		}
		if c.MaxSize <= 0 {
			return errors.New("max_size must be positive")
		}
	}
	switch c.Format {
	case LogFormatJSON, LogFormatText, LogFormatCustom:
		// ok
	default:
		return errors.Newf("unsupported log format: %s", c.Format)
	}
	switch c.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError, LogLevelFatal:
		// ok
	default:
		return errors.Newf("unsupported log level: %s", c.Level)
	}
	return nil
}

type logEntry struct {
	level  logrus.Level
	msg    string
	fields logrus.Fields
}

// Logger wraps a logrus logger with file output and an async queue
type Logger struct {
	config     *LoggerConfig
	logger     *logrus.Logger
	fileHandle *os.File
	filePath   string
	startTime  time.Time

	logQueue chan logEntry
	queueMu  sync.RWMutex // Held for reading while sending, for writing while closing
	closed   bool
	quit     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewLogger creates a new logger instance
func NewLogger(config *LoggerConfig) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid logger config")
	}

	l := &Logger{
		config:    config,
		logger:    logrus.New(),
		startTime: time.Now(),
		logQueue:  make(chan logEntry, 1024),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	if err := l.setup(); err != nil {
		return nil, errors.Wrap(err, "failed to setup logger")
	}

	go l.runLogQueue()

	return l, nil
}

// setup configures the logger with the given configuration
func (l *Logger) setup() error {
	level, err := logrus.ParseLevel(string(l.config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.logger.SetLevel(level)
	l.logger.SetReportCaller(l.config.Caller)

	if err := l.setFormatter(); err != nil {
		return err
	}

	console := l.config.Output
	if console == nil {
		console = os.Stderr
	}
	l.logger.SetOutput(console)

	return l.setupFileOutput(console)
}

// setFormatter configures the log formatter
func (l *Logger) setFormatter() error {
	prettyCaller := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}

	switch l.config.Format {
	case LogFormatJSON:
		l.logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  time.RFC3339,
			DisableTimestamp: !l.config.Timestamp,
			CallerPrettyfier: prettyCaller,
		})

	case LogFormatText:
		l.logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    l.config.Timestamp,
			DisableTimestamp: !l.config.Timestamp,
			TimestampFormat:  time.RFC3339,
			ForceColors:      l.config.Colors,
			DisableColors:    !l.config.Colors,
			CallerPrettyfier: prettyCaller,
		})

	case LogFormatCustom:
		l.logger.SetFormatter(&StageFormatter{CustomFormatter: CustomFormatter{
			Timestamp: l.config.Timestamp,
			Caller:    l.config.Caller,
			Colors:    l.config.Colors,
		}})

	default:
		return errors.Newf("unsupported log format: %s", l.config.Format)
	}

	return nil
}

// setupFileOutput adds a timestamped log file next to the console sink
func (l *Logger) setupFileOutput(console io.Writer) error {
	if l.config.OutputDir == "" {
		return nil
	}

	if err := os.MkdirAll(l.config.OutputDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create log directory")
	}

	// Rotate and prune what earlier runs left behind
	manager := l.manager()
	if err := manager.RotateLogs(); err != nil {
		return err
	}
	if err := manager.CleanupOldLogs(); err != nil {
		return err
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05.000000")
	path := filepath.Join(l.config.OutputDir, filePrefix+timestamp+".log")

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return errors.Wrap(err, "failed to open log file")
	}

	l.fileHandle = file
	l.filePath = path
	l.logger.SetOutput(io.MultiWriter(console, file))

	l.logger.WithFields(logrus.Fields{
		"start_time": l.startTime.Format(time.RFC3339),
		"log_file":   path,
		"level":      l.config.Level,
		"format":     l.config.Format,
	}).Debug("Structfinder logging system initialized")

	return nil
}

func (l *Logger) manager() *LogManager {
	return NewLogManager(l.config.OutputDir, l.config.MaxFiles, l.config.MaxSize, l.config.Compress)
}

// runLogQueue flushes log entries from the queue in a background goroutine
func (l *Logger) runLogQueue() {
	defer close(l.done)
	for {
		select {
		case entry := <-l.logQueue:
			l.logger.WithFields(entry.fields).Log(entry.level, entry.msg)
		case <-l.quit:
			// Drain what is already queued
			for {
				select {
				case entry := <-l.logQueue:
					l.logger.WithFields(entry.fields).Log(entry.level, entry.msg)
				default:
					return
				}
			}
		}
	}
}

// LogStats logs dispatcher counters
func (l *Logger) LogStats(calls, succeeded, failed, timedOut int64) {
	l.logger.WithFields(logrus.Fields{
		"calls":     calls,
		"succeeded": succeeded,
		"failed":    failed,
		"timed_out": timedOut,
		"uptime":    time.Since(l.startTime),
	}).Info("Statistics update")
}

// StageEntry returns an entry tagged with the request id and stage name
func StageEntry(log logrus.FieldLogger, requestID, stage string) *logrus.Entry {
	return log.WithFields(logrus.Fields{"request_id": requestID, "stage": stage})
}

// ResultEntry returns an entry carrying the headline facts of a description
func ResultEntry(log logrus.FieldLogger, requestID string, desc *structure.Description, took time.Duration) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"request_id": requestID,
		"format":     desc.Format,
		"records":    desc.NumRecordsAnalyzed,
		"fields":     len(desc.Fields),
		"duration":   took,
	})
}

// FailureEntry returns an entry carrying the error and its kind
func FailureEntry(log logrus.FieldLogger, requestID string, err error) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"request_id": requestID,
		"error_kind": structure.KindOf(err),
	}).WithError(err)
}

// FilePath returns the current log file, empty when file output is disabled
func (l *Logger) FilePath() string {
	return l.filePath
}

// Close flushes the queue, closes the log file and prunes old files
func (l *Logger) Close() error {
	var err error
	l.once.Do(func() {
		l.queueMu.Lock()
		l.closed = true
		close(l.quit)
		l.queueMu.Unlock()
		<-l.done
		if l.fileHandle != nil {
			l.fileHandle.Close()
			err = l.manager().CleanupOldLogs()
		}
	})
	if err != nil {
		return errors.Wrap(err, "failed to cleanup log files")
	}
	return nil
}

// GetLogger returns the underlying logrus logger
func (l *Logger) GetLogger() *logrus.Logger {
	return l.logger
}

// Debug logs a debug message (async)
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.enqueue(logrus.DebugLevel, msg, fields)
}

// Info logs an info message (async)
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.enqueue(logrus.InfoLevel, msg, fields)
}

// Warning logs a warning message (async)
func (l *Logger) Warning(msg string, fields map[string]interface{}) {
	l.enqueue(logrus.WarnLevel, msg, fields)
}

// Error logs an error message (async)
func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.enqueue(logrus.ErrorLevel, msg, fields)
}

// enqueue hands the entry to the queue goroutine, or logs it directly once the logger is
// closed. Close waits for pending sends, so every queued entry is drained.
func (l *Logger) enqueue(level logrus.Level, msg string, fields map[string]interface{}) {
	l.queueMu.RLock()
	defer l.queueMu.RUnlock()
	if l.closed {
		l.logger.WithFields(fields).Log(level, msg)
		return
	}
	l.logQueue <- logEntry{level: level, msg: msg, fields: fields}
}
