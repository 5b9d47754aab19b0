// Package telemetry provides config-driven categorized file-based logging
// for tcsynth, alongside a single zap logger for human-facing CLI/stderr
// output. File logging is controlled by the Logging.Enabled config flag —
// when disabled, Get returns a no-op logger and nothing is written to disk.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Category identifies which component emitted a log line.
type Category string

const (
	CategorySandbox        Category = "sandbox"
	CategoryCompiler       Category = "compiler"
	CategoryGenerator      Category = "generator"
	CategoryValidator      Category = "validator"
	CategoryExtractor      Category = "extractor"
	CategoryLLMGateway     Category = "llmgateway"
	CategoryPromptBuilder  Category = "promptbuilder"
	CategoryFormatInfer    Category = "formatinfer"
	CategoryGenAgent       Category = "genagent"
	CategoryValidAgent     Category = "validagent"
	CategorySupervisor     Category = "supervisor"
	CategoryCheckerAgent   Category = "checkeragent"
	CategoryOracleAnalyzer Category = "oracleanalyzer"
	CategoryStore          Category = "store"
	CategoryRetriever      Category = "retriever"
	CategoryInvariants     Category = "invariants"
	CategoryDashboard      Category = "dashboard"
)

// StructuredLogEntry is one JSON line appended to a category's log file.
type StructuredLogEntry struct {
	Timestamp int64          `json:"ts"`
	Category  string         `json:"cat"`
	Level     string         `json:"lvl"`
	Message   string         `json:"msg"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Logger wraps a per-category file-backed logger.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	enabled   bool
	initOnce  sync.Once

	// CLI is the shared zap logger for human-facing stderr output. It is
	// replaced by InitCLI; until then it discards everything.
	CLI = zap.NewNop()
)

// Initialize sets the directory category log files are written under and
// whether file logging is enabled at all. Safe to call once at startup.
func Initialize(dir string, fileLoggingEnabled bool) error {
	var err error
	initOnce.Do(func() {
		enabled = fileLoggingEnabled
		if !enabled {
			return
		}
		logsDir = dir
		err = os.MkdirAll(logsDir, 0o755)
	})
	return err
}

// InitCLI installs the human-facing zap logger, debug-leveled when verbose.
func InitCLI(verbose bool) error {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Encoding = "console"
	}
	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build cli logger: %w", err)
	}
	CLI = l
	return nil
}

// Get returns (or creates) the file logger for category. Returns a no-op
// logger when file logging is disabled.
func Get(category Category) *Logger {
	if !enabled {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[telemetry] could not open log file %s: %v\n", path, err)
		return &Logger{category: category}
	}

	l := &Logger{category: category, file: f, logger: log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds)}
	loggers[category] = l
	return l
}

func (l *Logger) write(level, format string, args ...any) {
	if l.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	entry := StructuredLogEntry{Timestamp: time.Now().UnixMilli(), Category: string(l.category), Level: level, Message: msg}
	b, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}
	l.logger.Println(string(b))
}

// Debug logs a debug-level structured entry.
func (l *Logger) Debug(format string, args ...any) { l.write("debug", format, args...) }

// Info logs an info-level structured entry.
func (l *Logger) Info(format string, args ...any) { l.write("info", format, args...) }

// Warn logs a warn-level structured entry.
func (l *Logger) Warn(format string, args ...any) { l.write("warn", format, args...) }

// Error logs an error-level structured entry.
func (l *Logger) Error(format string, args ...any) { l.write("error", format, args...) }

// CloseAll flushes and closes every open category log file. Call once at
// shutdown.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	_ = CLI.Sync()
}
