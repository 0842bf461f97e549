// Package logging provides categorized file logging for jarvis on top of zap.
// Each category gets its own zap core writing to <data_dir>/logs/<date>_<category>.log.
// Nothing is written unless Settings.DebugMode is set.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a subsystem; it becomes the zap logger name.
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup and shutdown
	CategoryRouting    Category = "routing"    // Intent classification and dispatch
	CategoryContext    Category = "context"    // Per-sender conversation context
	CategoryAggregator Category = "aggregator" // Answer aggregation and cache
	CategorySearch     Category = "search"     // Search provider calls
	CategoryPlaces     Category = "places"     // Geocoding, weather, time zones
	CategoryNotes      Category = "notes"      // Note persistence
	CategoryKnowledge  Category = "knowledge"  // Local knowledge base
	CategoryTransport  Category = "transport"  // Webhook receipt and reply
	CategoryTranscribe Category = "transcribe" // Audio transcription
	CategoryBudget     Category = "budget"     // Metered usage tracking
)

// AllCategories lists every known category.
var AllCategories = []Category{
	CategoryBoot, CategoryRouting, CategoryContext, CategoryAggregator,
	CategorySearch, CategoryPlaces, CategoryNotes, CategoryKnowledge,
	CategoryTransport, CategoryTranscribe, CategoryBudget,
}

// Settings mirrors config.LoggingConfig to avoid an import cycle.
type Settings struct {
	DebugMode  bool
	Categories map[string]bool
	Level      string
	JSONFormat bool
}

// StructuredLogEntry is the shape of one line in JSON mode.
type StructuredLogEntry struct {
	Timestamp int64                  `json:"ts"`
	Category  string                 `json:"cat"`
	Level     string                 `json:"lvl"`
	Message   string                 `json:"msg"`
	RequestID string                 `json:"req,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger is a category logger. Disabled categories get a no-op logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	file     *os.File
}

var (
	mu       sync.RWMutex
	loggers  = make(map[Category]*Logger)
	logsDir  string
	settings Settings
	level    = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	nop = zap.NewNop().Sugar()
)

// Initialize sets up the logging directory under dataDir and applies s.
// Calling it again replaces the previous settings and closes open files.
func Initialize(dataDir string, s Settings) error {
	if dataDir == "" {
		return fmt.Errorf("data directory required")
	}

	CloseAll()

	mu.Lock()
	settings = s
	level.SetLevel(parseLevel(s.Level))
	logsDir = ""
	if s.DebugMode {
		dir := filepath.Join(dataDir, "logs")
		if err := os.MkdirAll(dir, 0755); err != nil {
			mu.Unlock()
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
		logsDir = dir
	}
	mu.Unlock()

	if s.DebugMode {
		boot := Get(CategoryBoot)
		boot.Info("=== jarvis logging initialized ===")
		boot.Info("Logs directory: %s, level: %s, json: %v", logsDir, level.Level(), s.JSONFormat)
	}
	return nil
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsDebugMode returns whether file logging is enabled.
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return settings.DebugMode
}

// IsCategoryEnabled returns whether a category writes anything. Categories
// missing from Settings.Categories are enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if !settings.DebugMode {
		return false
	}
	enabled, listed := settings.Categories[string(category)]
	return !listed || enabled
}

func encoderConfig(jsonFormat bool) zapcore.EncoderConfig {
	ec := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "lvl",
		NameKey:        "cat",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	if jsonFormat {
		ec.EncodeLevel = zapcore.LowercaseLevelEncoder
		ec.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendInt64(t.UnixMilli())
		}
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05.000000")
	}
	return ec
}

// Get returns (or opens) the logger for category.
func Get(category Category) *Logger {
	mu.RLock()
	if !categoryEnabledLocked(category) || logsDir == "" {
		mu.RUnlock()
		return &Logger{category: category, sugar: nop}
	}
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	if logsDir == "" {
		return &Logger{category: category, sugar: nop}
	}

	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02"), category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category, sugar: nop}
	}

	var enc zapcore.Encoder
	if settings.JSONFormat {
		enc = zapcore.NewJSONEncoder(encoderConfig(true))
	} else {
		enc = zapcore.NewConsoleEncoder(encoderConfig(false))
	}
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(file)), level)

	l := &Logger{
		category: category,
		sugar:    zap.New(core).Named(string(category)).Sugar(),
		file:     file,
	}
	loggers[category] = l
	return l
}

// Debug logs a printf-style message at debug level.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs a printf-style message at info level.
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a printf-style message at warn level.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs a printf-style message at error level.
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// StructuredLog writes msg with fields nested under "fields".
func (l *Logger) StructuredLog(lvl string, msg string, fields map[string]interface{}) {
	l.sugar.With("fields", fields).Logf(parseLevel(lvl), "%s", msg)
}

// CloseAll flushes and closes every open log file.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()

	for _, l := range loggers {
		_ = l.sugar.Sync()
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

func Routing(format string, args ...interface{}) {
	Get(CategoryRouting).Info(format, args...)
}

func RoutingDebug(format string, args ...interface{}) {
	Get(CategoryRouting).Debug(format, args...)
}

func RoutingError(format string, args ...interface{}) {
	Get(CategoryRouting).Error(format, args...)
}

func Aggregator(format string, args ...interface{}) {
	Get(CategoryAggregator).Info(format, args...)
}

func AggregatorDebug(format string, args ...interface{}) {
	Get(CategoryAggregator).Debug(format, args...)
}

func Search(format string, args ...interface{}) {
	Get(CategorySearch).Info(format, args...)
}

func SearchDebug(format string, args ...interface{}) {
	Get(CategorySearch).Debug(format, args...)
}

func SearchWarn(format string, args ...interface{}) {
	Get(CategorySearch).Warn(format, args...)
}

func Places(format string, args ...interface{}) {
	Get(CategoryPlaces).Info(format, args...)
}

func PlacesWarn(format string, args ...interface{}) {
	Get(CategoryPlaces).Warn(format, args...)
}

func Notes(format string, args ...interface{}) {
	Get(CategoryNotes).Info(format, args...)
}

func NotesError(format string, args ...interface{}) {
	Get(CategoryNotes).Error(format, args...)
}

func Knowledge(format string, args ...interface{}) {
	Get(CategoryKnowledge).Info(format, args...)
}

func KnowledgeWarn(format string, args ...interface{}) {
	Get(CategoryKnowledge).Warn(format, args...)
}

func Transport(format string, args ...interface{}) {
	Get(CategoryTransport).Info(format, args...)
}

func Transcribe(format string, args ...interface{}) {
	Get(CategoryTranscribe).Info(format, args...)
}

func TranscribeWarn(format string, args ...interface{}) {
	Get(CategoryTranscribe).Warn(format, args...)
}

func Budget(format string, args ...interface{}) {
	Get(CategoryBudget).Info(format, args...)
}

// =============================================================================
// REQUEST ID TRACING
// =============================================================================

// RequestLogger tags every line with a correlation ID ("req") and
// accumulated fields.
type RequestLogger struct {
	sugar  *zap.SugaredLogger
	fields map[string]interface{}
}

// WithRequestID creates a request-scoped logger.
func WithRequestID(category Category, requestID string) *RequestLogger {
	return &RequestLogger{
		sugar:  Get(category).sugar.With("req", requestID),
		fields: make(map[string]interface{}),
	}
}

// WithField adds a field to every following line.
func (r *RequestLogger) WithField(key string, value interface{}) *RequestLogger {
	r.fields[key] = value
	return r
}

func (r *RequestLogger) withFields() *zap.SugaredLogger {
	if len(r.fields) == 0 {
		return r.sugar
	}
	return r.sugar.With("fields", r.fields)
}

func (r *RequestLogger) Info(format string, args ...interface{}) {
	r.withFields().Infof(format, args...)
}

func (r *RequestLogger) Error(format string, args ...interface{}) {
	r.withFields().Errorf(format, args...)
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop logs the elapsed time at debug level and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).sugar.Debugw(t.op+" completed", "elapsed", elapsed)
	return elapsed
}

// StopWithThreshold logs at warn level when the operation took longer than
// threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).sugar.Warnw(t.op+" slow", "elapsed", elapsed, "threshold", threshold)
	} else {
		Get(t.category).sugar.Debugw(t.op+" completed", "elapsed", elapsed)
	}
	return elapsed
}
