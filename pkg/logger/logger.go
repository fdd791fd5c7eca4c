package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// LoggerKey is the context key for logger
	LoggerKey contextKey = "logger"
)

var (
	globalLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	globalWriter *SmartWriter
)

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output io.Writer
}

// InitWithFile logs to stdout and to a rotated file. The file always gets
// JSON; format only applies to stdout.
func InitWithFile(filename string, level string, format string) {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		panic(err)
	}

	file := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}

	var stdout io.Writer = os.Stdout
	if format == "console" {
		stdout = consoleWriter(os.Stdout)
	}

	Init(Config{
		Level:  level,
		Format: "json",
		Output: zerolog.MultiLevelWriter(stdout, file),
	})
}

// Init initializes the global logger
func Init(cfg Config) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if globalWriter != nil {
		_ = globalWriter.Close()
	}
	sw := NewSmartWriter(output, time.Second)
	globalWriter = sw

	zerolog.CallerMarshalFunc = shortCaller

	var w io.Writer = sw
	if cfg.Format == "console" {
		// console text hides the JSON level marker SmartWriter looks for
		w = flushOnError{Writer: consoleWriter(sw), sw: sw}
	}
	globalLogger = zerolog.New(w).With().Timestamp().Caller().Logger()
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05.000",
		FormatLevel: func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("%-7s", i))
		},
		FormatCaller: func(i interface{}) string {
			return fmt.Sprintf("%-24s", i)
		},
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			zerolog.CallerFieldName,
			zerolog.MessageFieldName,
		},
	}
}

type flushOnError struct {
	io.Writer
	sw *SmartWriter
}

func (f flushOnError) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	n, err := f.Writer.Write(p)
	if err == nil && l >= zerolog.ErrorLevel {
		err = f.sw.Sync()
	}
	return n, err
}

// shortCaller keeps the last two path segments, e.g. usecase/wager_uc.go:42.
func shortCaller(_ uintptr, file string, line int) string {
	short := file
	seen := 0
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			seen++
			if seen == 2 {
				short = file[i+1:]
				break
			}
		}
	}
	return fmt.Sprintf("%s:%d", short, line)
}

// Flush forces all buffered logs to be written to the underlying writer
func Flush() {
	if globalWriter != nil {
		_ = globalWriter.Sync()
	}
}

// Close flushes and stops the background flusher. Call it once on shutdown.
func Close() {
	if globalWriter != nil {
		_ = globalWriter.Close()
		globalWriter = nil
	}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithRequestID creates a new context with request ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	l := globalLogger.With().Str("request_id", requestID).Logger()
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	return context.WithValue(ctx, LoggerKey, &l)
}

// FromContext returns the logger bound to ctx, or the global one.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &globalLogger
	}
	if l, ok := ctx.Value(LoggerKey).(*zerolog.Logger); ok && l != nil {
		return l
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		l := globalLogger.With().Str("request_id", requestID).Logger()
		return &l
	}
	return &globalLogger
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(RequestIDKey).(string)
	return requestID
}

func Debug(ctx context.Context) *zerolog.Event { return FromContext(ctx).Debug() }
func Info(ctx context.Context) *zerolog.Event  { return FromContext(ctx).Info() }
func Warn(ctx context.Context) *zerolog.Event  { return FromContext(ctx).Warn() }
func Error(ctx context.Context) *zerolog.Event { return FromContext(ctx).Error() }
func Fatal(ctx context.Context) *zerolog.Event { return FromContext(ctx).Fatal() }

// WithFields adds fields to the context logger
func WithFields(ctx context.Context, fields map[string]interface{}) context.Context {
	lc := FromContext(ctx).With()
	for k, v := range fields {
		lc = lc.Interface(k, v)
	}
	l := lc.Logger()
	return context.WithValue(ctx, LoggerKey, &l)
}

// WithGame binds the game (and optionally round) the context works on.
func WithGame(ctx context.Context, gameID, roundID string) context.Context {
	lc := FromContext(ctx).With().Str("game_id", gameID)
	if roundID != "" {
		lc = lc.Str("round_id", roundID)
	}
	l := lc.Logger()
	return context.WithValue(ctx, LoggerKey, &l)
}

// For process-level messages that have no request context.

func InfoGlobal() *zerolog.Event  { return globalLogger.Info() }
func WarnGlobal() *zerolog.Event  { return globalLogger.Warn() }
func ErrorGlobal() *zerolog.Event { return globalLogger.Error() }
func FatalGlobal() *zerolog.Event { return globalLogger.Fatal() }
