package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type contextKey string

const loggerKey = contextKey("logger")

const (
	colorGrey    = "\x1b[38;21m"
	colorYellow  = "\x1b[33;21m"
	colorRed     = "\x1b[31;21m"
	colorBoldRed = "\x1b[31;1m"
	colorReset   = "\x1b[0m"
)

// recordFormatter renders entries as
// "timestamp - name - level=LEVEL - (file).func(line) - message".
// When Colored is set, the level portion is wrapped in an ANSI colour
// matching the severity.
type recordFormatter struct {
	Name    string
	Colored bool
}

func (f *recordFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := strings.ToUpper(entry.Level.String())
	if entry.Level == logrus.WarnLevel {
		level = "WARNING"
	}
	if entry.Level == logrus.FatalLevel || entry.Level == logrus.PanicLevel {
		level = "CRITICAL"
	}

	levelTag := "level=" + level
	if f.Colored {
		levelTag = levelColor(entry.Level) + levelTag + colorReset
	}

	caller := "(unknown).unknown(0)"
	if entry.Caller != nil {
		fn := entry.Caller.Function
		if idx := strings.LastIndex(fn, "."); idx != -1 {
			fn = fn[idx+1:]
		}
		caller = fmt.Sprintf("(%s).%s(%d)", filepath.Base(entry.Caller.File), fn, entry.Caller.Line)
	}

	line := fmt.Sprintf("%s - %s - %s - %s - %s\n",
		entry.Time.Format("2006-01-02 15:04:05"),
		f.Name,
		levelTag,
		caller,
		entry.Message,
	)
	return []byte(line), nil
}

func levelColor(level logrus.Level) string {
	switch level {
	case logrus.WarnLevel:
		return colorYellow
	case logrus.ErrorLevel:
		return colorRed
	case logrus.FatalLevel, logrus.PanicLevel:
		return colorBoldRed
	default:
		return colorGrey
	}
}

// fileHook mirrors every accepted record into the day file using the
// uncoloured formatter, so both sinks carry the same formatted line.
type fileHook struct {
	file      *os.File
	formatter logrus.Formatter
	mu        sync.Mutex
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.file.Write(line)
	return err
}

var (
	loggerRegistry   = map[string]*logrus.Logger{}
	loggerRegistryMu sync.Mutex
)

// GetLogger returns the named day-rotated logger, creating it on first call.
// The log file is "<logDir>/<DD-MM-YYYY>_custom.log"; the directory and file
// are created when absent. Console output goes to stderr with coloured
// levels, the file receives the identical line without colour.
func GetLogger(name, logDir string) (*logrus.Logger, error) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()

	if logger, ok := loggerRegistry[name]; ok {
		return logger, nil
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create log directory %s: %w", logDir, err)
	}

	fileName := time.Now().Format("02-01-2006") + "_custom.log"
	filePath := filepath.Join(logDir, fileName)
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		return nil, fmt.Errorf("could not open log file %s: %w", filePath, err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetReportCaller(true)
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&recordFormatter{Name: name, Colored: true})
	logger.AddHook(&fileHook{
		file:      file,
		formatter: &recordFormatter{Name: name},
	})

	loggerRegistry[name] = logger
	return logger, nil
}

func WithLogger(ctx context.Context, logger *logrus.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func LoggerFromContext(ctx context.Context) *logrus.Logger {
	logger, ok := ctx.Value(loggerKey).(*logrus.Logger)
	if !ok {
		// Fallback to a default logger if none is found
		defaultLogger := logrus.New()
		defaultLogger.SetLevel(logrus.InfoLevel)
		defaultLogger.SetFormatter(&logrus.TextFormatter{})
		return defaultLogger
	}
	return logger
}
