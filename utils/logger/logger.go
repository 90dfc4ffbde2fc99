package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Logger is a named, leveled logger. The zero level is INFO.
type Logger struct {
	name string
	mu   sync.RWMutex
	zl   zerolog.Logger
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func NewLogger(name string, level string, writer io.Writer) *Logger {
	if writer == nil {
		writer = os.Stdout
	}
	console := zerolog.ConsoleWriter{Out: writer, TimeFormat: "2006-01-02 15:04:05"}
	return &Logger{
		name: name,
		zl:   zerolog.New(console).Level(parseLevel(level)).With().Timestamp().Str("logger", name).Logger(),
	}
}

func (l *Logger) Name() string {
	return l.name
}

func (l *Logger) SetLevel(level string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl = l.zl.Level(parseLevel(level))
}

func (l *Logger) SetOutput(writer io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl = l.zl.Output(zerolog.ConsoleWriter{Out: writer, TimeFormat: "2006-01-02 15:04:05"})
}

func (l *Logger) logger() *zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	zl := l.zl
	return &zl
}

func (l *Logger) Debugf(format string, args ...any) {
	l.logger().Debug().Msgf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.logger().Info().Msgf(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.logger().Warn().Msgf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.logger().Error().Msgf(format, args...)
}
