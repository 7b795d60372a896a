package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu           sync.RWMutex
	currentLevel = LevelInfo
	base         = newConsole(os.Stdout)
	closer       io.Closer
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel converts a level name (case-insensitive) into a Level.
func ParseLevel(level string) (Level, bool) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	}
	return LevelInfo, false
}

// SetLevel changes the minimum level. Unknown names are ignored.
func SetLevel(level string) {
	l, ok := ParseLevel(level)
	if !ok {
		return
	}
	mu.Lock()
	currentLevel = l
	base = base.Level(l.zerolog())
	mu.Unlock()
}

// Configure replaces the output sink.
//
// Parameters:
//   - level: DEBUG, INFO, WARN or ERROR
//   - format: "text" (human readable console) or "json"
//   - output: "stdout", "stderr" or a file path (opened in append mode)
//
// Returns an error if the output file cannot be opened or the format is unknown.
//
// A previously configured file is closed once no event is being written to
// it; events logged after Configure returns go to the new sink.
func Configure(level, format, output string) error {
	var w io.Writer
	var c io.Closer

	switch strings.ToLower(output) {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log output %q: %w", output, err)
		}
		w, c = f, f
	}

	var zl zerolog.Logger
	switch strings.ToLower(format) {
	case "", "text":
		zl = newConsole(w)
	case "json":
		zl = zerolog.New(w).With().Timestamp().Logger()
	default:
		if c != nil {
			_ = c.Close()
		}
		return fmt.Errorf("unknown log format %q", format)
	}

	l, ok := ParseLevel(level)
	if !ok {
		l = LevelInfo
	}

	mu.Lock()
	prev := closer
	currentLevel = l
	base = zl.Level(l.zerolog())
	closer = c
	mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

// SetOutput routes logs to w using the JSON encoder. Used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	base = zerolog.New(w).Level(currentLevel.zerolog())
	mu.Unlock()
}

func newConsole(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime, NoColor: true}).
		With().Timestamp().Logger()
}

// emit writes one event through the current sink.
//
// The read lock is held until the write returns so Configure cannot close a
// file that an event is still being written to.
func emit(level Level, fields map[string]string, format string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if level < currentLevel {
		return
	}
	ev := base.WithLevel(level.zerolog())
	for k, val := range fields {
		ev = ev.Str(k, val)
	}
	ev.Msgf(format, v...)
}

func log(level Level, format string, v ...any) {
	emit(level, nil, format, v...)
}

func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	log(LevelError, format, v...)
}

// Entry is a logger carrying structured fields, e.g. a component or request ID.
type Entry struct {
	fields map[string]string
}

// With returns an Entry tagged with key=value.
func With(key, value string) Entry {
	return Entry{fields: map[string]string{key: value}}
}

// With returns a copy of e with key=value added.
func (e Entry) With(key, value string) Entry {
	fields := make(map[string]string, len(e.fields)+1)
	for k, v := range e.fields {
		fields[k] = v
	}
	fields[key] = value
	return Entry{fields: fields}
}

func (e Entry) log(level Level, format string, v ...any) {
	emit(level, e.fields, format, v...)
}

func (e Entry) Debug(format string, v ...any) { e.log(LevelDebug, format, v...) }
func (e Entry) Info(format string, v ...any)  { e.log(LevelInfo, format, v...) }
func (e Entry) Warn(format string, v ...any)  { e.log(LevelWarn, format, v...) }
func (e Entry) Error(format string, v ...any) { e.log(LevelError, format, v...) }
