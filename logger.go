package streamtpl

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger receives diagnostics. It never influences rendering outcomes.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// NopLogger discards everything. It is the default.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// LogLevel orders log severities.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
	LogOff
)

func (l LogLevel) String() string {
	switch l {
	case LogDebug:
		return "debug"
	case LogInfo:
		return "info"
	case LogWarn:
		return "warn"
	case LogError:
		return "error"
	case LogOff:
		return "off"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses a level name. An empty name means off.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogDebug, nil
	case "info":
		return LogInfo, nil
	case "warn", "warning":
		return LogWarn, nil
	case "error":
		return LogError, nil
	case "off", "":
		return LogOff, nil
	default:
		return LogOff, fmt.Errorf("unknown log level %q", s)
	}
}

// TextLogger writes one line per message to a writer.
type TextLogger struct {
	mu     *sync.Mutex
	w      io.Writer
	level  LogLevel
	fields string
	now    func() time.Time
}

// NewLogger returns a TextLogger writing messages at or above level to w.
func NewLogger(w io.Writer, level LogLevel) *TextLogger {
	if w == nil {
		w = io.Discard
	}
	return &TextLogger{mu: new(sync.Mutex), w: w, level: level, now: time.Now}
}

// With returns a logger that appends key=value pairs to every line. The
// copy shares the writer and its lock.
func (l *TextLogger) With(kv map[string]any) *TextLogger {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(l.fields)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, kv[k])
	}
	cp := *l
	cp.fields = sb.String()
	return &cp
}

func (l *TextLogger) log(level LogLevel, format string, args ...any) {
	if level < l.level {
		return
	}
	line := fmt.Sprintf("%s [%s] %s%s\n",
		l.now().Format("2006-01-02 15:04:05"),
		strings.ToUpper(level.String()),
		fmt.Sprintf(format, args...),
		l.fields)
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.w, line)
}

func (l *TextLogger) Debug(format string, args ...any) { l.log(LogDebug, format, args...) }
func (l *TextLogger) Info(format string, args ...any)  { l.log(LogInfo, format, args...) }
func (l *TextLogger) Warn(format string, args ...any)  { l.log(LogWarn, format, args...) }
func (l *TextLogger) Error(format string, args ...any) { l.log(LogError, format, args...) }
