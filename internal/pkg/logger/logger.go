// Package logger writes structured JSON log lines with PII and credential
// redaction. Fields are passed as alternating key/value pairs.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// ParseLevel maps a config string such as "debug" to a Level. Unknown
// values return INFO.
func ParseLevel(s string) Level {
	for l, name := range levelNames {
		if strings.EqualFold(name, s) {
			return l
		}
	}
	return INFO
}

// Logger provides structured JSON logging. Loggers created with With share
// the settings and output of the default logger.
type Logger struct {
	core *core
	base []interface{}
}

type core struct {
	mu        sync.Mutex
	level     Level
	redactPII bool
	out       io.Writer
}

var defaultLogger = &Logger{core: &core{level: INFO, redactPII: true, out: os.Stderr}}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(l Level) {
	c := defaultLogger.core
	c.mu.Lock()
	c.level = l
	c.mu.Unlock()
}

// SetRedactPII enables or disables e-mail redaction. Credentials are always
// redacted.
func SetRedactPII(r bool) {
	c := defaultLogger.core
	c.mu.Lock()
	c.redactPII = r
	c.mu.Unlock()
}

// SetOutput redirects the default logger and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	c := defaultLogger.core
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.out
	c.out = w
	return prev
}

// With returns a logger that adds fields to every entry.
func With(fields ...interface{}) *Logger {
	return defaultLogger.With(fields...)
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...interface{}) *Logger {
	base := make([]interface{}, 0, len(l.base)+len(fields))
	base = append(base, l.base...)
	base = append(base, fields...)
	return &Logger{core: l.core, base: base}
}

func Debug(msg string, fields ...interface{}) { defaultLogger.log(DEBUG, msg, fields) }
func Info(msg string, fields ...interface{})  { defaultLogger.log(INFO, msg, fields) }
func Warn(msg string, fields ...interface{})  { defaultLogger.log(WARN, msg, fields) }
func Error(msg string, fields ...interface{}) { defaultLogger.log(ERROR, msg, fields) }

func (l *Logger) Debug(msg string, fields ...interface{}) { l.log(DEBUG, msg, fields) }
func (l *Logger) Info(msg string, fields ...interface{})  { l.log(INFO, msg, fields) }
func (l *Logger) Warn(msg string, fields ...interface{})  { l.log(WARN, msg, fields) }
func (l *Logger) Error(msg string, fields ...interface{}) { l.log(ERROR, msg, fields) }

func (l *Logger) log(level Level, msg string, fields []interface{}) {
	c := l.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if level < c.level {
		return
	}

	entry := map[string]interface{}{
		"time":  time.Now().UTC().Format(time.RFC3339),
		"level": levelNames[level],
		"msg":   msg,
	}
	addFields(entry, l.base, c.redactPII)
	addFields(entry, fields, c.redactPII)

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"level":"ERROR","msg":"log encode failed: %v"}`, err))
	}
	fmt.Fprintln(c.out, string(data))
}

func addFields(entry map[string]interface{}, fields []interface{}, redactPII bool) {
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		entry[key] = render(key, fields[i+1], redactPII)
	}
}

func render(key string, v interface{}, redactPII bool) interface{} {
	if isSensitiveKey(key) {
		return redacted
	}
	switch val := v.(type) {
	case error:
		v = val.Error()
	case int, int64, int32, uint, uint64, float64, float32, bool:
		return val
	}
	s := fmt.Sprintf("%v", v)
	if redactPII {
		s = redactPIIValue(key, s)
	}
	return s
}

const redacted = "[REDACTED]"

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, marker := range []string{"secret", "password", "token"} {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}

func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	if strings.Contains(key, "email") || strings.Contains(key, "recipient") {
		return RedactEmail(val)
	}
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}

// Default returns the process-wide logger.
func Default() *Logger { return defaultLogger }
