package logger

import (
	"sync"

	"github.com/rs/zerolog"
)

// TestEntry is a single captured log entry
type TestEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// TestLogger is a Logger implementation that captures entries for assertions in tests
type TestLogger struct {
	mu      sync.Mutex
	entries []TestEntry
	fields  map[string]interface{}
	nop     zerolog.Logger
}

// NewTestLogger creates a logger that records entries instead of writing them
func NewTestLogger() *TestLogger {
	return &TestLogger{
		fields: make(map[string]interface{}),
		nop:    zerolog.Nop(),
	}
}

// Entries returns a copy of all captured entries
func (l *TestLogger) Entries() []TestEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TestEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// HasEntry reports whether an entry with the given level and message was logged
func (l *TestLogger) HasEntry(level, message string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Level == level && e.Message == message {
			return true
		}
	}
	return false
}

func (l *TestLogger) record(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	l.entries = append(l.entries, TestEntry{Level: level, Message: msg, Fields: merged})
}

func (l *TestLogger) Debug(msg string) { l.record("debug", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.record("info", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.record("warn", msg, nil) }
func (l *TestLogger) Error(msg string) { l.record("error", msg, nil) }
func (l *TestLogger) Fatal(msg string) { l.record("fatal", msg, nil) }

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	// Children forward to the parent so captures stay visible on it
	return &boundTestLogger{parent: l, fields: merged}
}

func (l *TestLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.record("debug", msg, fields)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.record("info", msg, fields)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.record("warn", msg, fields)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.record("error", msg, fields)
}

func (l *TestLogger) GetZerolog() *zerolog.Logger {
	return &l.nop
}

// boundTestLogger forwards entries to its parent TestLogger with bound fields
type boundTestLogger struct {
	parent *TestLogger
	fields map[string]interface{}
}

func (b *boundTestLogger) record(level, msg string, fields map[string]interface{}) {
	merged := make(map[string]interface{}, len(b.fields)+len(fields))
	for k, v := range b.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	b.parent.record(level, msg, merged)
}

func (b *boundTestLogger) Debug(msg string) { b.record("debug", msg, nil) }
func (b *boundTestLogger) Info(msg string)  { b.record("info", msg, nil) }
func (b *boundTestLogger) Warn(msg string)  { b.record("warn", msg, nil) }
func (b *boundTestLogger) Error(msg string) { b.record("error", msg, nil) }
func (b *boundTestLogger) Fatal(msg string) { b.record("fatal", msg, nil) }

func (b *boundTestLogger) WithField(key string, value interface{}) Logger {
	return b.WithFields(map[string]interface{}{key: value})
}

func (b *boundTestLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(b.fields)+len(fields))
	for k, v := range b.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &boundTestLogger{parent: b.parent, fields: merged}
}

func (b *boundTestLogger) WithError(err error) Logger {
	if err == nil {
		return b
	}
	return b.WithField("error", err.Error())
}

func (b *boundTestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	b.record("debug", msg, fields)
}

func (b *boundTestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	b.record("info", msg, fields)
}

func (b *boundTestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	b.record("warn", msg, fields)
}

func (b *boundTestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	b.record("error", msg, fields)
}

func (b *boundTestLogger) GetZerolog() *zerolog.Logger {
	return b.parent.GetZerolog()
}
