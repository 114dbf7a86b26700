package logger

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultSystemLogCapacity = 1000

// SystemLogEntry is one captured log line, surfaced on the admin panel.
type SystemLogEntry struct {
	ID        int64                  `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Caller    string                 `json:"caller,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// SystemLogStore is a fixed-capacity ring buffer of recent log entries.
// It backs the admin system-log endpoint without touching the database.
type SystemLogStore struct {
	mu       sync.RWMutex
	entries  []SystemLogEntry
	capacity int
	next     int
	count    int
	seq      int64
}

func NewSystemLogStore(capacity int) *SystemLogStore {
	if capacity <= 0 {
		capacity = defaultSystemLogCapacity
	}

	return &SystemLogStore{
		entries:  make([]SystemLogEntry, capacity),
		capacity: capacity,
	}
}

// WrapZapLogger tees every log entry written through the returned logger
// into store.
func WrapZapLogger(base *zap.Logger, store *SystemLogStore) *zap.Logger {
	if base == nil || store == nil {
		return base
	}

	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &systemLogCore{
			Core:  core,
			store: store,
		}
	}))
}

// Recent returns up to limit entries, newest first.
func (s *SystemLogStore) Recent(limit int) []SystemLogEntry {
	if s == nil {
		return nil
	}
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit > s.count {
		limit = s.count
	}

	out := make([]SystemLogEntry, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (s.next - 1 - i + s.capacity) % s.capacity
		out = append(out, cloneSystemLogEntry(s.entries[idx]))
	}
	return out
}

func (s *SystemLogStore) add(entry zapcore.Entry, fields []zapcore.Field) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.entries[s.next] = SystemLogEntry{
		ID:        s.seq,
		Timestamp: entry.Time.UTC(),
		Level:     entry.Level.String(),
		Message:   entry.Message,
		Caller:    entry.Caller.TrimmedPath(),
		Fields:    fieldsToMap(fields),
	}

	s.next = (s.next + 1) % s.capacity
	if s.count < s.capacity {
		s.count++
	}
}

func fieldsToMap(fields []zapcore.Field) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, field := range fields {
		field.AddTo(enc)
	}

	out := make(map[string]interface{}, len(enc.Fields))
	for k, v := range enc.Fields {
		out[k] = v
	}
	return out
}

func cloneSystemLogEntry(entry SystemLogEntry) SystemLogEntry {
	cloned := entry
	if len(entry.Fields) == 0 {
		return cloned
	}

	fields := make(map[string]interface{}, len(entry.Fields))
	for k, v := range entry.Fields {
		fields[k] = v
	}
	cloned.Fields = fields
	return cloned
}

type systemLogCore struct {
	zapcore.Core
	store *SystemLogStore
}

func (c *systemLogCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *systemLogCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	c.store.add(entry, fields)
	return c.Core.Write(entry, fields)
}

func (c *systemLogCore) With(fields []zapcore.Field) zapcore.Core {
	return &systemLogCore{
		Core:  c.Core.With(fields),
		store: c.store,
	}
}
