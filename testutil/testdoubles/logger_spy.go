package testdoubles

import (
	"sync"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
)

// LogLevel names the level a spy record was captured at.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogRecord is one captured log call.
type LogRecord struct {
	Level LogLevel
	Msg   string
	Args  []any
}

// LoggerSpy is a dispatch.Logger implementation that captures log calls for testing.
type LoggerSpy struct {
	mu      sync.Mutex
	records []LogRecord
}

// NewLoggerSpy creates a new LoggerSpy.
func NewLoggerSpy() *LoggerSpy {
	return &LoggerSpy{records: make([]LogRecord, 0)}
}

// Debug implements the dispatch.Logger interface.
func (s *LoggerSpy) Debug(msg string, args ...any) {
	s.capture(LevelDebug, msg, args)
}

// Info implements the dispatch.Logger interface.
func (s *LoggerSpy) Info(msg string, args ...any) {
	s.capture(LevelInfo, msg, args)
}

// Warn implements the dispatch.Logger interface.
func (s *LoggerSpy) Warn(msg string, args ...any) {
	s.capture(LevelWarn, msg, args)
}

// Error implements the dispatch.Logger interface.
func (s *LoggerSpy) Error(msg string, args ...any) {
	s.capture(LevelError, msg, args)
}

func (s *LoggerSpy) capture(level LogLevel, msg string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, LogRecord{Level: level, Msg: msg, Args: args})
}

// GetRecordCount returns the number of captured log records.
func (s *LoggerSpy) GetRecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

// GetRecords returns a copy of all captured log records.
func (s *LoggerSpy) GetRecords() []LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]LogRecord, len(s.records))
	copy(records, s.records)

	return records
}

// HasLog checks if there is a captured record at the given level with the given message.
func (s *LoggerSpy) HasLog(level LogLevel, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.records {
		if record.Level == level && record.Msg == msg {
			return true
		}
	}

	return false
}

// Reset clears all captured log records.
func (s *LoggerSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = s.records[:0]
}

// Ensure LoggerSpy implements dispatch.Logger.
var _ dispatch.Logger = (*LoggerSpy)(nil)
