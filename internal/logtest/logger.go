// Package logtest provides a types.Logger that records entries for assertions.
package logtest

import (
	"sync"

	"github.com/go-monolith/mono/pkg/types"
)

// Entry is one recorded log call.
type Entry struct {
	Level string
	Msg   string
	Args  []any
}

// Logger records every call. The zero value is ready to use.
type Logger struct {
	mu      sync.Mutex
	entries []Entry
	fields  []any
	parent  *Logger
}

var _ types.Logger = (*Logger)(nil)

// New returns an empty recording logger.
func New() *Logger {
	return &Logger{}
}

func (l *Logger) root() *Logger {
	if l.parent != nil {
		return l.parent.root()
	}
	return l
}

func (l *Logger) record(level, msg string, args []any) {
	r := l.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	all := append(append([]any{}, l.fields...), args...)
	r.entries = append(r.entries, Entry{Level: level, Msg: msg, Args: all})
}

func (l *Logger) Debug(msg string, args ...any) { l.record("debug", msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.record("error", msg, args) }

func (l *Logger) With(args ...any) types.Logger {
	return &Logger{parent: l, fields: append(append([]any{}, l.fields...), args...)}
}

func (l *Logger) WithModule(module string) types.Logger {
	return l.With("module", module)
}

func (l *Logger) WithError(err error) types.Logger {
	return l.With("error", err)
}

// Entries returns a copy of everything recorded so far.
func (l *Logger) Entries() []Entry {
	r := l.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Has reports whether a message was logged at level.
func (l *Logger) Has(level, msg string) bool {
	for _, e := range l.Entries() {
		if e.Level == level && e.Msg == msg {
			return true
		}
	}
	return false
}
