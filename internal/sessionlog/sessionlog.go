// Package sessionlog keeps the human-readable, timestamped event log of a
// scan session.
package sessionlog

import (
	"fmt"
	"time"
)

// TimestampLayout renders wall-clock time down to the nanosecond.
const TimestampLayout = "2006-01-02 15:04:05.000000000"

// Entry is one log line.
type Entry struct {
	At      time.Time
	Message string
}

// String renders the entry as "[timestamp] message".
func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s", e.At.Format(TimestampLayout), e.Message)
}

// Log is an append-only sequence of entries that can be cleared as a whole.
// It is not safe for concurrent use; the session controller owns it.
type Log struct {
	entries []Entry
	now     func() time.Time
}

// New returns an empty Log stamped with the local wall clock.
func New() *Log {
	return &Log{now: time.Now}
}

// NewWithClock returns an empty Log that reads time from now.
func NewWithClock(now func() time.Time) *Log {
	return &Log{now: now}
}

// Append stamps message with the current time and appends it.
func (l *Log) Append(message string) Entry {
	e := Entry{At: l.now(), Message: message}
	l.entries = append(l.entries, e)
	return e
}

// Appendf is Append with fmt.Sprintf formatting.
func (l *Log) Appendf(format string, args ...any) Entry {
	return l.Append(fmt.Sprintf(format, args...))
}

// Clear removes every entry. The backing array is released rather than
// truncated because View results may still reference it.
func (l *Log) Clear() {
	l.entries = nil
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the entries, oldest first.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// View returns the entries without copying them. The result shares storage
// with the log and must not be modified. Later appends never change it, and
// Clear starts a new backing array, so a View stays valid indefinitely.
func (l *Log) View() []Entry {
	return l.entries[:len(l.entries):len(l.entries)]
}

// Lines returns the rendered entries, oldest first.
func (l *Log) Lines() []string {
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.String()
	}
	return out
}
