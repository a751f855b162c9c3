package service

import "github.com/sophia-ai/capability-router/internal/domain"

// DecisionLogCapacity is the number of decision summaries kept for stats.
const DecisionLogCapacity = 1000

// DecisionLog is a fixed-capacity ring buffer of decision summaries.
// Once full, each new record overwrites the oldest one, so the log always
// holds the most recent DecisionLogCapacity entries and never more.
type DecisionLog struct {
	entries []domain.DecisionRecord
	next    int
	full    bool
}

// NewDecisionLog creates a log holding at most capacity records.
// A non-positive capacity falls back to DecisionLogCapacity.
func NewDecisionLog(capacity int) *DecisionLog {
	if capacity <= 0 {
		capacity = DecisionLogCapacity
	}
	return &DecisionLog{entries: make([]domain.DecisionRecord, capacity)}
}

// Record appends rec, evicting the oldest record when the log is full.
func (l *DecisionLog) Record(rec domain.DecisionRecord) {
	l.entries[l.next] = rec
	l.next++
	if l.next == len(l.entries) {
		l.next = 0
		l.full = true
	}
}

// Len returns the number of records held.
func (l *DecisionLog) Len() int {
	if l.full {
		return len(l.entries)
	}
	return l.next
}

// Entries returns the records oldest first.
func (l *DecisionLog) Entries() []domain.DecisionRecord {
	if !l.full {
		out := make([]domain.DecisionRecord, l.next)
		copy(out, l.entries[:l.next])
		return out
	}
	out := make([]domain.DecisionRecord, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	out = append(out, l.entries[:l.next]...)
	return out
}
