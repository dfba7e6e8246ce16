// Package txlog is the bounded, append-only record of ledger events shown
// to the user. Entries are immutable once created; the log keeps only the
// most recent N (retention by eviction, not a circular index).
package txlog

import (
	"time"

	"github.com/uhyunpark/rektsim/pkg/util"
)

// Kind classifies an entry for display.
type Kind int8

const (
	KindBuy Kind = iota
	KindSell
	KindRekt // losing sell or rejected buy
	KindInfo
)

func (k Kind) String() string {
	switch k {
	case KindBuy:
		return "buy"
	case KindSell:
		return "sell"
	case KindRekt:
		return "rekt"
	case KindInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Entry is one immutable log record.
type Entry struct {
	Seq       uint64 // monotonically increasing, never reused
	Message   string
	Kind      Kind
	CreatedAt time.Time
}

// Log retains the most recent entries, oldest first.
// Not safe for concurrent use; the simulator serializes access.
type Log struct {
	entries   []Entry
	retention int
	nextSeq   uint64
	clock     util.Clock
}

// New creates a log retaining at most retention entries.
func New(retention int, clock util.Clock) *Log {
	if retention <= 0 {
		retention = 1
	}
	return &Log{
		entries:   make([]Entry, 0, retention),
		retention: retention,
		clock:     clock,
	}
}

// Append stamps and stores a new entry, evicting from the front beyond
// retention, and returns the stored entry.
func (l *Log) Append(message string, kind Kind) Entry {
	l.nextSeq++
	e := Entry{
		Seq:       l.nextSeq,
		Message:   message,
		Kind:      kind,
		CreatedAt: l.clock.Now(),
	}
	l.entries = append(l.entries, e)
	if n := len(l.entries); n > l.retention {
		l.entries = l.entries[n-l.retention:]
	}
	return e
}

// Recent returns a copy of the retained entries, oldest first.
func (l *Log) Recent() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of retained entries.
func (l *Log) Len() int { return len(l.entries) }
