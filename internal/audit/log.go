// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/logging"
	"github.com/google/uuid"
)

// Sink persists appended events. Sink errors never reach the caller of
// Append; they are reported to the operational logger.
type Sink interface {
	PersistEvent(e Event) error
}

// Option configures a Log.
type Option func(*Log)

// WithMaxEvents caps the in-memory log; the oldest events are trimmed once
// the cap is exceeded. Zero means unbounded.
func WithMaxEvents(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.max = n
		}
	}
}

// WithSink mirrors every appended event to s.
func WithSink(s Sink) Option {
	return func(l *Log) { l.sink = s }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// Log is an append-only, concurrency-safe event sequence.
type Log struct {
	mu     sync.RWMutex
	events []Event
	max    int
	sink   Sink
	now    func() time.Time

	// sinkMu is taken before mu is released, so the sink sees events in
	// append order without blocking readers during the write.
	sinkMu sync.Mutex
}

// NewLog returns an empty log.
func NewLog(opts ...Option) *Log {
	l := &Log{now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Record is the minimal input for Append.
type Record struct {
	Type        EventType
	Description string
	Principal   *string
	Data        map[string]string
	Evidence    []byte
	Severity    Severity
}

// Append stamps r with an id and the current time, stores it and returns
// the stored event. It never fails.
func (l *Log) Append(r Record) Event {
	e := Event{
		ID:          "event_" + uuid.NewString(),
		Type:        r.Type,
		Description: r.Description,
		Principal:   r.Principal,
		Data:        r.Data,
		Evidence:    r.Evidence,
		Severity:    r.Severity,
	}
	if e.Data == nil {
		e.Data = map[string]string{}
	}
	e = e.clone()

	l.mu.Lock()
	e.Timestamp = l.now().UTC()
	l.events = append(l.events, e)
	if l.max > 0 && len(l.events) > l.max {
		drop := len(l.events) - l.max
		l.events = append([]Event(nil), l.events[drop:]...)
	}
	sink := l.sink
	if sink != nil {
		l.sinkMu.Lock()
	}
	l.mu.Unlock()

	if sink != nil {
		err := sink.PersistEvent(e.clone())
		l.sinkMu.Unlock()
		if err != nil {
			logging.Warnf("audit: failed to persist event %s: %v", e.ID, err)
		}
	}
	return e.clone()
}

// Len returns the number of events currently held.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Events returns a copy of all events in append order.
func (l *Log) Events() []Event {
	return l.filter(func(Event) bool { return true })
}

// ByType returns events of type t.
func (l *Log) ByType(t EventType) []Event {
	return l.filter(func(e Event) bool { return e.Type == t })
}

// BySeverity returns events with severity s.
func (l *Log) BySeverity(s Severity) []Event {
	return l.filter(func(e Event) bool { return e.Severity == s })
}

// ForPrincipal returns events attributed to principal.
func (l *Log) ForPrincipal(principal string) []Event {
	return l.filter(func(e Event) bool { return e.Principal != nil && *e.Principal == principal })
}

// InRange returns events whose timestamp lies in [start, end].
func (l *Log) InRange(start, end time.Time) []Event {
	return l.filter(func(e Event) bool {
		return !e.Timestamp.Before(start) && !e.Timestamp.After(end)
	})
}

// Statistics counts events per type ("type_<name>") and per severity
// ("severity_<name>").
func (l *Log) Statistics() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	stats := make(map[string]int)
	for _, e := range l.events {
		stats[fmt.Sprintf("type_%s", e.Type)]++
		stats[fmt.Sprintf("severity_%s", e.Severity)]++
	}
	return stats
}

// ExportJSON renders the whole log as indented JSON.
func (l *Log) ExportJSON() ([]byte, error) {
	return MarshalEvents(l.Events())
}

func (l *Log) filter(keep func(Event) bool) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, 0, len(l.events))
	for _, e := range l.events {
		if keep(e) {
			out = append(out, e.clone())
		}
	}
	return out
}
