// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/audit"
	"github.com/uptrace/bun"
)

// SecurityEventModel maps the security_events table.
type SecurityEventModel struct {
	bun.BaseModel `bun:"table:security_events"`
	ID            string  `bun:"id,pk"`
	EventType     string  `bun:"event_type,notnull"`
	Severity      string  `bun:"severity,notnull"`
	Description   string  `bun:"description,notnull"`
	Principal     *string `bun:"principal"`
	Data          string  `bun:"data,notnull"`
	Evidence      []byte  `bun:"evidence"`
	Timestamp     int64   `bun:"timestamp,notnull"`
	Seq           int64   `bun:"seq,notnull"`
}

func eventToModel(e audit.Event) (*SecurityEventModel, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event data: %w", err)
	}
	return &SecurityEventModel{
		ID:          e.ID,
		EventType:   e.Type.String(),
		Severity:    e.Severity.String(),
		Description: e.Description,
		Principal:   e.Principal,
		Data:        string(data),
		Evidence:    e.Evidence,
		Timestamp:   e.Timestamp.UnixNano(),
	}, nil
}

func (m SecurityEventModel) toEvent() (audit.Event, error) {
	e := audit.Event{
		ID:          m.ID,
		Type:        audit.ParseEventType(m.EventType),
		Description: m.Description,
		Principal:   m.Principal,
		Evidence:    m.Evidence,
		Timestamp:   time.Unix(0, m.Timestamp).UTC(),
	}
	sev, err := audit.ParseSeverity(m.Severity)
	if err != nil {
		return audit.Event{}, err
	}
	e.Severity = sev
	if err := json.Unmarshal([]byte(m.Data), &e.Data); err != nil {
		return audit.Event{}, fmt.Errorf("failed to decode event data for %s: %w", m.ID, err)
	}
	return e, nil
}

// EventSink persists audit events into security_events. It satisfies
// audit.Sink. Each row gets the next seq value, so events sharing a
// timestamp load back in the order they were persisted.
type EventSink struct {
	bdb    *bun.DB
	mu     sync.Mutex
	seq    int64
	seeded bool
}

// NewEventSink returns a sink writing through d.
func NewEventSink(d *DB) *EventSink {
	return &EventSink{bdb: d.Bun}
}

// PersistEvent inserts e.
func (s *EventSink) PersistEvent(e audit.Event) error {
	m, err := eventToModel(e)
	if err != nil {
		return err
	}
	ctx := context.Background()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seeded {
		var last int64
		if err := QueryRawInto(ctx, s.bdb, &last, "SELECT COALESCE(MAX(seq), 0) FROM security_events"); err != nil {
			return MapDBError(err)
		}
		s.seq, s.seeded = last, true
	}
	m.Seq = s.seq + 1
	if _, err := s.bdb.NewInsert().Model(m).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	s.seq = m.Seq
	return nil
}

// EventFilter narrows LoadEvents. Zero fields match everything.
type EventFilter struct {
	Type      string
	Principal string
	Since     time.Time
	Limit     int
}

// LoadEvents returns persisted events in timestamp order, ties broken by
// persist order.
func LoadEvents(ctx context.Context, idb bun.IDB, f EventFilter) ([]audit.Event, error) {
	var rows []SecurityEventModel
	q := idb.NewSelect().Model(&rows).OrderExpr("timestamp ASC, seq ASC, id ASC")
	if f.Type != "" {
		q = q.Where("event_type = ?", audit.ParseEventType(f.Type).String())
	}
	if f.Principal != "" {
		q = q.Where("principal = ?", f.Principal)
	}
	if !f.Since.IsZero() {
		q = q.Where("timestamp >= ?", f.Since.UnixNano())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	out := make([]audit.Event, 0, len(rows))
	for _, r := range rows {
		e, err := r.toEvent()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
