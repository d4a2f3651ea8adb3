// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package evidence

import (
	"encoding/hex"
	"time"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/audit"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/db"
)

// Record is the metadata of one ingested evidence item.
type Record struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentHash []byte    `json:"content_hash"`
	ContentSize int64     `json:"content_size"`
	Signature   []byte    `json:"signature"`
	PublicKey   []byte    `json:"public_key"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// HashHex is the lowercase hex content hash.
func (r Record) HashHex() string { return hex.EncodeToString(r.ContentHash) }

func recordFromModel(m *db.EvidenceModel) Record {
	return Record{
		ID:          m.ID,
		Filename:    m.Filename,
		ContentHash: m.ContentHash,
		ContentSize: m.ContentSize,
		Signature:   m.Signature,
		PublicKey:   m.PublicKey,
		IngestedAt:  time.Unix(0, m.IngestedAt).UTC(),
	}
}

// IngestRequest carries one item to ingest. Signature must be a raw 64 byte
// Ed25519 signature over Content; PublicKey the raw 32 byte key.
type IngestRequest struct {
	ID        string
	Filename  string
	Content   []byte
	Signature []byte
	PublicKey []byte
}

// EventRecorder receives an audit event for every newly ingested item.
// *security.Manager satisfies it.
type EventRecorder interface {
	LogEvent(eventType audit.EventType, description string, principal *string, data map[string]string) audit.Event
}
