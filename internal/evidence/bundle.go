// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/crypto/signing"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/db"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/security"
	"github.com/klauspost/compress/zstd"
)

// BundleFormatVersion is written into every exported bundle.
const BundleFormatVersion = 1

// Bundle is the portable form of a whole store.
type Bundle struct {
	FormatVersion int           `json:"format_version"`
	ExportedAt    time.Time     `json:"exported_at"`
	Entries       []BundleEntry `json:"entries"`
}

// BundleEntry is one evidence item with its content.
type BundleEntry struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Content     []byte    `json:"content"`
	ContentHash []byte    `json:"content_hash"`
	Signature   []byte    `json:"signature"`
	PublicKey   []byte    `json:"public_key"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// ExportBundle streams every item as zstd-compressed JSON to w. Each item
// is verified on the way out; a corrupted item aborts the export.
func (s *Store) ExportBundle(w io.Writer) (int, error) {
	const op = "export evidence"
	s.mu.RLock()
	rows, err := db.ListEvidence(context.Background(), s.db.Bun, true)
	s.mu.RUnlock()
	if err != nil {
		return 0, security.Wrap(security.KindStorageFailure, op, "", err)
	}

	b := Bundle{FormatVersion: BundleFormatVersion, ExportedAt: s.now().UTC(), Entries: make([]BundleEntry, 0, len(rows))}
	for i := range rows {
		row := &rows[i]
		content, err := s.codec.decompress(row.Content)
		if err != nil || !bytes.Equal(signing.Digest(content), row.ContentHash) {
			return 0, &security.Error{Kind: security.KindHashMismatch, Op: op, ID: row.ID, Err: err}
		}
		b.Entries = append(b.Entries, BundleEntry{
			ID:          row.ID,
			Filename:    row.Filename,
			Content:     content,
			ContentHash: row.ContentHash,
			Signature:   row.Signature,
			PublicKey:   row.PublicKey,
			IngestedAt:  time.Unix(0, row.IngestedAt).UTC(),
		})
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("could not create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&b); err != nil {
		_ = zw.Close()
		return 0, fmt.Errorf("could not encode bundle: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("could not flush zstd writer: %w", err)
	}
	return len(b.Entries), nil
}

// ReadBundle decodes a bundle written by ExportBundle.
func ReadBundle(r io.Reader) (*Bundle, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zr.Close()

	var b Bundle
	if err := json.NewDecoder(zr).Decode(&b); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}
	if b.FormatVersion != BundleFormatVersion {
		return nil, &security.Error{Kind: security.KindInvalidArgument, Op: "read evidence bundle", Detail: fmt.Sprintf("unsupported bundle format %d", b.FormatVersion)}
	}
	return &b, nil
}

// ImportReport summarizes an ImportBundle run.
type ImportReport struct {
	Imported  []string
	Unchanged []string
	Failed    map[string]error
}

// FailedIDs returns the failed ids in sorted order.
func (r ImportReport) FailedIDs() []string {
	ids := make([]string, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ImportBundle ingests every entry of a bundle through the normal ingest
// path, so signatures are re-verified and existing ids stay immutable.
// Original ingestion times are preserved. Per-entry failures are collected
// in the report; only an unreadable bundle fails the call.
func (s *Store) ImportBundle(r io.Reader, recorder EventRecorder) (ImportReport, error) {
	report := ImportReport{Failed: map[string]error{}}
	b, err := ReadBundle(r)
	if err != nil {
		return report, err
	}
	for _, e := range b.Entries {
		if e.ContentHash != nil && !bytes.Equal(signing.Digest(e.Content), e.ContentHash) {
			report.Failed[e.ID] = security.E(security.KindHashMismatch, "import evidence", e.ID)
			continue
		}
		_, created, err := s.ingest(IngestRequest{
			ID:        e.ID,
			Filename:  e.Filename,
			Content:   e.Content,
			Signature: e.Signature,
			PublicKey: e.PublicKey,
		}, e.IngestedAt, recorder)
		switch {
		case err != nil:
			report.Failed[e.ID] = err
		case created:
			report.Imported = append(report.Imported, e.ID)
		default:
			report.Unchanged = append(report.Unchanged, e.ID)
		}
	}
	return report, nil
}
