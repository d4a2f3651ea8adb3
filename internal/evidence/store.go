// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package evidence

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/audit"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/crypto/signing"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/db"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/logging"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/security"
)

// DatabaseFile is the SQLite file Open creates under the root directory.
const DatabaseFile = "evidence.db"

// Store is the evidence store. Ingest is serialized; Verify, Get, List and
// Content run concurrently under a read lock.
type Store struct {
	mu    sync.RWMutex
	db    *db.DB
	codec *codec
	now   func() time.Time
	owned bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the ingestion timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open creates root if needed and opens the SQLite store inside it.
func Open(root string, opts ...Option) (*Store, error) {
	const op = "open evidence store"
	if root == "" {
		return nil, &security.Error{Kind: security.KindInvalidArgument, Op: op, Detail: "empty root directory"}
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, security.Wrap(security.KindStorageFailure, op, root, err)
	}
	return OpenDSN("sqlite", filepath.Join(root, DatabaseFile), opts...)
}

// OpenDSN opens the store on any supported database.
func OpenDSN(dbType, dsn string, opts ...Option) (*Store, error) {
	d, err := db.Open(dbType, dsn)
	if err != nil {
		return nil, security.Wrap(security.KindStorageFailure, "open evidence store", dbType, err)
	}
	s, err := New(d, opts...)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New builds a Store over an already-open database. Close leaves d open.
func New(d *db.DB, opts ...Option) (*Store, error) {
	c, err := newCodec()
	if err != nil {
		return nil, security.Wrap(security.KindOther, "open evidence store", "", err)
	}
	s := &Store{db: d, codec: c, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// DB exposes the underlying database handle.
func (s *Store) DB() *db.DB { return s.db }

// Close releases the codec and, for stores opened by Open or OpenDSN, the
// database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codec.close()
	if s.owned {
		return s.db.Close()
	}
	return nil
}

// Ingest verifies and persists req. Re-ingesting identical content under an
// existing id returns the stored record unchanged; different content fails
// with ImmutableConflict. When recorder is non-nil, a newly stored item is
// reported to it.
func (s *Store) Ingest(req IngestRequest, recorder EventRecorder) (Record, error) {
	rec, _, err := s.ingest(req, time.Time{}, recorder)
	return rec, err
}

func (s *Store) ingest(req IngestRequest, ingestedAt time.Time, recorder EventRecorder) (Record, bool, error) {
	const op = "ingest evidence"
	if req.ID == "" {
		return Record{}, false, &security.Error{Kind: security.KindInvalidArgument, Op: op, Detail: "empty evidence id"}
	}
	if err := signing.Verify(req.PublicKey, req.Content, req.Signature); err != nil {
		return Record{}, false, security.Wrap(security.KindSignatureInvalid, op, req.ID, err)
	}
	hash := signing.Digest(req.Content)

	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := context.Background()

	existing, err := db.GetEvidence(ctx, s.db.Bun, req.ID)
	switch {
	case err == nil:
		return s.resolveExisting(op, existing, hash)
	case !errors.Is(err, db.ErrNotFound):
		return Record{}, false, security.Wrap(security.KindStorageFailure, op, req.ID, err)
	}

	if ingestedAt.IsZero() {
		ingestedAt = s.now()
	}
	row := &db.EvidenceModel{
		ID:          req.ID,
		Filename:    req.Filename,
		Content:     s.codec.compress(req.Content),
		ContentSize: int64(len(req.Content)),
		ContentHash: hash,
		Signature:   append([]byte(nil), req.Signature...),
		PublicKey:   append([]byte(nil), req.PublicKey...),
		IngestedAt:  ingestedAt.UTC().UnixNano(),
	}
	if err := db.InsertEvidence(ctx, s.db.Bun, row); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			// Another writer on the same database won the race.
			if existing, gerr := db.GetEvidence(ctx, s.db.Bun, req.ID); gerr == nil {
				return s.resolveExisting(op, existing, hash)
			}
		}
		return Record{}, false, security.Wrap(security.KindStorageFailure, op, req.ID, err)
	}
	rec := recordFromModel(row)
	logging.Debugf("evidence: ingested %s (%d bytes, sha3 %s)", rec.ID, rec.ContentSize, rec.HashHex())

	if recorder != nil {
		recorder.LogEvent(audit.AuditTrail, "Evidence "+rec.ID+" ingested", nil, map[string]string{
			"evidence_id":  rec.ID,
			"filename":     rec.Filename,
			"content_hash": rec.HashHex(),
		})
	}
	return rec, true, nil
}

func (s *Store) resolveExisting(op string, existing *db.EvidenceModel, hash []byte) (Record, bool, error) {
	if !bytes.Equal(existing.ContentHash, hash) {
		return Record{}, false, &security.Error{Kind: security.KindImmutableConflict, Op: op, ID: existing.ID, Detail: "content differs from the stored item"}
	}
	return recordFromModel(existing), false, nil
}

// Verify reloads id, recomputes the content hash and re-verifies the
// signature.
func (s *Store) Verify(id string) error {
	_, err := s.Content(id)
	return err
}

// Content returns the stored content of id after the same checks Verify
// performs.
func (s *Store) Content(id string) ([]byte, error) {
	const op = "verify evidence"
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, err := db.GetEvidence(context.Background(), s.db.Bun, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, security.E(security.KindNotFound, op, id)
		}
		return nil, security.Wrap(security.KindStorageFailure, op, id, err)
	}
	content, err := s.codec.decompress(row.Content)
	if err != nil {
		return nil, security.Wrap(security.KindHashMismatch, op, id, err)
	}
	if !bytes.Equal(signing.Digest(content), row.ContentHash) {
		return nil, security.E(security.KindHashMismatch, op, id)
	}
	if err := signing.Verify(row.PublicKey, content, row.Signature); err != nil {
		return nil, security.Wrap(security.KindSignatureInvalid, op, id, err)
	}
	return content, nil
}

// Get returns the record for id without loading its content.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, err := db.GetEvidence(context.Background(), s.db.Bun, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return Record{}, security.E(security.KindNotFound, "get evidence", id)
		}
		return Record{}, security.Wrap(security.KindStorageFailure, "get evidence", id, err)
	}
	return recordFromModel(row), nil
}

// List returns every record ordered by id.
func (s *Store) List() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := db.ListEvidence(context.Background(), s.db.Bun, false)
	if err != nil {
		return nil, security.Wrap(security.KindStorageFailure, "list evidence", "", err)
	}
	out := make([]Record, 0, len(rows))
	for i := range rows {
		out = append(out, recordFromModel(&rows[i]))
	}
	return out, nil
}

// Maintain runs engine maintenance on the backing database.
func (s *Store) Maintain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Maintain(); err != nil {
		return security.Wrap(security.KindStorageFailure, "maintain evidence store", "", err)
	}
	return nil
}
