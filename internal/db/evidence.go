// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"

	"github.com/uptrace/bun"
)

// EvidenceModel maps the evidence table. Content is stored compressed;
// ContentSize is the uncompressed length. IngestedAt is unix nanoseconds so
// the timestamp round-trips exactly on every engine.
type EvidenceModel struct {
	bun.BaseModel `bun:"table:evidence"`
	ID            string `bun:"id,pk"`
	Filename      string `bun:"filename,notnull"`
	Content       []byte `bun:"content,notnull"`
	ContentSize   int64  `bun:"content_size,notnull"`
	ContentHash   []byte `bun:"content_hash,notnull"`
	Signature     []byte `bun:"signature,notnull"`
	PublicKey     []byte `bun:"public_key,notnull"`
	IngestedAt    int64  `bun:"ingested_at,notnull"`
}

// InsertEvidence inserts m. An existing id maps to ErrDuplicate.
func InsertEvidence(ctx context.Context, idb bun.IDB, m *EvidenceModel) error {
	_, err := idb.NewInsert().Model(m).Exec(ctx)
	return MapDBError(err)
}

// GetEvidence loads the row for id, or ErrNotFound.
func GetEvidence(ctx context.Context, idb bun.IDB, id string) (*EvidenceModel, error) {
	m := new(EvidenceModel)
	if err := idb.NewSelect().Model(m).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	return m, nil
}

// ListEvidence returns every row ordered by id. With withContent false the
// content column is not fetched.
func ListEvidence(ctx context.Context, idb bun.IDB, withContent bool) ([]EvidenceModel, error) {
	var out []EvidenceModel
	q := idb.NewSelect().Model(&out).OrderExpr("id ASC")
	if !withContent {
		q = q.ExcludeColumn("content")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	return out, nil
}

// CountEvidence returns the number of stored evidence rows.
func CountEvidence(ctx context.Context, idb bun.IDB) (int, error) {
	n, err := idb.NewSelect().Model((*EvidenceModel)(nil)).Count(ctx)
	return n, MapDBError(err)
}
