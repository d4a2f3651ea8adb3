// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"testing"

	"github.com/uptrace/bun"
)

func TestExecRawAndQueryRawInto(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	err := WithTx(ctx, d.Bun, func(ctx context.Context, tx bun.Tx) error {
		_, err := ExecRaw(ctx, tx,
			"INSERT INTO evidence (id, filename, content, content_size, content_hash, signature, public_key, ingested_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			"raw-1", "raw.txt", []byte("x"), 1, make([]byte, 32), make([]byte, 64), make([]byte, 32), 42)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx/ExecRaw failed: %v", err)
	}

	var ids []string
	if err := QueryRawInto(ctx, d.Bun, &ids, "SELECT id FROM evidence ORDER BY id"); err != nil {
		t.Fatalf("QueryRawInto failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "raw-1" {
		t.Fatalf("unexpected ids: %v", ids)
	}

	versions, err := AppliedMigrations(ctx, d.Bun)
	if err != nil {
		t.Fatalf("AppliedMigrations failed: %v", err)
	}
	if len(versions) != 4 || versions[0] != "000001_create_evidence" {
		t.Fatalf("unexpected migration versions: %v", versions)
	}
}
