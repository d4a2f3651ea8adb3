// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/crypto/signing"
)

type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(d)
}

func TestRotateKeys_HistoryGrowsByOne(t *testing.T) {
	r := NewKeyRegistry()
	if _, err := r.KeyRotationHistory("alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected NotFound before first rotation, got %v", err)
	}

	first, err := r.RotateKeys("alice")
	if err != nil {
		t.Fatalf("RotateKeys failed: %v", err)
	}
	if first.Algorithm != signing.Algorithm || len(first.PublicKey) != ed25519.PublicKeySize {
		t.Fatalf("unexpected descriptor: %+v", first)
	}
	h, err := r.KeyRotationHistory("alice")
	if err != nil || len(h) != 0 {
		t.Fatalf("expected empty history after first rotation, got %v %v", h, err)
	}

	second, err := r.RotateKeys("alice")
	if err != nil {
		t.Fatalf("RotateKeys failed: %v", err)
	}
	if bytes.Equal(first.PublicKey, second.PublicKey) {
		t.Fatalf("rotation must produce a new key")
	}
	h, _ = r.KeyRotationHistory("alice")
	if len(h) != 1 || !bytes.Equal(h[0].PublicKey, first.PublicKey) {
		t.Fatalf("history must contain the first key: %+v", h)
	}

	for n := 3; n <= 6; n++ {
		if _, err := r.RotateKeys("alice"); err != nil {
			t.Fatalf("rotation %d failed: %v", n, err)
		}
		h, _ = r.KeyRotationHistory("alice")
		if len(h) != n-1 {
			t.Fatalf("after %d rotations want %d history entries, got %d", n, n-1, len(h))
		}
		for _, rec := range h {
			if rec.Algorithm != signing.Algorithm {
				t.Fatalf("unexpected algorithm %q", rec.Algorithm)
			}
		}
	}
}

func TestRotateKeysWithAlgorithm_RejectsUnsupported(t *testing.T) {
	r := NewKeyRegistry()
	if _, err := r.RotateKeysWithAlgorithm("bob", "RSA"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	r.SetPolicy(RotationPolicy{AllowedAlgorithms: []string{"RSA"}})
	if _, err := r.RotateKeysWithAlgorithm("bob", signing.Algorithm); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected InvalidArgument when policy disallows Ed25519, got %v", err)
	}
	if _, ok := r.CurrentKey("bob"); ok {
		t.Fatalf("failed rotation must not install a key")
	}
}

func TestRotationPeriodIsClampedAndDrivesExpiry(t *testing.T) {
	clk := &stepClock{cur: testNow}
	r := NewKeyRegistry(WithKeyClock(clk.Now), WithRotationPeriod(time.Minute))
	rec, err := r.RotateKeysWithAlgorithm("carol", signing.Algorithm)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if got := rec.ExpiresAt.Sub(rec.CreatedAt); got != time.Hour {
		t.Fatalf("period should clamp to the 1h minimum, got %s", got)
	}
	if r.IsRotationNeeded("carol") {
		t.Fatalf("fresh key must not need rotation")
	}
	clk.Advance(time.Hour)
	if !r.IsRotationNeeded("carol") {
		t.Fatalf("expired key must need rotation")
	}
	if r.IsRotationNeeded("nobody") {
		t.Fatalf("unknown principal never needs rotation")
	}
}

func TestAutoRotate(t *testing.T) {
	clk := &stepClock{cur: testNow}
	r := NewKeyRegistry(WithKeyClock(clk.Now))
	_, _ = r.RotateKeys("a")
	_, _ = r.RotateKeys("b")

	rotated, err := r.AutoRotate()
	if err != nil || len(rotated) != 0 {
		t.Fatalf("nothing should rotate yet: %v %v", rotated, err)
	}
	clk.Advance(25 * time.Hour)
	_, _ = r.RotateKeys("b") // b is fresh again
	rotated, err = r.AutoRotate()
	if err != nil {
		t.Fatalf("AutoRotate: %v", err)
	}
	if _, ok := rotated["a"]; !ok || len(rotated) != 1 {
		t.Fatalf("expected only a to rotate, got %v", rotated)
	}

	clk.Advance(25 * time.Hour)
	p := r.Policy()
	p.AutoRotate = false
	r.SetPolicy(p)
	if rotated, _ := r.AutoRotate(); len(rotated) != 0 {
		t.Fatalf("auto rotation disabled by policy, got %v", rotated)
	}
}

func TestSignAndExport(t *testing.T) {
	r := NewKeyRegistry()
	if _, err := r.Sign("dave", []byte("x")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	desc, _ := r.RotateKeys("dave")
	sig, err := r.Sign("dave", []byte("hello"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := signing.Verify(desc.PublicKey, []byte("hello"), sig); err != nil {
		t.Fatalf("signature does not verify: %v", err)
	}

	pemText, err := r.ExportPrivateKey("dave", "hunter2")
	if err != nil {
		t.Fatalf("ExportPrivateKey: %v", err)
	}
	if !strings.Contains(pemText, "OPENSSH PRIVATE KEY") {
		t.Fatalf("unexpected export: %q", pemText)
	}
	priv, err := signing.ParsePrivateKey([]byte(pemText), "hunter2")
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if !bytes.Equal(priv.Public().(ed25519.PublicKey), desc.PublicKey) {
		t.Fatalf("exported key does not match the current public key")
	}
}

func TestDescriptorsNeverCarryPrivateMaterial(t *testing.T) {
	r := NewKeyRegistry()
	desc, _ := r.RotateKeys("erin")
	rec, _ := r.CurrentKey("erin")
	out := fmt.Sprintf("%+v %+v", desc, rec)
	if strings.Contains(out, "SECRET") {
		t.Fatalf("descriptor unexpectedly references a secret: %s", out)
	}
	if len(desc.PublicKey) != ed25519.PublicKeySize {
		t.Fatalf("descriptor public key has wrong size")
	}
}
