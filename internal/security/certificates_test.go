// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func clockAt(t time.Time) func() time.Time { return func() time.Time { return t } }

func certFor(id string, from, to time.Time) Certificate {
	return Certificate{ID: id, Issuer: "ca", Payload: []byte("payload-" + id), ValidFrom: from, ValidTo: to, Signature: []byte{1, 2, 3}}
}

func TestCertificateValidityAndRevocation(t *testing.T) {
	m := NewCertificateManager(clockAt(testNow))
	c := certFor("c1", testNow.Add(-time.Hour), testNow.Add(time.Hour))
	if err := m.AddCertificate(c); err != nil {
		t.Fatalf("AddCertificate failed: %v", err)
	}
	if !m.IsCertificateValid("c1") {
		t.Fatalf("expected c1 to be valid")
	}
	if err := m.AddCertificate(c); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
	if err := m.RevokeCertificate("c1"); err != nil {
		t.Fatalf("RevokeCertificate failed: %v", err)
	}
	if m.IsCertificateValid("c1") {
		t.Fatalf("revoked certificate must be invalid")
	}
	if err := m.RevokeCertificate("c1"); !errors.Is(err, ErrAlreadyRevoked) {
		t.Fatalf("expected AlreadyRevoked, got %v", err)
	}
	if err := m.RevokeCertificate("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if m.IsCertificateValid("missing") {
		t.Fatalf("unknown certificate must be invalid")
	}
	got, ok := m.GetCertificate("c1")
	if !ok || !got.Revoked {
		t.Fatalf("expected stored certificate to be revoked: %+v", got)
	}
}

func TestCertificateValidityWindowBounds(t *testing.T) {
	m := NewCertificateManager(clockAt(testNow))
	cases := []struct {
		id       string
		from, to time.Time
		want     bool
	}{
		{"starts-now", testNow, testNow.Add(time.Hour), true},
		{"ends-now", testNow.Add(-time.Hour), testNow, true},
		{"future", testNow.Add(time.Minute), testNow.Add(time.Hour), false},
		{"expired", testNow.Add(-2 * time.Hour), testNow.Add(-time.Hour), false},
	}
	for _, tc := range cases {
		if err := m.AddCertificate(certFor(tc.id, tc.from, tc.to)); err != nil {
			t.Fatalf("AddCertificate(%s): %v", tc.id, err)
		}
		if got := m.IsCertificateValid(tc.id); got != tc.want {
			t.Fatalf("%s: valid=%v want %v", tc.id, got, tc.want)
		}
	}
}

func TestGetCertificate_ReturnsCopy(t *testing.T) {
	m := NewCertificateManager(clockAt(testNow))
	_ = m.AddCertificate(certFor("c1", testNow, testNow.Add(time.Hour)))
	c, _ := m.GetCertificate("c1")
	c.Payload[0] = 'X'
	again, _ := m.GetCertificate("c1")
	if again.Payload[0] == 'X' {
		t.Fatalf("caller mutation leaked into the store")
	}
}

func TestExpiringBetweenAndList(t *testing.T) {
	m := NewCertificateManager(clockAt(testNow))
	for i, d := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour, 10 * time.Hour} {
		id := fmt.Sprintf("c%d", i)
		if err := m.AddCertificate(certFor(id, testNow, testNow.Add(d))); err != nil {
			t.Fatalf("AddCertificate: %v", err)
		}
	}
	got := m.ExpiringBetween(testNow.Add(time.Hour), testNow.Add(3*time.Hour))
	if len(got) != 3 || got[0].ID != "c1" || got[1].ID != "c2" || got[2].ID != "c0" {
		t.Fatalf("unexpected expiry order: %+v", ids(got))
	}
	all := m.List()
	if m.Len() != 4 || len(all) != 4 || all[0].ID != "c0" || all[3].ID != "c3" {
		t.Fatalf("unexpected list: %v", ids(all))
	}
	if len(m.ExpiringBetween(testNow.Add(20*time.Hour), testNow.Add(30*time.Hour))) != 0 {
		t.Fatalf("expected empty range")
	}
}

func ids(cs []Certificate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestCertificateManager_ConcurrentReadersAndWriters(t *testing.T) {
	m := NewCertificateManager(clockAt(testNow))
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				if err := m.AddCertificate(certFor(id, testNow, testNow.Add(time.Hour))); err != nil {
					t.Errorf("AddCertificate(%s): %v", id, err)
				}
				_ = m.IsCertificateValid(id)
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				list := m.List()
				for j := 1; j < len(list); j++ {
					if list[j-1].ID >= list[j].ID {
						t.Errorf("list out of order at %d: %s >= %s", j, list[j-1].ID, list[j].ID)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	if m.Len() != 200 {
		t.Fatalf("expected 200 certificates, got %d", m.Len())
	}
}
