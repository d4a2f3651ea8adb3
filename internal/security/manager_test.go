// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/audit"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/bloom"
)

func TestCheckDataAccess_Scenario(t *testing.T) {
	m := NewManager()
	m.ClassifyData("data1", LevelConfidential, "O", []string{"U1", "U2"})

	for _, p := range []string{"O", "U1", "U2"} {
		if !m.CheckDataAccess("data1", p) {
			t.Fatalf("expected %s to have access", p)
		}
	}
	if m.CheckDataAccess("data1", "U3") {
		t.Fatalf("U3 must be denied before being added")
	}
	if err := m.AddUserToACL("data1", "U3"); err != nil {
		t.Fatalf("AddUserToACL: %v", err)
	}
	if !m.CheckDataAccess("data1", "U3") {
		t.Fatalf("U3 must be granted after being added")
	}
	for _, p := range []string{"anyone", "", "O"} {
		if !m.CheckDataAccess("unclassified", p) {
			t.Fatalf("unclassified data must be public for %q", p)
		}
	}
	if err := m.AddUserToACL("unclassified", "U1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected NotFound for unclassified data, got %v", err)
	}
}

func TestCheckDataAccess_FilterFalsePositiveNeverGrants(t *testing.T) {
	// A one-bit filter answers "maybe" for everything once anything is added.
	f, err := bloom.New(1, 1)
	if err != nil {
		t.Fatalf("bloom.New: %v", err)
	}
	m := NewManager(WithFilter(f))
	m.ClassifyData("d", LevelSecret, "owner", []string{"member"})

	if !f.MightContain(filterKey("d", "intruder")) {
		t.Fatalf("test setup: filter should report a false positive")
	}
	if m.CheckDataAccess("d", "intruder") {
		t.Fatalf("filter false positive granted access")
	}
	if !m.CheckDataAccess("d", "member") {
		t.Fatalf("member must be granted")
	}
}

func TestACLScopedPerDataID(t *testing.T) {
	m := NewManager()
	m.ClassifyData("a", LevelInternal, "o", []string{"u"})
	m.ClassifyData("b", LevelInternal, "o", nil)
	if m.CheckDataAccess("b", "u") {
		t.Fatalf("grant on a must not leak to b")
	}
}

func TestUpdateRemoveAndRebuild(t *testing.T) {
	m := NewManager()
	m.ClassifyData("d", LevelPublic, "o", []string{"u1", "u2"})

	if err := m.UpdateDataACL("d", []string{"u3"}); err != nil {
		t.Fatalf("UpdateDataACL: %v", err)
	}
	if m.CheckDataAccess("d", "u1") || !m.CheckDataAccess("d", "u3") {
		t.Fatalf("ACL replacement not honored")
	}
	if err := m.RemoveUserFromACL("d", "u3"); err != nil {
		t.Fatalf("RemoveUserFromACL: %v", err)
	}
	if m.CheckDataAccess("d", "u3") {
		t.Fatalf("removed user still has access")
	}
	if err := m.UpdateDataACL("nope", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if err := m.RemoveUserFromACL("nope", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	_ = m.AddUserToACL("d", "u4")
	m.RebuildFilter()
	if !m.CheckDataAccess("d", "u4") {
		t.Fatalf("rebuild must keep current members")
	}
	c, ok := m.Classification("d")
	if !ok || c.Owner != "o" || len(c.ACL) != 1 || c.ACL[0] != "u4" || c.Level != LevelPublic {
		t.Fatalf("unexpected classification snapshot: %+v", c)
	}
}

func TestClassifyDataReplacesEntry(t *testing.T) {
	m := NewManager()
	m.ClassifyData("d", LevelPublic, "o1", []string{"u"})
	m.ClassifyData("d", LevelTopSecret, "o2", nil)
	if m.CheckDataAccess("d", "u") || m.CheckDataAccess("d", "o1") {
		t.Fatalf("replaced classification must drop previous grants")
	}
	if !m.CheckDataAccess("d", "o2") {
		t.Fatalf("new owner must have access")
	}
}

func TestManagerLogsEvents(t *testing.T) {
	log := audit.NewLog()
	m := NewManager(WithEventLog(log), WithClock(clockAt(testNow)))

	p := "alice"
	ev := m.LogEvent(audit.LoginAttempt, "login ok", &p, map[string]string{"ip": "10.0.0.1"})
	if ev.Severity != audit.Info || ev.PrincipalOr("") != "alice" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if _, err := m.RotateKeys("alice"); err != nil {
		t.Fatalf("RotateKeys: %v", err)
	}
	if err := m.AddCertificate(certFor("c1", testNow.Add(-time.Hour), testNow.Add(time.Hour))); err != nil {
		t.Fatalf("AddCertificate: %v", err)
	}
	if err := m.RevokeCertificate("c1"); err != nil {
		t.Fatalf("RevokeCertificate: %v", err)
	}
	if err := m.RevokeCertificate("c1"); !errors.Is(err, ErrAlreadyRevoked) {
		t.Fatalf("expected AlreadyRevoked, got %v", err)
	}

	events := m.GetEvents()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}
	want := []audit.EventType{audit.LoginAttempt, audit.KeyRotation, audit.CertificateRevoked}
	for i, w := range want {
		if events[i].Type != w {
			t.Fatalf("event %d: got %s want %s", i, events[i].Type, w)
		}
	}
	if log.Len() != 3 {
		t.Fatalf("events must land in the injected log")
	}
	h, err := m.KeyRotationHistory("alice")
	if err != nil || len(h) != 0 {
		t.Fatalf("unexpected history: %v %v", h, err)
	}
}

func TestCheckDataAccess_DoesNotLog(t *testing.T) {
	m := NewManager()
	m.ClassifyData("d", LevelSecret, "o", nil)
	_ = m.CheckDataAccess("d", "intruder")
	if n := len(m.GetEvents()); n != 0 {
		t.Fatalf("access checks must not log, got %d events", n)
	}
}

func TestIssueAndVerifyCertificate(t *testing.T) {
	m := NewManager(WithClock(clockAt(testNow)))
	if _, err := m.IssueCertificate("c1", "ca", []byte("p"), testNow, testNow.Add(time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("issuer without key must be NotFound, got %v", err)
	}
	desc, _ := m.RotateKeys("ca")
	cert, err := m.IssueCertificate("c1", "ca", []byte("p"), testNow, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("IssueCertificate: %v", err)
	}
	if !m.IsCertificateValid(cert.ID) {
		t.Fatalf("issued certificate should be valid")
	}
	if err := m.VerifyCertificateSignature("c1", desc.PublicKey); err != nil {
		t.Fatalf("explicit key verify: %v", err)
	}

	// Still verifiable after the issuer rotates, via history.
	other, _ := m.RotateKeys("ca")
	if err := m.VerifyCertificateSignature("c1", nil); err != nil {
		t.Fatalf("history verify: %v", err)
	}
	if err := m.VerifyCertificateSignature("c1", other.PublicKey); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected SignatureInvalid for the wrong key, got %v", err)
	}
	if err := m.VerifyCertificateSignature("nope", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, err := m.IssueCertificate("c2", "ca", nil, testNow, testNow.Add(-time.Hour)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected InvalidArgument for inverted window, got %v", err)
	}

	issued := m.Events().ByType(audit.CertificateIssued)
	if len(issued) != 1 || !strings.Contains(issued[0].Description, "c1") {
		t.Fatalf("expected one CertificateIssued event, got %+v", issued)
	}
}

func TestManagerAutoRotateLogs(t *testing.T) {
	clk := &stepClock{cur: testNow}
	m := NewManager(WithClock(clk.Now))
	_, _ = m.RotateKeys("x")
	_, _ = m.RotateKeys("y")
	clk.Advance(48 * time.Hour)
	names, err := m.AutoRotate()
	if err != nil {
		t.Fatalf("AutoRotate: %v", err)
	}
	if len(names) != 2 || names[0] != "x" || names[1] != "y" {
		t.Fatalf("unexpected rotated set: %v", names)
	}
	if got := len(m.Events().ByType(audit.KeyRotation)); got != 4 {
		t.Fatalf("expected 4 rotation events, got %d", got)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager()
	m.ClassifyData("d", LevelInternal, "o", nil)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = m.AddUserToACL("d", fmt.Sprintf("u%d-%d", w, i))
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if m.CheckDataAccess("d", "never-added") {
					t.Errorf("stranger granted access")
					return
				}
			}
		}()
	}
	wg.Wait()
	for w := 0; w < 4; w++ {
		for i := 0; i < 100; i++ {
			if !m.CheckDataAccess("d", fmt.Sprintf("u%d-%d", w, i)) {
				t.Fatalf("member u%d-%d lost", w, i)
			}
		}
	}
}
