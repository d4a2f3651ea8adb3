// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"bytes"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	iradix "github.com/hashicorp/go-immutable-radix/v2"
)

// Certificate is a signed statement by Issuer over Payload, valid inside
// [ValidFrom, ValidTo] unless revoked.
type Certificate struct {
	ID        string    `json:"id"`
	Payload   []byte    `json:"payload"`
	Issuer    string    `json:"issuer"`
	ValidFrom time.Time `json:"valid_from"`
	ValidTo   time.Time `json:"valid_to"`
	Signature []byte    `json:"signature"`
	Revoked   bool      `json:"revoked"`
}

// ValidAt reports whether c is unrevoked and t lies inside its window,
// bounds included.
func (c Certificate) ValidAt(t time.Time) bool {
	return !c.Revoked && !t.Before(c.ValidFrom) && !t.After(c.ValidTo)
}

func (c Certificate) clone() Certificate {
	out := c
	out.Payload = append([]byte(nil), c.Payload...)
	out.Signature = append([]byte(nil), c.Signature...)
	return out
}

// certState is one immutable version of the certificate table.
type certState struct {
	byID     *iradix.Tree[Certificate]
	byExpiry *iradix.Tree[string]
}

// CertificateManager stores certificates in an immutable radix tree keyed by
// id, with a secondary index ordered by expiry. Writers build a new version
// and publish it atomically; readers load the current version lock-free.
type CertificateManager struct {
	mu    sync.Mutex // serializes writers
	state atomic.Pointer[certState]
	now   func() time.Time
}

// NewCertificateManager returns an empty manager. A nil clock means
// time.Now.
func NewCertificateManager(now func() time.Time) *CertificateManager {
	if now == nil {
		now = time.Now
	}
	m := &CertificateManager{now: now}
	m.state.Store(&certState{
		byID:     iradix.New[Certificate](),
		byExpiry: iradix.New[string](),
	})
	return m
}

// expiryKey orders by ValidTo first, then id. The sign bit is flipped so
// pre-epoch times still sort before post-epoch times.
func expiryKey(validTo time.Time, id string) []byte {
	k := make([]byte, 8, 8+len(id))
	binary.BigEndian.PutUint64(k, uint64(validTo.UnixNano())^(1<<63))
	return append(k, id...)
}

// AddCertificate stores cert. A duplicate id fails with AlreadyExists.
func (m *CertificateManager) AddCertificate(cert Certificate) error {
	const op = "add certificate"
	if cert.ID == "" {
		return &Error{Kind: KindInvalidArgument, Op: op, Detail: "empty certificate id"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.state.Load()
	if _, ok := cur.byID.Get([]byte(cert.ID)); ok {
		return E(KindAlreadyExists, op, cert.ID)
	}
	c := cert.clone()
	byID, _, _ := cur.byID.Insert([]byte(c.ID), c)
	byExpiry, _, _ := cur.byExpiry.Insert(expiryKey(c.ValidTo, c.ID), c.ID)
	m.state.Store(&certState{byID: byID, byExpiry: byExpiry})
	return nil
}

// GetCertificate returns a copy of the stored certificate.
func (m *CertificateManager) GetCertificate(id string) (Certificate, bool) {
	c, ok := m.state.Load().byID.Get([]byte(id))
	if !ok {
		return Certificate{}, false
	}
	return c.clone(), true
}

// IsCertificateValid is false for unknown ids; otherwise the certificate
// must be unrevoked and inside its validity window right now.
func (m *CertificateManager) IsCertificateValid(id string) bool {
	c, ok := m.state.Load().byID.Get([]byte(id))
	if !ok {
		return false
	}
	return c.ValidAt(m.now())
}

// RevokeCertificate marks id revoked. Revocation is one-way.
func (m *CertificateManager) RevokeCertificate(id string) error {
	const op = "revoke certificate"
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.state.Load()
	c, ok := cur.byID.Get([]byte(id))
	if !ok {
		return E(KindNotFound, op, id)
	}
	if c.Revoked {
		return E(KindAlreadyRevoked, op, id)
	}
	c.Revoked = true
	byID, _, _ := cur.byID.Insert([]byte(id), c)
	m.state.Store(&certState{byID: byID, byExpiry: cur.byExpiry})
	return nil
}

// ExpiringBetween returns certificates whose ValidTo lies in [from, to],
// ordered by ValidTo then id. Revoked certificates are included.
func (m *CertificateManager) ExpiringBetween(from, to time.Time) []Certificate {
	st := m.state.Load()
	upper := expiryKey(to, "")[:8]

	var out []Certificate
	it := st.byExpiry.Root().Iterator()
	it.SeekLowerBound(expiryKey(from, ""))
	for key, id, ok := it.Next(); ok; key, id, ok = it.Next() {
		if bytes.Compare(key[:8], upper) > 0 {
			break
		}
		if c, found := st.byID.Get([]byte(id)); found {
			out = append(out, c.clone())
		}
	}
	return out
}

// List returns every certificate ordered by id.
func (m *CertificateManager) List() []Certificate {
	st := m.state.Load()
	out := make([]Certificate, 0, st.byID.Len())
	st.byID.Root().Walk(func(_ []byte, c Certificate) bool {
		out = append(out, c.clone())
		return false
	})
	return out
}

// Len returns the number of stored certificates.
func (m *CertificateManager) Len() int {
	return m.state.Load().byID.Len()
}
