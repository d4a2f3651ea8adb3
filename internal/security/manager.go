// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/audit"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/bloom"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/crypto/signing"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/logging"
)

// Manager composes the certificate manager, the key registry, the
// classification table with its membership filter, and an audit log.
// Mutations are serialized per Manager; reads run concurrently.
type Manager struct {
	mu              sync.RWMutex
	filter          *bloom.Filter
	classifications map[string]*classification

	certs  *CertificateManager
	keys   *KeyRegistry
	events *audit.Log
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithFilter replaces the default (1000, 3) membership filter.
func WithFilter(f *bloom.Filter) Option {
	return func(m *Manager) {
		if f != nil {
			m.filter = f
		}
	}
}

// WithEventLog injects the audit log the manager appends to.
func WithEventLog(l *audit.Log) Option {
	return func(m *Manager) {
		if l != nil {
			m.events = l
		}
	}
}

// WithKeyRegistry injects a preconfigured key registry.
func WithKeyRegistry(r *KeyRegistry) Option {
	return func(m *Manager) {
		if r != nil {
			m.keys = r
		}
	}
}

// WithClock overrides the time source for classification stamps and
// certificate validity.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager returns a Manager with empty state.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		classifications: make(map[string]*classification),
		now:             time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	if m.filter == nil {
		m.filter = bloom.Default()
	}
	if m.events == nil {
		m.events = audit.NewLog()
	}
	if m.keys == nil {
		m.keys = NewKeyRegistry(WithKeyClock(m.now))
	}
	m.certs = NewCertificateManager(m.now)
	return m
}

// Events exposes the owned audit log.
func (m *Manager) Events() *audit.Log { return m.events }

// Keys exposes the key registry.
func (m *Manager) Keys() *KeyRegistry { return m.keys }

// Certificates exposes the certificate manager.
func (m *Manager) Certificates() *CertificateManager { return m.certs }

// ClassifyData creates or replaces the classification of dataID and adds
// every ACL member to the membership filter.
func (m *Manager) ClassifyData(dataID string, level ClassificationLevel, owner string, acl []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classifications[dataID] = newClassification(level, owner, acl, m.now().UTC())
	for _, u := range acl {
		m.filter.Add(filterKey(dataID, u))
	}
}

// UpdateDataACL replaces the ACL of a classified dataID. Removed members
// remain in the filter until RebuildFilter; the exact ACL check still
// denies them.
func (m *Manager) UpdateDataACL(dataID string, acl []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classifications[dataID]
	if !ok {
		return E(KindNotFound, "update data acl", dataID)
	}
	c.acl = make(map[string]struct{}, len(acl))
	for _, u := range acl {
		c.acl[u] = struct{}{}
		m.filter.Add(filterKey(dataID, u))
	}
	return nil
}

// AddUserToACL grants user access to a classified dataID.
func (m *Manager) AddUserToACL(dataID, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classifications[dataID]
	if !ok {
		return E(KindNotFound, "add user to acl", dataID)
	}
	c.acl[user] = struct{}{}
	m.filter.Add(filterKey(dataID, user))
	return nil
}

// RemoveUserFromACL revokes user's access to a classified dataID.
func (m *Manager) RemoveUserFromACL(dataID, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classifications[dataID]
	if !ok {
		return E(KindNotFound, "remove user from acl", dataID)
	}
	delete(c.acl, user)
	return nil
}

// Classification returns a snapshot of dataID's classification.
func (m *Manager) Classification(dataID string) (Classification, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.classifications[dataID]
	if !ok {
		return Classification{}, false
	}
	return c.snapshot(dataID), true
}

// CheckDataAccess decides whether principal may access dataID.
// Unclassified data is public and the owner always has access. Otherwise
// a negative filter answer denies, and a positive one must be confirmed
// against the exact ACL.
func (m *Manager) CheckDataAccess(dataID, principal string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.classifications[dataID]
	if !ok {
		return true
	}
	if principal == c.owner {
		return true
	}
	if !m.filter.MightContain(filterKey(dataID, principal)) {
		return false
	}
	_, member := c.acl[principal]
	return member
}

// RebuildFilter clears the membership filter and re-adds every current ACL
// member, dropping bits left behind by removals.
func (m *Manager) RebuildFilter() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter.Reset()
	for dataID, c := range m.classifications {
		for u := range c.acl {
			m.filter.Add(filterKey(dataID, u))
		}
	}
	logging.Debugf("security: rebuilt membership filter over %d classifications", len(m.classifications))
}

// AddCertificate stores cert; a duplicate id fails with AlreadyExists.
func (m *Manager) AddCertificate(cert Certificate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.certs.AddCertificate(cert)
}

// GetCertificate returns the certificate stored under id.
func (m *Manager) GetCertificate(id string) (Certificate, bool) {
	return m.certs.GetCertificate(id)
}

// IsCertificateValid reports whether id is known, unrevoked and current.
func (m *Manager) IsCertificateValid(id string) bool {
	return m.certs.IsCertificateValid(id)
}

// RevokeCertificate revokes id and records a CertificateRevoked event.
func (m *Manager) RevokeCertificate(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.certs.RevokeCertificate(id); err != nil {
		return err
	}
	m.events.Append(audit.Record{
		Type:        audit.CertificateRevoked,
		Description: "Certificate " + id + " revoked",
		Data:        map[string]string{"certificate_id": id},
		Severity:    audit.Warning,
	})
	return nil
}

// IssueCertificate signs payload with issuer's current key, stores the
// resulting certificate and records a CertificateIssued event.
func (m *Manager) IssueCertificate(id, issuer string, payload []byte, validFrom, validTo time.Time) (Certificate, error) {
	const op = "issue certificate"
	if validTo.Before(validFrom) {
		return Certificate{}, &Error{Kind: KindInvalidArgument, Op: op, ID: id, Detail: "valid_to precedes valid_from"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sig, err := m.keys.Sign(issuer, payload)
	if err != nil {
		return Certificate{}, err
	}
	cert := Certificate{
		ID:        id,
		Payload:   append([]byte(nil), payload...),
		Issuer:    issuer,
		ValidFrom: validFrom,
		ValidTo:   validTo,
		Signature: sig,
	}
	if err := m.certs.AddCertificate(cert); err != nil {
		return Certificate{}, err
	}
	m.events.Append(audit.Record{
		Type:        audit.CertificateIssued,
		Description: "Certificate " + id + " issued by " + issuer,
		Principal:   &issuer,
		Data:        map[string]string{"certificate_id": id, "valid_to": validTo.UTC().Format(time.RFC3339)},
	})
	return cert, nil
}

// VerifyCertificateSignature checks the signature of certificate id. With a
// nil publicKey the issuer's current and archived keys are tried in turn.
func (m *Manager) VerifyCertificateSignature(id string, publicKey []byte) error {
	const op = "verify certificate signature"
	cert, ok := m.certs.GetCertificate(id)
	if !ok {
		return E(KindNotFound, op, id)
	}
	candidates := [][]byte{publicKey}
	if publicKey == nil {
		candidates = m.issuerKeys(cert.Issuer)
	}
	var lastErr error
	for _, pk := range candidates {
		if lastErr = signing.Verify(pk, cert.Payload, cert.Signature); lastErr == nil {
			return nil
		}
	}
	if lastErr == nil {
		return &Error{Kind: KindSignatureInvalid, Op: op, ID: id, Detail: "no key known for issuer " + cert.Issuer}
	}
	return Wrap(KindSignatureInvalid, op, id, lastErr)
}

func (m *Manager) issuerKeys(issuer string) [][]byte {
	var out [][]byte
	if cur, ok := m.keys.CurrentKey(issuer); ok {
		out = append(out, cur.PublicKey)
	}
	if hist, err := m.keys.KeyRotationHistory(issuer); err == nil {
		for i := len(hist) - 1; i >= 0; i-- {
			out = append(out, hist[i].PublicKey)
		}
	}
	return out
}

// RotateKeys rotates principal's signing key and records a KeyRotation
// event carrying the new public key.
func (m *Manager) RotateKeys(principal string) (PublicKeyDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	desc, err := m.keys.RotateKeys(principal)
	if err != nil {
		return PublicKeyDescriptor{}, err
	}
	m.events.Append(audit.Record{
		Type:        audit.KeyRotation,
		Description: "Keys rotated for " + principal,
		Principal:   &principal,
		Data: map[string]string{
			"algorithm":  desc.Algorithm,
			"public_key": hex.EncodeToString(desc.PublicKey),
		},
	})
	return desc, nil
}

// KeyRotationHistory returns principal's archived keys, oldest first.
func (m *Manager) KeyRotationHistory(principal string) ([]KeyRecord, error) {
	return m.keys.KeyRotationHistory(principal)
}

// AutoRotate rotates expired keys per policy and records one KeyRotation
// event per rotated principal.
func (m *Manager) AutoRotate() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rotated, err := m.keys.AutoRotate()
	names := make([]string, 0, len(rotated))
	for p := range rotated {
		names = append(names, p)
	}
	sort.Strings(names)
	for _, p := range names {
		p := p
		rec := rotated[p]
		m.events.Append(audit.Record{
			Type:        audit.KeyRotation,
			Description: "Keys auto-rotated for " + p,
			Principal:   &p,
			Data: map[string]string{
				"algorithm":  rec.Algorithm,
				"public_key": hex.EncodeToString(rec.PublicKey),
				"automatic":  "true",
			},
		})
	}
	return names, err
}

// LogEvent appends an Info event to the audit log. It never fails.
func (m *Manager) LogEvent(eventType audit.EventType, description string, principal *string, data map[string]string) audit.Event {
	return m.events.Append(audit.Record{
		Type:        eventType,
		Description: description,
		Principal:   principal,
		Data:        data,
		Severity:    audit.Info,
	})
}

// LogRecord appends r as is, for callers that need evidence or a severity.
func (m *Manager) LogRecord(r audit.Record) audit.Event {
	return m.events.Append(r)
}

// GetEvents returns a snapshot of the audit log in append order.
func (m *Manager) GetEvents() []audit.Event {
	return m.events.Events()
}
