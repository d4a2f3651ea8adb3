// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"crypto/ed25519"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/crypto/signing"
)

// KeyUsage describes what a rotated key may be used for.
type KeyUsage int

const (
	UsageSigning KeyUsage = iota
	UsageEncryption
	UsageBoth
)

func (u KeyUsage) String() string {
	switch u {
	case UsageSigning:
		return "Signing"
	case UsageEncryption:
		return "Encryption"
	case UsageBoth:
		return "Both"
	default:
		return fmt.Sprintf("KeyUsage(%d)", int(u))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (u KeyUsage) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

// PublicKeyDescriptor is what RotateKeys hands back: never private material.
type PublicKeyDescriptor struct {
	Algorithm string `json:"algorithm"`
	PublicKey []byte `json:"public_key"`
}

// KeyRecord is the public view of one key generation.
type KeyRecord struct {
	Algorithm string    `json:"algorithm"`
	PublicKey []byte    `json:"public_key"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Usage     KeyUsage  `json:"usage"`
}

// Descriptor returns the algorithm/public key pair of r.
func (r KeyRecord) Descriptor() PublicKeyDescriptor {
	return PublicKeyDescriptor{Algorithm: r.Algorithm, PublicKey: append([]byte(nil), r.PublicKey...)}
}

func (r KeyRecord) clone() KeyRecord {
	r.PublicKey = append([]byte(nil), r.PublicKey...)
	return r
}

// RotationPolicy bounds the rotation period and lists accepted algorithms.
type RotationPolicy struct {
	MinRotationPeriod time.Duration
	MaxRotationPeriod time.Duration
	AutoRotate        bool
	AllowedAlgorithms []string
}

// DefaultRotationPolicy is 1h..24h, auto rotation on, Ed25519 only.
func DefaultRotationPolicy() RotationPolicy {
	return RotationPolicy{
		MinRotationPeriod: time.Hour,
		MaxRotationPeriod: 24 * time.Hour,
		AutoRotate:        true,
		AllowedAlgorithms: []string{signing.Algorithm},
	}
}

func (p RotationPolicy) allows(algorithm string) bool {
	for _, a := range p.AllowedAlgorithms {
		if strings.EqualFold(a, algorithm) {
			return true
		}
	}
	return false
}

// clamp keeps d within the policy bounds; zero bounds are ignored.
func (p RotationPolicy) clamp(d time.Duration) time.Duration {
	if p.MinRotationPeriod > 0 && d < p.MinRotationPeriod {
		d = p.MinRotationPeriod
	}
	if p.MaxRotationPeriod > 0 && d > p.MaxRotationPeriod {
		d = p.MaxRotationPeriod
	}
	return d
}

type keyEntry struct {
	record  KeyRecord
	private Secret
}

// KeyRegistry keeps one current key per principal plus the ordered history
// of keys it replaced.
type KeyRegistry struct {
	mu      sync.RWMutex
	current map[string]keyEntry
	history map[string][]KeyRecord
	policy  RotationPolicy
	period  time.Duration
	now     func() time.Time
}

// KeyRegistryOption configures a KeyRegistry.
type KeyRegistryOption func(*KeyRegistry)

// WithRotationPeriod sets how long a new key stays current. It is clamped to
// the policy bounds.
func WithRotationPeriod(d time.Duration) KeyRegistryOption {
	return func(r *KeyRegistry) { r.period = d }
}

// WithRotationPolicy replaces the default policy.
func WithRotationPolicy(p RotationPolicy) KeyRegistryOption {
	return func(r *KeyRegistry) { r.policy = p }
}

// WithKeyClock overrides the time source.
func WithKeyClock(now func() time.Time) KeyRegistryOption {
	return func(r *KeyRegistry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewKeyRegistry returns an empty registry with a daily rotation period.
func NewKeyRegistry(opts ...KeyRegistryOption) *KeyRegistry {
	r := &KeyRegistry{
		current: make(map[string]keyEntry),
		history: make(map[string][]KeyRecord),
		policy:  DefaultRotationPolicy(),
		period:  24 * time.Hour,
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	r.period = r.policy.clamp(r.period)
	return r
}

// Policy returns the active rotation policy.
func (r *KeyRegistry) Policy() RotationPolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := r.policy
	p.AllowedAlgorithms = append([]string(nil), r.policy.AllowedAlgorithms...)
	return p
}

// SetPolicy replaces the policy and re-clamps the rotation period.
func (r *KeyRegistry) SetPolicy(p RotationPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy = p
	r.period = p.clamp(r.period)
}

// RotateKeys installs a fresh Ed25519 key for principal, archiving the
// previous one.
func (r *KeyRegistry) RotateKeys(principal string) (PublicKeyDescriptor, error) {
	rec, err := r.RotateKeysWithAlgorithm(principal, signing.Algorithm)
	if err != nil {
		return PublicKeyDescriptor{}, err
	}
	return rec.Descriptor(), nil
}

// RotateKeysWithAlgorithm is RotateKeys with an explicit algorithm. Only
// algorithms that are both supported and allowed by policy are accepted.
func (r *KeyRegistry) RotateKeysWithAlgorithm(principal, algorithm string) (KeyRecord, error) {
	const op = "rotate keys"
	if principal == "" {
		return KeyRecord{}, &Error{Kind: KindInvalidArgument, Op: op, Detail: "empty principal"}
	}
	if !strings.EqualFold(algorithm, signing.Algorithm) {
		return KeyRecord{}, &Error{Kind: KindInvalidArgument, Op: op, ID: principal, Detail: "unsupported algorithm " + algorithm}
	}

	pub, priv, err := signing.GenerateKey()
	if err != nil {
		return KeyRecord{}, Wrap(KindOther, op, principal, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.policy.allows(algorithm) {
		return KeyRecord{}, &Error{Kind: KindInvalidArgument, Op: op, ID: principal, Detail: "algorithm not allowed by policy: " + algorithm}
	}
	created := r.now().UTC()
	entry := keyEntry{
		record: KeyRecord{
			Algorithm: signing.Algorithm,
			PublicKey: []byte(pub),
			CreatedAt: created,
			ExpiresAt: created.Add(r.period),
			Usage:     UsageSigning,
		},
		private: Secret(priv),
	}
	if prev, ok := r.current[principal]; ok {
		r.history[principal] = append(r.history[principal], prev.record)
		prev.private.Zero()
	} else if _, seen := r.history[principal]; !seen {
		r.history[principal] = []KeyRecord{}
	}
	r.current[principal] = entry
	return entry.record.clone(), nil
}

// KeyRotationHistory returns the keys principal has rotated away from,
// oldest first. A principal that never rotated is NotFound.
func (r *KeyRegistry) KeyRotationHistory(principal string) ([]KeyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.history[principal]
	if !ok {
		return nil, E(KindNotFound, "key rotation history", principal)
	}
	out := make([]KeyRecord, len(h))
	for i, rec := range h {
		out[i] = rec.clone()
	}
	return out, nil
}

// CurrentKey returns the public view of principal's current key.
func (r *KeyRegistry) CurrentKey(principal string) (KeyRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.current[principal]
	if !ok {
		return KeyRecord{}, false
	}
	return e.record.clone(), true
}

// IsRotationNeeded reports whether principal's current key has expired.
// Principals without a key never need rotation.
func (r *KeyRegistry) IsRotationNeeded(principal string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.current[principal]
	if !ok {
		return false
	}
	return !r.now().Before(e.record.ExpiresAt)
}

// Principals lists every principal holding a current key, sorted.
func (r *KeyRegistry) Principals() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.current))
	for p := range r.current {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// AutoRotate rotates every principal whose key expired, provided the policy
// enables automatic rotation. It returns the new keys by principal.
func (r *KeyRegistry) AutoRotate() (map[string]KeyRecord, error) {
	if !r.Policy().AutoRotate {
		return map[string]KeyRecord{}, nil
	}
	rotated := make(map[string]KeyRecord)
	for _, p := range r.Principals() {
		if !r.IsRotationNeeded(p) {
			continue
		}
		rec, err := r.RotateKeysWithAlgorithm(p, signing.Algorithm)
		if err != nil {
			return rotated, err
		}
		rotated[p] = rec
	}
	return rotated, nil
}

// Sign signs data with principal's current private key.
func (r *KeyRegistry) Sign(principal string, data []byte) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.current[principal]
	if !ok {
		return nil, E(KindNotFound, "sign", principal)
	}
	var sig []byte
	_ = e.private.Use(func(b []byte) error {
		sig = ed25519.Sign(ed25519.PrivateKey(b), data)
		return nil
	})
	return sig, nil
}

// ExportPrivateKey renders principal's current private key as an OpenSSH
// PEM block, encrypted when passphrase is non-empty.
func (r *KeyRegistry) ExportPrivateKey(principal, passphrase string) (string, error) {
	const op = "export private key"
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.current[principal]
	if !ok {
		return "", E(KindNotFound, op, principal)
	}
	var out string
	err := e.private.Use(func(b []byte) error {
		var err error
		out, err = signing.MarshalPrivateKey(ed25519.PrivateKey(b), principal, passphrase)
		return err
	})
	if err != nil {
		return "", Wrap(KindOther, op, principal, err)
	}
	return out, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *KeyUsage) UnmarshalText(b []byte) error {
	for _, c := range []KeyUsage{UsageSigning, UsageEncryption, UsageBoth} {
		if strings.EqualFold(c.String(), string(b)) {
			*u = c
			return nil
		}
	}
	return fmt.Errorf("unknown key usage %q", string(b))
}
