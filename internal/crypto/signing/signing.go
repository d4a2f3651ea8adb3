// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

// package signing provides the Ed25519 and SHA3-256 primitives shared by the
// key registry and the evidence store, plus OpenSSH encodings for exporting
// and importing signing keys.
package signing // import "github.com/attakdefand/DEX-OS-V2-sub001/internal/crypto/signing"

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
	"golang.org/x/crypto/ssh"
)

// Algorithm is the only signature scheme this module issues or accepts.
const Algorithm = "Ed25519"

var (
	// ErrMalformedPublicKey is returned for public keys that are not 32 bytes.
	ErrMalformedPublicKey = errors.New("malformed ed25519 public key")
	// ErrMalformedSignature is returned for signatures that are not 64 bytes.
	ErrMalformedSignature = errors.New("malformed ed25519 signature")
	// ErrBadSignature is returned when a well-formed signature does not verify.
	ErrBadSignature = errors.New("ed25519 signature does not verify")
)

// GenerateKey creates a new Ed25519 key pair from crypto/rand.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return pub, priv, nil
}

// Digest returns SHA3-256 over the raw content bytes.
func Digest(content []byte) []byte {
	sum := sha3.Sum256(content)
	return sum[:]
}

// Verify checks sig over content with the raw 32-byte public key. No framing
// is applied to content.
func Verify(publicKey, content, sig []byte) error {
	if len(publicKey) != ed25519.PublicKeySize {
		return ErrMalformedPublicKey
	}
	if len(sig) != ed25519.SignatureSize {
		return ErrMalformedSignature
	}
	if !ed25519.Verify(ed25519.PublicKey(publicKey), content, sig) {
		return ErrBadSignature
	}
	return nil
}

// AuthorizedKey renders pub in authorized_keys format with an optional comment.
func AuthorizedKey(pub ed25519.PublicKey, comment string) (string, error) {
	sshPubKey, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to create SSH public key: %w", err)
	}
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPubKey)))
	if comment != "" {
		line = line + " " + comment
	}
	return line, nil
}

// Fingerprint returns the OpenSSH SHA256 fingerprint of pub.
func Fingerprint(pub ed25519.PublicKey) (string, error) {
	sshPubKey, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to create SSH public key: %w", err)
	}
	return ssh.FingerprintSHA256(sshPubKey), nil
}

// MarshalPrivateKey encodes priv as an OpenSSH PEM block. A non-empty
// passphrase encrypts the key.
func MarshalPrivateKey(priv ed25519.PrivateKey, comment, passphrase string) (string, error) {
	var (
		pemBlock *pem.Block
		err      error
	)
	if passphrase == "" {
		pemBlock, err = ssh.MarshalPrivateKey(priv, comment)
	} else {
		pemBlock, err = ssh.MarshalPrivateKeyWithPassphrase(priv, comment, []byte(passphrase))
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal private key: %w", err)
	}
	return string(pem.EncodeToMemory(pemBlock)), nil
}

// ParsePrivateKey decodes an OpenSSH PEM private key, decrypting it with
// passphrase when one is given. Only Ed25519 keys are accepted.
func ParsePrivateKey(pemBytes []byte, passphrase string) (ed25519.PrivateKey, error) {
	var (
		raw interface{}
		err error
	)
	if passphrase == "" {
		raw, err = ssh.ParseRawPrivateKey(pemBytes)
	} else {
		raw, err = ssh.ParseRawPrivateKeyWithPassphrase(pemBytes, []byte(passphrase))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	switch k := raw.(type) {
	case *ed25519.PrivateKey:
		return *k, nil
	case ed25519.PrivateKey:
		return k, nil
	default:
		return nil, fmt.Errorf("unsupported private key type %T, want %s", raw, Algorithm)
	}
}
