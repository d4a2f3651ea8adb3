// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

func TestSecret_RedactsEverywhere(t *testing.T) {
	s := SecretFromBytes([]byte("private-key-material"))
	for _, verb := range []string{"%v", "%s", "%+v", "%#v", "%x", "%q"} {
		if got := fmt.Sprintf(verb, s); got != "[SECRET]" {
			t.Fatalf("verb %s leaked: %q", verb, got)
		}
	}
	b, err := json.Marshal(struct {
		Key Secret `json:"key"`
	}{Key: s})
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	if string(b) != `{"key":"[SECRET]"}` {
		t.Fatalf("unexpected json: %s", b)
	}
}

func TestSecret_BytesIsACopy(t *testing.T) {
	s := SecretFromBytes([]byte("sensitive"))
	c := s.Bytes()
	c[0] = 'X'
	if err := s.Use(func(b []byte) error {
		if !bytes.Equal(b, []byte("sensitive")) {
			t.Fatalf("secret mutated through copy: %q", b)
		}
		return nil
	}); err != nil {
		t.Fatalf("Use failed: %v", err)
	}
}

func TestSecret_Zero(t *testing.T) {
	s := SecretFromBytes([]byte("abc123"))
	(&s).Zero()
	_ = s.Use(func(b []byte) error {
		for i := range b {
			if b[i] != 0 {
				t.Fatalf("expected zeroed byte at index %d, got %d", i, b[i])
			}
		}
		return nil
	})
	var nilSecret *Secret
	nilSecret.Zero()
}
