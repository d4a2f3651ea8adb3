// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"errors"
	"strings"
)

// Kind classifies failures. The set is closed; KindOther is the catch-all.
type Kind int

const (
	KindOther Kind = iota
	KindAlreadyExists
	KindNotFound
	KindAlreadyRevoked
	KindSignatureInvalid
	KindImmutableConflict
	KindHashMismatch
	KindStorageFailure
	KindInvalidArgument
)

var kindNames = map[Kind]string{
	KindOther:             "Other",
	KindAlreadyExists:     "AlreadyExists",
	KindNotFound:          "NotFound",
	KindAlreadyRevoked:    "AlreadyRevoked",
	KindSignatureInvalid:  "SignatureInvalid",
	KindImmutableConflict: "ImmutableConflict",
	KindHashMismatch:      "HashMismatch",
	KindStorageFailure:    "StorageFailure",
	KindInvalidArgument:   "InvalidArgument",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Other"
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrAlreadyExists     = &Error{Kind: KindAlreadyExists}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrAlreadyRevoked    = &Error{Kind: KindAlreadyRevoked}
	ErrSignatureInvalid  = &Error{Kind: KindSignatureInvalid}
	ErrImmutableConflict = &Error{Kind: KindImmutableConflict}
	ErrHashMismatch      = &Error{Kind: KindHashMismatch}
	ErrStorageFailure    = &Error{Kind: KindStorageFailure}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
)

// Error is the failure value returned by this module.
type Error struct {
	Kind   Kind
	Op     string // operation, e.g. "revoke certificate"
	ID     string // subject identifier, if any
	Detail string // free-form detail for KindOther and friends
	Err    error  // underlying cause
}

// E builds an *Error. Callers fill Detail or Err as needed.
func E(kind Kind, op, id string) *Error {
	return &Error{Kind: kind, Op: op, ID: id}
}

// Wrap builds an *Error around a cause.
func Wrap(kind Kind, op, id string, err error) *Error {
	return &Error{Kind: kind, Op: op, ID: id, Err: err}
}

// Other builds a catch-all error that only carries a message.
func Other(op, detail string) *Error {
	return &Error{Kind: KindOther, Op: op, Detail: detail}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(kindMessage(e.Kind))
	if e.ID != "" {
		b.WriteString(" (")
		b.WriteString(e.ID)
		b.WriteString(")")
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func kindMessage(k Kind) string {
	switch k {
	case KindAlreadyExists:
		return "already exists"
	case KindNotFound:
		return "not found"
	case KindAlreadyRevoked:
		return "already revoked"
	case KindSignatureInvalid:
		return "signature invalid"
	case KindImmutableConflict:
		return "immutable conflict"
	case KindHashMismatch:
		return "hash mismatch"
	case KindStorageFailure:
		return "storage failure"
	case KindInvalidArgument:
		return "invalid argument"
	default:
		return "error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so errors.Is(err, ErrNotFound) works for any not-found
// failure regardless of op or id.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf reports the Kind of err, or KindOther for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}
