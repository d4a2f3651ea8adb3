// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type eventCode int

const (
	codeOther eventCode = iota
	codeLoginAttempt
	codeTransaction
	codeGovernanceProposal
	codeSecurityAlert
	codeSystemEvent
	codeAuditTrail
	codeAccessViolation
	codeDataModification
	codeKeyRotation
	codeCertificateIssued
	codeCertificateRevoked
	codePIIDetected
	codePolicyViolation
	codeConfigurationChange
)

var eventNames = map[eventCode]string{
	codeLoginAttempt:        "LoginAttempt",
	codeTransaction:         "Transaction",
	codeGovernanceProposal:  "GovernanceProposal",
	codeSecurityAlert:       "SecurityAlert",
	codeSystemEvent:         "SystemEvent",
	codeAuditTrail:          "AuditTrail",
	codeAccessViolation:     "AccessViolation",
	codeDataModification:    "DataModification",
	codeKeyRotation:         "KeyRotation",
	codeCertificateIssued:   "CertificateIssued",
	codeCertificateRevoked:  "CertificateRevoked",
	codePIIDetected:         "PIIDetected",
	codePolicyViolation:     "PolicyViolation",
	codeConfigurationChange: "ConfigurationChange",
}

// EventType is a closed set of known event categories plus one explicit
// Other(name) fallback. The zero value is Other("").
type EventType struct {
	code  eventCode
	other string
}

// Known event types.
var (
	LoginAttempt        = EventType{code: codeLoginAttempt}
	Transaction         = EventType{code: codeTransaction}
	GovernanceProposal  = EventType{code: codeGovernanceProposal}
	SecurityAlert       = EventType{code: codeSecurityAlert}
	SystemEvent         = EventType{code: codeSystemEvent}
	AuditTrail          = EventType{code: codeAuditTrail}
	AccessViolation     = EventType{code: codeAccessViolation}
	DataModification    = EventType{code: codeDataModification}
	KeyRotation         = EventType{code: codeKeyRotation}
	CertificateIssued   = EventType{code: codeCertificateIssued}
	CertificateRevoked  = EventType{code: codeCertificateRevoked}
	PIIDetected         = EventType{code: codePIIDetected}
	PolicyViolation     = EventType{code: codePolicyViolation}
	ConfigurationChange = EventType{code: codeConfigurationChange}
)

// Other returns the fallback event type carrying a free-form name.
func Other(name string) EventType {
	return EventType{code: codeOther, other: name}
}

// IsOther reports whether t is the free-form fallback.
func (t EventType) IsOther() bool { return t.code == codeOther }

func (t EventType) String() string {
	if t.code == codeOther {
		return "Other(" + t.other + ")"
	}
	return eventNames[t.code]
}

// ParseEventType maps a known name (case-insensitive) to its type. Anything
// else, including the "Other(x)" rendering, becomes Other.
func ParseEventType(s string) EventType {
	s = strings.TrimSpace(s)
	for code, name := range eventNames {
		if strings.EqualFold(name, s) {
			return EventType{code: code}
		}
	}
	if strings.HasPrefix(s, "Other(") && strings.HasSuffix(s, ")") {
		return Other(s[len("Other(") : len(s)-1])
	}
	return Other(s)
}

// MarshalText implements encoding.TextMarshaler.
func (t EventType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *EventType) UnmarshalText(b []byte) error {
	*t = ParseEventType(string(b))
	return nil
}

// Severity ranks events for triage.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Critical
)

var severityNames = [...]string{"Info", "Warning", "Error", "Critical"}

func (s Severity) String() string {
	if s < Info || s > Critical {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity maps a severity name (case-insensitive) to its value.
func ParseSeverity(s string) (Severity, error) {
	for i, n := range severityNames {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return Severity(i), nil
		}
	}
	return Info, fmt.Errorf("unknown severity %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Event is one entry of the security audit trail.
type Event struct {
	ID          string            `json:"id"`
	Type        EventType         `json:"event_type"`
	Description string            `json:"description"`
	Principal   *string           `json:"principal,omitempty"`
	Data        map[string]string `json:"data"`
	Timestamp   time.Time         `json:"timestamp"`
	Evidence    []byte            `json:"evidence,omitempty"`
	Severity    Severity          `json:"severity"`
}

// PrincipalOr returns the principal or def when the event has none.
func (e Event) PrincipalOr(def string) string {
	if e.Principal == nil {
		return def
	}
	return *e.Principal
}

// clone returns a deep copy so snapshots cannot alias log storage.
func (e Event) clone() Event {
	out := e
	if e.Principal != nil {
		p := *e.Principal
		out.Principal = &p
	}
	if e.Data != nil {
		out.Data = make(map[string]string, len(e.Data))
		for k, v := range e.Data {
			out.Data[k] = v
		}
	}
	if e.Evidence != nil {
		out.Evidence = append([]byte(nil), e.Evidence...)
	}
	return out
}

// MarshalEvents renders events as indented JSON.
func MarshalEvents(events []Event) ([]byte, error) {
	if events == nil {
		events = []Event{}
	}
	return json.MarshalIndent(events, "", "  ")
}
