// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ClassificationLevel is the sensitivity attached to a data identifier.
type ClassificationLevel int

const (
	LevelPublic ClassificationLevel = iota
	LevelInternal
	LevelConfidential
	LevelSecret
	LevelTopSecret
)

var levelNames = [...]string{"Public", "Internal", "Confidential", "Secret", "TopSecret"}

func (l ClassificationLevel) String() string {
	if l < LevelPublic || l > LevelTopSecret {
		return fmt.Sprintf("ClassificationLevel(%d)", int(l))
	}
	return levelNames[l]
}

// ParseClassificationLevel maps a level name (case-insensitive) to its value.
func ParseClassificationLevel(s string) (ClassificationLevel, error) {
	for i, n := range levelNames {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return ClassificationLevel(i), nil
		}
	}
	return LevelPublic, &Error{Kind: KindInvalidArgument, Op: "parse classification level", Detail: fmt.Sprintf("unknown level %q", s)}
}

// MarshalText implements encoding.TextMarshaler.
func (l ClassificationLevel) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *ClassificationLevel) UnmarshalText(b []byte) error {
	v, err := ParseClassificationLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Classification is the access policy of one data identifier.
type Classification struct {
	DataID       string              `json:"data_id"`
	Level        ClassificationLevel `json:"level"`
	Owner        string              `json:"owner"`
	ACL          []string            `json:"acl"` // sorted
	ClassifiedAt time.Time           `json:"classified_at"`
}

// classification is the mutable table entry behind a Classification.
type classification struct {
	level        ClassificationLevel
	owner        string
	acl          map[string]struct{}
	classifiedAt time.Time
}

func newClassification(level ClassificationLevel, owner string, acl []string, at time.Time) *classification {
	c := &classification{
		level:        level,
		owner:        owner,
		acl:          make(map[string]struct{}, len(acl)),
		classifiedAt: at,
	}
	for _, u := range acl {
		c.acl[u] = struct{}{}
	}
	return c
}

func (c *classification) snapshot(dataID string) Classification {
	acl := make([]string, 0, len(c.acl))
	for u := range c.acl {
		acl = append(acl, u)
	}
	sort.Strings(acl)
	return Classification{
		DataID:       dataID,
		Level:        c.level,
		Owner:        c.owner,
		ACL:          acl,
		ClassifiedAt: c.classifiedAt,
	}
}

// filterKey scopes a filter entry to one data identifier so a grant on one
// dataset never makes the filter answer "maybe" for another.
func filterKey(dataID, user string) string {
	return dataID + "\x00" + user
}
