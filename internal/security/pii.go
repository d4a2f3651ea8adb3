// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/audit"
)

// PIIMatch is one span of text matching a PII pattern. Start and End are
// byte offsets.
type PIIMatch struct {
	Pattern string `json:"pattern"`
	Text    string `json:"text"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

type piiPattern struct {
	name string
	re   *regexp.Regexp
}

var piiPatterns = []piiPattern{
	{"Email", regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{"Phone", regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)},
	{"SSN", regexp.MustCompile(`\d{3}-?\d{2}-?\d{4}`)},
	{"CreditCard", regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b|\b\d{16}\b`)},
	{"IPAddress", regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
	{"DOB", regexp.MustCompile(`\b(0[1-9]|1[0-2])[-/.](0[1-9]|[12]\d|3[01])[-/.](19|20)\d{2}\b`)},
}

// PIIPatternNames lists the detector's pattern names in evaluation order.
func PIIPatternNames() []string {
	out := make([]string, len(piiPatterns))
	for i, p := range piiPatterns {
		out[i] = p.name
	}
	return out
}

// DetectPII returns every match of every pattern, grouped by pattern in
// evaluation order. Patterns overlap, so one span may be reported more than
// once under different names.
func DetectPII(text string) []PIIMatch {
	var out []PIIMatch
	for _, p := range piiPatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			out = append(out, PIIMatch{
				Pattern: p.name,
				Text:    text[loc[0]:loc[1]],
				Start:   loc[0],
				End:     loc[1],
			})
		}
	}
	return out
}

// DetectPII scans text and, when anything matches, records a PIIDetected
// event naming source and the per-pattern counts. Matched text is not
// copied into the event.
func (m *Manager) DetectPII(source, text string) []PIIMatch {
	matches := DetectPII(text)
	if len(matches) == 0 {
		return matches
	}
	counts := map[string]int{}
	for _, mt := range matches {
		counts[mt.Pattern]++
	}
	data := map[string]string{"source": source, "matches": strconv.Itoa(len(matches))}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		data["pattern_"+n] = strconv.Itoa(counts[n])
	}
	m.events.Append(audit.Record{
		Type:        audit.PIIDetected,
		Description: "PII detected in " + source,
		Data:        data,
		Severity:    audit.Warning,
	})
	return matches
}
