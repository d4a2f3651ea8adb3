// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/attakdefand/DEX-OS-V2-sub001/internal/audit"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/i18n"
	"github.com/attakdefand/DEX-OS-V2-sub001/internal/security"
)

// signedFixture generates a key pair with the CLI, writes content and signs it.
func signedFixture(t *testing.T, root, name, content string) (file, sig, pub string) {
	t.Helper()
	dir := t.TempDir()
	prefix := filepath.Join(dir, "signer")
	if out, err := runCLI(t, "--evidence-root", root, "keys", "generate", prefix); err != nil {
		t.Fatalf("keys generate: %v\n%s", err, out)
	}
	file = filepath.Join(dir, name)
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if out, err := runCLI(t, "--evidence-root", root, "keys", "sign", "--key", prefix+".key", file); err != nil {
		t.Fatalf("keys sign: %v\n%s", err, out)
	}
	return file, file + ".sig", prefix + ".pub"
}

func TestEvidenceLifecycle(t *testing.T) {
	root := isolate(t)
	file, sig, pub := signedFixture(t, root, "report.txt", "quarterly access review")

	out, err := runCLI(t, "--evidence-root", root, "evidence", "ingest", "--id", "E1", "--file", file, "--sig", sig, "--pubkey", pub)
	if err != nil {
		t.Fatalf("ingest: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Evidence E1 ingested") {
		t.Fatalf("unexpected ingest output: %s", out)
	}

	out, err = runCLI(t, "--evidence-root", root, "evidence", "verify", "E1")
	if err != nil || !strings.Contains(out, "Evidence E1 verified") {
		t.Fatalf("verify: %v\n%s", err, out)
	}

	out, err = runCLI(t, "--evidence-root", root, "evidence", "list")
	if err != nil || !strings.Contains(out, "E1") || !strings.Contains(out, "report.txt") {
		t.Fatalf("list: %v\n%s", err, out)
	}

	out, err = runCLI(t, "--evidence-root", root, "evidence", "show", "E1")
	if err != nil || !strings.Contains(out, "report.txt") || !strings.Contains(out, "yes") {
		t.Fatalf("show: %v\n%s", err, out)
	}

	// The ingest was recorded in the persisted event trail.
	out, err = runCLI(t, "--evidence-root", root, "events", "list", "--type", "AuditTrail")
	if err != nil || !strings.Contains(out, "Evidence E1 ingested") {
		t.Fatalf("events list: %v\n%s", err, out)
	}

	// Re-ingesting identical content is accepted, a different file under the same id is not.
	if _, err := runCLI(t, "--evidence-root", root, "evidence", "ingest", "--id", "E1", "--file", file, "--sig", sig, "--pubkey", pub); err != nil {
		t.Fatalf("idempotent re-ingest: %v", err)
	}
	other, otherSig, otherPub := signedFixture(t, root, "other.txt", "something else")
	_, err = runCLI(t, "--evidence-root", root, "evidence", "ingest", "--id", "E1", "--file", other, "--sig", otherSig, "--pubkey", otherPub)
	if !errors.Is(err, security.ErrImmutableConflict) {
		t.Fatalf("expected ImmutableConflict, got %v", err)
	}
}

func TestEvidenceIngest_RejectsWrongKey(t *testing.T) {
	root := isolate(t)
	file, sig, _ := signedFixture(t, root, "a.txt", "alpha")
	_, _, otherPub := signedFixture(t, root, "b.txt", "beta")

	_, err := runCLI(t, "--evidence-root", root, "evidence", "ingest", "--file", file, "--sig", sig, "--pubkey", otherPub)
	if !errors.Is(err, security.ErrSignatureInvalid) {
		t.Fatalf("expected SignatureInvalid, got %v", err)
	}
	out, err := runCLI(t, "--evidence-root", root, "evidence", "list")
	if err != nil || !strings.Contains(out, "No evidence stored.") {
		t.Fatalf("rejected evidence must not be stored: %v\n%s", err, out)
	}
}

func TestEvidenceVerify_UnknownID(t *testing.T) {
	root := isolate(t)
	_, err := runCLI(t, "--evidence-root", root, "evidence", "verify", "missing")
	if !errors.Is(err, security.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestEvidenceExportImport(t *testing.T) {
	root := isolate(t)
	file, sig, pub := signedFixture(t, root, "log.txt", "audit log line")
	if _, err := runCLI(t, "--evidence-root", root, "evidence", "ingest", "--id", "L1", "--file", file, "--sig", sig, "--pubkey", pub); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	bundle := filepath.Join(t.TempDir(), "evidence.bundle")
	out, err := runCLI(t, "--evidence-root", root, "evidence", "export", bundle)
	if err != nil || !strings.Contains(out, "Exported 1 evidence items") {
		t.Fatalf("export: %v\n%s", err, out)
	}

	target := filepath.Join(t.TempDir(), "replica")
	out, err = runCLI(t, "--evidence-root", target, "evidence", "import", bundle)
	if err != nil || !strings.Contains(out, "Imported 1, unchanged 0, failed 0") {
		t.Fatalf("import: %v\n%s", err, out)
	}
	out, err = runCLI(t, "--evidence-root", target, "evidence", "import", bundle)
	if err != nil || !strings.Contains(out, "Imported 0, unchanged 1, failed 0") {
		t.Fatalf("second import: %v\n%s", err, out)
	}
	if _, err := runCLI(t, "--evidence-root", target, "evidence", "verify", "L1"); err != nil {
		t.Fatalf("verify imported: %v", err)
	}
	if _, err := runCLI(t, "--evidence-root", target, "evidence", "maintain"); err != nil {
		t.Fatalf("maintain: %v", err)
	}
}

func TestKeys_EncryptedKeyNeedsPassphrase(t *testing.T) {
	root := isolate(t)
	dir := t.TempDir()
	prefix := filepath.Join(dir, "locked")
	if _, err := runCLI(t, "--evidence-root", root, "keys", "generate", "--passphrase", "s3cret", prefix); err != nil {
		t.Fatalf("generate: %v", err)
	}
	pubHex, err := os.ReadFile(prefix + ".pub")
	if err != nil {
		t.Fatalf("read pub: %v", err)
	}
	if len(strings.TrimSpace(string(pubHex))) != 2*ed25519.PublicKeySize {
		t.Fatalf("expected hex public key, got %q", pubHex)
	}

	file := filepath.Join(dir, "doc.txt")
	_ = os.WriteFile(file, []byte("doc"), 0o600)

	old := readPassphrase
	readPassphrase = func(io.Writer, string) (string, error) { return "", nil }
	defer func() { readPassphrase = old }()

	if _, err := runCLI(t, "--evidence-root", root, "keys", "sign", "--key", prefix+".key", file); err == nil {
		t.Fatalf("expected signing with an encrypted key and no passphrase to fail")
	}

	readPassphrase = func(io.Writer, string) (string, error) { return "s3cret", nil }
	if _, err := runCLI(t, "--evidence-root", root, "keys", "sign", "--key", prefix+".key", file); err != nil {
		t.Fatalf("sign with prompted passphrase: %v", err)
	}
	sig, err := os.ReadFile(file + ".sig")
	if err != nil || len(sig) != ed25519.SignatureSize {
		t.Fatalf("expected raw signature, got %d bytes (%v)", len(sig), err)
	}
	pub, _ := hex.DecodeString(strings.TrimSpace(string(pubHex)))
	if !ed25519.Verify(pub, []byte("doc"), sig) {
		t.Fatalf("signature does not verify with the generated public key")
	}
}

func TestPIIScan(t *testing.T) {
	root := isolate(t)
	file := filepath.Join(t.TempDir(), "notes.txt")
	_ = os.WriteFile(file, []byte("contact alice@example.com from 10.0.0.1"), 0o600)

	out, err := runCLI(t, "--evidence-root", root, "pii", "scan", file)
	if err != nil {
		t.Fatalf("pii scan: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Email") || !strings.Contains(out, "IPAddress") {
		t.Fatalf("expected Email and IPAddress matches: %s", out)
	}
	if strings.Contains(out, "alice@example.com") {
		t.Fatalf("matches must be masked by default: %s", out)
	}

	events := filepath.Join(t.TempDir(), "events.json")
	if _, err := runCLI(t, "--evidence-root", root, "events", "export", "--type", "PIIDetected", events); err != nil {
		t.Fatalf("events export: %v", err)
	}
	data, err := os.ReadFile(events)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var exported []audit.Event
	if err := json.Unmarshal(data, &exported); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if len(exported) != 1 || exported[0].Type != audit.PIIDetected || exported[0].Severity != audit.Warning {
		t.Fatalf("unexpected exported events: %+v", exported)
	}
	if strings.Contains(string(data), "alice@example.com") {
		t.Fatalf("PII must not leak into the event trail")
	}

	clean := filepath.Join(t.TempDir(), "clean.txt")
	_ = os.WriteFile(clean, []byte("nothing to see"), 0o600)
	out, err = runCLI(t, "--evidence-root", root, "pii", "scan", clean)
	if err != nil || !strings.Contains(out, "No PII found") {
		t.Fatalf("clean scan: %v\n%s", err, out)
	}
}

func writeCert(t *testing.T, serial int64, cn string, from, to time.Time) []byte {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    from,
		NotAfter:     to,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, pub, priv)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func TestCertInspect(t *testing.T) {
	root := isolate(t)
	now := time.Now()
	pemBytes := append(writeCert(t, 255, "Root CA", now.Add(-time.Hour), now.Add(24*time.Hour)),
		writeCert(t, 4096, "Old CA", now.Add(-48*time.Hour), now.Add(-24*time.Hour))...)
	file := filepath.Join(t.TempDir(), "certs.pem")
	_ = os.WriteFile(file, pemBytes, 0o600)

	out, err := runCLI(t, "--evidence-root", root, "cert", "inspect", file)
	if err != nil {
		t.Fatalf("cert inspect: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Root CA") || !strings.Contains(out, "Old CA") {
		t.Fatalf("expected both certificates: %s", out)
	}

	out, err = runCLI(t, "--evidence-root", root, "cert", "inspect", "--expiring", "48h", file)
	if err != nil {
		t.Fatalf("cert inspect --expiring: %v", err)
	}
	if !strings.Contains(out, "Root CA") || strings.Contains(out, "Old CA") {
		t.Fatalf("expected only the certificate expiring in the window: %s", out)
	}
}

func TestCertInspect_DuplicateIsTranslated(t *testing.T) {
	root := isolate(t)
	now := time.Now()
	cert := writeCert(t, 77, "Dup CA", now.Add(-time.Hour), now.Add(time.Hour))
	file := filepath.Join(t.TempDir(), "dup.pem")
	_ = os.WriteFile(file, append(append([]byte(nil), cert...), cert...), 0o600)

	out, err := runCLI(t, "--evidence-root", root, "cert", "inspect", file)
	if err != nil {
		t.Fatalf("cert inspect: %v\n%s", err, out)
	}
	if !strings.Contains(out, "duplicate certificate") || !strings.Contains(out, "skipped") {
		t.Fatalf("expected the duplicate to be reported: %s", out)
	}

	t.Cleanup(func() { i18n.Init("en") })
	out, err = runCLI(t, "--evidence-root", root, "--lang", "de", "cert", "inspect", file)
	if err != nil {
		t.Fatalf("cert inspect --lang de: %v\n%s", err, out)
	}
	if !strings.Contains(out, "übersprungen") {
		t.Fatalf("expected the German duplicate message: %s", out)
	}
}

func TestEventsBrowse_UsesBrowser(t *testing.T) {
	root := isolate(t)
	file, sig, pub := signedFixture(t, root, "x.txt", "x")
	if _, err := runCLI(t, "--evidence-root", root, "evidence", "ingest", "--file", file, "--sig", sig, "--pubkey", pub); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	var got []audit.Event
	old := browseEvents
	browseEvents = func(events []audit.Event) error {
		got = events
		return nil
	}
	defer func() { browseEvents = old }()

	if _, err := runCLI(t, "--evidence-root", root, "events", "browse"); err != nil {
		t.Fatalf("browse: %v", err)
	}
	if len(got) != 1 || got[0].Type != audit.AuditTrail {
		t.Fatalf("expected the ingest event to be browsed, got %+v", got)
	}
}

func TestEventsList_Empty(t *testing.T) {
	root := isolate(t)
	out, err := runCLI(t, "--evidence-root", root, "events", "list")
	if err != nil || !strings.Contains(out, "No security events recorded.") {
		t.Fatalf("events list: %v\n%s", err, out)
	}
}

func TestReadKeyMaterialAndMasking(t *testing.T) {
	dir := t.TempDir()
	raw := make([]byte, ed25519.PublicKeySize)
	raw[0] = 0xab
	rawPath := filepath.Join(dir, "raw")
	hexPath := filepath.Join(dir, "hex")
	_ = os.WriteFile(rawPath, raw, 0o600)
	_ = os.WriteFile(hexPath, []byte(hex.EncodeToString(raw)+"\n"), 0o600)

	for _, p := range []string{rawPath, hexPath} {
		got, err := readKeyMaterial(p, ed25519.PublicKeySize)
		if err != nil || len(got) != ed25519.PublicKeySize || got[0] != 0xab {
			t.Fatalf("readKeyMaterial(%s) = %x, %v", p, got, err)
		}
	}
	if _, err := readKeyMaterial(filepath.Join(dir, "missing"), 32); err == nil {
		t.Fatalf("expected error for missing file")
	}

	tests := map[string]string{"": "", "ab": "**", "alice@example.com": "a***************m"}
	for in, want := range tests {
		if got := maskMatch(in); got != want {
			t.Fatalf("maskMatch(%q) = %q, want %q", in, got, want)
		}
	}
}
