package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
)

func TestRootShowsHelp(t *testing.T) {
	setupTestEnvironment(t)

	output, err := runCLI()
	if err != nil {
		t.Fatalf("root command failed: %v", err)
	}
	if !strings.Contains(output, "Usage:") {
		t.Errorf("Expected usage in output, got: %s", output)
	}
	for _, sub := range []string{"encrypt", "decrypt", "reencrypt", "cert", "log", "config"} {
		if !strings.Contains(output, sub) {
			t.Errorf("Expected %q in help output", sub)
		}
	}
}

func TestEncryptDecryptText(t *testing.T) {
	setupTestEnvironment(t)
	thumb := createTestCert(t, "text")

	output, err := runCLI("encrypt", "text", "--thumb", strings.ToLower(thumb), "attack at dawn")
	if err != nil {
		t.Fatalf("encrypt text failed: %v\n%s", err, output)
	}
	envelope := strings.TrimSpace(output)
	if envelope == "" || strings.Contains(envelope, "attack") {
		t.Fatalf("Expected an opaque envelope, got %q", envelope)
	}

	output, err = runCLI("decrypt", "text", "--thumb", thumb, envelope)
	if err != nil {
		t.Fatalf("decrypt text failed: %v\n%s", err, output)
	}
	if strings.TrimSpace(output) != "attack at dawn" {
		t.Errorf("Expected plaintext, got %q", output)
	}
}

func TestEncryptTextRequiresThumb(t *testing.T) {
	setupTestEnvironment(t)

	_, err := runCLI("encrypt", "text", "hello")
	if err == nil || !strings.Contains(err.Error(), "required flag") {
		t.Errorf("Expected required flag error, got %v", err)
	}
}

func TestUnknownThumbprint(t *testing.T) {
	setupTestEnvironment(t)

	output, err := runCLI("encrypt", "text", "--thumb", strings.Repeat("AB", 20), "hello")
	if !errors.Is(err, cerrors.ErrCertificateNotFound) {
		t.Fatalf("Expected ErrCertificateNotFound, got %v", err)
	}
	var shown *reportedError
	if !errors.As(err, &shown) {
		t.Errorf("Expected the error to be marked as reported")
	}
	if !strings.Contains(output, "x509crypt cert list") {
		t.Errorf("Expected a hint to list certificates, got: %s", output)
	}
}

func TestDecryptTextRefusesExistingOutput(t *testing.T) {
	tempDir := setupTestEnvironment(t)
	thumb := createTestCert(t, "overwrite")

	output, err := runCLI("encrypt", "text", "--thumb", thumb, "secret")
	if err != nil {
		t.Fatalf("encrypt text failed: %v", err)
	}
	envelope := strings.TrimSpace(output)

	out := filepath.Join(tempDir, "plain.txt")
	if err := os.WriteFile(out, []byte("keep me"), 0600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	_, err = runCLI("decrypt", "text", "--thumb", thumb, "--out", out, envelope)
	if !errors.Is(err, cerrors.ErrOutputExists) {
		t.Fatalf("Expected ErrOutputExists, got %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "keep me" {
		t.Errorf("Existing file was modified: %q", data)
	}

	if _, err := runCLI("decrypt", "text", "--thumb", thumb, "--out", out, "--overwrite", envelope); err != nil {
		t.Fatalf("decrypt with --overwrite failed: %v", err)
	}
	data, _ = os.ReadFile(out)
	if string(data) != "secret" {
		t.Errorf("Expected decrypted text in file, got %q", data)
	}
}

func TestEncryptDecryptFileWithWipe(t *testing.T) {
	tempDir := setupTestEnvironment(t)
	thumb := createTestCert(t, "files")

	plain := filepath.Join(tempDir, "report.txt")
	if err := os.WriteFile(plain, []byte("quarterly numbers"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	output, err := runCLI("encrypt", "file", "--thumb", thumb, plain)
	if err != nil {
		t.Fatalf("encrypt file failed: %v\n%s", err, output)
	}
	envelope := plain + ".ctx"
	if _, err := os.Stat(envelope); err != nil {
		t.Fatalf("Expected %s to exist: %v", envelope, err)
	}
	if !strings.Contains(output, "were not modified") {
		t.Errorf("Expected success message, got: %s", output)
	}

	if err := os.Remove(plain); err != nil {
		t.Fatalf("Failed to remove plaintext: %v", err)
	}

	output, err = runCLI("decrypt", "file", "--thumb", thumb, "--wipe", "--quiet", "--passes", "2", envelope)
	if err != nil {
		t.Fatalf("decrypt file failed: %v\n%s", err, output)
	}
	data, err := os.ReadFile(plain)
	if err != nil {
		t.Fatalf("Expected decrypted file: %v", err)
	}
	if string(data) != "quarterly numbers" {
		t.Errorf("Unexpected plaintext %q", data)
	}
	if _, err := os.Stat(envelope); !os.IsNotExist(err) {
		t.Errorf("Expected envelope to be wiped, stat error: %v", err)
	}
	if !strings.Contains(output, "wiped with 2 passes") {
		t.Errorf("Expected wipe message, got: %s", output)
	}
}

func TestDecryptFileRejectsNegativePasses(t *testing.T) {
	setupTestEnvironment(t)
	thumb := createTestCert(t, "passes")

	_, err := runCLI("decrypt", "file", "--thumb", thumb, "--wipe", "--quiet", "--passes=-1", "missing.ctx")
	if !errors.Is(err, cerrors.ErrInvalidPassCount) {
		t.Errorf("Expected ErrInvalidPassCount, got %v", err)
	}
}

func TestReencryptText(t *testing.T) {
	setupTestEnvironment(t)
	oldThumb := createTestCert(t, "old")
	newThumb := createTestCert(t, "new")

	output, err := runCLI("encrypt", "text", "--thumb", oldThumb, "rotate me")
	if err != nil {
		t.Fatalf("encrypt text failed: %v", err)
	}

	output, err = runCLI("reencrypt", "text", "--old-thumb", oldThumb, "--new-thumb", newThumb, strings.TrimSpace(output))
	if err != nil {
		t.Fatalf("reencrypt text failed: %v\n%s", err, output)
	}
	moved := strings.TrimSpace(output)

	if _, err := runCLI("decrypt", "text", "--thumb", oldThumb, moved); !errors.Is(err, cerrors.ErrDecryptionFailed) {
		t.Errorf("Expected the old certificate to fail, got %v", err)
	}
	output, err = runCLI("decrypt", "text", "--thumb", newThumb, moved)
	if err != nil {
		t.Fatalf("decrypt with new certificate failed: %v", err)
	}
	if strings.TrimSpace(output) != "rotate me" {
		t.Errorf("Unexpected plaintext %q", output)
	}
}

func TestReencryptFileInPlace(t *testing.T) {
	tempDir := setupTestEnvironment(t)
	oldThumb := createTestCert(t, "old")
	newThumb := createTestCert(t, "new")

	plain := filepath.Join(tempDir, "notes.txt")
	if err := os.WriteFile(plain, []byte("notes"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := runCLI("encrypt", "file", "--thumb", oldThumb, plain); err != nil {
		t.Fatalf("encrypt file failed: %v", err)
	}

	envelope := plain + ".ctx"
	if output, err := runCLI("reencrypt", "file", "--old-thumb", oldThumb, "--new-thumb", newThumb, envelope); err != nil {
		t.Fatalf("reencrypt file failed: %v\n%s", err, output)
	}

	out := filepath.Join(tempDir, "notes.out")
	if _, err := runCLI("decrypt", "file", "--thumb", newThumb, "--out", out, envelope); err != nil {
		t.Fatalf("decrypt file failed: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "notes" {
		t.Errorf("Unexpected plaintext %q", data)
	}
}

func TestCertCommands(t *testing.T) {
	tempDir := setupTestEnvironment(t)

	output, err := runCLI("cert", "create", "--cn", "cli-cert", "--key-size", "2048")
	if err != nil {
		t.Fatalf("cert create failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "cli-cert") {
		t.Errorf("Expected subject in output, got: %s", output)
	}

	output, err = runCLI("cert", "list", "--json")
	if err != nil {
		t.Fatalf("cert list failed: %v", err)
	}
	var entries []certJSONEntry
	if err := json.Unmarshal([]byte(output), &entries); err != nil {
		t.Fatalf("Failed to parse list output: %v\n%s", err, output)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 certificate, got %d", len(entries))
	}
	thumb := entries[0].Thumbprint
	if !entries[0].HasPrivateKey || entries[0].Location != "CurrentUser" {
		t.Errorf("Unexpected entry %+v", entries[0])
	}

	exported := filepath.Join(tempDir, "cert.pem")
	if _, err := runCLI("cert", "export", "--thumb", thumb, "--out", exported); err != nil {
		t.Fatalf("cert export failed: %v", err)
	}

	output, err = runCLI("cert", "import", "--store", "LocalMachine", exported)
	if err != nil {
		t.Fatalf("cert import failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "can only encrypt") {
		t.Errorf("Expected a public-only note, got: %s", output)
	}

	output, err = runCLI("cert", "list")
	if err != nil {
		t.Fatalf("cert list failed: %v", err)
	}
	if strings.Count(output, thumb) != 2 {
		t.Errorf("Expected the thumbprint in both locations, got: %s", output)
	}

	if _, err := runCLI("cert", "remove", "--thumb", thumb, "--store", "LocalMachine"); err != nil {
		t.Fatalf("cert remove failed: %v", err)
	}
	_, err = runCLI("cert", "remove", "--thumb", thumb, "--store", "LocalMachine")
	if !errors.Is(err, cerrors.ErrCertificateNotFound) {
		t.Errorf("Expected ErrCertificateNotFound on second remove, got %v", err)
	}
}

func TestCertListEmpty(t *testing.T) {
	setupTestEnvironment(t)

	output, err := runCLI("cert", "list")
	if err != nil {
		t.Fatalf("cert list failed: %v", err)
	}
	if !strings.Contains(output, "No certificates found") {
		t.Errorf("Expected empty store message, got: %s", output)
	}
}

func TestInvalidStoreFlag(t *testing.T) {
	setupTestEnvironment(t)

	_, err := runCLI("cert", "list", "--store", "Nowhere")
	if err == nil {
		t.Fatal("Expected an error for an unknown store location")
	}
	var shown *reportedError
	if errors.As(err, &shown) {
		t.Errorf("Flag errors should be left for Execute to print")
	}
}

func TestLogCommand(t *testing.T) {
	setupTestEnvironment(t)
	thumb := createTestCert(t, "audited")

	if _, err := runCLI("encrypt", "text", "--thumb", thumb, "logged"); err != nil {
		t.Fatalf("encrypt text failed: %v", err)
	}

	output, err := runCLI("log", "--oneline", "--thumb", strings.ToLower(thumb))
	if err != nil {
		t.Fatalf("log failed: %v", err)
	}
	if !strings.Contains(output, "encrypt-text") || !strings.Contains(output, "testuser") {
		t.Errorf("Expected encrypt-text entry, got: %s", output)
	}

	output, err = runCLI("log", "--operation", "decrypt")
	if err != nil {
		t.Fatalf("log failed: %v", err)
	}
	if !strings.Contains(output, "matching the filters") {
		t.Errorf("Expected no matches, got: %s", output)
	}

	_, err = runCLI("log", "--since", "yesterday")
	if !errors.Is(err, cerrors.ErrInvalidDateFormat) {
		t.Errorf("Expected ErrInvalidDateFormat, got %v", err)
	}
}

func TestConfigCommands(t *testing.T) {
	setupTestEnvironment(t)

	output, err := runCLI("config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(output, "not created yet") {
		t.Errorf("Expected missing file note, got: %s", output)
	}

	if _, err := runCLI("config", "init"); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	_, err = runCLI("config", "init")
	if !errors.Is(err, cerrors.ErrOutputExists) {
		t.Errorf("Expected ErrOutputExists, got %v", err)
	}
	if _, err := runCLI("config", "init", "--force"); err != nil {
		t.Errorf("config init --force failed: %v", err)
	}

	output, err = runCLI("config", "show", "--json")
	if err != nil {
		t.Fatalf("config show --json failed: %v", err)
	}
	var cfg map[string]any
	if err := json.Unmarshal([]byte(output), &cfg); err != nil {
		t.Fatalf("Failed to parse config JSON: %v\n%s", err, output)
	}
	if _, ok := cfg["Crypto"]; !ok {
		t.Errorf("Expected Crypto section, got %v", cfg)
	}
}
