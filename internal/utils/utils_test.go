package utils

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
)

// writeTestFile is a helper to write test files with 0644 permissions.
func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create test directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil { // #nosec G306
		t.Fatalf("Failed to create test file: %v", err)
	}
}

func notCiphertext(path string) bool {
	return !HasSuffixFold(path, ".ctx")
}

func TestResolveFiles_EmptyPatterns(t *testing.T) {
	_, err := ResolveFiles(nil, t.TempDir(), nil)
	if !errors.Is(err, cerrors.ErrNoFilesFound) {
		t.Fatalf("Expected ErrNoFilesFound, got: %v", err)
	}
}

func TestResolveFiles_LiteralFilesAlwaysKept(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, filepath.Join(tmpDir, "report.pdf"), "a")
	writeTestFile(t, filepath.Join(tmpDir, "old.pdf.ctx"), "b")

	files, err := ResolveFiles([]string{"report.pdf", "old.pdf.ctx", "report.pdf"}, tmpDir, notCiphertext)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 files after deduplication, got: %v", files)
	}
	if files[0] != filepath.Join(tmpDir, "report.pdf") {
		t.Errorf("Expected order of patterns to be kept, got: %v", files)
	}
}

func TestResolveFiles_Glob(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, filepath.Join(tmpDir, "a.txt"), "a")
	writeTestFile(t, filepath.Join(tmpDir, "nested", "deep", "b.txt"), "b")
	writeTestFile(t, filepath.Join(tmpDir, "nested", "b.txt.ctx"), "c")

	files, err := ResolveFiles([]string{"**/*"}, tmpDir, notCiphertext)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got: %v", files)
	}
	for _, f := range files {
		if strings.HasSuffix(f, ".ctx") {
			t.Errorf("Glob should have filtered %s", f)
		}
	}
}

func TestResolveFiles_DirectorySkipsHidden(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, filepath.Join(tmpDir, "docs", "a.txt"), "a")
	writeTestFile(t, filepath.Join(tmpDir, "docs", ".git", "HEAD"), "ref")

	files, err := ResolveFiles([]string{"docs"}, tmpDir, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "a.txt" {
		t.Errorf("Expected only docs/a.txt, got: %v", files)
	}
}

func TestResolveFiles_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := ResolveFiles([]string{"missing.txt"}, tmpDir, nil)
	if !errors.Is(err, cerrors.ErrFileNotFound) {
		t.Errorf("Expected ErrFileNotFound, got: %v", err)
	}

	_, err = ResolveFiles([]string{"*.nothing"}, tmpDir, nil)
	if !errors.Is(err, cerrors.ErrNoFilesFound) {
		t.Errorf("Expected ErrNoFilesFound, got: %v", err)
	}
}

func TestConfirmFrom(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yep\n", false},
	}

	for _, tc := range tests {
		t.Run(strings.TrimSpace(tc.input), func(t *testing.T) {
			var out bytes.Buffer
			got, err := ConfirmFrom(strings.NewReader(tc.input), &out, "Wipe?")
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("ConfirmFrom(%q) = %v, expected %v", tc.input, got, tc.expected)
			}
			if out.String() != "Wipe? [y/N]: " {
				t.Errorf("Unexpected prompt %q", out.String())
			}
		})
	}
}

func TestHasSuffixFold(t *testing.T) {
	if !HasSuffixFold("REPORT.CTX", ".ctx") {
		t.Error("Expected case-insensitive match")
	}
	if HasSuffixFold("ctx", ".ctx") {
		t.Error("Expected no match for a shorter string")
	}
}

func TestFormatPaths(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	got := FormatPaths([]string{"a", "b"})
	if got != "\n    - a\n    - b\n" {
		t.Errorf("Unexpected output %q", got)
	}
}

func TestGetUsername(t *testing.T) {
	name, err := GetUsername()
	if err != nil {
		t.Skipf("no user information available: %v", err)
	}
	if name == "" {
		t.Error("Expected non-empty username")
	}
}
