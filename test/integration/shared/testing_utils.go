// Package shared contains testing utilities shared between integration tests.
// This file provides common functions for setting up isolated stores, running
// the CLI and capturing its output.
package shared

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PolarWolf314/x509crypt/cmd"
	"github.com/PolarWolf314/x509crypt/internal/audit"
	"github.com/PolarWolf314/x509crypt/internal/configs"
	logger "github.com/PolarWolf314/x509crypt/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// SetupTestEnvironment points the config, both store locations and the audit
// log at a fresh temporary directory, and returns that directory.
func SetupTestEnvironment(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()

	originalSettings := *configs.Settings
	t.Cleanup(func() {
		*configs.Settings = originalSettings
		audit.Configure(false, "")
		cmd.ResetGlobalState()
	})

	configs.Settings.ConfigDir = filepath.Join(tempDir, "config")
	configs.Settings.ConfigPath = filepath.Join(tempDir, "config", "config.toml")
	configs.Settings.DataDir = filepath.Join(tempDir, "data")
	configs.Settings.Username = "testuser"

	t.Setenv(configs.EnvMachineStore, filepath.Join(tempDir, "machine"))
	t.Setenv("NO_COLOR", "1")
	return tempDir
}

// CaptureOutput captures both stdout and stderr during function execution.
func CaptureOutput(fn func() error) (string, error) {
	// Save original stdout and stderr
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	// Create pipes to capture output
	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	outputChan := make(chan string, 2)

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stdoutReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stderrReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	err := fn()

	// Close writers to signal EOF
	stdoutWriter.Close()
	stderrWriter.Close()

	os.Stdout = originalStdout
	os.Stderr = originalStderr

	stdout := <-outputChan
	stderr := <-outputChan

	return stdout + stderr, err
}

// RunCLI runs the real root command with args and returns its output.
func RunCLI(args ...string) (string, error) {
	cmd.ResetGlobalState()
	cmd.SetLogger(logger.Logger{})

	root := cmd.GetRootCmd()
	resetFlags(root)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)

	return CaptureOutput(func() error {
		_, err := root.ExecuteC()
		return err
	})
}

func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// CreateCert creates a 2048-bit certificate through the CLI and returns its
// thumbprint.
func CreateCert(t *testing.T, cn string, extraArgs ...string) string {
	t.Helper()
	args := append([]string{"cert", "create", "--cn", cn, "--key-size", "2048"}, extraArgs...)
	if output, err := RunCLI(args...); err != nil {
		t.Fatalf("cert create failed: %v\n%s", err, output)
	}

	output, err := RunCLI("cert", "list", "--all", "--json")
	if err != nil {
		t.Fatalf("cert list failed: %v\n%s", err, output)
	}
	var entries []struct {
		Thumbprint string `json:"thumbprint"`
		Subject    string `json:"subject"`
	}
	if err := json.Unmarshal([]byte(output), &entries); err != nil {
		t.Fatalf("Failed to parse cert list: %v\n%s", err, output)
	}
	for _, e := range entries {
		if strings.Contains(e.Subject, "CN="+cn) {
			return e.Thumbprint
		}
	}
	t.Fatalf("Certificate %q not found in store", cn)
	return ""
}

// WriteFile writes content to a file under dir, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}
