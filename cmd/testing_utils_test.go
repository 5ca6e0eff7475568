package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/PolarWolf314/x509crypt/internal/audit"
	"github.com/PolarWolf314/x509crypt/internal/configs"
	"github.com/PolarWolf314/x509crypt/internal/workflows"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// setupTestEnvironment points settings, stores and the audit log at a
// temporary directory and returns it.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()

	old := *configs.Settings
	configs.Settings.ConfigDir = filepath.Join(tempDir, "config")
	configs.Settings.ConfigPath = filepath.Join(tempDir, "config", "config.toml")
	configs.Settings.DataDir = filepath.Join(tempDir, "data")
	configs.Settings.Username = "testuser"
	t.Cleanup(func() {
		*configs.Settings = old
		audit.Configure(false, "")
		ResetGlobalState()
	})

	t.Setenv(configs.EnvMachineStore, filepath.Join(tempDir, "machine"))
	t.Setenv("NO_COLOR", "1")
	return tempDir
}

// createTestCert creates a small certificate in the CurrentUser store and
// returns its thumbprint.
func createTestCert(t *testing.T, cn string) string {
	t.Helper()
	c, err := workflows.CreateCert(context.Background(), workflows.CreateCertOptions{CommonName: cn, KeySize: 2048})
	if err != nil {
		t.Fatalf("CreateCert failed: %v", err)
	}
	return c.Thumbprint
}

// runCLI executes the root command with args and returns everything written
// to stdout and stderr.
func runCLI(args ...string) (string, error) {
	ResetGlobalState()
	resetFlags(RootCmd)
	if args == nil {
		args = []string{}
	}
	RootCmd.SetArgs(args)
	return captureOutput(func() error {
		_, err := RootCmd.ExecuteC()
		return err
	})
}

// resetFlags clears the Changed state left by earlier runs, so required flag
// checks see each run fresh.
func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	reader, writer, err := os.Pipe()
	if err != nil {
		return "", err
	}
	os.Stdout = writer
	os.Stderr = writer

	outputChan := make(chan string, 1)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, reader)
		outputChan <- buf.String()
	}()

	runErr := fn()

	writer.Close()
	os.Stdout = originalStdout
	os.Stderr = originalStderr

	return <-outputChan, runErr
}
