package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
	"github.com/PolarWolf314/x509crypt/internal/ui"
	"github.com/PolarWolf314/x509crypt/internal/utils"
	"github.com/briandowns/spinner"
)

// reportedError marks an error whose message was already printed, so the
// process exits non-zero without repeating it.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

// showError prints err for the user and returns it marked as reported.
func showError(err error) error {
	printLine(formatError(err))
	return reported(err)
}

func printSuccess(msg string) {
	printLine(ui.Success.Sprint("✓") + " " + msg)
}

func printLine(msg string) {
	Logger.Debugf("Output: %s", msg)
	fmt.Print(ui.EnsureNewline(msg))
}

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	quiet := !verbose && !debug
	if quiet {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if quiet {
			log.SetOutput(os.Stdout)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if quiet {
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// formatError turns a workflow error into the message shown to the user.
func formatError(err error) string {
	var capErr *cerrors.CapabilityError
	var wipeErr *cerrors.WipeError
	var ioErr *cerrors.IOError

	switch {
	case errors.As(err, &capErr):
		hint := "import the certificate together with its private key"
		if capErr.Capability == "encrypt" {
			hint = "the certificate has no usable public key"
		}
		return ui.Error.Sprint("✗") + " Certificate " + ui.Thumbprint.Sprint(capErr.Alias) +
			" cannot " + capErr.Capability + "\n" +
			ui.Info.Sprint("→") + " " + hint

	case errors.As(err, &wipeErr):
		return ui.Warning.Sprint("⚠") + " Decrypted, but the ciphertext could not be wiped: " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Remove " + ui.Path.Sprint(wipeErr.Path) + " manually"

	case errors.Is(err, cerrors.ErrCertificateNotFound):
		return ui.Error.Sprint("✗") + " " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("x509crypt cert list") + " to see available certificates"

	case errors.Is(err, cerrors.ErrInvalidThumbprint):
		return ui.Error.Sprint("✗") + " " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " A thumbprint is 40 hex characters, as shown by " + ui.Code.Sprint("x509crypt cert list")

	case errors.Is(err, cerrors.ErrUnwrapFailed):
		return ui.Error.Sprint("✗") + " The data was not encrypted for this certificate\n" +
			ui.Muted.Sprint(err.Error())

	case errors.Is(err, cerrors.ErrDecryptionFailed):
		return ui.Error.Sprint("✗") + " Decryption failed: the input is corrupt or was encrypted for another certificate\n" +
			ui.Muted.Sprint(err.Error())

	case errors.Is(err, cerrors.ErrOutputExists):
		return ui.Error.Sprint("✗") + " " + err.Error()

	case errors.Is(err, cerrors.ErrConfirmationDeclined):
		return ui.Warning.Sprint("⚠") + " Cancelled, nothing was changed"

	case errors.Is(err, cerrors.ErrNoFilesFound), errors.Is(err, cerrors.ErrFileNotFound):
		return ui.Error.Sprint("✗") + " " + err.Error()

	case errors.As(err, &ioErr):
		return ui.Error.Sprint("✗") + " Could not " + phaseVerb(ioErr.Phase) + " " + ui.Path.Sprint(ioErr.Path) + ": " + ioErr.Err.Error()

	case errors.Is(err, cerrors.ErrEntropySource):
		return ui.Error.Sprint("✗") + " The system random source failed, nothing was encrypted"

	default:
		return ui.Error.Sprint("✗") + " " + err.Error()
	}
}

func phaseVerb(p cerrors.Phase) string {
	switch p {
	case cerrors.PhaseReadSource:
		return "read"
	case cerrors.PhaseWriteOutput:
		return "write"
	default:
		return "wipe"
	}
}

// readText returns the text argument, or the input named by in: "clipboard",
// "-" for stdin, or a file path.
func readText(args []string, in string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	switch in {
	case utils.ClipboardTarget:
		return utils.ReadClipboard()
	case "", "-":
		data, err := utils.ReadStdin()
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(in)
		if err != nil {
			return "", fmt.Errorf("%w: %s", cerrors.ErrFileNotFound, in)
		}
		return string(data), nil
	}
}

// checkTextOutput refuses an existing output file before any work is done.
func checkTextOutput(out string, overwrite bool) error {
	if out == "" || out == utils.ClipboardTarget || overwrite {
		return nil
	}
	if utils.FileExists(out) {
		return fmt.Errorf("%w: %s (use --overwrite to replace it)", cerrors.ErrOutputExists, out)
	}
	return nil
}

// writeText sends text to out: "" for the console, "clipboard", or a file path.
func writeText(text, out string) error {
	switch out {
	case "":
		fmt.Println(text)
		return nil
	case utils.ClipboardTarget:
		return utils.WriteClipboard(text)
	default:
		if err := os.WriteFile(out, []byte(text), 0600); err != nil {
			return cerrors.NewIOError(cerrors.PhaseWriteOutput, out, err)
		}
		return nil
	}
}

// textTarget is the name recorded in the audit log for out.
func textTarget(out string) string {
	if out == "" {
		return "console"
	}
	return out
}
