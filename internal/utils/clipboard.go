package utils

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// ClipboardTarget is the --in/--out value that selects the system clipboard.
const ClipboardTarget = "clipboard"

// WriteClipboard replaces the clipboard contents with text.
func WriteClipboard(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard is not supported on this system")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}

// ReadClipboard returns the current clipboard contents.
func ReadClipboard() (string, error) {
	if clipboard.Unsupported {
		return "", fmt.Errorf("clipboard is not supported on this system")
	}
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	return text, nil
}
