package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/PolarWolf314/x509crypt/internal/configs"
	"github.com/google/uuid"
)

// Entry represents a single audit log entry.
type Entry struct {
	ID        string `json:"id"`   // Random UUID.
	Timestamp string `json:"ts"`   // RFC3339 with microseconds.
	User      string `json:"user"` // OS user performing the action.
	Operation string `json:"op"`   // Operation name.

	// Optional fields depending on operation.
	Thumbprint    string   `json:"thumbprint,omitempty"`     // Alias used.
	NewThumbprint string   `json:"new_thumbprint,omitempty"` // For reencrypt.
	Location      string   `json:"location,omitempty"`       // Store location.
	Files         []string `json:"files,omitempty"`          // For file operations.
	OutputPath    string   `json:"output_path,omitempty"`    // For file operations and export.
	WipePasses    int      `json:"wipe_passes,omitempty"`    // For decrypt with wipe.
	Subject       string   `json:"subject,omitempty"`        // For cert create/import.
	Target        string   `json:"target,omitempty"`         // "clipboard" or "console" for text output.
}

var (
	mu      sync.Mutex
	enabled = true
	logPath string
)

// Configure sets where entries are written. An empty path disables logging.
func Configure(on bool, path string) {
	mu.Lock()
	defer mu.Unlock()
	enabled = on
	logPath = path
}

// Log appends an entry to the audit log.
// Operations should not fail just because audit logging failed, so errors are dropped.
func Log(entry Entry) {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	mu.Lock()
	defer mu.Unlock()
	if !enabled || logPath == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = f.Write(append(data, '\n'))
}

// LogWithUser returns an entry for op with the user field populated.
func LogWithUser(op string) Entry {
	user := ""
	if configs.Settings != nil {
		user = configs.Settings.Username
	}
	return Entry{Operation: op, User: user}
}

// LogPath returns the path to the audit log file, or "" when logging is off.
func LogPath() string {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return ""
	}
	return logPath
}

// ReadEntries reads all entries from the audit log.
// Returns an empty slice if the log doesn't exist.
func ReadEntries() ([]Entry, error) {
	path := LogPath()
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
