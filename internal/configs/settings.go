package configs

import (
	"log"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/x509crypt/internal/utils"
)

// UserSettings holds per-user paths resolved at startup.
type UserSettings struct {
	ConfigDir  string
	ConfigPath string
	DataDir    string
	Username   string
}

// Settings is independent of the working directory, so it is resolved once in
// init. Tests point its fields at temporary directories.
var Settings *UserSettings

func init() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("error getting home directory: %s", err)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("error getting config directory: %s", err)
	}

	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	username, err := utils.GetUsername()
	if err != nil {
		username = "unknown"
	}

	Settings = &UserSettings{
		ConfigDir:  filepath.Join(configDir, "x509crypt"),
		ConfigPath: filepath.Join(configDir, "x509crypt", "config.toml"),
		DataDir:    filepath.Join(dataDir, "x509crypt"),
		Username:   username,
	}
}
