package cmd

import (
	"errors"
	"fmt"

	"github.com/PolarWolf314/x509crypt/internal/audit"
	"github.com/PolarWolf314/x509crypt/internal/configs"
	logger "github.com/PolarWolf314/x509crypt/internal/logging"
	"github.com/PolarWolf314/x509crypt/internal/workflows"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	debug   bool
	Logger  logger.Logger

	RootCmd = &cobra.Command{
		Use:   "x509crypt",
		Short: "Encrypt text and files for X.509 certificates",
		Long: `x509crypt encrypts text and files with a fresh AES-256 key that is wrapped
for the RSA public key of a certificate. Only the holder of the matching
private key can decrypt the result.

Certificates live in a local store with two locations, CurrentUser and
LocalMachine, and are selected by their SHA-1 thumbprint.

Examples:
  x509crypt cert create --cn backup
  x509crypt encrypt text --thumb 3F2A... "attack at dawn"
  x509crypt encrypt file --thumb 3F2A... report.pdf
  x509crypt decrypt file --thumb 3F2A... --wipe report.pdf.ctx`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			workflows.Logger = Logger
			Logger.Debugf("Initializing %s with verbose=%t, debug=%t", cmd.CommandPath(), verbose, debug)

			cfg, err := configs.Load()
			if err != nil {
				return Logger.ErrorfAndReturn("failed to load config: %v", err)
			}
			audit.Configure(cfg.Audit.Enabled, cfg.Audit.Path)
			Logger.Debugf("Audit logging enabled=%t path=%s", cfg.Audit.Enabled, cfg.Audit.Path)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(figure.NewFigure("x509crypt", "", true).String())
			return cmd.Help()
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	RootCmd.AddCommand(encryptCmd)
	RootCmd.AddCommand(decryptCmd)
	RootCmd.AddCommand(reencryptCmd)
	RootCmd.AddCommand(certCmd)
	RootCmd.AddCommand(logCmd)
	RootCmd.AddCommand(configCmd)
}

// Execute runs the root command. Errors already shown to the user are not
// printed a second time.
func Execute() error {
	err := RootCmd.Execute()
	if err != nil {
		var shown *reportedError
		if !errors.As(err, &shown) {
			fmt.Println(err)
		}
	}
	return err
}

// Helper functions for testing

// GetRootCmd returns the RootCmd for testing.
func GetRootCmd() *cobra.Command {
	return RootCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	resetEncryptCommandState()
	resetDecryptCommandState()
	resetReencryptCommandState()
	resetCertCommandState()
	resetLogCommandState()
	resetConfigCommandState()
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
