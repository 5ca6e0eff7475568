package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage x509crypt configuration",
	Long: `Provides commands for viewing and creating the configuration file.

Settings are read from the config file, then overridden by X509CRYPT_*
environment variables.

Examples:
  # Show the effective configuration
  x509crypt config show

  # Write a config file with the defaults
  x509crypt config init`,
}

// resetConfigCommandState resets all config command global variables for testing.
func resetConfigCommandState() {
	resetConfigShowState()
	resetConfigInitState()
	resetConfigCobraFlagState()
}

// resetConfigCobraFlagState resets the flag state for all config commands to prevent test pollution.
func resetConfigCobraFlagState() {
	for _, c := range configCmd.Commands() {
		c.Flags().VisitAll(func(flag *pflag.Flag) {
			flag.Changed = false
		})
	}
}
