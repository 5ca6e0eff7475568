package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/PolarWolf314/x509crypt/internal/workflows"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var configShowJSON bool

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")
	configCmd.AddCommand(configShowCmd)
}

// resetConfigShowState resets the config show command's global state for testing.
func resetConfigShowState() {
	configShowJSON = false
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Displays the configuration in effect, including defaults and environment
overrides.

Examples:
  x509crypt config show
  x509crypt config show --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config show command")

		result, err := workflows.ShowConfig(context.Background())
		if err != nil {
			return showError(err)
		}
		Logger.Debugf("Config path %s (exists: %t)", result.Path, result.FileExists)

		if configShowJSON {
			output, err := json.MarshalIndent(result.Config, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to marshal config to JSON: %v", err)
			}
			fmt.Println(string(output))
			return nil
		}
		outputConfigText(result)
		return nil
	},
}

// outputConfigText outputs the config in human-readable format.
func outputConfigText(result *workflows.ConfigResult) {
	cfg := result.Config
	source := result.Path
	if !result.FileExists {
		source += ", not created yet"
	}
	fmt.Println(color.CyanString("Configuration") + " (" + source + "):")
	fmt.Println()

	fmt.Println(color.CyanString("Store:"))
	fmt.Printf("  %-18s %s\n", "Default location:", color.GreenString(cfg.Store.DefaultLocation))
	fmt.Printf("  %-18s %s\n", "CurrentUser:", color.YellowString(cfg.Store.UserPath))
	fmt.Printf("  %-18s %s\n", "LocalMachine:", color.YellowString(cfg.Store.MachinePath))

	fmt.Println(color.CyanString("Crypto:"))
	fmt.Printf("  %-18s %d bytes\n", "Chunk size:", cfg.Crypto.ChunkSize)
	fmt.Printf("  %-18s %d\n", "Wipe passes:", cfg.Crypto.WipePasses)

	fmt.Println(color.CyanString("Certificates:"))
	fmt.Printf("  %-18s %d bits\n", "Key size:", cfg.Certificate.KeySize)
	fmt.Printf("  %-18s %d days\n", "Validity:", cfg.Certificate.ValidityDays)

	fmt.Println(color.CyanString("Audit:"))
	fmt.Printf("  %-18s %t\n", "Enabled:", cfg.Audit.Enabled)
	if cfg.Audit.Enabled {
		fmt.Printf("  %-18s %s\n", "Log:", color.YellowString(cfg.Audit.Path))
	}

	if !result.FileExists {
		fmt.Println()
		fmt.Println(color.CyanString("→") + " Run " + color.YellowString("x509crypt config init") + " to write these defaults to a file")
	}
}
