package cmd

import (
	"context"

	"github.com/PolarWolf314/x509crypt/internal/ui"
	"github.com/PolarWolf314/x509crypt/internal/workflows"
	"github.com/spf13/cobra"
)

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "replace an existing config file")
	configCmd.AddCommand(configInitCmd)
}

// resetConfigInitState resets the config init command's global state for testing.
func resetConfigInitState() {
	configInitForce = false
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Long: `Creates the config file with every setting at its default value, ready to
edit. An existing file is kept unless --force is given.

Examples:
  x509crypt config init
  x509crypt config init --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config init command")

		result, err := workflows.InitConfig(context.Background(), workflows.InitConfigOptions{
			Force: configInitForce,
		})
		if err != nil {
			return showError(err)
		}
		printSuccess("Config written to " + ui.Path.Sprint(result.Path))
		return nil
	},
}
