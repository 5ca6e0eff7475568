package cmd

import (
	"context"

	"github.com/PolarWolf314/x509crypt/internal/alias"
	"github.com/PolarWolf314/x509crypt/internal/ui"
	"github.com/PolarWolf314/x509crypt/internal/utils"
	"github.com/PolarWolf314/x509crypt/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	encryptThumb     string
	encryptStore     alias.Location
	encryptIn        string
	encryptOut       string
	encryptOverwrite bool
)

func init() {
	for _, c := range []*cobra.Command{encryptTextCmd, encryptFileCmd} {
		c.Flags().StringVarP(&encryptThumb, "thumb", "t", "", "thumbprint of the certificate to encrypt for")
		c.Flags().VarP(&encryptStore, "store", "s", "store location (CurrentUser or LocalMachine)")
		c.Flags().StringVarP(&encryptOut, "out", "o", "", "output destination")
		c.Flags().BoolVar(&encryptOverwrite, "overwrite", false, "replace existing output files")
		_ = c.MarkFlagRequired("thumb")
	}
	encryptTextCmd.Flags().StringVarP(&encryptIn, "in", "i", "", "read text from a file, - for stdin, or clipboard")
	encryptFileCmd.Flags().StringVarP(&encryptIn, "in", "i", "", "file to encrypt, in addition to any arguments")

	encryptCmd.AddCommand(encryptTextCmd)
	encryptCmd.AddCommand(encryptFileCmd)
}

// resetEncryptCommandState resets the encrypt command's global state for testing.
func resetEncryptCommandState() {
	encryptThumb = ""
	encryptStore = ""
	encryptIn = ""
	encryptOut = ""
	encryptOverwrite = false
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt text or files for a certificate",
}

var encryptTextCmd = &cobra.Command{
	Use:   "text [text]",
	Short: "Encrypt text into a base64 envelope",
	Long: `Encrypts text for the certificate with the given thumbprint and prints the
result as base64.

The text comes from the argument, from --in (a file, - for stdin, or
clipboard), or from stdin. With --out clipboard the result is copied to the
clipboard instead of printed.

Examples:
  x509crypt encrypt text --thumb 3F2A... "attack at dawn"
  echo "attack at dawn" | x509crypt encrypt text --thumb 3F2A...
  x509crypt encrypt text --thumb 3F2A... --in clipboard --out clipboard`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting encrypt text command")

		if err := checkTextOutput(encryptOut, encryptOverwrite); err != nil {
			return showError(err)
		}
		text, err := readText(args, encryptIn)
		if err != nil {
			return showError(err)
		}
		Logger.Debugf("Read %d bytes of text", len(text))

		result, err := workflows.EncryptText(context.Background(), workflows.TextOptions{
			Thumbprint: encryptThumb,
			Location:   encryptStore,
			Text:       text,
			Target:     textTarget(encryptOut),
		})
		if err != nil {
			return showError(err)
		}

		if err := writeText(result.Text, encryptOut); err != nil {
			return showError(err)
		}
		if encryptOut != "" {
			printSuccess("Text encrypted for " + ui.Thumbprint.Sprint(result.Thumbprint) + " and written to " + ui.Path.Sprint(encryptOut))
		}
		return nil
	},
}

var encryptFileCmd = &cobra.Command{
	Use:   "file [paths or globs...]",
	Short: "Encrypt files into .ctx envelopes",
	Long: `Encrypts each file for the certificate with the given thumbprint. The
envelope is written next to the original with a .ctx extension; the original
is left untouched.

Arguments may be files, directories or globs (** is supported). Directories and
globs skip files that are already .ctx envelopes.

Examples:
  x509crypt encrypt file --thumb 3F2A... report.pdf
  x509crypt encrypt file --thumb 3F2A... "docs/**/*.xlsx"
  x509crypt encrypt file --thumb 3F2A... --in report.pdf --out /backup/report.ctx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting encrypt file command")
		patterns := args
		if encryptIn != "" {
			patterns = append([]string{encryptIn}, patterns...)
		}
		Logger.Debugf("Patterns: %v", patterns)

		spinner, cleanup := startSpinner("Encrypting files...")
		defer cleanup()

		result, err := workflows.EncryptFiles(context.Background(), workflows.EncryptFilesOptions{
			Thumbprint: encryptThumb,
			Location:   encryptStore,
			Patterns:   patterns,
			Output:     encryptOut,
			Overwrite:  encryptOverwrite,
		})
		if err != nil {
			msg := formatError(err)
			if result != nil && len(result.Files) > 0 {
				msg = ui.Warning.Sprint("⚠") + " Encrypted before the failure:" + utils.FormatPaths(outputs(result.Files)) + msg
			}
			spinner.FinalMSG = msg
			return reported(err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Files encrypted for " + ui.Thumbprint.Sprint(result.Thumbprint) + "\n" +
			"The following files were created:" + utils.FormatPaths(outputs(result.Files)) +
			ui.Info.Sprint("→") + " The original files were not modified"
		return nil
	},
}

func outputs(files []workflows.FileResult) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Output
	}
	return paths
}
