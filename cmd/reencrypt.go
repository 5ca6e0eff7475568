package cmd

import (
	"context"

	"github.com/PolarWolf314/x509crypt/internal/alias"
	"github.com/PolarWolf314/x509crypt/internal/ui"
	"github.com/PolarWolf314/x509crypt/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	reencryptOldThumb  string
	reencryptNewThumb  string
	reencryptOldStore  alias.Location
	reencryptNewStore  alias.Location
	reencryptIn        string
	reencryptOut       string
	reencryptOverwrite bool
)

func init() {
	for _, c := range []*cobra.Command{reencryptTextCmd, reencryptFileCmd} {
		c.Flags().StringVar(&reencryptOldThumb, "old-thumb", "", "thumbprint of the certificate the data is encrypted for")
		c.Flags().StringVar(&reencryptNewThumb, "new-thumb", "", "thumbprint of the certificate to encrypt for")
		c.Flags().Var(&reencryptOldStore, "old-store", "store location of the old certificate")
		c.Flags().Var(&reencryptNewStore, "new-store", "store location of the new certificate")
		c.Flags().StringVarP(&reencryptOut, "out", "o", "", "output destination")
		c.Flags().BoolVar(&reencryptOverwrite, "overwrite", false, "replace an existing output file")
		_ = c.MarkFlagRequired("old-thumb")
		_ = c.MarkFlagRequired("new-thumb")
	}
	reencryptTextCmd.Flags().StringVarP(&reencryptIn, "in", "i", "", "read the envelope from a file, - for stdin, or clipboard")
	reencryptFileCmd.Flags().StringVarP(&reencryptIn, "in", "i", "", "envelope file to re-encrypt")

	reencryptCmd.AddCommand(reencryptTextCmd)
	reencryptCmd.AddCommand(reencryptFileCmd)
}

// resetReencryptCommandState resets the reencrypt command's global state for testing.
func resetReencryptCommandState() {
	reencryptOldThumb = ""
	reencryptNewThumb = ""
	reencryptOldStore = ""
	reencryptNewStore = ""
	reencryptIn = ""
	reencryptOut = ""
	reencryptOverwrite = false
}

var reencryptCmd = &cobra.Command{
	Use:   "reencrypt",
	Short: "Move encrypted data from one certificate to another",
	Long: `Decrypts data with the old certificate's private key and encrypts it again for
the new certificate. The plaintext never touches the disk.

Use this before retiring or rotating a certificate.`,
}

var reencryptTextCmd = &cobra.Command{
	Use:   "text [envelope]",
	Short: "Re-encrypt a base64 envelope",
	Long: `Re-encrypts a base64 envelope for another certificate.

Examples:
  x509crypt reencrypt text --old-thumb 3F2A... --new-thumb 9C01... WDVDRQE...
  x509crypt reencrypt text --old-thumb 3F2A... --new-thumb 9C01... --in clipboard --out clipboard`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting reencrypt text command")

		if err := checkTextOutput(reencryptOut, reencryptOverwrite); err != nil {
			return showError(err)
		}
		text, err := readText(args, reencryptIn)
		if err != nil {
			return showError(err)
		}

		result, err := workflows.ReEncryptText(context.Background(), workflows.ReEncryptTextOptions{
			OldThumbprint: reencryptOldThumb,
			OldLocation:   reencryptOldStore,
			NewThumbprint: reencryptNewThumb,
			NewLocation:   reencryptNewStore,
			Text:          text,
			Target:        textTarget(reencryptOut),
		})
		if err != nil {
			return showError(err)
		}

		if err := writeText(result.Text, reencryptOut); err != nil {
			return showError(err)
		}
		if reencryptOut != "" {
			printSuccess("Text re-encrypted for " + ui.Thumbprint.Sprint(result.Thumbprint) + " and written to " + ui.Path.Sprint(reencryptOut))
		}
		return nil
	},
}

var reencryptFileCmd = &cobra.Command{
	Use:   "file [envelope]",
	Short: "Re-encrypt an envelope file",
	Long: `Re-encrypts an envelope file for another certificate. The file is replaced
in place unless --out is given.

Examples:
  x509crypt reencrypt file --old-thumb 3F2A... --new-thumb 9C01... report.pdf.ctx
  x509crypt reencrypt file --old-thumb 3F2A... --new-thumb 9C01... report.pdf.ctx --out shared.ctx`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting reencrypt file command")
		input := reencryptIn
		if len(args) > 0 {
			input = args[0]
		}

		spinner, cleanup := startSpinner("Re-encrypting...")
		defer cleanup()

		result, err := workflows.ReEncryptFile(context.Background(), workflows.ReEncryptFileOptions{
			OldThumbprint: reencryptOldThumb,
			OldLocation:   reencryptOldStore,
			NewThumbprint: reencryptNewThumb,
			NewLocation:   reencryptNewStore,
			Input:         input,
			Output:        reencryptOut,
			Overwrite:     reencryptOverwrite,
		})
		if err != nil {
			spinner.FinalMSG = formatError(err)
			return reported(err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Re-encrypted " + ui.Path.Sprint(result.Input) +
			" for " + ui.Thumbprint.Sprint(ui.ShortThumbprint(reencryptNewThumb))
		if result.Output != result.Input {
			spinner.FinalMSG += " into " + ui.Path.Sprint(result.Output)
		}
		return nil
	},
}
