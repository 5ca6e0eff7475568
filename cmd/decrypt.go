package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/x509crypt/internal/alias"
	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
	"github.com/PolarWolf314/x509crypt/internal/ui"
	"github.com/PolarWolf314/x509crypt/internal/utils"
	"github.com/PolarWolf314/x509crypt/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	decryptThumb     string
	decryptStore     alias.Location
	decryptIn        string
	decryptOut       string
	decryptOverwrite bool
	decryptWipe      bool
	decryptPasses    int
	decryptQuiet     bool
)

func init() {
	for _, c := range []*cobra.Command{decryptTextCmd, decryptFileCmd} {
		c.Flags().StringVarP(&decryptThumb, "thumb", "t", "", "thumbprint of the certificate holding the private key")
		c.Flags().VarP(&decryptStore, "store", "s", "store location (CurrentUser or LocalMachine)")
		c.Flags().StringVarP(&decryptOut, "out", "o", "", "output destination")
		c.Flags().BoolVar(&decryptOverwrite, "overwrite", false, "replace an existing output file")
		_ = c.MarkFlagRequired("thumb")
	}
	decryptTextCmd.Flags().StringVarP(&decryptIn, "in", "i", "", "read the envelope from a file, - for stdin, or clipboard")
	decryptFileCmd.Flags().StringVarP(&decryptIn, "in", "i", "", "envelope file to decrypt")
	decryptFileCmd.Flags().BoolVar(&decryptWipe, "wipe", false, "securely wipe the envelope after decrypting")
	decryptFileCmd.Flags().IntVar(&decryptPasses, "passes", 0, "overwrite passes for --wipe (default from config)")
	decryptFileCmd.Flags().BoolVarP(&decryptQuiet, "quiet", "q", false, "do not ask before wiping")

	decryptCmd.AddCommand(decryptTextCmd)
	decryptCmd.AddCommand(decryptFileCmd)
}

// resetDecryptCommandState resets the decrypt command's global state for testing.
func resetDecryptCommandState() {
	decryptThumb = ""
	decryptStore = ""
	decryptIn = ""
	decryptOut = ""
	decryptOverwrite = false
	decryptWipe = false
	decryptPasses = 0
	decryptQuiet = false
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Decrypt text or files with a certificate's private key",
}

var decryptTextCmd = &cobra.Command{
	Use:   "text [envelope]",
	Short: "Decrypt a base64 envelope",
	Long: `Decrypts a base64 envelope produced by 'encrypt text'.

The envelope comes from the argument, from --in (a file, - for stdin, or
clipboard), or from stdin.

Examples:
  x509crypt decrypt text --thumb 3F2A... WDVDRQE...
  x509crypt decrypt text --thumb 3F2A... --in clipboard`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting decrypt text command")

		if err := checkTextOutput(decryptOut, decryptOverwrite); err != nil {
			return showError(err)
		}
		text, err := readText(args, decryptIn)
		if err != nil {
			return showError(err)
		}

		result, err := workflows.DecryptText(context.Background(), workflows.TextOptions{
			Thumbprint: decryptThumb,
			Location:   decryptStore,
			Text:       text,
			Target:     textTarget(decryptOut),
		})
		if err != nil {
			return showError(err)
		}

		if err := writeText(result.Text, decryptOut); err != nil {
			return showError(err)
		}
		if decryptOut != "" {
			printSuccess("Text decrypted to " + ui.Path.Sprint(decryptOut))
		}
		return nil
	},
}

var decryptFileCmd = &cobra.Command{
	Use:   "file [envelope]",
	Short: "Decrypt a .ctx envelope file",
	Long: `Decrypts an envelope file. The output drops the .ctx extension, or gets a
.ptx extension when the input has none.

With --wipe the envelope is overwritten with random data and removed, but only
after the decrypted file has been completely written. You are asked to confirm
unless --quiet is given.

Examples:
  x509crypt decrypt file --thumb 3F2A... report.pdf.ctx
  x509crypt decrypt file --thumb 3F2A... --wipe --passes 7 report.pdf.ctx
  x509crypt decrypt file --thumb 3F2A... --in report.ctx --out report.pdf`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting decrypt file command")
		input := decryptIn
		if len(args) > 0 {
			input = args[0]
		}
		if decryptPasses < 0 {
			return showError(fmt.Errorf("%w: %d", cerrors.ErrInvalidPassCount, decryptPasses))
		}

		opts := workflows.DecryptFileOptions{
			Thumbprint: decryptThumb,
			Location:   decryptStore,
			Input:      input,
			Output:     decryptOut,
			Overwrite:  decryptOverwrite,
			Wipe:       decryptWipe,
			WipePasses: decryptPasses,
		}
		if decryptWipe && !decryptQuiet {
			opts.Confirm = confirmWipe
		}

		result, err := workflows.DecryptFile(context.Background(), opts)
		if err != nil && result == nil {
			return showError(err)
		}

		spinner, cleanup := startSpinner("Finishing...")
		defer cleanup()

		msg := ui.Success.Sprint("✓") + " Decrypted " + ui.Path.Sprint(result.Input) + " to " + ui.Path.Sprint(result.Output)
		if err != nil {
			spinner.FinalMSG = msg + "\n" + formatError(err)
			return reported(err)
		}
		if result.WipePasses > 0 {
			msg += "\n" + ui.Info.Sprint("→") + fmt.Sprintf(" The envelope was wiped with %d passes", result.WipePasses)
		}
		spinner.FinalMSG = msg
		return nil
	},
}

// confirmWipe asks on the terminal before an envelope is destroyed.
func confirmWipe(path string) (bool, error) {
	if !utils.IsTTYAvailable() {
		return false, fmt.Errorf("%w: no terminal to confirm the wipe of %s (use --quiet)", cerrors.ErrConfirmationDeclined, path)
	}
	return utils.Confirm("Wipe " + path + " after decrypting?")
}
