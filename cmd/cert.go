package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PolarWolf314/x509crypt/internal/alias"
	"github.com/PolarWolf314/x509crypt/internal/store"
	"github.com/PolarWolf314/x509crypt/internal/ui"
	"github.com/PolarWolf314/x509crypt/internal/utils"
	"github.com/PolarWolf314/x509crypt/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	certStore        alias.Location
	certThumb        string
	certCommonName   string
	certKeySize      int
	certValidityDays int
	certKeyPath      string
	certPassword     string
	certOut          string
	certWithKey      bool
	certOverwrite    bool
	certAll          bool
	certJSON         bool
)

func init() {
	for _, c := range []*cobra.Command{certCreateCmd, certImportCmd, certExportCmd, certListCmd, certRemoveCmd} {
		c.Flags().VarP(&certStore, "store", "s", "store location (CurrentUser or LocalMachine)")
	}

	certCreateCmd.Flags().StringVar(&certCommonName, "cn", "", "subject common name (default: hostname)")
	certCreateCmd.Flags().IntVar(&certKeySize, "key-size", 0, "RSA key size in bits (default from config)")
	certCreateCmd.Flags().IntVar(&certValidityDays, "validity-days", 0, "days until the certificate expires (default from config)")

	certImportCmd.Flags().StringVarP(&certKeyPath, "key", "k", "", "separate PEM or OpenSSH private key file")
	certImportCmd.Flags().StringVar(&certPassword, "password", "", "password for a PFX bundle or encrypted key (prompted when omitted)")

	certExportCmd.Flags().StringVarP(&certThumb, "thumb", "t", "", "thumbprint of the certificate to export")
	certExportCmd.Flags().StringVarP(&certOut, "out", "o", "", "PEM file to write")
	certExportCmd.Flags().BoolVar(&certWithKey, "with-key", false, "include the private key")
	certExportCmd.Flags().BoolVar(&certOverwrite, "overwrite", false, "replace an existing output file")
	_ = certExportCmd.MarkFlagRequired("thumb")
	_ = certExportCmd.MarkFlagRequired("out")

	certListCmd.Flags().BoolVarP(&certAll, "all", "a", false, "include expired certificates")
	certListCmd.Flags().BoolVar(&certJSON, "json", false, "output in JSON format")

	certRemoveCmd.Flags().StringVarP(&certThumb, "thumb", "t", "", "thumbprint of the certificate to remove")
	_ = certRemoveCmd.MarkFlagRequired("thumb")

	certCmd.AddCommand(certCreateCmd)
	certCmd.AddCommand(certImportCmd)
	certCmd.AddCommand(certExportCmd)
	certCmd.AddCommand(certListCmd)
	certCmd.AddCommand(certRemoveCmd)
}

// resetCertCommandState resets the cert command's global state for testing.
func resetCertCommandState() {
	certStore = ""
	certThumb = ""
	certCommonName = ""
	certKeySize = 0
	certValidityDays = 0
	certKeyPath = ""
	certPassword = ""
	certOut = ""
	certWithKey = false
	certOverwrite = false
	certAll = false
	certJSON = false
}

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Manage the certificate store",
	Long: `Creates, imports, exports, lists and removes the certificates used to
encrypt and decrypt.

Certificates are stored per location. CurrentUser is private to you;
LocalMachine is shared by everyone on the machine.`,
}

var certCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a self-signed encryption certificate",
	Long: `Creates a self-signed certificate with a new RSA key pair and stores both.

Examples:
  x509crypt cert create
  x509crypt cert create --cn backups --key-size 4096 --validity-days 730
  x509crypt cert create --store LocalMachine`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting cert create command")

		spinner, cleanup := startSpinner("Generating key pair...")
		defer cleanup()

		result, err := workflows.CreateCert(context.Background(), workflows.CreateCertOptions{
			CommonName:   certCommonName,
			Location:     certStore,
			KeySize:      certKeySize,
			ValidityDays: certValidityDays,
		})
		if err != nil {
			spinner.FinalMSG = formatError(err)
			return reported(err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Created " + result.Subject + " in " + string(result.Location) + "\n" +
			"    Thumbprint: " + ui.Thumbprint.Sprint(result.Thumbprint) + "\n" +
			"    Expires:    " + result.NotAfter.Local().Format("2006-01-02")
		return nil
	},
}

var certImportCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import a certificate from a PFX or PEM file",
	Long: `Imports a certificate into the store. A .pfx or .p12 file is read as a PKCS#12
bundle. Any other file is read as PEM and may also contain the private key;
use --key when the key is in its own file. PKCS#1, PKCS#8 and OpenSSH keys are
accepted.

When the bundle or key is password protected and --password is not given, the
password is prompted for on the terminal.

Examples:
  x509crypt cert import backup.pfx
  x509crypt cert import server.crt --key server.key
  x509crypt cert import colleague.pem --store LocalMachine`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting cert import command")
		Logger.Debugf("Importing %s (key: %q)", args[0], certKeyPath)

		opts := workflows.ImportCertOptions{
			Location: certStore,
			Path:     args[0],
			KeyPath:  certKeyPath,
		}
		if certPassword != "" {
			opts.Password = []byte(certPassword)
		} else {
			opts.PromptPassword = promptPassword
		}

		result, err := workflows.ImportCert(context.Background(), opts)
		if err != nil {
			return showError(err)
		}

		msg := "Imported " + result.Subject + " into " + string(result.Location) + "\n" +
			"    Thumbprint: " + ui.Thumbprint.Sprint(result.Thumbprint)
		if !result.HasPrivateKey {
			msg += "\n" + ui.Info.Sprint("→") + " No private key was imported, so this certificate can only encrypt"
		}
		printSuccess(msg)
		return nil
	},
}

func promptPassword() ([]byte, error) {
	if utils.IsTerminal() {
		return utils.ReadPassphrase("Password: ")
	}
	return utils.ReadPassphraseFromTTY("Password: ")
}

var certExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a certificate to a PEM file",
	Long: `Writes a certificate to a PEM file, to share it with people who should be able
to encrypt for you. With --with-key the private key is included, which lets
the file be imported on another machine to decrypt.

Examples:
  x509crypt cert export --thumb 3F2A... --out me.pem
  x509crypt cert export --thumb 3F2A... --out backup.pem --with-key`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting cert export command")

		path, err := workflows.ExportCert(context.Background(), workflows.ExportCertOptions{
			Thumbprint: certThumb,
			Location:   certStore,
			Path:       certOut,
			WithKey:    certWithKey,
			Overwrite:  certOverwrite,
		})
		if err != nil {
			return showError(err)
		}

		msg := "Exported " + ui.Thumbprint.Sprint(ui.ShortThumbprint(certThumb)) + " to " + ui.Path.Sprint(path)
		if certWithKey {
			msg += "\n" + ui.Warning.Sprint("⚠") + " The file contains the private key, keep it safe"
		}
		printSuccess(msg)
		return nil
	},
}

// certJSONEntry is the --json form of a store entry.
type certJSONEntry struct {
	Thumbprint    string    `json:"thumbprint"`
	Subject       string    `json:"subject"`
	NotBefore     time.Time `json:"not_before"`
	NotAfter      time.Time `json:"not_after"`
	HasPrivateKey bool      `json:"has_private_key"`
	Location      string    `json:"location"`
}

var certListCmd = &cobra.Command{
	Use:   "list",
	Short: "List certificates in the store",
	Long: `Lists the certificates in every location, or only in --store. Expired
certificates are hidden unless --all is given.

Examples:
  x509crypt cert list
  x509crypt cert list --store LocalMachine --all
  x509crypt cert list --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting cert list command")

		entries, err := workflows.ListCerts(context.Background(), workflows.ListCertsOptions{
			Location:       certStore,
			IncludeExpired: certAll,
		})
		if err != nil {
			return showError(err)
		}
		Logger.Debugf("Found %d certificates", len(entries))

		if certJSON {
			return printCertsJSON(entries)
		}
		if len(entries) == 0 {
			printLine(ui.Info.Sprint("→") + " No certificates found. Create one with " + ui.Code.Sprint("x509crypt cert create"))
			return nil
		}

		now := time.Now()
		var b strings.Builder
		fmt.Fprintf(&b, "%-40s  %-12s  %-10s  %-3s  %s\n", "THUMBPRINT", "LOCATION", "EXPIRES", "KEY", "SUBJECT")
		for _, e := range entries {
			key := "no"
			if e.HasPrivateKey {
				key = "yes"
			}
			expires := e.NotAfter.Local().Format("2006-01-02")
			if e.Expired(now) {
				expires = ui.Warning.Sprint(expires)
			}
			fmt.Fprintf(&b, "%-40s  %-12s  %-10s  %-3s  %s\n", e.Thumbprint, e.Location, expires, key, e.Subject)
		}
		printLine(b.String())
		return nil
	},
}

func printCertsJSON(entries []store.Entry) error {
	out := make([]certJSONEntry, len(entries))
	for i, e := range entries {
		out[i] = certJSONEntry{
			Thumbprint:    e.Thumbprint,
			Subject:       e.Subject,
			NotBefore:     e.NotBefore,
			NotAfter:      e.NotAfter,
			HasPrivateKey: e.HasPrivateKey,
			Location:      string(e.Location),
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return Logger.ErrorfAndReturn("failed to encode certificates: %v", err)
	}
	fmt.Println(string(data))
	return nil
}

var certRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a certificate and its private key",
	Long: `Deletes a certificate and its private key from the store. Anything encrypted
for it can no longer be decrypted unless you kept an export with the key.

Examples:
  x509crypt cert remove --thumb 3F2A...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting cert remove command")

		if err := workflows.RemoveCert(context.Background(), workflows.RemoveCertOptions{
			Thumbprint: certThumb,
			Location:   certStore,
		}); err != nil {
			return showError(err)
		}
		printSuccess("Removed " + ui.Thumbprint.Sprint(ui.ShortThumbprint(certThumb)))
		return nil
	},
}
