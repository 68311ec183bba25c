package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"searchforge/internal/infra/config"
)

func newEncryptCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <value>",
		Short: "Encrypt a secret for the config file",
		Long: `Encrypt a value with the passphrase in SEARCHFORGE_CONFIG_KEY and print it
with the enc: prefix, ready to paste into searchforge.yaml:

  search:
    api_key: enc:...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			passphrase := os.Getenv("SEARCHFORGE_CONFIG_KEY")
			if passphrase == "" {
				return fmt.Errorf("SEARCHFORGE_CONFIG_KEY must be set")
			}
			enc, err := config.EncryptValue(args[0], passphrase)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, "enc:"+enc)
			return err
		},
	}
}
