package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vetclinic/aiadmin/pkg/utils/crypto"
)

var encryptKey string

func init() {
	encryptCmd.Flags().StringVar(&encryptKey, "key", "", "encryption key (defaults to security.encryption_key from the config)")
	rootCmd.AddCommand(encryptCmd)
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt <secret>",
	Short: "Seal a secret for use in the config file",
	Long: `Seal a secret with AES-GCM so it can be stored in config.yaml.

Examples:
  aiadmin encrypt --key "$AIADMIN_SECURITY_ENCRYPTION_KEY" sk-live-123`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := encryptKey
		if key == "" {
			key = keyFromConfig()
		}
		if key == "" {
			return errors.New("no encryption key: pass --key or set security.encryption_key")
		}

		sealed, err := crypto.Seal(args[0], key)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), sealed)
		return nil
	},
}

// keyFromConfig reads only the key, since the rest of the file may hold
// sealed values that cannot be opened yet.
func keyFromConfig() string {
	v := viper.New()
	v.SetConfigFile(configPath)
	_ = v.BindEnv("security.encryption_key", "AIADMIN_SECURITY_ENCRYPTION_KEY")
	_ = v.ReadInConfig()
	return v.GetString("security.encryption_key")
}
