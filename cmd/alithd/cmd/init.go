package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/coolcode/alith/x/signing"
)

const (
	flagOverwrite   = "overwrite"
	flagGenerateKey = "generate-key"
)

// InitCmd writes the node configuration file.
func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the node configuration to <home>/config/app.toml",
		Long: `Write the resolved configuration, including flag and environment overrides,
to <home>/config/app.toml.

Example:
  alithd init --network testnet --generate-key --home ~/.alith
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			overwrite, _ := cmd.Flags().GetBool(flagOverwrite)
			generate, _ := cmd.Flags().GetBool(flagGenerateKey)

			path := ConfigPath(env.home)
			if _, err := os.Stat(path); err == nil && !overwrite {
				return fmt.Errorf("%s already exists; use --%s to replace it", path, flagOverwrite)
			}

			v := env.viper
			if generate {
				signer, err := signing.GenerateSigner()
				if err != nil {
					return err
				}
				v.Set(keyNodePrivateKey, signer.PrivateKeyHex())
				env.logger.Info("generated node key", "address", signer.Address().Hex())
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return err
			}
			if err := v.WriteConfigAs(path); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			if err := os.Chmod(path, 0o600); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "config written to %s\n", path)
			return err
		},
	}
	cmd.Flags().Bool(flagOverwrite, false, "replace an existing config file")
	cmd.Flags().Bool(flagGenerateKey, false, "generate a node signing key into the config")
	return cmd
}
