package cmd

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/coolcode/alith/client"
	"github.com/coolcode/alith/x/signing"
)

const (
	flagOutput  = "output"
	flagRSABits = "bits"

	rsaPEMType = "RSA PRIVATE KEY"
)

// KeysCmd groups the key management commands.
func KeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage signing and encryption keys",
	}
	cmd.AddCommand(generateKeyCmd(), showKeyCmd(), rsaKeyCmd())
	return cmd
}

type keyOutput struct {
	Address    string `json:"address"`
	PrivateKey string `json:"private_key,omitempty"`
}

func generateKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate a secp256k1 signing key",
		Long: `Generate a secp256k1 signing key and print its address and hex private key.
Keep the key secret; set it as node.private-key or ALITH_NODE_PRIVATE_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, err := signing.GenerateSigner()
			if err != nil {
				return err
			}
			return printJSON(cmd, keyOutput{
				Address:    signer.Address().Hex(),
				PrivateKey: signer.PrivateKeyHex(),
			})
		},
	}
}

func showKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the address of the configured signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			signer, err := env.signer()
			if err != nil {
				return err
			}
			return printJSON(cmd, keyOutput{Address: signer.Address().Hex()})
		},
	}
}

func rsaKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rsa",
		Short: "Generate the RSA key pair a node publishes for encryption keys",
		Long: `Generate an RSA key pair. The private key is written as PEM to --output
(default <home>/config/node_rsa.pem) and the public key is printed in the
form the node registry expects.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString(flagOutput)
			bits, _ := cmd.Flags().GetInt(flagRSABits)
			if out == "" {
				out = filepath.Join(env.home, configDir, "node_rsa.pem")
			}

			key, err := writeRSAKey(out, bits)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "private key written to %s\n%s", out, client.MarshalRSAPublicKey(&key.PublicKey))
			return err
		},
	}
	cmd.Flags().String(flagOutput, "", "file to write the PEM private key to")
	cmd.Flags().Int(flagRSABits, 2048, "RSA modulus size")
	return cmd
}

// writeRSAKey generates a key and writes it as PKCS#1 PEM. An existing file
// is never overwritten.
func writeRSAKey(path string, bits int) (*rsa.PrivateKey, error) {
	if bits < 2048 {
		return nil, fmt.Errorf("RSA keys need at least 2048 bits, got %d", bits)
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%s already exists", path)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	block := &pem.Block{Type: rsaPEMType, Bytes: x509.MarshalPKCS1PrivateKey(key)}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		return nil, err
	}
	return key, nil
}

// readRSAKey loads a PKCS#1 or PKCS#8 PEM private key.
func readRSAKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read RSA key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%s: no PEM block", path)
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: parse RSA key: %w", path, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New(path + ": not an RSA key")
	}
	return key, nil
}
