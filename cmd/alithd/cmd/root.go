package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/coolcode/alith/client"
	"github.com/coolcode/alith/ledger/evm"
	"github.com/coolcode/alith/x/signing"
)

// Version is set at build time.
var Version = "dev"

const (
	flagHome          = "home"
	flagNetwork       = "network"
	flagChainEndpoint = "chain-endpoint"
	flagChainID       = "chain-id"
	flagPrivateKey    = "private-key"
	flagLogLevel      = "log-level"
	flagLogFormat     = "log-format"
)

// flagKeys maps command flags onto config keys. Flags override the
// environment and the config file.
var flagKeys = map[string]string{
	flagNetwork:       keyChainNetwork,
	flagChainEndpoint: keyChainEndpoint,
	flagChainID:       keyChainID,
	flagPrivateKey:    keyNodePrivateKey,
	flagLogLevel:      keyLogLevel,
	flagLogFormat:     keyLogFormat,
	flagListen:        keyNodeListen,
	flagDevnet:        keyDevnet,
	flagWorkers:       keyWorkers,
	flagRateLimit:     keyRateLimitRPS,
	flagReplayDBDir:   keyReplayDBDir,
	flagNoncePolicy:   keyNoncePolicy,
	flagRSAKeyFile:    keyNodeRSAKeyFile,
}

type envKey struct{}

// cmdEnv is the resolved environment shared by every command.
type cmdEnv struct {
	home   string
	viper  *viper.Viper
	config Config
	logger log.Logger
}

// NewRootCmd creates the root command. The daemon variant adds init and
// start; both carry the key and ledger client commands.
func NewRootCmd(daemon bool) *cobra.Command {
	use, short := "alithcli", "Alith settlement client"
	if daemon {
		use, short = "alithd", "Alith compute node daemon"
	}

	rootCmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: `Alith records data contributions, assigns proof jobs to compute nodes and
settles inference payments on a ledger.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SetOut(cmd.OutOrStdout())
			cmd.SetErr(cmd.ErrOrStderr())
			return loadEnv(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String(flagHome, DefaultHome(), "directory for config and data")
	flags.String(flagNetwork, "", "network preset: local or testnet")
	flags.String(flagChainEndpoint, "", "ledger JSON-RPC endpoint")
	flags.String(flagChainID, "", "expected chain id")
	flags.String(flagPrivateKey, "", "hex secp256k1 key that signs transactions")
	flags.String(flagLogLevel, "", "log level: trace, debug, info, warn, error")
	flags.String(flagLogFormat, "", "log format: plain or json")

	if daemon {
		rootCmd.AddCommand(InitCmd(), StartCmd())
	}
	rootCmd.AddCommand(
		KeysCmd(),
		FilesCmd(),
		NodesCmd(),
		JobsCmd(),
		SettlementCmd(),
		ProofCmd(),
		VersionCmd(),
	)
	return rootCmd
}

// VersionCmd prints the build version.
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), Version)
			return err
		},
	}
}

func loadEnv(cmd *cobra.Command) error {
	home, err := cmd.Flags().GetString(flagHome)
	if err != nil {
		return err
	}
	v, err := newViper(home)
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := LoadConfig(v)
	if err != nil {
		return err
	}
	logger, err := NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, envKey{}, &cmdEnv{
		home:   home,
		viper:  v,
		config: cfg,
		logger: logger,
	}))
	return nil
}

// bindFlags binds the flags a command defines; flags left empty do not
// shadow the config.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

func envFromCmd(cmd *cobra.Command) (*cmdEnv, error) {
	env, ok := cmd.Context().Value(envKey{}).(*cmdEnv)
	if !ok {
		return nil, errors.New("command environment not initialized")
	}
	return env, nil
}

func (e *cmdEnv) signer() (*signing.Signer, error) {
	if e.config.PrivateKey == "" {
		return nil, fmt.Errorf("no signing key: set --%s, %s or ALITH_NODE_PRIVATE_KEY", flagPrivateKey, keyNodePrivateKey)
	}
	return signing.SignerFromHex(e.config.PrivateKey)
}

// ledgerClient dials the configured endpoint and returns a client signing
// with the configured key.
func (e *cmdEnv) ledgerClient(ctx context.Context) (*client.Client, *signing.Signer, error) {
	if e.config.Devnet {
		return nil, nil, errors.New("devnet ledgers live inside alithd; point the client at a chain endpoint")
	}
	signer, err := e.signer()
	if err != nil {
		return nil, nil, err
	}
	gw, err := evm.Dial(ctx, e.config.Endpoint, signer, evm.Config{ChainID: e.config.ChainID}, e.logger)
	if err != nil {
		return nil, nil, err
	}
	c, err := client.New(gw, e.config.Contracts, e.logger)
	if err != nil {
		return nil, nil, err
	}
	return c, signer, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
