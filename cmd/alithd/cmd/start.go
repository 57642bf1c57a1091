package cmd

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/coolcode/alith/api"
	"github.com/coolcode/alith/app"
	"github.com/coolcode/alith/app/health"
	"github.com/coolcode/alith/app/telemetry"
	"github.com/coolcode/alith/client"
	"github.com/coolcode/alith/ledger"
	"github.com/coolcode/alith/ledger/evm"
	"github.com/coolcode/alith/x/reqauth"
	"github.com/coolcode/alith/x/shared/nonce"
	"github.com/coolcode/alith/x/signing"
)

const (
	flagListen      = "listen"
	flagDevnet      = "devnet"
	flagWorkers     = "workers"
	flagRateLimit   = "rate-limit"
	flagReplayDBDir = "replay-db-dir"
	flagNoncePolicy = "nonce-policy"
	flagRSAKeyFile  = "rsa-key-file"
	flagRegister    = "register"
	flagPublicURL   = "public-url"

	pruneInterval   = time.Minute
	prunePerRound   = 1000
	ledgerProbeSlow = 2 * time.Second
	telemetryFlush  = 5 * time.Second
)

// StartCmd runs the compute node API.
func StartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the compute node",
		Long: `Run the compute node API. The node accepts authenticated proof requests,
proves the referenced files and records the proofs on the ledger.

With --devnet the node runs its own in-memory ledger, funds the node key and
the configured devnet accounts, and needs no chain endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := envFromCmd(cmd)
			if err != nil {
				return err
			}
			register, _ := cmd.Flags().GetBool(flagRegister)
			publicURL, _ := cmd.Flags().GetString(flagPublicURL)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			n, err := newNode(ctx, env.home, env.config, env.logger)
			if err != nil {
				return err
			}
			defer n.Close()

			if register {
				if publicURL == "" {
					publicURL = "http://" + env.config.Listen
				}
				if err := n.register(ctx, publicURL); err != nil {
					return err
				}
			}
			return n.Run(ctx)
		},
	}

	cmd.Flags().String(flagListen, "", "API listen address (host:port)")
	cmd.Flags().Bool(flagDevnet, false, "run against an in-memory development ledger")
	cmd.Flags().Int(flagWorkers, 0, "number of proof workers")
	cmd.Flags().Int(flagRateLimit, 0, "requests per second allowed per client IP")
	cmd.Flags().String(flagReplayDBDir, "", "directory of the replay database")
	cmd.Flags().String(flagNoncePolicy, "", "nonce replay policy: monotonic or window")
	cmd.Flags().String(flagRSAKeyFile, "", "PEM RSA private key that opens encryption keys")
	cmd.Flags().Bool(flagRegister, false, "register this node on the ledger before serving")
	cmd.Flags().String(flagPublicURL, "", "URL clients reach the node at, used by --register")
	return cmd
}

// node is a running compute node and the resources it owns.
type node struct {
	cfg      Config
	logger   log.Logger
	signer   *signing.Signer
	rsaKey   *rsa.PrivateKey
	gateway  ledger.Gateway
	client   *client.Client
	verifier *reqauth.Verifier
	server   *api.Server
	closers  []func() error
}

func newNode(ctx context.Context, home string, cfg Config, logger log.Logger) (_ *node, err error) {
	n := &node{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			n.Close()
		}
	}()

	if cfg.Devnet && cfg.PrivateKey == "" {
		if n.signer, err = signing.GenerateSigner(); err != nil {
			return nil, err
		}
		logger.Info("generated devnet node key", "address", n.signer.Address().Hex())
	} else if n.signer, err = signing.SignerFromHex(cfg.PrivateKey); err != nil {
		return nil, fmt.Errorf("node key: %w", err)
	}

	cfg.Telemetry.ChainID = cfg.ChainID.String()
	cfg.Telemetry.Version = Version
	if cfg.Telemetry.Environment == "" {
		cfg.Telemetry.Environment = cfg.Network
	}
	provider, err := telemetry.NewProvider(cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	n.closers = append(n.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryFlush)
		defer cancel()
		return provider.Shutdown(ctx)
	})

	if cfg.RSAKeyFile != "" {
		if n.rsaKey, err = readRSAKey(cfg.RSAKeyFile); err != nil {
			return nil, err
		}
	}

	if cfg.Devnet {
		n.gateway, err = newDevnet(cfg, n.signer, logger)
	} else {
		n.gateway, err = evm.Dial(ctx, cfg.Endpoint, n.signer, evm.Config{ChainID: cfg.ChainID}, logger)
	}
	if err != nil {
		return nil, err
	}
	if n.client, err = client.New(n.gateway, cfg.Contracts, logger); err != nil {
		return nil, err
	}

	replayDir := cfg.ReplayDBDir
	if replayDir == "" && !cfg.Devnet {
		replayDir = filepath.Join(home, "data")
	}
	store, closeStore, err := reqauth.OpenReplayStore(replayDir)
	if err != nil {
		return nil, err
	}
	n.closers = append(n.closers, closeStore)
	n.verifier = reqauth.NewVerifier(n.signer.Address(), store, cfg.NoncePolicy, cfg.NonceWindow, logger)

	fetcher := api.NewHTTPFetcher(0)
	fetcher.Gateway = cfg.IPFSGateway
	prover := api.NewDigestProver(fetcher, cfg.MaxFileBytes, n.rsaKey)
	pool := api.NewPool(api.PoolConfig{Workers: cfg.Workers, QueueSize: cfg.QueueSize}, prover, n.client, n.signer, logger)

	host, port, err := net.SplitHostPort(cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("invalid listen address %q: %w", cfg.Listen, err)
	}
	serverCfg := api.DefaultConfig()
	serverCfg.Host, serverCfg.Port = host, port
	serverCfg.CORSOrigins = cfg.CORSOrigins
	serverCfg.RateLimitRPS = cfg.RateLimitRPS
	serverCfg.Headers = cfg.Headers
	serverCfg.Version = Version

	checker := health.NewChecker(logger, health.Config{Version: Version})
	checker.Register("ledger", health.ProbeCheck(func(ctx context.Context) error {
		_, err := n.gateway.BalanceAt(ctx, n.signer.Address())
		return err
	}, ledgerProbeSlow), false)
	checker.Register("telemetry", health.ProbeCheck(provider.HealthCheck, 0), true)

	if n.server, err = api.NewServer(serverCfg, n.verifier, pool, checker, logger); err != nil {
		return nil, err
	}
	return n, nil
}

// newDevnet starts an in-memory ledger administered by the node key.
func newDevnet(cfg Config, signer *signing.Signer, logger log.Logger) (ledger.Gateway, error) {
	mem, err := app.NewMemApp(logger,
		app.WithChainID(cfg.ChainID),
		app.WithContracts(cfg.Contracts),
		app.WithAuthority(signer.Address()),
		app.WithInvariantCheck(true),
	)
	if err != nil {
		return nil, err
	}
	accounts := append([]common.Address{signer.Address()}, cfg.DevnetAccounts...)
	gs := app.NewGenesisStateFromConfig(app.GenesisConfig{
		Accounts:       accounts,
		AccountBalance: cfg.DevnetBalance,
	})
	if err := mem.InitChain(gs); err != nil {
		return nil, fmt.Errorf("devnet genesis: %w", err)
	}
	logger.Info("devnet ledger ready", "chain_id", cfg.ChainID.String(), "accounts", len(accounts))
	return app.NewSession(mem, signer), nil
}

// register adds the node to the registry unless it is already listed.
func (n *node) register(ctx context.Context, publicURL string) error {
	self := n.signer.Address()
	listed, err := n.client.IsNode(ctx, self)
	if err != nil {
		return err
	}
	if listed {
		n.logger.Info("node already registered", "address", self.Hex())
		return nil
	}
	pubKey := ""
	if n.rsaKey != nil {
		pubKey = client.MarshalRSAPublicKey(&n.rsaKey.PublicKey)
	}
	if err := n.client.AddNode(ctx, self, publicURL, pubKey); err != nil {
		return fmt.Errorf("register node: %w", err)
	}
	n.logger.Info("node registered", "address", self.Hex(), "url", publicURL)
	return nil
}

// Run serves the API until ctx is done.
func (n *node) Run(ctx context.Context) error {
	if n.cfg.NoncePolicy == nonce.PolicyWindow {
		go n.pruneNonces(ctx)
	}
	return n.server.Start(ctx)
}

func (n *node) pruneNonces(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := n.verifier.Prune(prunePerRound)
			if err != nil {
				n.logger.Error("prune nonces", "error", err)
				continue
			}
			if pruned > 0 {
				n.logger.Debug("pruned expired nonces", "count", pruned)
			}
		}
	}
}

// Close releases the node's stores.
func (n *node) Close() error {
	var errs []error
	for i := len(n.closers) - 1; i >= 0; i-- {
		errs = append(errs, n.closers[i]())
	}
	n.closers = nil
	return errors.Join(errs...)
}
