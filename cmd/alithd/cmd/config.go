package cmd

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/coolcode/alith/api"
	"github.com/coolcode/alith/app/telemetry"
	"github.com/coolcode/alith/contracts"
	"github.com/coolcode/alith/x/reqauth"
	"github.com/coolcode/alith/x/shared/nonce"
)

const (
	// EnvPrefix prefixes environment overrides: chain.endpoint is read from
	// ALITH_CHAIN_ENDPOINT.
	EnvPrefix = "ALITH"

	configDir  = "config"
	configFile = "app.toml"
)

// Config keys.
const (
	keyChainNetwork      = "chain.network"
	keyChainEndpoint     = "chain.endpoint"
	keyChainID           = "chain.chain-id"
	keyDataRegistry      = "contracts.data-registry"
	keyVerifiedComputing = "contracts.verified-computing"
	keySettlement        = "contracts.settlement"
	keyNodeListen        = "node.listen"
	keyNodePrivateKey    = "node.private-key"
	keyNodeRSAKeyFile    = "node.rsa-key-file"
	keyHeaderUser        = "auth.header-user"
	keyHeaderNonce       = "auth.header-nonce"
	keyHeaderSignature   = "auth.header-signature"
	keyNoncePolicy       = "auth.nonce-policy"
	keyNonceWindow       = "auth.nonce-window"
	keyReplayDBDir       = "auth.replay-db-dir"
	keyRateLimitRPS      = "api.rate-limit-rps"
	keyWorkers           = "api.workers"
	keyQueueSize         = "api.queue-size"
	keyCORSOrigins       = "api.cors-origins"
	keyMaxFileBytes      = "api.max-file-bytes"
	keyIPFSGateway       = "api.ipfs-gateway"
	keyTelemetryEnabled  = "telemetry.enabled"
	keyTelemetryEndpoint = "telemetry.otlp-endpoint"
	keyTelemetrySample   = "telemetry.sample-rate"
	keyTelemetryMetrics  = "telemetry.metrics"
	keyTelemetryEnv      = "telemetry.environment"
	keyLogLevel          = "log.level"
	keyLogFormat         = "log.format"
	keyDevnet            = "devnet"
	keyDevnetAccounts    = "devnet-accounts"
	keyDevnetBalance     = "devnet-balance"
)

// Networks with built-in endpoints and chain ids.
const (
	NetworkLocal   = "local"
	NetworkTestnet = "testnet"
)

// Config is the resolved configuration of alithd and alithcli.
type Config struct {
	Network   string
	Endpoint  string
	ChainID   *big.Int
	Contracts contracts.Config

	Listen     string
	PrivateKey string
	RSAKeyFile string

	Headers     reqauth.HeaderNames
	NoncePolicy nonce.Policy
	NonceWindow time.Duration
	ReplayDBDir string

	RateLimitRPS int
	Workers      int
	QueueSize    int
	CORSOrigins  []string
	MaxFileBytes int64
	IPFSGateway  string

	Telemetry telemetry.Config

	LogLevel  string
	LogFormat string

	Devnet         bool
	DevnetAccounts []common.Address
	DevnetBalance  *big.Int
}

// DefaultHome returns $HOME/.alith, or .alith when the home directory is
// unknown.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".alith"
	}
	return filepath.Join(home, ".alith")
}

// ConfigPath returns the config file under home.
func ConfigPath(home string) string {
	return filepath.Join(home, configDir, configFile)
}

// setDefaults registers the default of every key.
func setDefaults(v *viper.Viper) {
	cfg := contracts.DefaultConfig()
	headers := reqauth.DefaultHeaderNames()
	pool := api.DefaultPoolConfig()

	v.SetDefault(keyChainNetwork, NetworkLocal)
	v.SetDefault(keyChainEndpoint, "")
	v.SetDefault(keyChainID, 0)
	v.SetDefault(keyDataRegistry, cfg.DataRegistry.Hex())
	v.SetDefault(keyVerifiedComputing, cfg.VerifiedComputing.Hex())
	v.SetDefault(keySettlement, cfg.Settlement.Hex())
	v.SetDefault(keyNodeListen, "0.0.0.0:8000")
	v.SetDefault(keyNodePrivateKey, "")
	v.SetDefault(keyNodeRSAKeyFile, "")
	v.SetDefault(keyHeaderUser, headers.User)
	v.SetDefault(keyHeaderNonce, headers.Nonce)
	v.SetDefault(keyHeaderSignature, headers.Signature)
	v.SetDefault(keyNoncePolicy, string(nonce.PolicyMonotonic))
	v.SetDefault(keyNonceWindow, "24h")
	v.SetDefault(keyReplayDBDir, "")
	v.SetDefault(keyRateLimitRPS, 100)
	v.SetDefault(keyWorkers, pool.Workers)
	v.SetDefault(keyQueueSize, pool.QueueSize)
	v.SetDefault(keyCORSOrigins, []string{})
	v.SetDefault(keyMaxFileBytes, api.DefaultMaxFileBytes)
	v.SetDefault(keyIPFSGateway, api.DefaultIPFSGateway)
	v.SetDefault(keyTelemetryEnabled, false)
	v.SetDefault(keyTelemetryEndpoint, "http://localhost:4318")
	v.SetDefault(keyTelemetrySample, 0.1)
	v.SetDefault(keyTelemetryMetrics, true)
	v.SetDefault(keyTelemetryEnv, "")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "plain")
	v.SetDefault(keyDevnet, false)
	v.SetDefault(keyDevnetAccounts, []string{})
	v.SetDefault(keyDevnetBalance, "1000000000000000000000")
}

// newViper returns a viper reading ALITH_* environment overrides and, when
// it exists, the config file under home.
func newViper(home string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	path := ConfigPath(home)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return v, nil
}

// LoadConfig resolves the configuration held by v.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Network:      strings.ToLower(cast.ToString(v.Get(keyChainNetwork))),
		Endpoint:     cast.ToString(v.Get(keyChainEndpoint)),
		Listen:       cast.ToString(v.Get(keyNodeListen)),
		PrivateKey:   strings.TrimSpace(cast.ToString(v.Get(keyNodePrivateKey))),
		RSAKeyFile:   cast.ToString(v.Get(keyNodeRSAKeyFile)),
		ReplayDBDir:  cast.ToString(v.Get(keyReplayDBDir)),
		RateLimitRPS: cast.ToInt(v.Get(keyRateLimitRPS)),
		Workers:      cast.ToInt(v.Get(keyWorkers)),
		QueueSize:    cast.ToInt(v.Get(keyQueueSize)),
		CORSOrigins:  splitList(v.Get(keyCORSOrigins)),
		MaxFileBytes: cast.ToInt64(v.Get(keyMaxFileBytes)),
		IPFSGateway:  cast.ToString(v.Get(keyIPFSGateway)),
		LogLevel:     cast.ToString(v.Get(keyLogLevel)),
		LogFormat:    cast.ToString(v.Get(keyLogFormat)),
		Devnet:       cast.ToBool(v.Get(keyDevnet)),
		Telemetry: telemetry.Config{
			Enabled:        cast.ToBool(v.Get(keyTelemetryEnabled)),
			OTLPEndpoint:   cast.ToString(v.Get(keyTelemetryEndpoint)),
			MetricsEnabled: cast.ToBool(v.Get(keyTelemetryMetrics)),
			Environment:    cast.ToString(v.Get(keyTelemetryEnv)),
		},
		Headers: reqauth.HeaderNames{
			User:      cast.ToString(v.Get(keyHeaderUser)),
			Nonce:     cast.ToString(v.Get(keyHeaderNonce)),
			Signature: cast.ToString(v.Get(keyHeaderSignature)),
		}.WithDefaults(),
	}

	switch cfg.Network {
	case NetworkLocal:
		if cfg.Endpoint == "" {
			cfg.Endpoint = contracts.LocalEndpoint
		}
		cfg.ChainID = big.NewInt(contracts.LocalChainID)
	case NetworkTestnet:
		if cfg.Endpoint == "" {
			cfg.Endpoint = contracts.TestnetEndpoint
		}
		cfg.ChainID = big.NewInt(contracts.TestnetChainID)
	default:
		return Config{}, fmt.Errorf("unknown network %q (want %s or %s)", cfg.Network, NetworkLocal, NetworkTestnet)
	}
	if id := cast.ToString(v.Get(keyChainID)); id != "" && id != "0" {
		chainID, ok := new(big.Int).SetString(id, 0)
		if !ok || chainID.Sign() <= 0 {
			return Config{}, fmt.Errorf("invalid %s %q", keyChainID, id)
		}
		cfg.ChainID = chainID
	}

	var err error
	if cfg.Contracts, err = loadContracts(v); err != nil {
		return Config{}, err
	}
	if cfg.NoncePolicy, err = nonce.ParsePolicy(cast.ToString(v.Get(keyNoncePolicy))); err != nil {
		return Config{}, err
	}
	if cfg.NonceWindow, err = cast.ToDurationE(v.Get(keyNonceWindow)); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", keyNonceWindow, err)
	}
	if cfg.Telemetry.SampleRate, err = cast.ToFloat64E(v.Get(keyTelemetrySample)); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", keyTelemetrySample, err)
	}
	if cfg.Listen == "" {
		return Config{}, fmt.Errorf("%s is required", keyNodeListen)
	}

	for _, s := range splitList(v.Get(keyDevnetAccounts)) {
		if !common.IsHexAddress(s) {
			return Config{}, fmt.Errorf("invalid devnet account %q", s)
		}
		cfg.DevnetAccounts = append(cfg.DevnetAccounts, common.HexToAddress(s))
	}
	balance, ok := new(big.Int).SetString(cast.ToString(v.Get(keyDevnetBalance)), 10)
	if !ok || balance.Sign() < 0 {
		return Config{}, fmt.Errorf("invalid %s %q", keyDevnetBalance, v.Get(keyDevnetBalance))
	}
	cfg.DevnetBalance = balance

	return cfg, nil
}

func loadContracts(v *viper.Viper) (contracts.Config, error) {
	addrs := make(map[string]common.Address, 3)
	for _, key := range []string{keyDataRegistry, keyVerifiedComputing, keySettlement} {
		s := cast.ToString(v.Get(key))
		if !common.IsHexAddress(s) {
			return contracts.Config{}, fmt.Errorf("invalid %s %q", key, s)
		}
		addrs[key] = common.HexToAddress(s)
	}
	cfg := contracts.Config{
		DataRegistry:      addrs[keyDataRegistry],
		VerifiedComputing: addrs[keyVerifiedComputing],
		Settlement:        addrs[keySettlement],
	}
	return cfg, cfg.Validate()
}

// splitList accepts a list or a comma separated string, as environment
// variables arrive as plain strings.
func splitList(v interface{}) []string {
	var out []string
	for _, item := range cast.ToStringSlice(v) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
