package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/coolcode/alith/x/signing"
)

func execute(t *testing.T, daemon bool, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(daemon)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func hasCommand(root *cobra.Command, path ...string) bool {
	found, _, err := root.Find(path)
	return err == nil && found != root && found.Name() == path[len(path)-1]
}

func TestRootCommandTree(t *testing.T) {
	daemon := NewRootCmd(true)
	cli := NewRootCmd(false)

	for _, path := range [][]string{
		{"keys", "generate"},
		{"files", "add"},
		{"files", "reward"},
		{"nodes", "list"},
		{"jobs", "request"},
		{"settlement", "deposit-inference"},
		{"settlement", "settle"},
		{"proof", "send"},
		{"version"},
	} {
		require.True(t, hasCommand(daemon, path...), path)
		require.True(t, hasCommand(cli, path...), path)
	}
	require.True(t, hasCommand(daemon, "start"))
	require.True(t, hasCommand(daemon, "init"))
	require.False(t, hasCommand(cli, "start"))
	require.False(t, hasCommand(cli, "init"))
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, false, "version", "--home", t.TempDir())
	require.NoError(t, err)
	require.Equal(t, Version+"\n", out)
}

func TestKeysGenerateAndShow(t *testing.T) {
	home := t.TempDir()
	out, err := execute(t, false, "keys", "generate", "--home", home)
	require.NoError(t, err)

	var key keyOutput
	require.NoError(t, json.Unmarshal([]byte(out), &key))
	signer, err := signing.SignerFromHex(key.PrivateKey)
	require.NoError(t, err)
	require.Equal(t, signer.Address().Hex(), key.Address)

	out, err = execute(t, false, "keys", "show", "--home", home, "--private-key", key.PrivateKey)
	require.NoError(t, err)
	var shown keyOutput
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	require.Equal(t, key.Address, shown.Address)
	require.Empty(t, shown.PrivateKey)

	_, err = execute(t, false, "keys", "show", "--home", home)
	require.ErrorContains(t, err, "no signing key")
}

func TestKeysRSA(t *testing.T) {
	home := t.TempDir()
	out, err := execute(t, false, "keys", "rsa", "--home", home)
	require.NoError(t, err)
	require.Contains(t, out, "BEGIN")

	path := filepath.Join(home, configDir, "node_rsa.pem")
	key, err := readRSAKey(path)
	require.NoError(t, err)
	require.Equal(t, 2048, key.N.BitLen())

	_, err = execute(t, false, "keys", "rsa", "--home", home)
	require.ErrorContains(t, err, "already exists")

	_, err = execute(t, false, "keys", "rsa", "--home", home, "--output", filepath.Join(home, "small.pem"), "--bits", "1024")
	require.Error(t, err)
}

func TestInitWritesConfig(t *testing.T) {
	home := t.TempDir()
	out, err := execute(t, true, "init", "--home", home, "--network", "testnet", "--generate-key")
	require.NoError(t, err)
	require.Contains(t, out, ConfigPath(home))

	info, err := os.Stat(ConfigPath(home))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg, err := loadTestConfig(t, home)
	require.NoError(t, err)
	require.Equal(t, NetworkTestnet, cfg.Network)
	_, err = signing.SignerFromHex(cfg.PrivateKey)
	require.NoError(t, err)

	_, err = execute(t, true, "init", "--home", home)
	require.ErrorContains(t, err, "already exists")

	_, err = execute(t, true, "init", "--home", home, "--overwrite")
	require.NoError(t, err)
}

func TestLedgerCommandsNeedEndpointAndKey(t *testing.T) {
	home := t.TempDir()

	_, err := execute(t, false, "files", "count", "--home", home)
	require.ErrorContains(t, err, "no signing key")

	t.Setenv("ALITH_DEVNET", "true")
	_, err = execute(t, false, "files", "count", "--home", home)
	require.ErrorContains(t, err, "devnet")
}

func TestCommandArgumentValidation(t *testing.T) {
	home := t.TempDir()
	key, err := signing.GenerateSigner()
	require.NoError(t, err)

	for _, args := range [][]string{
		{"files", "get", "0"},
		{"jobs", "request", "1", "-5"},
		{"nodes", "get", "not-an-address"},
		{"settlement", "retrieve", "0x01", "bob"},
	} {
		args = append(args, "--home", home, "--private-key", key.PrivateKeyHex())
		_, err := execute(t, false, args...)
		require.Error(t, err, strings.Join(args, " "))
	}
}

func TestSignRequestOffline(t *testing.T) {
	user, err := signing.GenerateSigner()
	require.NoError(t, err)
	node := "0x00000000000000000000000000000000000000bb"

	out, err := execute(t, false, "settlement", "sign-request", node, "7", "--home", t.TempDir(), "--private-key", user.PrivateKeyHex())
	require.NoError(t, err)

	var signed signedRequest
	require.NoError(t, json.Unmarshal([]byte(out), &signed))
	require.Equal(t, user.Address().Hex(), signed.User)
	require.Equal(t, "7", signed.Nonce)

	sig, err := signing.ParseSignature(signed.Signature)
	require.NoError(t, err)
	nodeAddr, err := parseAddress(node)
	require.NoError(t, err)
	nonce, err := parseAmount("7")
	require.NoError(t, err)
	require.NoError(t, signing.Verify(signing.RequestPayload{Nonce: nonce, User: user.Address(), Node: nodeAddr}, sig, user.Address()))
}

func TestParseHelpers(t *testing.T) {
	amount, err := parseAmount("1000000000000000000000")
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000000", amount.String())
	for _, bad := range []string{"", "-1", "1.5", "abc"} {
		_, err := parseAmount(bad)
		require.Error(t, err, bad)
	}

	id, err := parseID("file id", "12")
	require.NoError(t, err)
	require.Equal(t, uint64(12), id)
	for _, bad := range []string{"0", "-1", "x"} {
		_, err := parseID("file id", bad)
		require.Error(t, err, bad)
	}
}
