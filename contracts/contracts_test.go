package contracts_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/coolcode/alith/contracts"
)

func TestConfigValidate(t *testing.T) {
	require.NoError(t, contracts.DefaultConfig().Validate())

	cfg := contracts.DefaultConfig()
	cfg.Settlement = cfg.DataRegistry
	require.Error(t, cfg.Validate())

	cfg = contracts.DefaultConfig()
	cfg.VerifiedComputing = common.Address{}
	require.Error(t, cfg.Validate())
}

func TestABIFor(t *testing.T) {
	cfg := contracts.DefaultConfig()

	parsed, ok := cfg.ABIFor(cfg.Settlement)
	require.True(t, ok)
	_, exists := parsed.Methods["settlementFees"]
	require.True(t, exists)

	_, ok = cfg.ABIFor(common.HexToAddress("0x99"))
	require.False(t, ok)
}

func TestTupleStructsRoundTrip(t *testing.T) {
	method := contracts.DataRegistry.Methods["addProof"]
	proof := contracts.Proof{
		Signature: []byte{1, 2, 3},
		Data:      contracts.ProofData{ID: big.NewInt(4), FileURL: "file", ProofURL: "proof"},
	}

	input, err := method.Inputs.Pack(big.NewInt(4), proof)
	require.NoError(t, err)

	values, err := method.Inputs.Unpack(input)
	require.NoError(t, err)

	var args struct {
		FileId *big.Int
		Proof  contracts.Proof
	}
	require.NoError(t, method.Inputs.Copy(&args, values))
	require.Equal(t, int64(4), args.FileId.Int64())
	require.Equal(t, proof.Signature, args.Proof.Signature)
	require.Equal(t, "proof", args.Proof.Data.ProofURL)

	out := *abi.ConvertType(values[1], new(contracts.Proof)).(*contracts.Proof)
	require.Equal(t, "file", out.Data.FileURL)
}

func TestNodeInfoOutputs(t *testing.T) {
	method := contracts.VerifiedComputing.Methods["getNode"]
	node := contracts.NodeInfo{
		NodeAddress: common.HexToAddress("0x0a"),
		URL:         "http://node",
		Status:      contracts.NodeStatusActive,
		Fee:         big.NewInt(10),
		JobsCount:   big.NewInt(0),
		PublicKey:   "pem",
	}

	bz, err := method.Outputs.Pack(node)
	require.NoError(t, err)

	values, err := method.Outputs.Unpack(bz)
	require.NoError(t, err)
	got := *abi.ConvertType(values[0], new(contracts.NodeInfo)).(*contracts.NodeInfo)
	require.Equal(t, node.NodeAddress, got.NodeAddress)
	require.Equal(t, node.URL, got.URL)
	require.Equal(t, 0, node.Fee.Cmp(got.Fee))
}
