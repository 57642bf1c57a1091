package evm

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/coolcode/alith/contracts"
	"github.com/coolcode/alith/ledger"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

type rpcError struct {
	msg  string
	data interface{}
}

func (e rpcError) Error() string          { return e.msg }
func (e rpcError) ErrorData() interface{} { return e.data }

func revertData(t *testing.T, reason string) string {
	t.Helper()
	stringTy, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: stringTy}}.Pack(reason)
	require.NoError(t, err)
	return hexutil.Encode(append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...))
}

type fakeBackend struct {
	mu       sync.Mutex
	chainID  int64
	nonce    uint64
	sent     []*types.Transaction
	status   uint64
	logs     []*types.Log
	estimate error
	send     error
	call     error
	out      []byte
	balance  *big.Int
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(f.chainID), nil }

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(10), BaseFee: big.NewInt(1)}, nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	if f.estimate != nil {
		return 0, f.estimate
	}
	return 21000, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.send != nil {
		return f.send
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	f.nonce++
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.sent {
		if tx.Hash() == hash {
			return &types.Receipt{
				Status:      f.status,
				TxHash:      hash,
				GasUsed:     tx.Gas() / 2,
				BlockNumber: big.NewInt(11),
				Logs:        f.logs,
			}, nil
		}
	}
	return nil, ethereum.NotFound
}

func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return nil, nil
}

func (f *fakeBackend) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return f.out, f.call
}

func (f *fakeBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return f.balance, nil
}

func newGateway(t *testing.T, backend *fakeBackend) (*Gateway, *signing.Signer) {
	t.Helper()
	signer, err := signing.GenerateSigner()
	require.NoError(t, err)
	gw, err := NewGateway(context.Background(), backend, signer, Config{}, nil)
	require.NoError(t, err)
	return gw, signer
}

func TestSubmitSignsDynamicFeeTx(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	ev := contracts.DataRegistry.Events["FileAdded"]
	data, err := ev.Inputs.NonIndexed().Pack("ipfs://x")
	require.NoError(t, err)

	backend := &fakeBackend{
		chainID: 1337,
		nonce:   4,
		status:  types.ReceiptStatusSuccessful,
		logs: []*types.Log{{
			Address: contracts.DefaultDataRegistryAddress,
			Topics:  []common.Hash{ev.ID, common.BigToHash(big.NewInt(7)), common.BytesToHash(owner.Bytes())},
			Data:    data,
		}},
	}
	gw, signer := newGateway(t, backend)

	tx, err := ledger.NewTx(&contracts.DataRegistry, contracts.DefaultDataRegistryAddress, nil, "addFile", "ipfs://x")
	require.NoError(t, err)
	receipt, err := gw.Submit(context.Background(), tx)
	require.NoError(t, err)
	require.True(t, receipt.Succeeded())
	require.Equal(t, uint64(11), receipt.Height)

	require.Len(t, backend.sent, 1)
	sent := backend.sent[0]
	require.Equal(t, uint8(types.DynamicFeeTxType), sent.Type())
	require.Equal(t, uint64(4), sent.Nonce())
	require.Equal(t, uint64(25200), sent.Gas())
	require.Equal(t, int64(3), sent.GasFeeCap().Int64())
	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1337)), sent)
	require.NoError(t, err)
	require.Equal(t, signer.Address(), from)

	require.Len(t, receipt.Events, 1)
	require.Equal(t, "FileAdded", receipt.Events[0].Type)
	url, ok := receipt.Events[0].Attribute("url")
	require.True(t, ok)
	require.Equal(t, "ipfs://x", url)
	fileID, ok := receipt.Events[0].Attribute("fileId")
	require.True(t, ok)
	require.Equal(t, "7", fileID)
}

func TestSubmitRevertedReceipt(t *testing.T) {
	backend := &fakeBackend{
		chainID: 1337,
		status:  types.ReceiptStatusFailed,
		call:    rpcError{msg: "execution reverted", data: revertData(t, "Only owner can request reward")},
	}
	gw, _ := newGateway(t, backend)

	receipt, err := gw.Submit(context.Background(), ledger.Tx{To: contracts.DefaultDataRegistryAddress, Data: []byte{1, 2, 3, 4}})
	require.ErrorIs(t, err, sharedtypes.ErrUnauthorized)
	require.NotNil(t, receipt)
	require.False(t, receipt.Succeeded())
}

func TestEstimateRevertIsNotSent(t *testing.T) {
	backend := &fakeBackend{
		chainID:  1337,
		estimate: rpcError{msg: "execution reverted: File not found"},
	}
	gw, _ := newGateway(t, backend)

	_, err := gw.Submit(context.Background(), ledger.Tx{To: contracts.DefaultDataRegistryAddress})
	require.ErrorIs(t, err, sharedtypes.ErrNotFound)
	require.False(t, sharedtypes.IsRetryable(err))
	require.Empty(t, backend.sent)
}

func TestTransportFailureIsRetryable(t *testing.T) {
	backend := &fakeBackend{chainID: 1337, send: errors.New("connection refused")}
	gw, _ := newGateway(t, backend)

	_, err := gw.Submit(context.Background(), ledger.Tx{To: contracts.DefaultSettlementAddress})
	require.ErrorIs(t, err, sharedtypes.ErrLedger)
	require.True(t, sharedtypes.IsRetryable(err))
}

func TestCallAndBalance(t *testing.T) {
	out, err := contracts.DataRegistry.Methods["filesCount"].Outputs.Pack(big.NewInt(3))
	require.NoError(t, err)
	backend := &fakeBackend{chainID: 1337, out: out, balance: big.NewInt(99)}
	gw, _ := newGateway(t, backend)

	values, err := ledger.CallMethod(context.Background(), gw, &contracts.DataRegistry, contracts.DefaultDataRegistryAddress, "filesCount")
	require.NoError(t, err)
	require.Equal(t, int64(3), values[0].(*big.Int).Int64())

	bal, err := gw.BalanceAt(context.Background(), gw.Address())
	require.NoError(t, err)
	require.Equal(t, int64(99), bal.Int64())
}

func TestChainIDMismatch(t *testing.T) {
	signer, err := signing.GenerateSigner()
	require.NoError(t, err)
	_, err = NewGateway(context.Background(), &fakeBackend{chainID: 1}, signer, Config{ChainID: big.NewInt(133718)}, nil)
	require.ErrorIs(t, err, sharedtypes.ErrInvalidRequest)
}

func TestClassifyRevert(t *testing.T) {
	cases := map[string]error{
		"Node already active":              sharedtypes.ErrNodeAlreadyActive,
		"URL already exists":               sharedtypes.ErrAlreadyExists,
		"Insufficient balance":             sharedtypes.ErrInsufficientBalance,
		"Invalid signature":                sharedtypes.ErrInvalidSignature,
		"Job does not exist":               sharedtypes.ErrNotFound,
		"Ownable: caller is not the owner": sharedtypes.ErrUnauthorized,
		"Job already completed":            sharedtypes.ErrInvalidState,
		"":                                 sharedtypes.ErrInvalidState,
	}
	for reason, want := range cases {
		require.ErrorIs(t, classifyRevert(reason), want, reason)
	}
}
