package app_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/coolcode/alith/app"
	"github.com/coolcode/alith/app/ante"
	"github.com/coolcode/alith/contracts"
	"github.com/coolcode/alith/ledger"
	settlementkeeper "github.com/coolcode/alith/x/settlement/keeper"
	settlementtypes "github.com/coolcode/alith/x/settlement/types"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

const initialBalance = 1_000_000

type testLedger struct {
	app   *app.App
	cfg   contracts.Config
	admin *app.Session
	owner *app.Session
	node  *app.Session
	payer *app.Session
}

func newSigner(t *testing.T) *signing.Signer {
	t.Helper()
	s, err := signing.GenerateSigner()
	require.NoError(t, err)
	return s
}

func setupLedger(t *testing.T) testLedger {
	t.Helper()
	admin, owner, node, payer := newSigner(t), newSigner(t), newSigner(t), newSigner(t)

	a, err := app.NewMemApp(log.NewNopLogger(),
		app.WithAuthority(admin.Address()),
		app.WithClock(func() time.Time { return time.Unix(1_700_000_000, 0).UTC() }),
		app.WithInvariantCheck(true),
	)
	require.NoError(t, err)

	gs := app.NewGenesisStateFromConfig(app.GenesisConfig{
		Accounts:       []common.Address{admin.Address(), owner.Address(), node.Address(), payer.Address()},
		AccountBalance: big.NewInt(initialBalance),
	})
	require.NoError(t, a.InitChain(gs))
	require.Equal(t, int64(1), a.Height())

	return testLedger{
		app:   a,
		cfg:   a.Contracts(),
		admin: app.NewSession(a, admin),
		owner: app.NewSession(a, owner),
		node:  app.NewSession(a, node),
		payer: app.NewSession(a, payer),
	}
}

func submit(t *testing.T, s *app.Session, parsed *abi.ABI, to common.Address, value int64, method string, args ...interface{}) (*ledger.Receipt, error) {
	t.Helper()
	tx, err := ledger.NewTx(parsed, to, big.NewInt(value), method, args...)
	require.NoError(t, err)
	return s.Submit(context.Background(), tx)
}

func mustSubmit(t *testing.T, s *app.Session, parsed *abi.ABI, to common.Address, value int64, method string, args ...interface{}) *ledger.Receipt {
	t.Helper()
	receipt, err := submit(t, s, parsed, to, value, method, args...)
	require.NoError(t, err)
	require.True(t, receipt.Succeeded())
	return receipt
}

func hasEvent(receipt *ledger.Receipt, ty string) bool {
	for _, ev := range receipt.Events {
		if ev.Type == ty {
			return true
		}
	}
	return false
}

func TestProofRewardLifecycle(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()
	nodeAddr := l.node.Address()

	mustSubmit(t, l.node, &contracts.VerifiedComputing, l.cfg.VerifiedComputing, 0,
		"addNode", nodeAddr, "http://node.local", "pem")
	mustSubmit(t, l.node, &contracts.VerifiedComputing, l.cfg.VerifiedComputing, 0,
		"updateNodeFee", big.NewInt(100))

	receipt := mustSubmit(t, l.owner, &contracts.DataRegistry, l.cfg.DataRegistry, 0,
		"addFile", "ipfs://data")
	require.True(t, hasEvent(receipt, "file_added"))

	out, err := ledger.CallMethod(ctx, l.owner, &contracts.DataRegistry, l.cfg.DataRegistry, "getFileIdByUrl", "ipfs://data")
	require.NoError(t, err)
	fileID := out[0].(*big.Int)
	require.Equal(t, int64(1), fileID.Int64())

	payload := signing.ProofPayload{ID: fileID, FileURL: "ipfs://data", ProofURL: "ipfs://proof"}
	sig, err := l.node.Signer().Sign(payload)
	require.NoError(t, err)
	proof := contracts.Proof{
		Signature: sig,
		Data:      contracts.ProofData{ID: fileID, FileURL: payload.FileURL, ProofURL: payload.ProofURL},
	}
	mustSubmit(t, l.node, &contracts.DataRegistry, l.cfg.DataRegistry, 0, "addProof", fileID, proof)

	mustSubmit(t, l.payer, &contracts.VerifiedComputing, l.cfg.VerifiedComputing, 150, "requestProof", fileID)
	require.Equal(t, int64(150), l.app.Balance(l.cfg.VerifiedComputing).Int64())
	require.Equal(t, int64(initialBalance-150), l.app.Balance(l.payer.Address()).Int64())

	out, err = ledger.CallMethod(ctx, l.owner, &contracts.VerifiedComputing, l.cfg.VerifiedComputing, "getJob", big.NewInt(1))
	require.NoError(t, err)
	job := *abi.ConvertType(out[0], new(contracts.Job)).(*contracts.Job)
	require.Equal(t, nodeAddr, job.NodeAddress)
	require.Equal(t, contracts.JobStatusRequested, job.Status)

	mustSubmit(t, l.node, &contracts.VerifiedComputing, l.cfg.VerifiedComputing, 0, "completeJob", big.NewInt(1))

	receipt = mustSubmit(t, l.owner, &contracts.DataRegistry, l.cfg.DataRegistry, 0,
		"requestReward", fileID, big.NewInt(1))
	require.True(t, hasEvent(receipt, "reward_requested"))
	require.Equal(t, int64(initialBalance+150), l.app.Balance(nodeAddr).Int64())
	require.Zero(t, l.app.Balance(l.cfg.VerifiedComputing).Sign())

	seq := l.app.Sequence(l.owner.Address())
	receipt, err = submit(t, l.owner, &contracts.DataRegistry, l.cfg.DataRegistry, 0,
		"requestReward", fileID, big.NewInt(1))
	require.ErrorIs(t, err, sharedtypes.ErrInvalidState)
	require.NotNil(t, receipt)
	require.False(t, receipt.Succeeded())
	require.True(t, hasEvent(receipt, "tx_error"))
	require.Equal(t, seq+1, l.app.Sequence(l.owner.Address()))
	require.Equal(t, int64(initialBalance+150), l.app.Balance(nodeAddr).Int64())

	require.NoError(t, l.app.CheckInvariants())
}

func TestFailedCallRollsBack(t *testing.T) {
	l := setupLedger(t)

	// No active node: requestProof fails after the value was escrowed.
	mustSubmit(t, l.owner, &contracts.DataRegistry, l.cfg.DataRegistry, 0, "addFile", "ipfs://a")
	receipt, err := submit(t, l.payer, &contracts.VerifiedComputing, l.cfg.VerifiedComputing, 10,
		"requestProof", big.NewInt(1))
	require.ErrorIs(t, err, sharedtypes.ErrNotFound)
	require.False(t, receipt.Succeeded())
	require.Equal(t, int64(initialBalance), l.app.Balance(l.payer.Address()).Int64())
	require.Zero(t, l.app.Balance(l.cfg.VerifiedComputing).Sign())
}

func TestNonPayableRejectsValue(t *testing.T) {
	l := setupLedger(t)
	_, err := submit(t, l.owner, &contracts.DataRegistry, l.cfg.DataRegistry, 5, "addFile", "ipfs://a")
	require.ErrorIs(t, err, sharedtypes.ErrInvalidRequest)
	require.Equal(t, int64(initialBalance), l.app.Balance(l.owner.Address()).Int64())
}

func TestPlainTransfer(t *testing.T) {
	l := setupLedger(t)
	to := newSigner(t).Address()

	receipt, err := l.payer.Submit(context.Background(), ledger.Tx{To: to, Value: big.NewInt(42)})
	require.NoError(t, err)
	require.True(t, receipt.Succeeded())
	require.Equal(t, app.BaseGas, receipt.GasUsed)

	bal, err := l.payer.BalanceAt(context.Background(), to)
	require.NoError(t, err)
	require.Equal(t, int64(42), bal.Int64())

	_, err = l.payer.Submit(context.Background(), ledger.Tx{To: to, Data: []byte{1, 2, 3, 4}})
	require.ErrorIs(t, err, sharedtypes.ErrInvalidRequest)
}

func TestQueryRejectsMutatingMethod(t *testing.T) {
	l := setupLedger(t)
	data, err := contracts.DataRegistry.Pack("addFile", "ipfs://a")
	require.NoError(t, err)

	_, err = l.owner.Call(context.Background(), ledger.CallMsg{To: l.cfg.DataRegistry, Data: data})
	require.ErrorIs(t, err, sharedtypes.ErrInvalidRequest)

	_, err = l.owner.Call(context.Background(), ledger.CallMsg{To: l.cfg.DataRegistry, Data: []byte{0xde, 0xad}})
	require.ErrorIs(t, err, sharedtypes.ErrInvalidRequest)
}

func TestAnteRejections(t *testing.T) {
	l := setupLedger(t)
	signer := l.payer.Signer()
	height := l.app.Height()

	cases := []struct {
		name   string
		nonce  uint64
		tamper func(*ante.SignedTx)
		target error
	}{
		{
			name:   "wrong chain id",
			tamper: func(tx *ante.SignedTx) { tx.Envelope.ChainID = big.NewInt(1) },
			target: sharedtypes.ErrInvalidRequest,
		},
		{
			name:   "stale nonce",
			nonce:  7,
			target: sharedtypes.ErrLedger,
		},
		{
			name:   "tampered value",
			tamper: func(tx *ante.SignedTx) { tx.Envelope.Value = big.NewInt(1_000) },
			target: sharedtypes.ErrUnauthorized,
		},
		{
			name:   "truncated signature",
			tamper: func(tx *ante.SignedTx) { tx.Signature = tx.Signature[:10] },
			target: sharedtypes.ErrInvalidSignature,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx, err := ante.Sign(signer, ante.Envelope{
				ChainID: l.app.ChainID(),
				Nonce:   tc.nonce,
				To:      l.owner.Address(),
				Value:   big.NewInt(1),
			})
			require.NoError(t, err)
			if tc.tamper != nil {
				tc.tamper(&tx)
			}

			receipt, err := l.app.DeliverTx(tx)
			require.Nil(t, receipt)
			require.True(t, errorsmod.IsOf(err, tc.target), "got %v", err)
			require.Equal(t, height, l.app.Height())
			require.Zero(t, l.app.Sequence(signer.Address()))
		})
	}
}

func TestGenesisRoundTrip(t *testing.T) {
	l := setupLedger(t)
	mustSubmit(t, l.owner, &contracts.DataRegistry, l.cfg.DataRegistry, 0, "addFile", "ipfs://a")
	mustSubmit(t, l.payer, &contracts.Settlement, l.cfg.Settlement, 300, "deposit")

	exported, err := l.app.ExportGenesis()
	require.NoError(t, err)

	fresh, err := app.NewMemApp(log.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, fresh.InitChain(exported))
	require.Equal(t, int64(300), fresh.Balance(l.cfg.Settlement).Int64())
	require.NoError(t, fresh.CheckInvariants())

	out, err := ledger.CallMethod(context.Background(), app.NewSession(fresh, newSigner(t)),
		&contracts.DataRegistry, l.cfg.DataRegistry, "filesCount")
	require.NoError(t, err)
	require.Equal(t, int64(1), out[0].(*big.Int).Int64())

	require.ErrorIs(t, fresh.InitChain(exported), sharedtypes.ErrInvalidState)
}

func TestInvariantRoutesRegistered(t *testing.T) {
	l := setupLedger(t)
	require.NotEmpty(t, l.app.InvariantRoutes())
}

func TestCorruptRecordFailsTransaction(t *testing.T) {
	l := setupLedger(t)
	mustSubmit(t, l.payer, &contracts.Settlement, l.cfg.Settlement, 300, "deposit")
	l.app.SetStoreValue(settlementtypes.StoreKey, settlementkeeper.UserKey(l.payer.Address()), []byte{0xff})

	receipt, err := submit(t, l.payer, &contracts.Settlement, l.cfg.Settlement, 10, "deposit")
	require.Error(t, err)
	require.Equal(t, "internal", sharedtypes.Kind(err))
	require.NotNil(t, receipt)
	require.False(t, receipt.Succeeded())
	require.Equal(t, int64(initialBalance-300), l.app.Balance(l.payer.Address()).Int64())
	require.Equal(t, int64(300), l.app.Balance(l.cfg.Settlement).Int64())

	_, err = ledger.CallMethod(context.Background(), l.payer, &contracts.Settlement, l.cfg.Settlement, "getUser", l.payer.Address())
	require.Error(t, err)

	// other users are unaffected
	mustSubmit(t, l.owner, &contracts.Settlement, l.cfg.Settlement, 5, "deposit")
}
