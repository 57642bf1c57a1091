package ante_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/coolcode/alith/app/ante"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

type memSequences map[common.Address]uint64

func (m memSequences) GetSequence(_ context.Context, addr common.Address) uint64 { return m[addr] }

func (m memSequences) IncrementSequence(_ context.Context, addr common.Address) uint64 {
	m[addr]++
	return m[addr]
}

func setup(t *testing.T, maxData int) (ante.AnteHandler, memSequences, *signing.Signer) {
	t.Helper()
	seqs := memSequences{}
	handler, err := ante.NewAnteHandler(ante.HandlerOptions{
		SequenceKeeper: seqs,
		ChainID:        big.NewInt(1337),
		MaxDataBytes:   maxData,
	})
	require.NoError(t, err)
	signer, err := signing.GenerateSigner()
	require.NoError(t, err)
	return handler, seqs, signer
}

func testContext() sharedtypes.Context {
	return sharedtypes.NewContext(nil, 1, time.Unix(0, 0), log.NewNopLogger())
}

func TestAnteHandlerAdvancesSequence(t *testing.T) {
	handler, seqs, signer := setup(t, 0)

	for nonce := uint64(0); nonce < 3; nonce++ {
		tx, err := ante.Sign(signer, ante.Envelope{ChainID: big.NewInt(1337), Nonce: nonce})
		require.NoError(t, err)
		_, err = handler(testContext(), tx)
		require.NoError(t, err)
	}
	require.Equal(t, uint64(3), seqs[signer.Address()])

	replay, err := ante.Sign(signer, ante.Envelope{ChainID: big.NewInt(1337), Nonce: 1})
	require.NoError(t, err)
	_, err = handler(testContext(), replay)
	require.ErrorIs(t, err, sharedtypes.ErrLedger)
	require.True(t, sharedtypes.IsRetryable(err))
}

func TestDataLimit(t *testing.T) {
	handler, seqs, signer := setup(t, 8)

	tx, err := ante.Sign(signer, ante.Envelope{ChainID: big.NewInt(1337), Data: make([]byte, 9)})
	require.NoError(t, err)
	_, err = handler(testContext(), tx)
	require.ErrorIs(t, err, sharedtypes.ErrInvalidRequest)
	require.Zero(t, seqs[signer.Address()])
}

func TestSignSetsSender(t *testing.T) {
	signer, err := signing.GenerateSigner()
	require.NoError(t, err)

	tx, err := ante.Sign(signer, ante.Envelope{ChainID: big.NewInt(1), From: common.HexToAddress("0x01")})
	require.NoError(t, err)
	require.Equal(t, signer.Address(), tx.Envelope.From)
	require.NotEqual(t, common.Hash{}, tx.Hash())
}

func TestChainAnteDecoratorsEmpty(t *testing.T) {
	ctx := testContext()
	out, err := ante.ChainAnteDecorators()(ctx, ante.SignedTx{})
	require.NoError(t, err)
	require.Equal(t, ctx.BlockHeight(), out.BlockHeight())
}
