package canceler

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/chainsafe/xchain-bridge-operator/pkg/chain"
	"github.com/chainsafe/xchain-bridge-operator/pkg/hashing"
	"github.com/chainsafe/xchain-bridge-operator/pkg/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBackend is a minimal chain.Backend stand-in for verify()/tryCancel()
// tests that never touch real RPC.
type fakeBackend struct {
	chainID hashing.ChainID

	deposit    *chain.Deposit
	depositErr error

	canCancel    bool
	canCancelErr error
	cancelErr    error
	cancelCalls  int
}

func (f *fakeBackend) ChainID() hashing.ChainID { return f.chainID }
func (f *fakeBackend) GetDeposit(ctx context.Context, hash hashing.Key32) (*chain.Deposit, error) {
	return f.deposit, f.depositErr
}
func (f *fakeBackend) GetPendingWithdraw(ctx context.Context, hash hashing.Key32) (*chain.PendingWithdraw, error) {
	return nil, nil
}
func (f *fakeBackend) CanCancel(ctx context.Context, hash hashing.Key32) (bool, error) {
	return f.canCancel, f.canCancelErr
}
func (f *fakeBackend) SubmitWithdrawApprove(ctx context.Context, hash hashing.Key32) error {
	return nil
}
func (f *fakeBackend) SubmitWithdrawCancel(ctx context.Context, hash hashing.Key32) error {
	f.cancelCalls++
	return f.cancelErr
}
func (f *fakeBackend) GetCancelWindow(ctx context.Context) (int64, error) { return 3600, nil }
func (f *fakeBackend) GetThisChainId(ctx context.Context) (hashing.ChainID, error) {
	return f.chainID, nil
}
func (f *fakeBackend) GetPendingWithdrawHashes(ctx context.Context) ([]hashing.Key32, error) {
	return nil, nil
}
func (f *fakeBackend) SubmitWithdrawExecute(ctx context.Context, hash hashing.Key32) error {
	return nil
}

func testCanceler(t *testing.T, chains []ChainEntry) *Canceler {
	t.Helper()
	return New(Config{
		DedupeCacheMaxSize:             16,
		DedupeCacheTTL:                 time.Hour,
		EVMPrecheckRetry:               chain.Retry{Initial: time.Millisecond, Factor: 1, Max: time.Millisecond, MaxAttempts: 2},
		EVMPrecheckCircuitBreakerLimit: 2,
	}, chains, (*store.Store)(nil), zap.NewNop())
}

func entry(id byte, backend chain.Backend) ChainEntry {
	var cid hashing.ChainID
	cid[3] = id
	return ChainEntry{chainID: cid, key: cid.String(), backend: backend}
}

func evmEntry(id byte, backend chain.Backend) ChainEntry {
	e := entry(id, backend)
	e.isEVM = true
	return e
}

func TestVerify_UnknownSourceChain(t *testing.T) {
	dest := entry(1, &fakeBackend{})
	c := testCanceler(t, []ChainEntry{dest})

	var unknownSrc hashing.ChainID
	unknownSrc[3] = 99
	pw := &chain.PendingWithdraw{SrcChain: unknownSrc, Amount: big.NewInt(1)}

	verdict, reason := c.verify(context.Background(), dest, pw)
	require.Equal(t, VerdictUnknown, verdict)
	require.Contains(t, reason, "not configured")
}

func TestVerify_NoMatchingDeposit(t *testing.T) {
	src := entry(2, &fakeBackend{deposit: nil})
	dest := entry(1, &fakeBackend{})
	c := testCanceler(t, []ChainEntry{src, dest})

	pw := &chain.PendingWithdraw{SrcChain: src.chainID, Amount: big.NewInt(1)}
	verdict, reason := c.verify(context.Background(), dest, pw)
	require.Equal(t, VerdictInvalid, verdict)
	require.Contains(t, reason, "no matching deposit")
}

func TestVerify_DestChainMismatch(t *testing.T) {
	var wrongDest hashing.ChainID
	wrongDest[3] = 77
	srcBackend := &fakeBackend{deposit: &chain.Deposit{DestChain: wrongDest}}
	src := entry(2, srcBackend)
	dest := entry(1, &fakeBackend{})
	c := testCanceler(t, []ChainEntry{src, dest})

	pw := &chain.PendingWithdraw{SrcChain: src.chainID, Amount: big.NewInt(1)}
	verdict, _ := c.verify(context.Background(), dest, pw)
	require.Equal(t, VerdictInvalid, verdict)
}

func TestVerify_Valid(t *testing.T) {
	dest := entry(1, &fakeBackend{})
	srcBackend := &fakeBackend{deposit: &chain.Deposit{DestChain: dest.chainID}}
	src := entry(2, srcBackend)
	c := testCanceler(t, []ChainEntry{src, dest})

	pw := &chain.PendingWithdraw{SrcChain: src.chainID, Amount: big.NewInt(1)}
	verdict, _ := c.verify(context.Background(), dest, pw)
	require.Equal(t, VerdictValid, verdict)
}

func TestVerify_SourceQueryError_IsPendingNotInvalid(t *testing.T) {
	srcBackend := &fakeBackend{depositErr: context.DeadlineExceeded}
	src := entry(2, srcBackend)
	dest := entry(1, &fakeBackend{})
	c := testCanceler(t, []ChainEntry{src, dest})

	pw := &chain.PendingWithdraw{SrcChain: src.chainID, Amount: big.NewInt(1)}
	verdict, _ := c.verify(context.Background(), dest, pw)
	require.Equal(t, VerdictPending, verdict)
}

func TestTryCancel_SubmitsOnValidCancellation(t *testing.T) {
	destBackend := &fakeBackend{canCancel: true}
	dest := evmEntry(1, destBackend)
	c := testCanceler(t, []ChainEntry{dest})

	var hash hashing.Key32
	hash[0] = 1
	c.tryCancel(context.Background(), dest, hash)

	require.Equal(t, 1, destBackend.cancelCalls)
	require.True(t, c.cancelledHashes.Contains(hash))
}

func TestTryCancel_SkipsWhenCircuitOpen(t *testing.T) {
	destBackend := &fakeBackend{canCancel: true}
	dest := evmEntry(1, destBackend)
	c := testCanceler(t, []ChainEntry{dest})
	c.evmPrecheckCircuitOpen.Store(true)

	var hash hashing.Key32
	c.tryCancel(context.Background(), dest, hash)

	require.Equal(t, 0, destBackend.cancelCalls)
}

func TestTryCancel_OpensCircuitAfterRepeatedPrecheckFailures(t *testing.T) {
	destBackend := &fakeBackend{canCancelErr: context.DeadlineExceeded}
	dest := evmEntry(1, destBackend)
	c := testCanceler(t, []ChainEntry{dest})

	var hash hashing.Key32
	c.tryCancel(context.Background(), dest, hash)
	require.False(t, c.evmPrecheckCircuitOpen.Load())
	c.tryCancel(context.Background(), dest, hash)
	require.True(t, c.evmPrecheckCircuitOpen.Load())
}

func TestTryCancel_CosmosCanCancelIsUngated(t *testing.T) {
	// A Cosmos destination's can_cancel failures must never trip the
	// EVM-only circuit breaker, and a prior EVM breaker trip must never
	// block a Cosmos cancellation.
	destBackend := &fakeBackend{canCancel: true}
	dest := entry(1, destBackend) // isEVM: false
	c := testCanceler(t, []ChainEntry{dest})
	c.evmPrecheckCircuitOpen.Store(true)

	var hash hashing.Key32
	hash[0] = 7
	c.tryCancel(context.Background(), dest, hash)

	require.Equal(t, 1, destBackend.cancelCalls)
	require.True(t, c.cancelledHashes.Contains(hash))
}

func TestTryCancel_CosmosPrecheckFailureNeverOpensEVMBreaker(t *testing.T) {
	destBackend := &fakeBackend{canCancelErr: context.DeadlineExceeded}
	dest := entry(1, destBackend) // isEVM: false
	c := testCanceler(t, []ChainEntry{dest})

	var hash hashing.Key32
	for i := 0; i < int(c.cfg.EVMPrecheckCircuitBreakerLimit)+1; i++ {
		c.tryCancel(context.Background(), dest, hash)
	}

	require.False(t, c.evmPrecheckCircuitOpen.Load())
	require.Equal(t, 0, destBackend.cancelCalls)
}

func TestProcessApproval_SkipsAlreadyCancelledOrExecuted(t *testing.T) {
	destBackend := &fakeBackend{canCancel: true}
	dest := entry(1, destBackend)
	c := testCanceler(t, []ChainEntry{dest})

	var hash hashing.Key32
	hash[0] = 5
	pw := &chain.PendingWithdraw{XChainHashID: hash, Executed: true}
	c.processApproval(context.Background(), dest, pw)

	require.True(t, c.verifiedHashes.Contains(hash))
	require.Equal(t, 0, destBackend.cancelCalls)
}

func TestProcessApproval_DedupesAlreadyVerified(t *testing.T) {
	var wrongDest hashing.ChainID
	wrongDest[3] = 77
	srcBackend := &fakeBackend{deposit: nil}
	src := entry(2, srcBackend)
	destBackend := &fakeBackend{canCancel: true}
	dest := entry(1, destBackend)
	c := testCanceler(t, []ChainEntry{src, dest})

	var hash hashing.Key32
	hash[0] = 9
	c.verifiedHashes.Insert(hash, struct{}{})

	pw := &chain.PendingWithdraw{XChainHashID: hash, SrcChain: src.chainID}
	c.processApproval(context.Background(), dest, pw)

	require.Equal(t, 0, destBackend.cancelCalls)
}
