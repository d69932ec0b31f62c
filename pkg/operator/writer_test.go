package operator

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

// fakeBackend is a minimal chain.Backend stand-in, mirroring the canceler
// package's own test double, for writer tests that never touch real RPC.
type fakeBackend struct {
	chainID hashing.ChainID

	pendingWithdraw *chain.PendingWithdraw
	pendingErr      error

	pendingHashes []hashing.Key32

	cancelWindow int64

	approveErr   error
	approveCalls int

	executeErr   error
	executeCalls int
}

func (f *fakeBackend) ChainID() hashing.ChainID { return f.chainID }
func (f *fakeBackend) GetDeposit(ctx context.Context, hash hashing.Key32) (*chain.Deposit, error) {
	return nil, nil
}
func (f *fakeBackend) GetPendingWithdraw(ctx context.Context, hash hashing.Key32) (*chain.PendingWithdraw, error) {
	return f.pendingWithdraw, f.pendingErr
}
func (f *fakeBackend) CanCancel(ctx context.Context, hash hashing.Key32) (bool, error) {
	return false, nil
}
func (f *fakeBackend) SubmitWithdrawApprove(ctx context.Context, hash hashing.Key32) error {
	f.approveCalls++
	return f.approveErr
}
func (f *fakeBackend) SubmitWithdrawCancel(ctx context.Context, hash hashing.Key32) error {
	return nil
}
func (f *fakeBackend) GetCancelWindow(ctx context.Context) (int64, error) {
	return f.cancelWindow, nil
}
func (f *fakeBackend) GetThisChainId(ctx context.Context) (hashing.ChainID, error) {
	return f.chainID, nil
}
func (f *fakeBackend) GetPendingWithdrawHashes(ctx context.Context) ([]hashing.Key32, error) {
	return f.pendingHashes, nil
}
func (f *fakeBackend) SubmitWithdrawExecute(ctx context.Context, hash hashing.Key32) error {
	f.executeCalls++
	return f.executeErr
}

func testWriter(t *testing.T, destID byte, backend chain.Backend, sources map[hashing.ChainID]chain.Backend) *Writer {
	t.Helper()
	var cid hashing.ChainID
	cid[3] = destID
	return NewWriter(WriterConfig{
		DestChainKey:         cid.String(),
		DestChainID:          cid,
		ApprovedCacheMaxSize: 16,
		ApprovedCacheTTL:     time.Hour,
	}, backend, nil, sources, (*store.Store)(nil), zap.NewNop())
}

func TestTryApprove_SubmitsOnValidSourceDeposit(t *testing.T) {
	var srcID hashing.ChainID
	srcID[3] = 2
	destBackend := &fakeBackend{}
	dest := testWriter(t, 1, destBackend, nil)

	srcBackend := &depositBackend{
		fakeBackend: &fakeBackend{chainID: srcID},
		deposit:     &chain.Deposit{DestChain: dest.cfg.DestChainID},
	}
	dest.sources = map[hashing.ChainID]chain.Backend{srcID: srcBackend}

	var hash hashing.Key32
	hash[0] = 1
	destBackend.pendingWithdraw = &chain.PendingWithdraw{SrcChain: srcID, Amount: big.NewInt(1)}

	dest.tryApprove(context.Background(), hash)

	require.Equal(t, 1, destBackend.approveCalls)
	require.True(t, dest.approvedHashes.Contains(hash))
}

func TestTryApprove_RefusesWhenNoMatchingSourceDeposit(t *testing.T) {
	var srcID hashing.ChainID
	srcID[3] = 2
	destBackend := &fakeBackend{}
	dest := testWriter(t, 1, destBackend, nil)
	srcBackend := &depositBackend{fakeBackend: &fakeBackend{chainID: srcID}, deposit: nil}
	dest.sources = map[hashing.ChainID]chain.Backend{srcID: srcBackend}

	var hash hashing.Key32
	hash[0] = 2
	destBackend.pendingWithdraw = &chain.PendingWithdraw{SrcChain: srcID, Amount: big.NewInt(1)}

	dest.tryApprove(context.Background(), hash)

	require.Equal(t, 0, destBackend.approveCalls)
	require.False(t, dest.approvedHashes.Contains(hash))
}

func TestTryApprove_SkipsAlreadyApproved(t *testing.T) {
	destBackend := &fakeBackend{}
	dest := testWriter(t, 1, destBackend, nil)

	var hash hashing.Key32
	hash[0] = 3
	destBackend.pendingWithdraw = &chain.PendingWithdraw{Approved: true}

	dest.tryApprove(context.Background(), hash)

	require.Equal(t, 0, destBackend.approveCalls)
	require.True(t, dest.approvedHashes.Contains(hash))
}

func TestTryApprove_DedupesCachedHash(t *testing.T) {
	destBackend := &fakeBackend{}
	dest := testWriter(t, 1, destBackend, nil)

	var hash hashing.Key32
	hash[0] = 4
	dest.approvedHashes.Insert(hash, struct{}{})

	dest.tryApprove(context.Background(), hash)

	require.Equal(t, 0, destBackend.approveCalls)
}

func TestPollExecutions_ExecutesAfterCancelWindowElapsed(t *testing.T) {
	destBackend := &fakeBackend{cancelWindow: 3600}
	dest := testWriter(t, 1, destBackend, nil)

	var hash hashing.Key32
	hash[0] = 5
	destBackend.pendingHashes = []hashing.Key32{hash}
	destBackend.pendingWithdraw = &chain.PendingWithdraw{
		Approved:   true,
		ApprovedAt: time.Now().Unix() - 7200,
	}

	require.NoError(t, dest.pollExecutions(context.Background()))
	require.Equal(t, 1, destBackend.executeCalls)
}

func TestPollExecutions_SkipsBeforeCancelWindowElapsed(t *testing.T) {
	destBackend := &fakeBackend{cancelWindow: 3600}
	dest := testWriter(t, 1, destBackend, nil)

	var hash hashing.Key32
	hash[0] = 6
	destBackend.pendingHashes = []hashing.Key32{hash}
	destBackend.pendingWithdraw = &chain.PendingWithdraw{
		Approved:   true,
		ApprovedAt: time.Now().Unix(),
	}

	require.NoError(t, dest.pollExecutions(context.Background()))
	require.Equal(t, 0, destBackend.executeCalls)
}

func TestPollExecutions_SkipsUnapprovedOrCancelledOrExecuted(t *testing.T) {
	destBackend := &fakeBackend{cancelWindow: 3600}
	dest := testWriter(t, 1, destBackend, nil)

	var hash hashing.Key32
	hash[0] = 7
	destBackend.pendingHashes = []hashing.Key32{hash}
	for _, pw := range []*chain.PendingWithdraw{
		{Approved: false, ApprovedAt: time.Now().Unix() - 7200},
		{Approved: true, Cancelled: true, ApprovedAt: time.Now().Unix() - 7200},
		{Approved: true, Executed: true, ApprovedAt: time.Now().Unix() - 7200},
	} {
		destBackend.pendingWithdraw = pw
		require.NoError(t, dest.pollExecutions(context.Background()))
		require.Equal(t, 0, destBackend.executeCalls)
	}
}

func TestDecode20_AcceptsWithAndWithoutPrefix(t *testing.T) {
	want := [20]byte{1, 2, 3}
	got, err := decode20("0x0102030000000000000000000000000000000000")
	require.NoError(t, err)
	require.Equal(t, want, got)

	got, err = decode20("0102030000000000000000000000000000000000")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestDecode20_RejectsWrongLength(t *testing.T) {
	_, err := decode20("0x0102")
	require.Error(t, err)
}

func TestDecode20_RejectsInvalidHex(t *testing.T) {
	_, err := decode20("0xzz")
	require.Error(t, err)
}

// depositBackend layers chain.Deposit responses onto fakeBackend, since
// VerifySourceDeposit reads the source chain through GetDeposit rather than
// GetPendingWithdraw.
type depositBackend struct {
	*fakeBackend
	deposit    *chain.Deposit
	depositErr error
}

func (d *depositBackend) GetDeposit(ctx context.Context, hash hashing.Key32) (*chain.Deposit, error) {
	return d.deposit, d.depositErr
}
