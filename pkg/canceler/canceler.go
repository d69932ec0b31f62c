// Package canceler implements the fraud-detection watcher: it observes
// withdrawal approvals on every configured chain, verifies each one against
// its claimed source chain, and cancels any approval that has no matching
// deposit. It never submits approvals itself — that is the operator's job
// — only cancellations.
package canceler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/chainsafe/xchain-bridge-operator/internal/metrics"
	"github.com/chainsafe/xchain-bridge-operator/pkg/bridgeerrors"
	"github.com/chainsafe/xchain-bridge-operator/pkg/cache"
	"github.com/chainsafe/xchain-bridge-operator/pkg/chain"
	"github.com/chainsafe/xchain-bridge-operator/pkg/evmchain"
	"github.com/chainsafe/xchain-bridge-operator/pkg/hashing"
	"github.com/chainsafe/xchain-bridge-operator/pkg/store"

	"go.uber.org/zap"
)

// Config controls one canceler instance.
type Config struct {
	CancelerID   string
	PollInterval time.Duration

	EVMPollLookbackBlocks uint64
	EVMPollChunkSize      uint64

	TerraPollPageSize int
	TerraPollMaxPages int

	DedupeCacheMaxSize int
	DedupeCacheTTL     time.Duration

	EVMPrecheckRetry               chain.Retry
	EVMPrecheckCircuitBreakerLimit uint32
}

// ChainEntry is one configured chain the canceler both polls for approvals
// and can route verification queries to as a source.
type ChainEntry struct {
	chainID hashing.ChainID
	key     string // hex chain ID, used for metrics labels and cursor keys
	backend chain.Backend
	isEVM   bool             // true for EVM entries; gates the can_cancel circuit breaker (§4.8)
	evm     *evmchain.Client // non-nil only for EVM entries, needed for PollWithdrawApprovals
}

// Canceler is the verify-and-cancel state machine described by §4.8: poll
// every configured chain's approvals, verify each against its source chain
// with the same fail-closed routing the operator writer uses, and cancel
// whatever has no matching deposit.
type Canceler struct {
	cfg    Config
	chains []ChainEntry
	byID   map[hashing.ChainID]ChainEntry
	store  *store.Store
	logger *zap.Logger

	sourcesByID map[hashing.ChainID]chain.Backend

	verifiedHashes  *cache.Bounded[struct{}]
	cancelledHashes *cache.Bounded[struct{}]

	evmPrecheckConsecutiveFailures atomic.Uint32
	evmPrecheckCircuitOpen         atomic.Bool
}

func New(cfg Config, chains []ChainEntry, st *store.Store, logger *zap.Logger) *Canceler {
	byID := make(map[hashing.ChainID]ChainEntry, len(chains))
	sources := make(map[hashing.ChainID]chain.Backend, len(chains))
	for _, e := range chains {
		byID[e.chainID] = e
		sources[e.chainID] = e.backend
	}
	return &Canceler{
		cfg:             cfg,
		chains:          chains,
		byID:            byID,
		sourcesByID:     sources,
		store:           st,
		logger:          logger,
		verifiedHashes:  cache.New[struct{}](cfg.DedupeCacheMaxSize, cfg.DedupeCacheTTL, logger, "verified_hashes"),
		cancelledHashes: cache.New[struct{}](cfg.DedupeCacheMaxSize, cfg.DedupeCacheTTL, logger, "cancelled_hashes"),
	}
}

// NewEVMChainEntry registers an EVM chain both as a pollable approval source
// and as a routable verification source.
func NewEVMChainEntry(client *evmchain.Client) ChainEntry {
	return ChainEntry{chainID: client.ChainID(), key: client.ChainID().String(), backend: client, isEVM: true, evm: client}
}

// NewCosmosChainEntry registers the Terra chain the same way.
func NewCosmosChainEntry(chainID hashing.ChainID, backend chain.Backend) ChainEntry {
	return ChainEntry{chainID: chainID, key: chainID.String(), backend: backend}
}

// ValidateChainIDs cross-checks each configured chain's local chain ID
// against what its own bridge contract reports. A mismatch is logged but
// never aborts startup — the fail-closed routing in verify() is what
// actually prevents a misconfigured chain from doing damage (§4.8 "Chain-ID
// validation at startup").
func (c *Canceler) ValidateChainIDs(ctx context.Context) {
	for _, e := range c.chains {
		reported, err := e.backend.GetThisChainId(ctx)
		if err != nil {
			c.logger.Error("canceler: failed to query this_chain_id at startup", zap.String("chain", e.key), zap.Error(err))
			continue
		}
		if reported != e.chainID {
			c.logger.Error("canceler: configured chain id does not match bridge contract's reported chain id",
				zap.String("configured", e.key), zap.String("reported", reported.String()))
		}
	}
}

func (c *Canceler) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.pollOnce(ctx)
		}
	}
}

func (c *Canceler) pollOnce(ctx context.Context) {
	for _, e := range c.chains {
		var pending []*chain.PendingWithdraw
		var err error
		if e.evm != nil {
			pending, err = c.pollEVMApprovals(ctx, e)
		} else {
			pending, err = c.pollCosmosApprovals(ctx, e)
		}
		if err != nil {
			c.logger.Warn("canceler: failed to poll approvals", zap.String("chain", e.key), zap.Error(err))
			metrics.RPCErrors.WithLabelValues(e.key, "poll_approvals").Inc()
			continue
		}
		for _, pw := range pending {
			c.processApproval(ctx, e, pw)
		}
	}
}

func (c *Canceler) pollEVMApprovals(ctx context.Context, e ChainEntry) ([]*chain.PendingWithdraw, error) {
	cursor, err := c.store.GetCursor(e.key, "canceler_evm")
	if err != nil {
		return nil, err
	}
	current, err := e.evm.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}

	var lastProcessed uint64
	if cursor == nil || cursor.LastProcessed == 0 {
		if c.cfg.EVMPollLookbackBlocks < current {
			lastProcessed = current - c.cfg.EVMPollLookbackBlocks
		}
	} else {
		lastProcessed = cursor.LastProcessed
	}
	if current <= lastProcessed {
		return nil, nil
	}

	chunkSize := c.cfg.EVMPollChunkSize
	if chunkSize == 0 {
		chunkSize = 1
	}
	from := lastProcessed + 1
	lastSuccessful := lastProcessed
	var out []*chain.PendingWithdraw
	for start := from; start <= current; start += chunkSize {
		end := start + chunkSize - 1
		if end > current {
			end = current
		}
		logs, err := e.evm.PollWithdrawApprovals(ctx, start, end)
		if err != nil {
			break
		}
		for _, l := range logs {
			pw, perr := e.backend.GetPendingWithdraw(ctx, l.XChainHashID)
			if perr != nil || pw == nil {
				continue
			}
			out = append(out, pw)
		}
		lastSuccessful = end
	}
	if lastSuccessful > lastProcessed {
		if setErr := c.store.SetCursor(e.key, "canceler_evm", lastSuccessful); setErr != nil {
			return out, setErr
		}
	}
	return out, nil
}

func (c *Canceler) pollCosmosApprovals(ctx context.Context, e ChainEntry) ([]*chain.PendingWithdraw, error) {
	// The Terra entry's backend is the cosmoschain.Client, which exposes
	// the paginated pending_withdrawals query directly on itself. Going
	// through chain.Backend alone would lose that extra method, so the
	// canceler is wired with the concrete client for the Cosmos chain.
	lister, ok := e.backend.(interface {
		ListPendingWithdrawals(ctx context.Context, pageSize, maxPages int) ([]*chain.PendingWithdraw, bool, error)
	})
	if !ok {
		return nil, bridgeerrors.ConfigurationError("canceler: cosmos chain entry missing ListPendingWithdrawals", nil)
	}
	results, truncated, err := lister.ListPendingWithdrawals(ctx, c.cfg.TerraPollPageSize, c.cfg.TerraPollMaxPages)
	if truncated {
		c.logger.Warn("canceler: cosmos pending_withdrawals page cap reached, some entries unprocessed this cycle",
			zap.Int("processed", len(results)))
	}
	return results, err
}

// Verdict is the outcome of verifying one approval against its source
// chain, shared with the operator writer's identical fail-closed routing.
type Verdict = chain.Verdict

const (
	VerdictUnknown = chain.VerdictUnknown
	VerdictPending = chain.VerdictPending
	VerdictValid   = chain.VerdictValid
	VerdictInvalid = chain.VerdictInvalid
)

func (c *Canceler) processApproval(ctx context.Context, dest ChainEntry, pw *chain.PendingWithdraw) {
	if c.verifiedHashes.Contains(pw.XChainHashID) || c.cancelledHashes.Contains(pw.XChainHashID) {
		return
	}
	if pw.Cancelled || pw.Executed {
		c.verifiedHashes.Insert(pw.XChainHashID, struct{}{})
		return
	}

	verdict, reason := c.verify(ctx, dest, pw)
	switch verdict {
	case VerdictValid:
		c.verifiedHashes.Insert(pw.XChainHashID, struct{}{})
	case VerdictInvalid:
		c.logger.Warn("canceler: approval has no matching source deposit, cancelling",
			zap.String("xchain_hash_id", hexKey32(pw.XChainHashID)), zap.String("dest_chain", dest.key), zap.String("reason", reason))
		c.tryCancel(ctx, dest, pw.XChainHashID)
	case VerdictPending, VerdictUnknown:
		// leave for rediscovery or retry next cycle
	}
}

// verify implements the same fail-closed source-chain routing as the
// operator writer's deposit verification (§4.6.1 / §4.8 step 4): same
// chain, Cosmos, a known peer EVM chain, or refuse.
func (c *Canceler) verify(ctx context.Context, dest ChainEntry, pw *chain.PendingWithdraw) (Verdict, string) {
	return chain.VerifySourceDeposit(ctx, c.sourcesByID, dest.chainID, pw)
}

// tryCancel dispatches the destination's can_cancel pre-check and, if it
// passes, the cancellation itself. Only the EVM path is gated by the retry /
// circuit breaker: §4.8 and the original Terra watcher scope the breaker to
// "the EVM pre-check" specifically, and a run of Cosmos failures must never
// block legitimate EVM cancellations (or vice versa).
func (c *Canceler) tryCancel(ctx context.Context, dest ChainEntry, hash hashing.Key32) {
	if dest.isEVM {
		c.tryCancelEVM(ctx, dest, hash)
		return
	}
	c.tryCancelCosmos(ctx, dest, hash)
}

func (c *Canceler) tryCancelEVM(ctx context.Context, dest ChainEntry, hash hashing.Key32) {
	if c.evmPrecheckCircuitOpen.Load() {
		c.logger.Warn("canceler: precheck circuit breaker open, skipping cancel attempt", zap.String("dest_chain", dest.key))
		return
	}

	var canCancel bool
	var err error
	for attempt := 0; attempt < c.cfg.EVMPrecheckRetry.MaxAttempts; attempt++ {
		if attempt > 0 {
			c.cfg.EVMPrecheckRetry.Sleep(ctx.Done(), attempt-1)
		}
		canCancel, err = dest.backend.CanCancel(ctx, hash)
		if err == nil {
			break
		}
	}
	if err != nil {
		c.recordPrecheckFailure()
		metrics.RPCErrors.WithLabelValues(dest.key, "can_cancel").Inc()
		return
	}
	c.recordPrecheckSuccess()

	if !canCancel {
		return
	}
	c.submitCancel(ctx, dest, hash)
}

// tryCancelCosmos calls the Terra chain's can_cancel ungated, matching the
// original Rust watcher: no retry loop, no circuit breaker.
func (c *Canceler) tryCancelCosmos(ctx context.Context, dest ChainEntry, hash hashing.Key32) {
	canCancel, err := dest.backend.CanCancel(ctx, hash)
	if err != nil {
		c.logger.Warn("canceler: cosmos can_cancel query failed", zap.String("dest_chain", dest.key), zap.Error(err))
		metrics.RPCErrors.WithLabelValues(dest.key, "can_cancel").Inc()
		return
	}
	if !canCancel {
		return
	}
	c.submitCancel(ctx, dest, hash)
}

func (c *Canceler) submitCancel(ctx context.Context, dest ChainEntry, hash hashing.Key32) {
	if err := dest.backend.SubmitWithdrawCancel(ctx, hash); err != nil {
		c.logger.Error("canceler: cancellation submit failed", zap.String("dest_chain", dest.key), zap.Error(err))
		metrics.CancellationsSubmitted.WithLabelValues(dest.key, c.routeFor(dest, hash), "failed").Inc()
		return
	}
	c.cancelledHashes.Insert(hash, struct{}{})
	metrics.CancellationsSubmitted.WithLabelValues(dest.key, c.routeFor(dest, hash), "submitted").Inc()
}

func (c *Canceler) routeFor(dest ChainEntry, hash hashing.Key32) string {
	if dest.isEVM {
		return "evm"
	}
	return "cosmos"
}

func (c *Canceler) recordPrecheckFailure() {
	n := c.evmPrecheckConsecutiveFailures.Add(1)
	if n >= c.cfg.EVMPrecheckCircuitBreakerLimit && !c.evmPrecheckCircuitOpen.Load() {
		c.evmPrecheckCircuitOpen.Store(true)
		c.logger.Error("canceler: precheck circuit breaker opened", zap.Uint32("consecutive_failures", n))
		metrics.CircuitBreakerTrips.WithLabelValues("evm_precheck").Inc()
	}
}

func (c *Canceler) recordPrecheckSuccess() {
	c.evmPrecheckConsecutiveFailures.Store(0)
	c.evmPrecheckCircuitOpen.Store(false)
}
