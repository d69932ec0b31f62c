package operator

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"
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

// WriterConfig controls one destination chain's approval and execution
// loops.
type WriterConfig struct {
	DestChainKey string // hex V2 chain ID this writer submits approvals to
	DestChainID  hashing.ChainID

	// CosmosChainID is set only on the EVM writer, for the legacy §4.6.2
	// Cosmos-sourced DB path; it is the Terra chain's own registered V2
	// chain ID, used to reconstruct the transfer descriptor that produced
	// xchain_hash_id.
	CosmosChainID hashing.ChainID

	PollInterval time.Duration
	BatchSize    int

	ApprovedCacheMaxSize int
	ApprovedCacheTTL     time.Duration

	// EVMPollLookbackBlocks/ChunkSize configure the secondary WithdrawSubmit
	// event poll; zero LookbackBlocks disables it (the Cosmos destination
	// has no such event stream).
	EVMPollLookbackBlocks uint64
	EVMPollChunkSize      uint64
}

// Writer drives one destination chain's withdrawal lifecycle end to end
// (§4.6): discover pending withdrawals, verify each against its claimed
// source chain, approve, and — once the cancel window has elapsed —
// execute. It never submits on the user's behalf; every hash it acts on
// was already submitted by the user directly against the destination
// bridge, except the legacy Cosmos-sourced path (§4.6.2), which computes
// the hash itself since Terra depositors never call the EVM bridge.
type Writer struct {
	cfg     WriterConfig
	backend chain.Backend   // destination chain's Backend
	evm     *evmchain.Client // non-nil only when the destination is EVM, for the event poll
	sources map[hashing.ChainID]chain.Backend
	store   *store.Store
	logger  *zap.Logger

	approvedHashes *cache.Bounded[struct{}]
}

// NewWriter builds a Writer. sources must include every chain this
// destination's withdrawals can legitimately claim as their origin; a
// withdrawal naming any other chain fails closed (§4.6.1). evm is non-nil
// only when backend is the EVM destination, enabling the secondary
// WithdrawSubmit event poll.
func NewWriter(cfg WriterConfig, backend chain.Backend, evm *evmchain.Client, sources map[hashing.ChainID]chain.Backend, st *store.Store, logger *zap.Logger) *Writer {
	return &Writer{
		cfg:            cfg,
		backend:        backend,
		evm:            evm,
		sources:        sources,
		store:          st,
		logger:         logger,
		approvedHashes: cache.New[struct{}](cfg.ApprovedCacheMaxSize, cfg.ApprovedCacheTTL, logger, "approved_hashes:"+cfg.DestChainKey),
	}
}

func (w *Writer) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

// pollOnce runs every discovery/action path once: the primary enumeration,
// the EVM secondary event poll, the legacy Cosmos-sourced DB path, and the
// execution sweep. Each path's failure is logged and isolated so one
// destination chain's RPC hiccup never blocks the others.
func (w *Writer) pollOnce(ctx context.Context) {
	if err := w.pollPendingWithdraws(ctx); err != nil {
		w.logger.Warn("operator: writer enumerate-and-approve poll failed",
			zap.String("dest_chain", w.cfg.DestChainKey), zap.Error(err))
		metrics.RPCErrors.WithLabelValues(w.cfg.DestChainKey, "get_pending_withdraw_hashes").Inc()
	}

	if w.evm != nil && w.cfg.EVMPollLookbackBlocks > 0 {
		if err := w.pollWithdrawSubmitEvents(ctx); err != nil {
			w.logger.Warn("operator: writer withdraw_submit poll failed",
				zap.String("dest_chain", w.cfg.DestChainKey), zap.Error(err))
			metrics.RPCErrors.WithLabelValues(w.cfg.DestChainKey, "poll_withdraw_submits").Inc()
		}
	}

	if w.evm != nil {
		if err := w.processLegacyCosmosDeposits(ctx); err != nil {
			w.logger.Warn("operator: writer legacy cosmos deposit poll failed",
				zap.String("dest_chain", w.cfg.DestChainKey), zap.Error(err))
		}
	}

	if err := w.pollExecutions(ctx); err != nil {
		w.logger.Warn("operator: writer execution poll failed",
			zap.String("dest_chain", w.cfg.DestChainKey), zap.Error(err))
		metrics.RPCErrors.WithLabelValues(w.cfg.DestChainKey, "execute").Inc()
	}
}

// pollPendingWithdraws is the primary §4.6 enumerate-and-approve loop: ask
// the destination bridge itself what it has pending, rather than trusting
// any off-chain record of what users have submitted.
func (w *Writer) pollPendingWithdraws(ctx context.Context) error {
	hashes, err := w.backend.GetPendingWithdrawHashes(ctx)
	if err != nil {
		return err
	}
	metrics.PendingApprovals.WithLabelValues(w.cfg.DestChainKey).Set(float64(len(hashes)))

	for _, hash := range hashes {
		w.tryApprove(ctx, hash)
	}
	return nil
}

// pollWithdrawSubmitEvents is the secondary, event-driven discovery path: a
// faster backstop alongside the polling sweep above, EVM-only since Cosmos
// has no equivalent event log in this design.
func (w *Writer) pollWithdrawSubmitEvents(ctx context.Context) error {
	cursor, err := w.store.GetCursor(w.cfg.DestChainKey, "writer_withdraw_submit")
	if err != nil {
		return err
	}
	current, err := w.evm.LatestBlock(ctx)
	if err != nil {
		return err
	}

	var lastProcessed uint64
	if cursor == nil || cursor.LastProcessed == 0 {
		if w.cfg.EVMPollLookbackBlocks < current {
			lastProcessed = current - w.cfg.EVMPollLookbackBlocks
		}
	} else {
		lastProcessed = cursor.LastProcessed
	}
	if current <= lastProcessed {
		return nil
	}

	chunkSize := w.cfg.EVMPollChunkSize
	if chunkSize == 0 {
		chunkSize = 1
	}
	from := lastProcessed + 1
	lastSuccessful := lastProcessed
	for start := from; start <= current; start += chunkSize {
		end := start + chunkSize - 1
		if end > current {
			end = current
		}
		logs, err := w.evm.PollWithdrawSubmits(ctx, start, end)
		if err != nil {
			break
		}
		for _, l := range logs {
			w.tryApprove(ctx, l.XChainHashID)
		}
		lastSuccessful = end
	}
	if lastSuccessful > lastProcessed {
		return w.store.SetCursor(w.cfg.DestChainKey, "writer_withdraw_submit", lastSuccessful)
	}
	return nil
}

// tryApprove verifies one pending withdrawal against its claimed source
// chain and submits withdrawApprove if (and only if) that verification
// passes (§4.6.1).
func (w *Writer) tryApprove(ctx context.Context, hash hashing.Key32) {
	if w.approvedHashes.Contains(hash) {
		return
	}

	pw, err := w.backend.GetPendingWithdraw(ctx, hash)
	if err != nil {
		w.logger.Warn("operator: failed to fetch pending withdraw", zap.String("xchain_hash_id", hexKey32(hash)), zap.Error(err))
		return
	}
	if pw == nil {
		return
	}
	if pw.Approved || pw.Cancelled || pw.Executed {
		w.approvedHashes.Insert(hash, struct{}{})
		return
	}

	verdict, reason := chain.VerifySourceDeposit(ctx, w.sources, w.cfg.DestChainID, pw)
	if verdict != chain.VerdictValid {
		if verdict == chain.VerdictInvalid {
			w.logger.Warn("operator: refusing to approve withdrawal, no matching source deposit",
				zap.String("xchain_hash_id", hexKey32(hash)), zap.String("dest_chain", w.cfg.DestChainKey), zap.String("reason", reason))
		}
		return
	}

	if err := w.backend.SubmitWithdrawApprove(ctx, hash); err != nil {
		metrics.ApprovalsSubmitted.WithLabelValues(w.cfg.DestChainKey, "failed").Inc()
		w.logger.Error("operator: approval submit failed", zap.String("xchain_hash_id", hexKey32(hash)), zap.Error(err))
		return
	}
	metrics.ApprovalsSubmitted.WithLabelValues(w.cfg.DestChainKey, "submitted").Inc()
	w.approvedHashes.Insert(hash, struct{}{})
}

// pollExecutions re-walks the same pending-withdraw set looking for
// approvals whose cancel window has elapsed, and executes them. Anyone may
// call execute post-window; the writer does it so releases aren't left to
// chance.
func (w *Writer) pollExecutions(ctx context.Context) error {
	hashes, err := w.backend.GetPendingWithdrawHashes(ctx)
	if err != nil {
		return err
	}
	cancelWindow, err := w.backend.GetCancelWindow(ctx)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	for _, hash := range hashes {
		pw, err := w.backend.GetPendingWithdraw(ctx, hash)
		if err != nil || pw == nil {
			continue
		}
		if !pw.Approved || pw.Cancelled || pw.Executed {
			continue
		}
		if now-pw.ApprovedAt < cancelWindow {
			continue
		}
		if err := w.backend.SubmitWithdrawExecute(ctx, hash); err != nil {
			metrics.WithdrawalsExecuted.WithLabelValues(w.cfg.DestChainKey, "failed").Inc()
			w.logger.Error("operator: execute submit failed", zap.String("xchain_hash_id", hexKey32(hash)), zap.Error(err))
			continue
		}
		metrics.WithdrawalsExecuted.WithLabelValues(w.cfg.DestChainKey, "submitted").Inc()
	}
	return nil
}

// processLegacyCosmosDeposits implements §4.6.2: Cosmos-origin deposits
// destined for this (EVM) chain were never submitted by the user against
// the EVM bridge directly, since Terra depositors only ever call the Cosmos
// contract. The operator computes the expected hash itself, pre-flights
// that the withdrawal has actually been submitted on-chain (someone still
// has to call withdrawSubmit before an approval can apply to it), and only
// then approves, recording the attempt for idempotency and audit.
func (w *Writer) processLegacyCosmosDeposits(ctx context.Context) error {
	deposits, err := w.store.GetPendingCosmosDeposits(w.cfg.DestChainKey, w.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, d := range deposits {
		if procErr := w.processLegacyCosmosDeposit(ctx, d); procErr != nil {
			w.logger.Error("operator: legacy cosmos deposit processing failed",
				zap.String("tx_hash", d.TxHash), zap.Error(procErr))
			msg := procErr.Error()
			if markErr := w.store.MarkCosmosDepositStatus(d.ID, store.DepositStatusFailed, &msg); markErr != nil {
				w.logger.Error("operator: failed to mark cosmos deposit failed", zap.Error(markErr))
			}
		}
	}
	return nil
}

func (w *Writer) processLegacyCosmosDeposit(ctx context.Context, d *store.CosmosDeposit) error {
	if d.EVMTokenAddress == "" {
		return bridgeerrors.DataInconsistencyError("operator: cosmos deposit missing resolved dest token", nil)
	}

	srcRaw, err := hashing.Bech32ToBytes20(d.Sender)
	if err != nil {
		return bridgeerrors.DataInconsistencyError("operator: malformed cosmos sender address", err)
	}
	recipientRaw, err := decode20(d.Recipient)
	if err != nil {
		return bridgeerrors.DataInconsistencyError("operator: malformed cosmos recipient address", err)
	}
	destTokenRaw, err := decode20(d.EVMTokenAddress)
	if err != nil {
		return bridgeerrors.DataInconsistencyError("operator: malformed evm token address", err)
	}
	amount, ok := new(big.Int).SetString(d.Amount, 10)
	if !ok {
		return bridgeerrors.DataInconsistencyError("operator: malformed cosmos deposit amount", nil)
	}

	srcAccount := hashing.EncodeAddressUniversal(srcRaw, hashing.ChainTypeCosmos)
	destAccount := hashing.EncodeAddressUniversal(recipientRaw, hashing.ChainTypeEVM)
	destToken := hashing.EncodeAddressUniversal(destTokenRaw, hashing.ChainTypeEVM)

	hash, err := hashing.ComputeXChainHashID(hashing.TransferDescriptor{
		SrcChain:    w.cfg.CosmosChainID,
		DestChain:   w.cfg.DestChainID,
		SrcAccount:  srcAccount,
		DestAccount: destAccount,
		DestToken:   destToken,
		Amount:      amount,
		Nonce:       d.Nonce,
	})
	if err != nil {
		return bridgeerrors.DataInconsistencyError("operator: compute xchain_hash_id", err)
	}

	pw, err := w.backend.GetPendingWithdraw(ctx, hash)
	if err != nil {
		return err
	}
	if pw == nil || pw.SubmittedAt == 0 {
		// Nobody has called withdrawSubmit on the EVM bridge for this hash
		// yet; leave the row pending for a later cycle.
		return nil
	}

	if err := EnqueueApproval(w.store, w.cfg.CosmosChainID, w.cfg.DestChainID,
		srcAccount, destAccount, destToken, amount, d.Nonce, nil, ""); err != nil {
		return err
	}

	if pw.Approved || pw.Cancelled || pw.Executed {
		return w.store.MarkCosmosDepositStatus(d.ID, store.DepositStatusProcessed, nil)
	}

	if err := w.backend.SubmitWithdrawApprove(ctx, hash); err != nil {
		metrics.ApprovalsSubmitted.WithLabelValues(w.cfg.DestChainKey, "failed").Inc()
		return err
	}
	metrics.ApprovalsSubmitted.WithLabelValues(w.cfg.DestChainKey, "submitted").Inc()
	return w.store.MarkCosmosDepositStatus(d.ID, store.DepositStatusProcessed, nil)
}

// decode20 hex-decodes a 20-byte address with or without a 0x prefix.
func decode20(s string) ([20]byte, error) {
	var out [20]byte
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return out, err
	}
	if len(b) != 20 {
		return out, bridgeerrors.DataInconsistencyError("operator: expected 20-byte address", nil)
	}
	copy(out[:], b)
	return out, nil
}

// EnqueueApproval builds and upserts an approval row from a resolved
// deposit, computing xchain_hash_id the same way the destination contract
// will so the row can be matched against on-chain state later. The legacy
// Cosmos-sourced path is its only caller (§4.6.2): EVM-origin withdrawals
// are always submitted by the user directly, so there is nothing to
// enqueue ahead of time for them.
func EnqueueApproval(st *store.Store, srcChain, destChain hashing.ChainID, srcAccount, destAccount, destToken hashing.UniversalAddress, amount *big.Int, nonce uint64, fee *big.Int, feeRecipient string) error {
	hash, err := hashing.ComputeXChainHashID(hashing.TransferDescriptor{
		SrcChain:    srcChain,
		DestChain:   destChain,
		SrcAccount:  srcAccount,
		DestAccount: destAccount,
		DestToken:   destToken,
		Amount:      amount,
		Nonce:       nonce,
	})
	if err != nil {
		return bridgeerrors.DataInconsistencyError("operator: compute xchain_hash_id", err)
	}

	feeStr := "0"
	if fee != nil {
		feeStr = fee.String()
	}

	return st.UpsertApproval(&store.Approval{
		SrcChainKey:  hexChainID(srcChain),
		Nonce:        nonce,
		DestChainID:  hexChainID(destChain),
		XChainHashID: hexKey32(hash),
		Token:        hexUniversalAddress(destToken),
		Recipient:    hexUniversalAddress(destAccount),
		Amount:       amount.String(),
		Fee:          feeStr,
		FeeRecipient: feeRecipient,
		Status:       store.ApprovalStatusPending,
	})
}
