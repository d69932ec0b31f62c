package operator

import (
	"context"
	"fmt"
	"time"

	"github.com/chainsafe/xchain-bridge-operator/internal/metrics"
	"github.com/chainsafe/xchain-bridge-operator/pkg/cosmoschain"
	"github.com/chainsafe/xchain-bridge-operator/pkg/store"

	"go.uber.org/zap"
)

// CosmosWatcherConfig controls the Terra Classic deposit poll loop.
type CosmosWatcherConfig struct {
	ChainKey       string // hex V2 chain ID, used as the store's chain_id/cursor key
	PollInterval   time.Duration
	LookbackBlocks uint64 // blocks here means heights, named to match EVMWatcherConfig
	PageSize       int
	MaxPages       int
}

// CosmosWatcher polls the Terra Classic bridge contract for deposit events
// height by height, since the LCD tx-search endpoint has no range query,
// and persists a "cosmos"-kind cursor alongside the EVM watchers' "evm"
// cursors in the same table (§4.2, §8 polling cursor safety).
type CosmosWatcher struct {
	cfg    CosmosWatcherConfig
	client *cosmoschain.Client
	store  *store.Store
	logger *zap.Logger
}

func NewCosmosWatcher(cfg CosmosWatcherConfig, client *cosmoschain.Client, st *store.Store, logger *zap.Logger) *CosmosWatcher {
	return &CosmosWatcher{cfg: cfg, client: client, store: st, logger: logger}
}

func (w *CosmosWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.pollOnce(ctx); err != nil {
				w.logger.Warn("operator: cosmos watcher poll failed", zap.String("chain", w.cfg.ChainKey), zap.Error(err))
				metrics.RPCErrors.WithLabelValues(w.cfg.ChainKey, "poll_deposits").Inc()
			}
		}
	}
}

func (w *CosmosWatcher) pollOnce(ctx context.Context) error {
	cursor, err := w.store.GetCursor(w.cfg.ChainKey, "cosmos")
	if err != nil {
		return err
	}

	current, err := w.client.LatestHeight(ctx)
	if err != nil {
		return err
	}

	var lastProcessed uint64
	if cursor == nil || cursor.LastProcessed == 0 {
		if w.cfg.LookbackBlocks < current {
			lastProcessed = current - w.cfg.LookbackBlocks
		}
		w.logger.Info("operator: first cosmos poll, looking back",
			zap.String("chain", w.cfg.ChainKey), zap.Uint64("from", lastProcessed+1), zap.Uint64("to", current))
	} else {
		lastProcessed = cursor.LastProcessed
	}

	if current <= lastProcessed {
		return nil
	}

	from := lastProcessed + 1
	deposits, err := w.client.PollDeposits(ctx, from, current, w.cfg.PageSize, w.cfg.MaxPages)
	// PollDeposits logs and skips per-height failures rather than aborting,
	// so unlike the EVM watcher there is no partial-range cursor to compute:
	// every height in [from, current] was attempted.
	for _, d := range deposits {
		if recordErr := w.recordDeposit(d); recordErr != nil {
			w.logger.Error("operator: failed to record cosmos deposit",
				zap.String("tx_hash", d.TxHash), zap.Error(recordErr))
		}
	}
	if setErr := w.store.SetCursor(w.cfg.ChainKey, "cosmos", current); setErr != nil {
		return setErr
	}
	metrics.LastProcessedBlock.WithLabelValues(w.cfg.ChainKey).Set(float64(current))
	return err
}

func (w *CosmosWatcher) recordDeposit(d cosmoschain.CosmosDepositEvent) error {
	destType := store.DestChainTypeEVM
	metrics.DepositsObserved.WithLabelValues(w.cfg.ChainKey, string(destType)).Inc()

	// The wasm deposit event itself carries the registry-resolved EVM token
	// address (§4.5); an empty value means the contract's own registry
	// lookup failed or the mapping doesn't exist, so the deposit must fail
	// closed rather than record a withdrawal target with no token.
	if d.EVMTokenAddress == "" {
		return fmt.Errorf("operator: cosmos deposit %s:%d has no resolved dest token", d.TxHash, d.Nonce)
	}

	return w.store.InsertCosmosDeposit(&store.CosmosDeposit{
		TxHash:          d.TxHash,
		Nonce:           d.Nonce,
		Sender:          d.Sender,
		Recipient:       d.Recipient,
		Token:           d.Token,
		Amount:          d.Amount.String(),
		DestChainID:     d.DestChainID,
		BlockHeight:     d.Height,
		EVMTokenAddress: d.EVMTokenAddress,
		Status:          store.DepositStatusPending,
	})
}
