package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/chainsafe/xchain-bridge-operator/pkg/canceler"
	"github.com/chainsafe/xchain-bridge-operator/pkg/chain"
	"github.com/chainsafe/xchain-bridge-operator/pkg/config"
	"github.com/chainsafe/xchain-bridge-operator/pkg/cosmoschain"
	"github.com/chainsafe/xchain-bridge-operator/pkg/evmchain"
	"github.com/chainsafe/xchain-bridge-operator/pkg/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var configPath = flag.String("config", "config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting bridge canceler", zap.String("canceler_id", cfg.Canceler.CancelerID))

	st, err := store.New(cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseEVM, err := evmchain.Dial(ctx, evmchain.Config{
		ChainID:            cfg.EVM.ResolvedChainID(),
		NativeChainID:      new(big.Int).SetUint64(cfg.EVM.ChainID),
		RPCURLs:            append([]string{cfg.EVM.RPCURL}, cfg.EVM.FallbackRPCURLs...),
		BridgeAddress:      common.HexToAddress(cfg.EVM.BridgeAddress),
		PrivateKeyHex:      cfg.EVM.PrivateKey,
		GasLimit:           cfg.EVM.GasLimit,
		MaxGasPriceWei:     cfg.EVM.MaxGasPrice(),
		ConfirmationBlocks: cfg.EVM.ConfirmationBlocks,
	}, logger)
	if err != nil {
		logger.Fatal("failed to dial base evm chain", zap.Error(err))
	}
	defer baseEVM.Close()

	cosmosClient, err := cosmoschain.Dial(ctx, cosmoschain.Config{
		ChainID:          cfg.Terra.ResolvedChainID(),
		LCDURLs:          append([]string{cfg.Terra.LCDURL}, cfg.Terra.FallbackLCDURLs...),
		BridgeContract:   cfg.Terra.BridgeAddress,
		Mnemonic:         cfg.Terra.Mnemonic,
		GasPriceFallback: cfg.Terra.GasPriceFallback,
		GasLimit:         cfg.Terra.GasLimit,
	}, logger)
	if err != nil {
		logger.Fatal("failed to dial cosmos chain", zap.Error(err))
	}

	evmChains := []*evmchain.Client{baseEVM}

	for i, peer := range cfg.Canceler.AdditionalEVMChains {
		peerClient, err := evmchain.Dial(ctx, evmchain.Config{
			ChainID:       peer.ResolvedChainID(),
			NativeChainID: new(big.Int).SetUint64(peer.ChainID),
			RPCURLs:       append([]string{peer.RPCURL}, peer.FallbackRPCURLs...),
			BridgeAddress: common.HexToAddress(peer.BridgeAddress),
			GasLimit:      peer.GasLimit,
		}, logger)
		if err != nil {
			logger.Error("failed to dial peer evm chain, skipping", zap.Int("index", i), zap.String("name", peer.Name), zap.Error(err))
			continue
		}
		defer peerClient.Close()
		evmChains = append(evmChains, peerClient)
	}

	entries := make([]canceler.ChainEntry, 0, len(evmChains)+1)
	for _, c := range evmChains {
		entries = append(entries, canceler.NewEVMChainEntry(c))
	}
	entries = append(entries, canceler.NewCosmosChainEntry(cfg.Terra.ResolvedChainID(), cosmosClient))

	cancelerSvc := canceler.New(canceler.Config{
		CancelerID:                     cfg.Canceler.CancelerID,
		PollInterval:                   cfg.PollInterval(),
		EVMPollLookbackBlocks:          cfg.EVM.PollLookbackBlocks,
		EVMPollChunkSize:               cfg.EVM.PollChunkSize,
		TerraPollPageSize:              cfg.Canceler.TerraPollPageSize,
		TerraPollMaxPages:              cfg.Canceler.TerraPollMaxPages,
		DedupeCacheMaxSize:             cfg.Canceler.DedupeCacheMaxSize,
		DedupeCacheTTL:                 time.Duration(cfg.Canceler.DedupeCacheTTLSecs) * time.Second,
		EVMPrecheckRetry:               chain.Retry{Initial: 500 * time.Millisecond, Factor: 2, Max: 10 * time.Second, MaxAttempts: cfg.Canceler.EVMPrecheckMaxRetries + 1},
		EVMPrecheckCircuitBreakerLimit: cfg.Canceler.EVMPrecheckCircuitBreakerThreshold,
	}, entries, st, logger)

	cancelerSvc.ValidateChainIDs(ctx)

	var ready atomic.Bool
	go func() {
		if err := cancelerSvc.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("canceler loop exited unexpectedly", zap.Error(err))
		}
	}()
	ready.Store(true)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("NOT_READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	})
	r.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf("%s:%d", cfg.Health.BindAddress, cfg.Health.Port)
	server := &http.Server{Addr: addr, Handler: r, ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second}

	go func() {
		logger.Info("starting health/metrics server", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("health server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", zap.Error(err))
	}

	logger.Info("canceler stopped")
}
