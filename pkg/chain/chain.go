// Package chain defines the small capability surface the operator and
// canceler program against, independent of whether the concrete chain is
// EVM or Cosmos. Routing by ChainId selects the concrete backend; callers
// never branch on chain type directly.
package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/chainsafe/xchain-bridge-operator/pkg/hashing"
)

// Deposit mirrors the on-chain Deposit record, as read back from either
// chain's bridge contract or smart-query interface.
type Deposit struct {
	XChainHashID hashing.Key32
	DestChain    hashing.ChainID
	SrcAccount   hashing.UniversalAddress
	DestAccount  hashing.UniversalAddress
	Token        hashing.UniversalAddress
	Amount       *big.Int
	Nonce        uint64
	Fee          *big.Int
	Timestamp    int64
}

// PendingWithdraw mirrors the on-chain PendingWithdraw record.
type PendingWithdraw struct {
	XChainHashID hashing.Key32
	SrcChain     hashing.ChainID
	SrcAccount   hashing.UniversalAddress
	DestAccount  hashing.UniversalAddress
	Token        hashing.UniversalAddress
	Recipient    hashing.UniversalAddress
	Amount       *big.Int
	Nonce        uint64
	OperatorGas  *big.Int
	SubmittedAt  int64
	ApprovedAt   int64
	Approved     bool
	Cancelled    bool
	Executed     bool
}

// TokenType mirrors the registry's per-token bridging strategy.
type TokenType uint8

const (
	TokenTypeLockUnlock TokenType = 0
	TokenTypeMintBurn   TokenType = 1
)

// Backend is the capability trait every concrete chain client (EVM or
// Cosmos) implements. The writer and canceler are written against this
// interface and never hold a concrete *evmchain.Client or
// *cosmoschain.Client directly outside of construction.
type Backend interface {
	// ChainID returns the registry V2 chain ID this backend is bound to.
	ChainID() hashing.ChainID

	// GetDeposit looks up a deposit record by xchain_hash_id. A nil
	// Deposit with a nil error means "not found" (absent), not an error.
	GetDeposit(ctx context.Context, hash hashing.Key32) (*Deposit, error)

	// GetPendingWithdraw looks up a pending withdrawal by xchain_hash_id.
	GetPendingWithdraw(ctx context.Context, hash hashing.Key32) (*PendingWithdraw, error)

	// CanCancel reports whether the destination bridge would currently
	// accept a withdrawCancel for hash (pre-flight check used by the
	// canceler before it spends gas on a doomed transaction).
	CanCancel(ctx context.Context, hash hashing.Key32) (bool, error)

	// SubmitWithdrawApprove submits an operator approval.
	SubmitWithdrawApprove(ctx context.Context, hash hashing.Key32) error

	// SubmitWithdrawCancel submits a canceler cancellation.
	SubmitWithdrawCancel(ctx context.Context, hash hashing.Key32) error

	// GetCancelWindow returns the configured cancel window in seconds.
	GetCancelWindow(ctx context.Context) (int64, error)

	// GetThisChainId queries the bridge's own notion of its V2 chain ID,
	// used for startup chain-ID validation.
	GetThisChainId(ctx context.Context) (hashing.ChainID, error)

	// GetPendingWithdrawHashes enumerates every withdrawal hash the
	// destination bridge currently has pending, the writer's primary
	// discovery mechanism (§4.6 enumerate-and-approve loop).
	GetPendingWithdrawHashes(ctx context.Context) ([]hashing.Key32, error)

	// SubmitWithdrawExecute executes an already-approved, cancel-window-expired
	// withdrawal. The concrete backend resolves whatever routing (lock/unlock
	// vs mint/burn on EVM, a single execute message on Cosmos) its own chain
	// needs; callers only decide when the cancel window has elapsed.
	SubmitWithdrawExecute(ctx context.Context, hash hashing.Key32) error
}

// Retry is a plain exponential-backoff descriptor consumed by a generic
// retry helper. It intentionally carries no async-combinator machinery —
// callers loop and sleep themselves between attempts.
type Retry struct {
	Initial     time.Duration
	Factor      float64
	Max         time.Duration
	MaxAttempts int
}
