package evmchain

import (
	"context"
	"math/big"

	"github.com/chainsafe/xchain-bridge-operator/pkg/bridgeerrors"
	"github.com/chainsafe/xchain-bridge-operator/pkg/hashing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// DepositLog is one decoded Deposit event, with its position for cursor
// tracking and idempotency (chain_id, tx_hash, log_index). The contract
// never emits xchain_hash_id: it is computed off-chain, once the
// destination token has been resolved through the registry (§4.5).
type DepositLog struct {
	DestChain   hashing.ChainID
	SrcAccount  hashing.UniversalAddress
	DestAccount hashing.UniversalAddress
	Token       common.Address // source-chain token address; dest token is a registry lookup away
	Amount      *big.Int
	Nonce       uint64
	Fee         *big.Int
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
}

// PollDeposits fetches Deposit events in [fromBlock, toBlock] inclusive.
// Callers are expected to chunk fromBlock/toBlock themselves (the operator
// enforces PollChunkSize); this mirrors the teacher's single-range
// FilterDepositToCanton call rather than the ticker-driven loop, since the
// operator owns cursor persistence and lookback/chunking policy.
func (c *Client) PollDeposits(ctx context.Context, fromBlock, toBlock uint64) ([]DepositLog, error) {
	depositTopic := c.abi.Events["Deposit"].ID

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.bridgeAddress},
		Topics:    [][]common.Hash{{depositTopic}},
	}

	logs, err := c.ethClient().FilterLogs(ctx, query)
	if err != nil {
		return nil, bridgeerrors.TransientNetworkError("evmchain: filter deposit logs", err)
	}

	var out []DepositLog
	for _, log := range logs {
		parsed, err := c.decodeDepositLog(log)
		if err != nil {
			c.logger.Error("evmchain: failed to decode deposit log",
				zap.String("tx_hash", log.TxHash.Hex()), zap.Error(err))
			continue
		}
		out = append(out, parsed)
	}
	return out, nil
}

// decodeDepositLog decodes a single Deposit(bytes4 indexed destChain, bytes32
// indexed destAccount, bytes32 srcAccount, address token, uint256 amount,
// uint64 nonce, uint256 fee) log. destChain/destAccount come off the indexed
// topics; the rest is the non-indexed data.
func (c *Client) decodeDepositLog(log ethtypes.Log) (DepositLog, error) {
	if len(log.Topics) < 3 {
		return DepositLog{}, bridgeerrors.DataInconsistencyError("evmchain: deposit log missing indexed topics", nil)
	}
	var parsed struct {
		SrcAccount [32]byte
		Token      common.Address
		Amount     *big.Int
		Nonce      uint64
		Fee        *big.Int
	}
	if err := c.abi.UnpackIntoInterface(&parsed, "Deposit", log.Data); err != nil {
		return DepositLog{}, err
	}
	var destChain hashing.ChainID
	copy(destChain[:], log.Topics[1].Bytes()[:4])
	var destAccount hashing.UniversalAddress
	copy(destAccount[:], log.Topics[2].Bytes())

	return DepositLog{
		DestChain:   destChain,
		SrcAccount:  hashing.UniversalAddress(parsed.SrcAccount),
		DestAccount: destAccount,
		Token:       parsed.Token,
		Amount:      parsed.Amount,
		Nonce:       parsed.Nonce,
		Fee:         parsed.Fee,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
	}, nil
}

// WithdrawSubmitLog is one decoded WithdrawSubmit event: a user has
// submitted a withdrawal on this chain that still needs operator
// verification and approval (§4.6 secondary event-driven discovery path,
// a faster complement to the primary getPendingWithdrawHashes() sweep).
type WithdrawSubmitLog struct {
	XChainHashID hashing.Key32
	SrcChain     hashing.ChainID
	BlockNumber  uint64
	TxHash       common.Hash
	LogIndex     uint
}

// PollWithdrawSubmits fetches WithdrawSubmit events in [fromBlock, toBlock]
// inclusive.
func (c *Client) PollWithdrawSubmits(ctx context.Context, fromBlock, toBlock uint64) ([]WithdrawSubmitLog, error) {
	topic := c.abi.Events["WithdrawSubmit"].ID

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.bridgeAddress},
		Topics:    [][]common.Hash{{topic}},
	}

	logs, err := c.ethClient().FilterLogs(ctx, query)
	if err != nil {
		return nil, bridgeerrors.TransientNetworkError("evmchain: filter withdraw submit logs", err)
	}

	var out []WithdrawSubmitLog
	for _, log := range logs {
		parsed, err := c.decodeWithdrawSubmitLog(log)
		if err != nil {
			c.logger.Error("evmchain: failed to decode withdraw submit log",
				zap.String("tx_hash", log.TxHash.Hex()), zap.Error(err))
			continue
		}
		out = append(out, parsed)
	}
	return out, nil
}

// decodeWithdrawSubmitLog decodes a single WithdrawSubmit log. hash comes off
// the sole indexed topic; the rest is non-indexed data.
func (c *Client) decodeWithdrawSubmitLog(log ethtypes.Log) (WithdrawSubmitLog, error) {
	if len(log.Topics) < 2 {
		return WithdrawSubmitLog{}, bridgeerrors.DataInconsistencyError("evmchain: withdraw submit log missing indexed topic", nil)
	}
	var parsed struct {
		SrcChain    [4]byte
		SrcAccount  [32]byte
		DestAccount [32]byte
		Token       common.Address
		Amount      *big.Int
		Nonce       uint64
		OperatorGas *big.Int
	}
	if err := c.abi.UnpackIntoInterface(&parsed, "WithdrawSubmit", log.Data); err != nil {
		return WithdrawSubmitLog{}, err
	}
	var hashID hashing.Key32
	copy(hashID[:], log.Topics[1].Bytes())
	return WithdrawSubmitLog{
		XChainHashID: hashID,
		SrcChain:     hashing.ChainID(parsed.SrcChain),
		BlockNumber:  log.BlockNumber,
		TxHash:       log.TxHash,
		LogIndex:     log.Index,
	}, nil
}

// WithdrawApprovalLog is one decoded WithdrawApprove event, the canceler's
// primary signal that an approval now exists and needs verifying.
type WithdrawApprovalLog struct {
	XChainHashID hashing.Key32
	BlockNumber  uint64
	TxHash       common.Hash
	LogIndex     uint
}

// PollWithdrawApprovals fetches WithdrawApprove events in [fromBlock,
// toBlock] inclusive, the canceler's event-driven discovery path (§4.8
// step 1).
func (c *Client) PollWithdrawApprovals(ctx context.Context, fromBlock, toBlock uint64) ([]WithdrawApprovalLog, error) {
	topic := c.abi.Events["WithdrawApprove"].ID

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.bridgeAddress},
		Topics:    [][]common.Hash{{topic}},
	}

	logs, err := c.ethClient().FilterLogs(ctx, query)
	if err != nil {
		return nil, bridgeerrors.TransientNetworkError("evmchain: filter withdraw approve logs", err)
	}

	var out []WithdrawApprovalLog
	for _, log := range logs {
		if len(log.Topics) < 2 {
			continue
		}
		var hashID hashing.Key32
		copy(hashID[:], log.Topics[1].Bytes())
		out = append(out, WithdrawApprovalLog{
			XChainHashID: hashID,
			BlockNumber:  log.BlockNumber,
			TxHash:       log.TxHash,
			LogIndex:     log.Index,
		})
	}
	return out, nil
}
