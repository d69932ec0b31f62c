package cosmoschain

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/chainsafe/xchain-bridge-operator/pkg/bridgeerrors"
	"go.uber.org/zap"
)

// CosmosDepositEvent is one decoded wasm deposit event from the bridge
// contract, keyed for store idempotency by (tx_hash, nonce).
type CosmosDepositEvent struct {
	TxHash          string
	Nonce           uint64
	Sender          string
	Recipient       string
	Token           string
	Amount          *big.Int
	DestChainID     string
	Height          uint64
	EVMTokenAddress string
}

type wasmAttr struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
type wasmEvent struct {
	Type       string     `json:"type"`
	Attributes []wasmAttr `json:"attributes"`
}
type txResponseEntry struct {
	TxHash string      `json:"txhash"`
	Height string      `json:"height"`
	Code   uint32      `json:"code"`
	Events []wasmEvent `json:"events"`
}
type txSearchResponse struct {
	TxResponses []txResponseEntry `json:"tx_responses"`
}

// LatestHeight returns the chain tip height.
func (c *Client) LatestHeight(ctx context.Context) (uint64, error) {
	var resp struct {
		Block struct {
			Header struct {
				Height string `json:"height"`
			} `json:"header"`
		} `json:"block"`
	}
	if err := c.get(ctx, "/cosmos/base/tendermint/v1beta1/blocks/latest", &resp); err != nil {
		return 0, bridgeerrors.TransientNetworkError("cosmoschain: latest block", err)
	}
	h, err := strconv.ParseUint(resp.Block.Header.Height, 10, 64)
	if err != nil {
		return 0, bridgeerrors.TransientNetworkError("cosmoschain: parse block height", err)
	}
	return h, nil
}

// PollDeposits fetches bridge-contract deposit events at every height in
// [fromHeight, toHeight], paging the LCD tx search one height at a time the
// way the reference Terra watcher does (a single "events=tx.height=N" query
// per block, since the LCD cannot filter ranges directly).
func (c *Client) PollDeposits(ctx context.Context, fromHeight, toHeight uint64, pageSize, maxPages int) ([]CosmosDepositEvent, error) {
	var out []CosmosDepositEvent
	for h := fromHeight; h <= toHeight; h++ {
		events, err := c.depositEventsAtHeight(ctx, h, pageSize, maxPages)
		if err != nil {
			c.logger.Warn("cosmoschain: failed to fetch events at height", zap.Uint64("height", h), zap.Error(err))
			continue
		}
		out = append(out, events...)
	}
	return out, nil
}

func (c *Client) depositEventsAtHeight(ctx context.Context, height uint64, pageSize, maxPages int) ([]CosmosDepositEvent, error) {
	var out []CosmosDepositEvent
	for page := 1; page <= maxPages; page++ {
		path := fmt.Sprintf(
			"/cosmos/tx/v1beta1/txs?events=wasm._contract_address='%s'&events=tx.height=%d&pagination.limit=%d&pagination.offset=%d",
			c.bridgeContract, height, pageSize, (page-1)*pageSize,
		)
		var resp txSearchResponse
		if err := c.get(ctx, path, &resp); err != nil {
			return out, err
		}
		if len(resp.TxResponses) == 0 {
			break
		}
		for _, tx := range resp.TxResponses {
			if tx.Code != 0 {
				continue
			}
			out = append(out, depositsFromTx(tx, c.bridgeContract)...)
		}
		if len(resp.TxResponses) < pageSize {
			break
		}
	}
	return out, nil
}

func depositsFromTx(tx txResponseEntry, bridgeContract string) []CosmosDepositEvent {
	var out []CosmosDepositEvent
	height, _ := strconv.ParseUint(tx.Height, 10, 64)

	for _, ev := range tx.Events {
		if ev.Type != "wasm-deposit" {
			continue
		}
		attrs := map[string]string{}
		contractOK := false
		for _, a := range ev.Attributes {
			attrs[a.Key] = a.Value
			if a.Key == "_contract_address" && a.Value == bridgeContract {
				contractOK = true
			}
		}
		if !contractOK {
			continue
		}
		nonce, _ := strconv.ParseUint(attrs["nonce"], 10, 64)
		amount, ok := new(big.Int).SetString(attrs["amount"], 10)
		if !ok {
			amount = big.NewInt(0)
		}
		out = append(out, CosmosDepositEvent{
			TxHash:          tx.TxHash,
			Nonce:           nonce,
			Sender:          attrs["sender"],
			Recipient:       attrs["recipient"],
			Token:           attrs["token"],
			Amount:          amount,
			DestChainID:     attrs["dest_chain_id"],
			Height:          height,
			EVMTokenAddress: attrs["evm_token_address"],
		})
	}
	return out
}
