package cosmoschain

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/chainsafe/xchain-bridge-operator/pkg/bridgeerrors"
	"github.com/chainsafe/xchain-bridge-operator/pkg/chain"
	"go.uber.org/zap"
)

type accountInfo struct {
	AccountNumber string `json:"account_number"`
	Sequence      string `json:"sequence"`
}

func (c *Client) fetchAccount(ctx context.Context) (accountInfo, error) {
	var resp struct {
		Account struct {
			AccountNumber string `json:"account_number"`
			Sequence      string `json:"sequence"`
		} `json:"account"`
	}
	path := fmt.Sprintf("/cosmos/auth/v1beta1/accounts/%s", c.address)
	if err := c.get(ctx, path, &resp); err != nil {
		return accountInfo{}, err
	}
	return accountInfo(resp.Account), nil
}

// feeAmount computes the fee for gasLimit at the configured fallback gas
// price (§6 GasPriceFallback). No fee-estimation endpoint is queried; every
// transaction is priced at this fixed rate.
func (c *Client) feeAmount() string {
	uluna := float64(c.gasLimit) * c.gasPriceFallback
	return strconv.FormatInt(int64(uluna), 10)
}

type executeMsg struct {
	Sender   string          `json:"sender"`
	Contract string          `json:"contract"`
	Msg      json.RawMessage `json:"msg"`
}

// executeWithRetry signs and broadcasts a MsgExecuteContract, retrying on an
// account-sequence mismatch (a concurrent tx from the same key beat this
// one into the mempool) per the Cosmos sequence-retry descriptor
// (chain.DefaultCosmosSequenceRetry): up to MaxAttempts attempts in all,
// backing off between them, each refetching the account sequence and
// resubmitting.
func (c *Client) executeWithRetry(ctx context.Context, msg map[string]interface{}) error {
	retry := chain.DefaultCosmosSequenceRetry
	var lastErr error
	for attempt := 0; attempt < retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			retry.Sleep(ctx.Done(), attempt-1)
		}
		err := c.executeOnce(ctx, msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isSequenceMismatch(err) {
			return err
		}
		c.logger.Warn("cosmoschain: account sequence mismatch, retrying", zap.Int("attempt", attempt+1))
	}
	return bridgeerrors.TransientChainError("cosmoschain: execute retries exhausted", lastErr)
}

func isSequenceMismatch(err error) bool {
	return err != nil && contains(err.Error(), "sequence")
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func (c *Client) executeOnce(ctx context.Context, msg map[string]interface{}) error {
	rawMsg, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	account, err := c.fetchAccount(ctx)
	if err != nil {
		return bridgeerrors.TransientNetworkError("cosmoschain: fetch account", err)
	}

	execMsg := executeMsg{Sender: c.address, Contract: c.bridgeContract, Msg: rawMsg}

	signDoc := map[string]interface{}{
		"account_number": account.AccountNumber,
		"sequence":       account.Sequence,
		"msg":            execMsg,
		"fee":            c.feeAmount(),
		"gas":            strconv.FormatUint(c.gasLimit, 10),
	}
	signBytes, err := json.Marshal(signDoc)
	if err != nil {
		return err
	}

	digest := sha256.Sum256(signBytes)
	privKey, _ := btcec.PrivKeyFromBytes(c.key.PrivKey)
	sig, err := ecdsa.SignCompact(privKey, digest[:], false)
	if err != nil {
		return fmt.Errorf("cosmoschain: sign tx: %w", err)
	}

	txBody := map[string]interface{}{
		"msg":        execMsg,
		"signature":  base64.StdEncoding.EncodeToString(sig),
		"public_key": base64.StdEncoding.EncodeToString(c.key.PubKey),
		"fee":        c.feeAmount(),
		"gas":        strconv.FormatUint(c.gasLimit, 10),
		"mode":       "sync",
	}

	var broadcastResp struct {
		TxHash string `json:"txhash"`
		Code   int    `json:"code"`
		RawLog string `json:"raw_log"`
	}
	if err := c.post(ctx, "/cosmos/tx/v1beta1/txs", txBody, &broadcastResp); err != nil {
		return err
	}
	if broadcastResp.Code != 0 {
		if isSequenceMismatch(fmt.Errorf("%s", broadcastResp.RawLog)) {
			return bridgeerrors.TransientChainError("cosmoschain: broadcast rejected: "+broadcastResp.RawLog, nil)
		}
		return bridgeerrors.TerminalError("cosmoschain: broadcast failed: "+broadcastResp.RawLog, nil)
	}
	return nil
}
