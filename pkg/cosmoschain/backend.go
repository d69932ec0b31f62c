package cosmoschain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/chainsafe/xchain-bridge-operator/pkg/bridgeerrors"
	"github.com/chainsafe/xchain-bridge-operator/pkg/chain"
	"github.com/chainsafe/xchain-bridge-operator/pkg/hashing"

	"go.uber.org/zap"
)

// smartQuery wraps a CosmWasm smart-query message for the LCD's
// wasm/contract/.../smart endpoint, which expects the query base64-encoded.
func (c *Client) smartQuery(ctx context.Context, msg interface{}, out interface{}) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	path := fmt.Sprintf("/cosmwasm/wasm/v1/contract/%s/smart/%s", c.bridgeContract, encoded)

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.get(ctx, path, &envelope); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(envelope.Data, out)
}

type depositQueryResp struct {
	XChainHashID string `json:"xchain_hash_id"`
	DestChain    string `json:"dest_chain"`
	SrcAccount   string `json:"src_account"`
	DestAccount  string `json:"dest_account"`
	Token        string `json:"token"`
	Amount       string `json:"amount"`
	Nonce        uint64 `json:"nonce"`
	Fee          string `json:"fee"`
	Timestamp    int64  `json:"timestamp"`
}

// GetDeposit implements chain.Backend.
func (c *Client) GetDeposit(ctx context.Context, hash hashing.Key32) (*chain.Deposit, error) {
	var resp *depositQueryResp
	msg := map[string]interface{}{"get_deposit": map[string]string{"xchain_hash_id": hex32(hash)}}
	if err := c.smartQuery(ctx, msg, &resp); err != nil {
		return nil, bridgeerrors.TransientNetworkError("cosmoschain: get_deposit query", err)
	}
	if resp == nil {
		return nil, nil
	}
	return depositFromResp(resp)
}

func depositFromResp(resp *depositQueryResp) (*chain.Deposit, error) {
	hashID, err := decodeKey32(resp.XChainHashID)
	if err != nil {
		return nil, bridgeerrors.DataInconsistencyError("cosmoschain: malformed xchain_hash_id", err)
	}
	destChain, err := decodeChainID(resp.DestChain)
	if err != nil {
		return nil, bridgeerrors.DataInconsistencyError("cosmoschain: malformed dest_chain", err)
	}
	srcAccount, err := decodeUniversalAddress(resp.SrcAccount)
	if err != nil {
		return nil, bridgeerrors.DataInconsistencyError("cosmoschain: malformed src_account", err)
	}
	destAccount, err := decodeUniversalAddress(resp.DestAccount)
	if err != nil {
		return nil, bridgeerrors.DataInconsistencyError("cosmoschain: malformed dest_account", err)
	}
	token, err := decodeUniversalAddress(resp.Token)
	if err != nil {
		return nil, bridgeerrors.DataInconsistencyError("cosmoschain: malformed token", err)
	}
	amount, ok := new(big.Int).SetString(resp.Amount, 10)
	if !ok {
		return nil, bridgeerrors.DataInconsistencyError("cosmoschain: malformed amount", nil)
	}
	fee, _ := new(big.Int).SetString(resp.Fee, 10)
	if fee == nil {
		fee = big.NewInt(0)
	}
	return &chain.Deposit{
		XChainHashID: hashID,
		DestChain:    destChain,
		SrcAccount:   srcAccount,
		DestAccount:  destAccount,
		Token:        token,
		Amount:       amount,
		Nonce:        resp.Nonce,
		Fee:          fee,
		Timestamp:    resp.Timestamp,
	}, nil
}

type pendingWithdrawResp struct {
	XChainHashID string `json:"xchain_hash_id"`
	SrcChain     string `json:"src_chain"`
	SrcAccount   string `json:"src_account"`
	DestAccount  string `json:"dest_account"`
	Token        string `json:"token"`
	Recipient    string `json:"recipient"`
	Amount       string `json:"amount"`
	Nonce        uint64 `json:"nonce"`
	OperatorGas  string `json:"operator_gas"`
	SubmittedAt  int64  `json:"submitted_at"`
	ApprovedAt   int64  `json:"approved_at"`
	Approved     bool   `json:"approved"`
	Cancelled    bool   `json:"cancelled"`
	Executed     bool   `json:"executed"`
}

// GetPendingWithdraw implements chain.Backend.
func (c *Client) GetPendingWithdraw(ctx context.Context, hash hashing.Key32) (*chain.PendingWithdraw, error) {
	var resp *pendingWithdrawResp
	msg := map[string]interface{}{"get_pending_withdraw": map[string]string{"xchain_hash_id": hex32(hash)}}
	if err := c.smartQuery(ctx, msg, &resp); err != nil {
		return nil, bridgeerrors.TransientNetworkError("cosmoschain: get_pending_withdraw query", err)
	}
	if resp == nil {
		return nil, nil
	}
	return pendingWithdrawFromResp(resp)
}

func pendingWithdrawFromResp(resp *pendingWithdrawResp) (*chain.PendingWithdraw, error) {
	hashID, err := decodeKey32(resp.XChainHashID)
	if err != nil {
		return nil, bridgeerrors.DataInconsistencyError("cosmoschain: malformed xchain_hash_id", err)
	}
	srcChain, err := decodeChainID(resp.SrcChain)
	if err != nil {
		return nil, bridgeerrors.DataInconsistencyError("cosmoschain: malformed src_chain", err)
	}
	srcAccount, _ := decodeUniversalAddress(resp.SrcAccount)
	destAccount, _ := decodeUniversalAddress(resp.DestAccount)
	token, _ := decodeUniversalAddress(resp.Token)
	recipient, _ := decodeUniversalAddress(resp.Recipient)
	amount, ok := new(big.Int).SetString(resp.Amount, 10)
	if !ok {
		return nil, bridgeerrors.DataInconsistencyError("cosmoschain: malformed amount", nil)
	}
	gas, _ := new(big.Int).SetString(resp.OperatorGas, 10)
	if gas == nil {
		gas = big.NewInt(0)
	}

	return &chain.PendingWithdraw{
		XChainHashID: hashID,
		SrcChain:     srcChain,
		SrcAccount:   srcAccount,
		DestAccount:  destAccount,
		Token:        token,
		Recipient:    recipient,
		Amount:       amount,
		Nonce:        resp.Nonce,
		OperatorGas:  gas,
		SubmittedAt:  resp.SubmittedAt,
		ApprovedAt:   resp.ApprovedAt,
		Approved:     resp.Approved,
		Cancelled:    resp.Cancelled,
		Executed:     resp.Executed,
	}, nil
}

// CanCancel implements chain.Backend.
func (c *Client) CanCancel(ctx context.Context, hash hashing.Key32) (bool, error) {
	w, err := c.GetPendingWithdraw(ctx, hash)
	if err != nil {
		return false, err
	}
	if w == nil {
		return false, nil
	}
	return !w.Cancelled && !w.Executed, nil
}

// GetCancelWindow implements chain.Backend.
func (c *Client) GetCancelWindow(ctx context.Context) (int64, error) {
	var resp struct {
		CancelWindowSecs int64 `json:"cancel_window_secs"`
	}
	msg := map[string]interface{}{"get_config": map[string]string{}}
	if err := c.smartQuery(ctx, msg, &resp); err != nil {
		return 0, bridgeerrors.TransientNetworkError("cosmoschain: get_config query", err)
	}
	return resp.CancelWindowSecs, nil
}

// GetThisChainId implements chain.Backend.
func (c *Client) GetThisChainId(ctx context.Context) (hashing.ChainID, error) {
	var resp struct {
		ThisChainID string `json:"this_chain_id"`
	}
	msg := map[string]interface{}{"get_config": map[string]string{}}
	if err := c.smartQuery(ctx, msg, &resp); err != nil {
		return hashing.ChainID{}, bridgeerrors.TransientNetworkError("cosmoschain: get_config query", err)
	}
	return decodeChainID(resp.ThisChainID)
}

// SubmitWithdrawApprove implements chain.Backend.
func (c *Client) SubmitWithdrawApprove(ctx context.Context, hash hashing.Key32) error {
	return c.executeWithRetry(ctx, map[string]interface{}{
		"withdraw_approve": map[string]string{"xchain_hash_id": hex32(hash)},
	})
}

// SubmitWithdrawCancel implements chain.Backend.
func (c *Client) SubmitWithdrawCancel(ctx context.Context, hash hashing.Key32) error {
	return c.executeWithRetry(ctx, map[string]interface{}{
		"withdraw_cancel": map[string]string{"xchain_hash_id": hex32(hash)},
	})
}

// pendingWithdrawHashesPageSize/MaxPages bound the enumeration this backend
// performs on the writer's behalf; a destination with more pages pending
// than this is logged as truncated rather than silently dropped.
const (
	pendingWithdrawHashesPageSize = 100
	pendingWithdrawHashesMaxPages = 20
)

// GetPendingWithdrawHashes implements chain.Backend by paging the contract's
// pending_withdrawals query, the same enumeration the canceler already
// relies on (ListPendingWithdrawals), reduced to just the hashes the writer
// needs for its discovery loop (§4.6).
func (c *Client) GetPendingWithdrawHashes(ctx context.Context) ([]hashing.Key32, error) {
	results, truncated, err := c.ListPendingWithdrawals(ctx, pendingWithdrawHashesPageSize, pendingWithdrawHashesMaxPages)
	if err != nil {
		return nil, err
	}
	if truncated {
		c.logger.Warn("cosmoschain: pending withdrawal enumeration truncated", zap.Int("returned", len(results)))
	}
	hashes := make([]hashing.Key32, len(results))
	for i, pw := range results {
		hashes[i] = pw.XChainHashID
	}
	return hashes, nil
}

// SubmitWithdrawExecute implements chain.Backend: a single execute message
// covers both lock/unlock and mint/burn tokens on the Cosmos side, unlike
// the EVM bridge's two distinct entry points.
func (c *Client) SubmitWithdrawExecute(ctx context.Context, hash hashing.Key32) error {
	return c.executeWithRetry(ctx, map[string]interface{}{
		"execute_withdraw": map[string]string{"xchain_hash_id": hex32(hash)},
	})
}

var _ chain.Backend = (*Client)(nil)
