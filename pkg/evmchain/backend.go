package evmchain

import (
	"context"
	"math/big"

	"github.com/chainsafe/xchain-bridge-operator/pkg/bridgeerrors"
	"github.com/chainsafe/xchain-bridge-operator/pkg/chain"
	"github.com/chainsafe/xchain-bridge-operator/pkg/hashing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

type depositOut struct {
	XChainHashId [32]byte
	DestChain    [4]byte
	SrcAccount   [32]byte
	DestAccount  [32]byte
	Token        [32]byte
	Amount       *big.Int
	Nonce        uint64
	Fee          *big.Int
	Timestamp    uint64
}

type pendingWithdrawOut struct {
	XChainHashId [32]byte
	SrcChain     [4]byte
	SrcAccount   [32]byte
	DestAccount  [32]byte
	Token        [32]byte
	Recipient    [32]byte
	Amount       *big.Int
	Nonce        uint64
	OperatorGas  *big.Int
	SubmittedAt  uint64
	ApprovedAt   uint64
	Approved     bool
	Cancelled    bool
	Executed     bool
}

// GetDeposit implements chain.Backend.
func (c *Client) GetDeposit(ctx context.Context, hash hashing.Key32) (*chain.Deposit, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getDeposit", hash)
	if err != nil {
		return nil, bridgeerrors.TransientNetworkError("evmchain: getDeposit call", err)
	}
	d, ok := abi.ConvertType(out[0], new(depositOut)).(*depositOut)
	if !ok {
		return nil, bridgeerrors.DataInconsistencyError("evmchain: unexpected getDeposit return shape", nil)
	}
	if d.Timestamp == 0 {
		return nil, nil
	}
	return &chain.Deposit{
		XChainHashID: d.XChainHashId,
		DestChain:    hashing.ChainID(d.DestChain),
		SrcAccount:   hashing.UniversalAddress(d.SrcAccount),
		DestAccount:  hashing.UniversalAddress(d.DestAccount),
		Token:        hashing.UniversalAddress(d.Token),
		Amount:       d.Amount,
		Nonce:        d.Nonce,
		Fee:          d.Fee,
		Timestamp:    int64(d.Timestamp),
	}, nil
}

// GetPendingWithdraw implements chain.Backend.
func (c *Client) GetPendingWithdraw(ctx context.Context, hash hashing.Key32) (*chain.PendingWithdraw, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getPendingWithdraw", hash)
	if err != nil {
		return nil, bridgeerrors.TransientNetworkError("evmchain: getPendingWithdraw call", err)
	}
	w, ok := abi.ConvertType(out[0], new(pendingWithdrawOut)).(*pendingWithdrawOut)
	if !ok {
		return nil, bridgeerrors.DataInconsistencyError("evmchain: unexpected getPendingWithdraw return shape", nil)
	}
	if w.SubmittedAt == 0 {
		return nil, nil
	}
	return &chain.PendingWithdraw{
		XChainHashID: w.XChainHashId,
		SrcChain:     hashing.ChainID(w.SrcChain),
		SrcAccount:   hashing.UniversalAddress(w.SrcAccount),
		DestAccount:  hashing.UniversalAddress(w.DestAccount),
		Token:        hashing.UniversalAddress(w.Token),
		Recipient:    hashing.UniversalAddress(w.Recipient),
		Amount:       w.Amount,
		Nonce:        w.Nonce,
		OperatorGas:  w.OperatorGas,
		SubmittedAt:  int64(w.SubmittedAt),
		ApprovedAt:   int64(w.ApprovedAt),
		Approved:     w.Approved,
		Cancelled:    w.Cancelled,
		Executed:     w.Executed,
	}, nil
}

// CanCancel implements chain.Backend: true while a withdrawal is pending,
// approved or not, and neither cancelled nor executed.
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
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getCancelWindow")
	if err != nil {
		return 0, bridgeerrors.TransientNetworkError("evmchain: getCancelWindow call", err)
	}
	secs, ok := abi.ConvertType(out[0], new(uint64)).(*uint64)
	if !ok {
		return 0, bridgeerrors.DataInconsistencyError("evmchain: unexpected getCancelWindow return", nil)
	}
	return int64(*secs), nil
}

// GetThisChainId implements chain.Backend: reads the chain's own registered
// V2 chain ID on-chain, used at startup to detect config/contract mismatch.
func (c *Client) GetThisChainId(ctx context.Context) (hashing.ChainID, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getThisChainId")
	if err != nil {
		return hashing.ChainID{}, bridgeerrors.TransientNetworkError("evmchain: getThisChainId call", err)
	}
	id, ok := abi.ConvertType(out[0], new([4]byte)).(*[4]byte)
	if !ok {
		return hashing.ChainID{}, bridgeerrors.DataInconsistencyError("evmchain: unexpected getThisChainId return", nil)
	}
	return hashing.ChainID(*id), nil
}

// SubmitWithdrawApprove implements chain.Backend.
func (c *Client) SubmitWithdrawApprove(ctx context.Context, hash hashing.Key32) error {
	return c.submit(ctx, "withdrawApprove", hash)
}

// SubmitWithdrawCancel implements chain.Backend.
func (c *Client) SubmitWithdrawCancel(ctx context.Context, hash hashing.Key32) error {
	return c.submit(ctx, "withdrawCancel", hash)
}

// GetPendingWithdrawHashes implements chain.Backend: the writer's primary
// discovery mechanism (§4.6), enumerating every withdrawal hash this bridge
// currently has pending rather than relying solely on event logs.
func (c *Client) GetPendingWithdrawHashes(ctx context.Context) ([]hashing.Key32, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getPendingWithdrawHashes")
	if err != nil {
		return nil, bridgeerrors.TransientNetworkError("evmchain: getPendingWithdrawHashes call", err)
	}
	raw, ok := abi.ConvertType(out[0], new([][32]byte)).(*[][32]byte)
	if !ok {
		return nil, bridgeerrors.DataInconsistencyError("evmchain: unexpected getPendingWithdrawHashes return shape", nil)
	}
	hashes := make([]hashing.Key32, len(*raw))
	for i, h := range *raw {
		hashes[i] = h
	}
	return hashes, nil
}

// GetDestToken queries the registry for the destination-chain token address
// a given source token maps to. A zero return means no mapping exists;
// callers must treat that as a hard failure (§4.5), never a default, since
// proceeding without it would route funds to an unregistered token.
func (c *Client) GetDestToken(ctx context.Context, srcToken hashing.UniversalAddress, destChain hashing.ChainID) (hashing.UniversalAddress, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getDestToken", [32]byte(srcToken), [4]byte(destChain))
	if err != nil {
		return hashing.UniversalAddress{}, bridgeerrors.TransientNetworkError("evmchain: getDestToken call", err)
	}
	dest, ok := abi.ConvertType(out[0], new([32]byte)).(*[32]byte)
	if !ok {
		return hashing.UniversalAddress{}, bridgeerrors.DataInconsistencyError("evmchain: unexpected getDestToken return shape", nil)
	}
	return hashing.UniversalAddress(*dest), nil
}

// GetTokenType reports whether a token on this chain is lock/unlock or
// mint/burn, used to route withdrawal execution (§4.6 execution loop).
func (c *Client) GetTokenType(ctx context.Context, token hashing.UniversalAddress) (chain.TokenType, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getTokenType", [32]byte(token))
	if err != nil {
		return 0, bridgeerrors.TransientNetworkError("evmchain: getTokenType call", err)
	}
	t, ok := abi.ConvertType(out[0], new(uint8)).(*uint8)
	if !ok {
		return 0, bridgeerrors.DataInconsistencyError("evmchain: unexpected getTokenType return shape", nil)
	}
	return chain.TokenType(*t), nil
}

// SubmitWithdrawExecute implements chain.Backend: looks up the withdrawn
// token's registered type and dispatches to the matching on-chain execute
// entry point, since lock/unlock and mint/burn tokens are released through
// different contract functions (§6).
func (c *Client) SubmitWithdrawExecute(ctx context.Context, hash hashing.Key32) error {
	w, err := c.GetPendingWithdraw(ctx, hash)
	if err != nil {
		return err
	}
	if w == nil {
		return bridgeerrors.DataInconsistencyError("evmchain: withdrawExecute: no such pending withdraw", nil)
	}
	tokenType, err := c.GetTokenType(ctx, w.Token)
	if err != nil {
		return err
	}
	switch tokenType {
	case chain.TokenTypeMintBurn:
		return c.submit(ctx, "withdrawExecuteMint", hash)
	default:
		return c.submit(ctx, "withdrawExecuteUnlock", hash)
	}
}

func (c *Client) submit(ctx context.Context, method string, hash hashing.Key32) error {
	auth, err := c.transactor(ctx)
	if err != nil {
		return bridgeerrors.TransientNetworkError("evmchain: build transactor", err)
	}
	tx, err := c.contract.Transact(auth, method, hash)
	if err != nil {
		return bridgeerrors.TransientChainError("evmchain: "+method+" submit", err)
	}
	receipt, err := bind.WaitMined(ctx, c.ethClient(), tx)
	if err != nil {
		return bridgeerrors.TransientNetworkError("evmchain: "+method+" wait mined", err)
	}
	if receipt.Status == 0 {
		return bridgeerrors.TerminalError("evmchain: "+method+" reverted", nil)
	}
	return nil
}
