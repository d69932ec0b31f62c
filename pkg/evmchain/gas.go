package evmchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"go.uber.org/zap"
)

var minTipWei = big.NewInt(2_000_000_000) // 2 gwei floor, same as the teacher's Ethereum client

// transactor builds an EIP-1559 signer the way the teacher's
// GetTransactor does: base fee from the latest header, suggested tip
// floored at 2 gwei, maxFeePerGas = 2*baseFee + tip, capped at the
// configured per-chain maximum.
func (c *Client) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(c.privateKey, c.nativeChainID)
	if err != nil {
		return nil, fmt.Errorf("evmchain: create transactor: %w", err)
	}

	nonce, err := c.ethClient().PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("evmchain: get nonce: %w", err)
	}
	auth.Nonce = big.NewInt(int64(nonce))
	auth.GasLimit = c.gasLimit

	header, err := c.ethClient().HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("evmchain: get header: %w", err)
	}

	tip, err := c.ethClient().SuggestGasTipCap(ctx)
	if err != nil {
		tip = new(big.Int).Set(minTipWei)
		c.logger.Warn("evmchain: suggest tip failed, using floor", zap.Error(err))
	}
	if tip.Cmp(minTipWei) < 0 {
		tip = new(big.Int).Set(minTipWei)
	}

	maxFee := new(big.Int).Mul(header.BaseFee, big.NewInt(2))
	maxFee.Add(maxFee, tip)

	if c.maxGasPrice != nil && maxFee.Cmp(c.maxGasPrice) > 0 {
		c.logger.Warn("evmchain: capping max fee to configured ceiling",
			zap.String("calculated", maxFee.String()), zap.String("cap", c.maxGasPrice.String()))
		maxFee = c.maxGasPrice
	}

	auth.GasFeeCap = maxFee
	auth.GasTipCap = tip
	return auth, nil
}
