// Package evmchain implements the Backend capability trait against an EVM
// chain's BridgeV2 contract: dial with fallback RPCs, chunked historical
// polling, EIP-1559 gas pricing, and the read/write contract surface the
// operator and canceler need.
package evmchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/chainsafe/xchain-bridge-operator/pkg/bridgeerrors"
	"github.com/chainsafe/xchain-bridge-operator/pkg/chain"
	"github.com/chainsafe/xchain-bridge-operator/pkg/hashing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Client talks to one EVM chain's BridgeV2 contract. It satisfies
// chain.Backend.
type Client struct {
	chainID       hashing.ChainID
	nativeChainID *big.Int // real EIP-155 chain ID, needed for tx signing
	bridgeAddress common.Address
	privateKey    *ecdsa.PrivateKey
	address       common.Address
	gasLimit      uint64
	maxGasPrice   *big.Int

	logger *zap.Logger

	mu       sync.Mutex
	clients  []*ethclient.Client // primary first, then fallbacks
	active   int
	abi      abi.ABI
	contract *bind.BoundContract
}

// Config describes how to connect to one EVM chain.
type Config struct {
	ChainID            hashing.ChainID
	NativeChainID      *big.Int // real EIP-155 chain ID, distinct from ChainID
	RPCURLs            []string // primary first, fallbacks after
	BridgeAddress      common.Address
	PrivateKeyHex      string
	GasLimit           uint64
	MaxGasPriceWei     *big.Int
	ConfirmationBlocks uint64
}

// Dial connects to the first reachable RPC URL, keeping the rest as
// fallbacks for use on later failures (the teacher's client only dials one
// URL; peer EVM chains and cancel-routing require failover across an
// operator-configured list).
func Dial(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if len(cfg.RPCURLs) == 0 {
		return nil, bridgeerrors.ConfigurationError("evmchain: no rpc urls configured", nil)
	}

	parsedABI, err := abi.JSON(strings.NewReader(bridgeV2ABI))
	if err != nil {
		return nil, fmt.Errorf("evmchain: parse bridge abi: %w", err)
	}

	var clients []*ethclient.Client
	var firstErr error
	var active = -1
	for i, url := range cfg.RPCURLs {
		c, derr := ethclient.DialContext(ctx, url)
		if derr != nil {
			if firstErr == nil {
				firstErr = derr
			}
			logger.Warn("evmchain: rpc dial failed", zap.String("url", url), zap.Error(derr))
			clients = append(clients, nil)
			continue
		}
		clients = append(clients, c)
		if active < 0 {
			active = i
		}
	}
	if active < 0 {
		return nil, bridgeerrors.TransientNetworkError("evmchain: all configured rpc urls unreachable", firstErr)
	}

	privateKey, err := crypto.HexToECDSA(cfg.PrivateKeyHex)
	if err != nil {
		return nil, bridgeerrors.ConfigurationError("evmchain: invalid operator private key", err)
	}
	address := crypto.PubkeyToAddress(privateKey.PublicKey)

	contract := bind.NewBoundContract(cfg.BridgeAddress, parsedABI, clients[active], clients[active], clients[active])

	return &Client{
		chainID:       cfg.ChainID,
		nativeChainID: cfg.NativeChainID,
		bridgeAddress: cfg.BridgeAddress,
		privateKey:    privateKey,
		address:       address,
		gasLimit:      cfg.GasLimit,
		maxGasPrice:   cfg.MaxGasPriceWei,
		logger:        logger,
		clients:       clients,
		active:        active,
		abi:           parsedABI,
		contract:      contract,
	}, nil
}

// ethClient returns the RPC connection at the current active index. It does
// not check that connection or switch to another configured URL.
func (c *Client) ethClient() *ethclient.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clients[c.active]
}

// failover advances to the next reachable client in the fallback list. It
// returns false if none remain.
func (c *Client) failover() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := c.active + 1; i < len(c.clients); i++ {
		if c.clients[i] != nil {
			c.active = i
			c.contract = bind.NewBoundContract(c.bridgeAddress, c.abi, c.clients[i], c.clients[i], c.clients[i])
			c.logger.Warn("evmchain: failed over to backup rpc", zap.Int("index", i))
			return true
		}
	}
	return false
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cl := range c.clients {
		if cl != nil {
			cl.Close()
		}
	}
}

// ChainID implements chain.Backend.
func (c *Client) ChainID() hashing.ChainID { return c.chainID }

// LatestBlock returns the chain tip, failing over to a backup RPC on error.
func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	header, err := c.ethClient().HeaderByNumber(ctx, nil)
	if err != nil {
		if c.failover() {
			header, err = c.ethClient().HeaderByNumber(ctx, nil)
		}
		if err != nil {
			return 0, bridgeerrors.TransientNetworkError("evmchain: get latest block", err)
		}
	}
	return header.Number.Uint64(), nil
}

var _ chain.Backend = (*Client)(nil)
