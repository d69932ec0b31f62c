package cosmoschain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chainsafe/xchain-bridge-operator/pkg/bridgeerrors"
	"github.com/chainsafe/xchain-bridge-operator/pkg/chain"
	"github.com/chainsafe/xchain-bridge-operator/pkg/hashing"

	"go.uber.org/zap"
)

// Config describes how to connect to one Terra Classic LCD endpoint and
// sign transactions against its bridge contract.
type Config struct {
	ChainID         hashing.ChainID
	LCDURLs         []string // primary first, fallbacks after
	BridgeContract  string   // bech32 contract address
	Mnemonic        string
	GasPriceFallback float64 // uluna per gas unit; every fee is computed at this price, no fee estimate is queried
	GasLimit        uint64
}

// Client talks to one Cosmos (Terra Classic) chain's bridge contract over
// the LCD REST API. It satisfies chain.Backend.
type Client struct {
	chainID        hashing.ChainID
	bridgeContract string
	gasPriceFallback float64
	gasLimit       uint64

	key     *SigningKey
	address string

	httpClient *http.Client
	logger     *zap.Logger

	mu      sync.Mutex
	urls    []string
	active  int
}

// Dial validates connectivity to the first reachable LCD URL and derives
// the signing key/address from the configured mnemonic.
func Dial(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if len(cfg.LCDURLs) == 0 {
		return nil, bridgeerrors.ConfigurationError("cosmoschain: no lcd urls configured", nil)
	}

	key, err := DeriveFromMnemonic(cfg.Mnemonic, "")
	if err != nil {
		return nil, bridgeerrors.ConfigurationError("cosmoschain: derive signing key", err)
	}
	address, err := Bech32Address(key.PubKey)
	if err != nil {
		return nil, bridgeerrors.ConfigurationError("cosmoschain: derive bech32 address", err)
	}

	c := &Client{
		chainID:          cfg.ChainID,
		bridgeContract:   cfg.BridgeContract,
		gasPriceFallback: cfg.GasPriceFallback,
		gasLimit:         cfg.GasLimit,
		key:              key,
		address:          address,
		httpClient:       &http.Client{Timeout: 15 * time.Second},
		logger:           logger,
		urls:             cfg.LCDURLs,
		active:           0,
	}

	for i, url := range cfg.LCDURLs {
		if err := c.pingLCD(ctx, url); err == nil {
			c.active = i
			return c, nil
		}
		logger.Warn("cosmoschain: lcd endpoint unreachable at startup", zap.String("url", url), zap.Error(err))
	}
	return nil, bridgeerrors.TransientNetworkError("cosmoschain: all configured lcd urls unreachable", nil)
}

func (c *Client) pingLCD(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/cosmos/base/tendermint/v1beta1/node_info", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lcd returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) activeURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.urls[c.active]
}

func (c *Client) failover() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = (c.active + 1) % len(c.urls)
	c.logger.Warn("cosmoschain: failing over to next lcd endpoint", zap.String("url", c.urls[c.active]))
}

// ChainID implements chain.Backend.
func (c *Client) ChainID() hashing.ChainID { return c.chainID }

// get performs an authenticated-free LCD GET against the currently active
// endpoint, decoding the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.activeURL()+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.failover()
		return bridgeerrors.TransientNetworkError("cosmoschain: lcd get "+path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return bridgeerrors.TransientNetworkError(fmt.Sprintf("cosmoschain: lcd get %s status %d", path, resp.StatusCode), nil)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.activeURL()+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.failover()
		return bridgeerrors.TransientNetworkError("cosmoschain: lcd post "+path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return bridgeerrors.TransientNetworkError(fmt.Sprintf("cosmoschain: lcd post %s status %d", path, resp.StatusCode), nil)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ chain.Backend = (*Client)(nil)
