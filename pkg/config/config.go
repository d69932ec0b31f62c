// Package config loads the operator/canceler configuration. Parsing the
// config file and environment variables themselves is an external concern
// (the binaries may be wired to any loader); this package defines the shape
// every option from the external interface list takes and a reference
// loader in the same style as a YAML-plus-env-override service config.
package config

import (
	"fmt"
	"math/big"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chainsafe/xchain-bridge-operator/pkg/hashing"
	"github.com/creasty/defaults"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EVMChainConfig describes one EVM endpoint: the base chain for the
// operator/canceler, or one entry of the canceler's multi-chain peer list.
type EVMChainConfig struct {
	Name            string   `yaml:"name"`
	RPCURL          string   `yaml:"rpc_url" validate:"required,url"`
	FallbackRPCURLs []string `yaml:"fallback_rpc_urls"`
	ChainID         uint64   `yaml:"chain_id"`
	ThisChainID     string   `yaml:"this_chain_id"` // hex "0x..." or decimal; resolved at Load
	BridgeAddress   string   `yaml:"bridge_address" validate:"required"`
	PrivateKey      string   `yaml:"private_key" validate:"-"`

	ConfirmationBlocks uint64 `yaml:"confirmation_blocks" default:"12"`
	PollLookbackBlocks uint64 `yaml:"poll_lookback_blocks" default:"5000"`
	PollChunkSize      uint64 `yaml:"poll_chunk_size" default:"5000"`
	GasLimit           uint64 `yaml:"gas_limit" default:"300000"`
	MaxGasPriceGwei    uint64 `yaml:"max_gas_price_gwei" default:"200"`

	resolvedChainID hashing.ChainID
}

// ResolvedChainID returns the parsed V2 chain ID, valid only after
// Config.Load has run.
func (e *EVMChainConfig) ResolvedChainID() hashing.ChainID { return e.resolvedChainID }

// MaxGasPrice returns the configured gas ceiling in wei.
func (e *EVMChainConfig) MaxGasPrice() *big.Int {
	return new(big.Int).Mul(big.NewInt(int64(e.MaxGasPriceGwei)), big.NewInt(1_000_000_000))
}

// TerraConfig describes the Cosmos-side (Terra Classic) endpoint.
type TerraConfig struct {
	LCDURL          string   `yaml:"lcd_url" validate:"required,url"`
	RPCURL          string   `yaml:"rpc_url" validate:"required,url"`
	FallbackLCDURLs []string `yaml:"fallback_lcd_urls"`
	ChainID         string   `yaml:"chain_id" validate:"required"`
	BridgeAddress   string   `yaml:"bridge_address" validate:"required"`
	Mnemonic        string   `yaml:"mnemonic" validate:"-"`
	ThisChainID     string   `yaml:"this_chain_id"`

	ConfirmationBlocks uint64  `yaml:"confirmation_blocks" default:"1"`
	PollLookbackBlocks uint64  `yaml:"poll_lookback_blocks" default:"1000"`
	GasPriceFallback   float64 `yaml:"gas_price_fallback" default:"0.015"`
	GasLimit           uint64  `yaml:"gas_limit" default:"500000"`

	resolvedChainID hashing.ChainID
}

func (t *TerraConfig) ResolvedChainID() hashing.ChainID { return t.resolvedChainID }

// CancelerConfig holds options specific to the canceler binary.
type CancelerConfig struct {
	CancelerID                         string           `yaml:"canceler_id"`
	TerraPollPageSize                  int              `yaml:"terra_poll_page_size" default:"50"`
	TerraPollMaxPages                  int              `yaml:"terra_poll_max_pages" default:"20"`
	DedupeCacheMaxSize                 int              `yaml:"dedupe_cache_max_size" default:"100000"`
	DedupeCacheTTLSecs                 int64            `yaml:"dedupe_cache_ttl_secs" default:"86400"`
	EVMPrecheckMaxRetries               int              `yaml:"evm_precheck_max_retries" default:"2"`
	EVMPrecheckCircuitBreakerThreshold  uint32           `yaml:"evm_precheck_circuit_breaker_threshold" default:"10"`
	AdditionalEVMChains                 []EVMChainConfig `yaml:"additional_evm_chains"`
}

// HealthConfig configures the liveness/readiness HTTP server — ambient
// scaffolding, not part of the hard business logic.
type HealthConfig struct {
	Port        int    `yaml:"port" default:"9099"`
	BindAddress string `yaml:"bind_address" default:"127.0.0.1"`
}

// LoggingConfig mirrors the teacher's logging config shape.
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info"`
	Format     string `yaml:"format" default:"json"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// DatabaseConfig holds the shared store's connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"5432"`
	Name     string `yaml:"name" default:"bridge"`
	User     string `yaml:"user" default:"bridge"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode" default:"disable"`
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode)
}

// Config is the full operator/canceler configuration. Not every field is
// used by both binaries: cmd/operator reads only TerraPollPageSize and
// TerraPollMaxPages from Canceler; cmd/canceler ignores nothing (it needs
// the EVM/Terra endpoints too).
type Config struct {
	EVM            EVMChainConfig `yaml:"evm"`
	Terra          TerraConfig    `yaml:"terra"`
	PollIntervalMS int64          `yaml:"poll_interval_ms" default:"5000"`
	Health         HealthConfig   `yaml:"health"`
	Logging        LoggingConfig  `yaml:"logging"`
	Database       DatabaseConfig `yaml:"database"`
	Canceler       CancelerConfig `yaml:"canceler"`
}

// String redacts secrets for logging, mirroring the teacher's debug-output
// redaction of credentials.
func (c *Config) String() string {
	return fmt.Sprintf("Config{evm_rpc=%s evm_bridge=%s terra_lcd=%s terra_bridge=%s evm_private_key=%s terra_mnemonic=%s}",
		c.EVM.RPCURL, c.EVM.BridgeAddress, c.Terra.LCDURL, c.Terra.BridgeAddress, redact(c.EVM.PrivateKey), redact(c.Terra.Mnemonic))
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***redacted***"
}

var validate = validator.New()

// Load reads a YAML config file, applies defaults, overrides from
// environment variables using the names in the external interface list,
// resolves V2 chain IDs, and validates the result. Callers should treat any
// returned error as fatal and exit non-zero.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config: set defaults: %w", err)
	}

	overrideFromEnv(cfg)

	if cfg.Canceler.CancelerID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			cfg.Canceler.CancelerID = fmt.Sprintf("canceler-%d", os.Getpid())
		} else {
			cfg.Canceler.CancelerID = host
		}
	}

	if err := resolveChainIDs(cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func overrideFromEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("EVM_RPC_URL", &cfg.EVM.RPCURL)
	str("EVM_BRIDGE_ADDRESS", &cfg.EVM.BridgeAddress)
	str("EVM_PRIVATE_KEY", &cfg.EVM.PrivateKey)
	str("EVM_V2_CHAIN_ID", &cfg.EVM.ThisChainID)
	str("EVM_THIS_CHAIN_ID", &cfg.EVM.ThisChainID)
	if v := os.Getenv("EVM_CHAIN_ID"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.EVM.ChainID = n
		}
	}

	str("TERRA_LCD_URL", &cfg.Terra.LCDURL)
	str("TERRA_RPC_URL", &cfg.Terra.RPCURL)
	str("TERRA_CHAIN_ID", &cfg.Terra.ChainID)
	str("TERRA_BRIDGE_ADDRESS", &cfg.Terra.BridgeAddress)
	str("TERRA_MNEMONIC", &cfg.Terra.Mnemonic)
	str("TERRA_V2_CHAIN_ID", &cfg.Terra.ThisChainID)
	str("TERRA_THIS_CHAIN_ID", &cfg.Terra.ThisChainID)

	if v := os.Getenv("POLL_INTERVAL_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.PollIntervalMS = n
		}
	}
	if v := os.Getenv("HEALTH_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Health.Port = n
		}
	}
	str("HEALTH_BIND_ADDRESS", &cfg.Health.BindAddress)

	if v := os.Getenv("EVM_POLL_LOOKBACK_BLOCKS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.EVM.PollLookbackBlocks = n
		}
	}
	if v := os.Getenv("EVM_POLL_CHUNK_SIZE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.EVM.PollChunkSize = n
		}
	}

	if v := os.Getenv("TERRA_POLL_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Canceler.TerraPollPageSize = n
		}
	}
	if v := os.Getenv("TERRA_POLL_MAX_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Canceler.TerraPollMaxPages = n
		}
	}
	if v := os.Getenv("EVM_PRECHECK_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Canceler.EVMPrecheckMaxRetries = n
		}
	}
	if v := os.Getenv("EVM_PRECHECK_CIRCUIT_BREAKER_THRESHOLD"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Canceler.EVMPrecheckCircuitBreakerThreshold = uint32(n)
		}
	}

	loadMultiEVMFromEnv(cfg)
}

func loadMultiEVMFromEnv(cfg *Config) {
	count := 0
	if v := os.Getenv("EVM_CHAINS_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			count = n
		}
	}
	for i := 0; i < count; i++ {
		prefix := fmt.Sprintf("EVM_CHAIN_%d_", i)
		c := EVMChainConfig{
			Name:          os.Getenv(prefix + "NAME"),
			ThisChainID:   os.Getenv(prefix + "THIS_CHAIN_ID"),
			BridgeAddress: os.Getenv(prefix + "BRIDGE_ADDRESS"),
			RPCURL:        os.Getenv(prefix + "RPC_URL"),
		}
		if v := os.Getenv(prefix + "CHAIN_ID"); v != "" {
			if n, err := strconv.ParseUint(v, 10, 64); err == nil {
				c.ChainID = n
			}
		}
		if c.RPCURL == "" && c.BridgeAddress == "" {
			continue
		}
		cfg.Canceler.AdditionalEVMChains = append(cfg.Canceler.AdditionalEVMChains, c)
	}
}

// ParseChainID parses a V2 chain ID given as "0x"-prefixed hex or decimal.
func ParseChainID(s string) (hashing.ChainID, error) {
	var c hashing.ChainID
	if s == "" {
		return c, fmt.Errorf("config: empty chain id")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		b := common.FromHex(s)
		if len(b) != 4 {
			return c, fmt.Errorf("config: chain id %q must decode to 4 bytes, got %d", s, len(b))
		}
		copy(c[:], b)
		return c, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return c, fmt.Errorf("config: chain id %q is neither 0x-hex nor decimal: %w", s, err)
	}
	return hashing.ChainIDFromUint32(uint32(n)), nil
}

func resolveChainIDs(cfg *Config) error {
	if cfg.EVM.ThisChainID != "" {
		id, err := ParseChainID(cfg.EVM.ThisChainID)
		if err != nil {
			return fmt.Errorf("config: EVM_V2_CHAIN_ID: %w", err)
		}
		cfg.EVM.resolvedChainID = id
	}
	if cfg.Terra.ThisChainID != "" {
		id, err := ParseChainID(cfg.Terra.ThisChainID)
		if err != nil {
			return fmt.Errorf("config: TERRA_V2_CHAIN_ID: %w", err)
		}
		cfg.Terra.resolvedChainID = id
	}
	for i := range cfg.Canceler.AdditionalEVMChains {
		peer := &cfg.Canceler.AdditionalEVMChains[i]
		if peer.ThisChainID == "" {
			continue
		}
		id, err := ParseChainID(peer.ThisChainID)
		if err != nil {
			return fmt.Errorf("config: EVM_CHAIN_%d_THIS_CHAIN_ID: %w", i, err)
		}
		peer.resolvedChainID = id
		// Open Question (design notes): reject overlap between a peer's
		// this_chain_id and the base chain's this_chain_id at load time
		// rather than silently filtering it out downstream.
		if cfg.EVM.ThisChainID != "" && peer.resolvedChainID == cfg.EVM.resolvedChainID {
			return fmt.Errorf("config: EVM_CHAIN_%d_THIS_CHAIN_ID %s duplicates the base EVM this_chain_id", i, peer.ThisChainID)
		}
	}
	return nil
}

func validateRPCURL(raw, name string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: %s: invalid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: %s: scheme must be http or https, got %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("config: %s: empty host", name)
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if err := validateRPCURL(cfg.EVM.RPCURL, "EVM_RPC_URL"); err != nil {
		return err
	}
	if err := validateRPCURL(cfg.Terra.LCDURL, "TERRA_LCD_URL"); err != nil {
		return err
	}
	if err := validateRPCURL(cfg.Terra.RPCURL, "TERRA_RPC_URL"); err != nil {
		return err
	}
	if !common.IsHexAddress(cfg.EVM.BridgeAddress) {
		return fmt.Errorf("config: EVM_BRIDGE_ADDRESS %q is not a valid address", cfg.EVM.BridgeAddress)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config: validation: %w", err)
	}
	return nil
}

// PollInterval returns the configured poll interval as a time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
