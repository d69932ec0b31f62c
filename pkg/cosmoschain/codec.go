package cosmoschain

import (
	"encoding/hex"
	"fmt"

	"github.com/chainsafe/xchain-bridge-operator/pkg/hashing"
)

func hex32(k hashing.Key32) string {
	return hex.EncodeToString(k[:])
}

func decodeKey32(s string) (hashing.Key32, error) {
	var out hashing.Key32
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, fmt.Errorf("cosmoschain: expected 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

func decodeChainID(s string) (hashing.ChainID, error) {
	var out hashing.ChainID
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 4 {
		return out, fmt.Errorf("cosmoschain: expected 4 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

func decodeUniversalAddress(s string) (hashing.UniversalAddress, error) {
	var out hashing.UniversalAddress
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, fmt.Errorf("cosmoschain: expected 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}
