package operator

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/chainsafe/xchain-bridge-operator/pkg/hashing"
)

func hexChainID(c hashing.ChainID) string {
	return "0x" + hex.EncodeToString(c[:])
}

func hexUniversalAddress(a hashing.UniversalAddress) string {
	return "0x" + hex.EncodeToString(a[:])
}

func hexKey32(k hashing.Key32) string {
	return "0x" + hex.EncodeToString(k[:])
}

func decodeKey32Hex(s string) (hashing.Key32, error) {
	var k hashing.Key32
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return k, err
	}
	if len(b) != len(k) {
		return k, fmt.Errorf("operator: expected %d bytes, got %d", len(k), len(b))
	}
	copy(k[:], b)
	return k, nil
}
