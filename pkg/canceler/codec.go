package canceler

import (
	"encoding/hex"

	"github.com/chainsafe/xchain-bridge-operator/pkg/hashing"
)

func hexKey32(k hashing.Key32) string {
	return "0x" + hex.EncodeToString(k[:])
}
