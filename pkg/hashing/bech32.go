package hashing

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Bech32ToBytes20 decodes a bech32 address (e.g. a Terra Classic "terra1..."
// account) into its 20-byte canonical representation. It rejects any address
// that does not decode to exactly 20 bytes, since the bridge's UniversalAddress
// raw field is fixed at 20 bytes and silently truncating or zero-padding a
// mismatched length would corrupt the xchain_hash_id.
func Bech32ToBytes20(addr string) ([20]byte, error) {
	var out [20]byte
	_, data, err := bech32.Decode(addr)
	if err != nil {
		return out, fmt.Errorf("hashing: bech32 decode %q: %w", addr, err)
	}
	converted, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return out, fmt.Errorf("hashing: bech32 convert bits %q: %w", addr, err)
	}
	if len(converted) != 20 {
		return out, fmt.Errorf("hashing: bech32 address %q decodes to %d bytes, want 20", addr, len(converted))
	}
	copy(out[:], converted)
	return out, nil
}
