package cosmoschain

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required for Cosmos SDK address derivation
)

// terraBech32Prefix is Terra Classic's account address HRP.
const terraBech32Prefix = "terra"

// Bech32Address derives the bech32 "terra1..." account address from a
// compressed secp256k1 public key: RIPEMD160(SHA256(pubkey)), the same
// derivation the Cosmos SDK uses for AccAddress.
func Bech32Address(compressedPubKey []byte) (string, error) {
	sha := sha256.Sum256(compressedPubKey)
	ripemd := ripemd160.New()
	ripemd.Write(sha[:])
	raw := ripemd.Sum(nil)

	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(terraBech32Prefix, conv)
}
