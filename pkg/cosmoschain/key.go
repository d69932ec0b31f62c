// Package cosmoschain implements the Backend capability trait against a
// Terra Classic LCD endpoint: BIP-44 mnemonic signing, signed
// MsgExecuteContract broadcast, and the bridge contract's query/execute
// surface the operator and canceler need.
package cosmoschain

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cosmos/go-bip39"
)

// terraCoinType is SLIP-44 coin type 330, Terra Classic's BIP-44 path
// segment (m/44'/330'/0'/0/0).
const terraCoinType = 330

// SigningKey holds the secp256k1 key pair derived from an operator mnemonic,
// used to sign LCD broadcast transactions.
type SigningKey struct {
	PrivKey []byte // 32-byte scalar
	PubKey  []byte // 33-byte compressed point
}

// DeriveFromMnemonic derives the standard Terra Classic account-0 key from a
// BIP-39 mnemonic via BIP-44 (m/44'/330'/0'/0/0), validating the mnemonic's
// checksum the way go-bip39 expects before deriving.
func DeriveFromMnemonic(mnemonic, bip39Passphrase string) (*SigningKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("cosmoschain: invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, bip39Passphrase)

	// hdkeychain only uses the params for its base58 version bytes; the
	// derived raw key material is chain-agnostic, so mainnet params are a
	// safe stand-in for a Terra-specific chaincfg.Params.
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("cosmoschain: derive master key: %w", err)
	}

	key := master
	for _, idx := range []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + terraCoinType,
		hdkeychain.HardenedKeyStart + 0,
		0,
		0,
	} {
		key, err = key.Derive(idx)
		if err != nil {
			return nil, fmt.Errorf("cosmoschain: derive path segment %d: %w", idx, err)
		}
	}

	privKeyECDSA, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("cosmoschain: extract private key: %w", err)
	}

	return &SigningKey{
		PrivKey: privKeyECDSA.Serialize(),
		PubKey:  privKeyECDSA.PubKey().SerializeCompressed(),
	}, nil
}
