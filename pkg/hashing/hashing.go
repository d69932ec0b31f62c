// Package hashing implements the cross-chain identity primitives shared by
// the operator and canceler: the xchain_hash_id computation and the
// UniversalAddress encoding used for every cross-chain account field.
//
// The byte layout here is frozen and must match the on-chain contracts
// bit-for-bit; a mismatch permanently locks user funds. Do not "clean up"
// the padding logic without re-checking against the pinned test vector.
package hashing

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Key32 names the raw xchain_hash_id type used throughout the cache,
// chain, store, operator and canceler packages.
type Key32 = [32]byte

// ChainID is a registry-assigned 4-byte identifier, distinct from a chain's
// native chain ID. All cross-chain hashing uses this value.
type ChainID [4]byte

func (c ChainID) String() string {
	return common.Bytes2Hex(c[:])
}

// ChainIDFromUint32 builds a ChainID from a big-endian uint32, the form used
// when a chain ID is supplied as a decimal config value.
func ChainIDFromUint32(v uint32) ChainID {
	var c ChainID
	c[0] = byte(v >> 24)
	c[1] = byte(v >> 16)
	c[2] = byte(v >> 8)
	c[3] = byte(v)
	return c
}

// Chain types recognized by UniversalAddress, per the reserved chain-type
// registry. Only EVM and Cosmos are exercised by this module; Solana and
// Bitcoin are recognized for round-trip decoding but have no chain client.
const (
	ChainTypeEVM     uint32 = 1
	ChainTypeCosmos  uint32 = 2
	ChainTypeSolana  uint32 = 3
	ChainTypeBitcoin uint32 = 4
)

// UniversalAddress is the 32-byte cross-chain account encoding:
// [chain_type:4][raw_address:20][reserved:8].
type UniversalAddress [32]byte

var ErrZeroChainType = errors.New("hashing: universal address has zero chain type")
var ErrNonZeroReserved = errors.New("hashing: universal address has non-zero reserved bytes")

// EncodeAddressUniversal packs a 20-byte raw account and chain type into a
// UniversalAddress. The reserved trailer is always emitted as zero.
func EncodeAddressUniversal(raw [20]byte, chainType uint32) UniversalAddress {
	var out UniversalAddress
	out[0] = byte(chainType >> 24)
	out[1] = byte(chainType >> 16)
	out[2] = byte(chainType >> 8)
	out[3] = byte(chainType)
	copy(out[4:24], raw[:])
	// out[24:32] left zero.
	return out
}

// DecodeAddressUniversal splits a UniversalAddress into its chain type and
// raw 20-byte account. When strict is true, non-zero reserved bytes are
// rejected; lenient decoding accepts them for interoperability with older
// encoders. An all-zero input (zero chain type) is always rejected.
func DecodeAddressUniversal(addr UniversalAddress, strict bool) (chainType uint32, raw [20]byte, err error) {
	chainType = uint32(addr[0])<<24 | uint32(addr[1])<<16 | uint32(addr[2])<<8 | uint32(addr[3])
	if chainType == 0 {
		return 0, raw, ErrZeroChainType
	}
	copy(raw[:], addr[4:24])
	if strict {
		for _, b := range addr[24:32] {
			if b != 0 {
				return 0, raw, ErrNonZeroReserved
			}
		}
	}
	return chainType, raw, nil
}

// TransferDescriptor is the canonical 7-tuple hashed to produce the
// xchain_hash_id. Amount fits a uint128 on the wire; Go represents it as
// *big.Int and rejects negative or oversized values at hash time.
type TransferDescriptor struct {
	SrcChain   ChainID
	DestChain  ChainID
	SrcAccount UniversalAddress
	DestAccount UniversalAddress
	DestToken  UniversalAddress
	Amount     *big.Int
	Nonce      uint64
}

const maxUint128Bytes = 16

// ComputeXChainHashID hashes the canonical 7-tuple with keccak256 over an
// ABI-style encoding: each field occupies exactly one 32-byte word.
// bytes4 fields are right-padded (as Solidity ABI-encodes fixed-size byte
// arrays); bytes32 fields are passed through; the numeric fields are
// left-padded big-endian.
func ComputeXChainHashID(d TransferDescriptor) ([32]byte, error) {
	var out [32]byte
	if d.Amount == nil {
		return out, errors.New("hashing: nil amount")
	}
	if d.Amount.Sign() < 0 {
		return out, errors.New("hashing: negative amount")
	}
	amountBytes := d.Amount.Bytes()
	if len(amountBytes) > maxUint128Bytes {
		return out, errors.New("hashing: amount exceeds uint128")
	}

	buf := make([]byte, 0, 7*32)
	buf = append(buf, common.RightPadBytes(d.SrcChain[:], 32)...)
	buf = append(buf, common.RightPadBytes(d.DestChain[:], 32)...)
	buf = append(buf, d.SrcAccount[:]...)
	buf = append(buf, d.DestAccount[:]...)
	buf = append(buf, d.DestToken[:]...)
	buf = append(buf, common.LeftPadBytes(amountBytes, 32)...)

	nonceBytes := make([]byte, 8)
	for i := 0; i < 8; i++ {
		nonceBytes[7-i] = byte(d.Nonce >> (8 * i))
	}
	buf = append(buf, common.LeftPadBytes(nonceBytes, 32)...)

	copy(out[:], crypto.Keccak256(buf))
	return out, nil
}
