package hashing

import (
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestEncodeAddressUniversal_Layout(t *testing.T) {
	var raw [20]byte
	copy(raw[:], common.FromHex("f39Fd6e51aad88F6F4ce6aB8827279cffFb92266"))

	addr := EncodeAddressUniversal(raw, ChainTypeEVM)

	require.Equal(t, []byte{0, 0, 0, byte(ChainTypeEVM)}, addr[0:4])
	require.Equal(t, raw[:], addr[4:24])
	require.Equal(t, make([]byte, 8), addr[24:32])
}

func TestDecodeAddressUniversal_RoundTrip(t *testing.T) {
	var raw [20]byte
	copy(raw[:], common.FromHex("f39Fd6e51aad88F6F4ce6aB8827279cffFb92266"))

	addr := EncodeAddressUniversal(raw, ChainTypeEVM)
	chainType, decoded, err := DecodeAddressUniversal(addr, true)
	require.NoError(t, err)
	require.Equal(t, ChainTypeEVM, chainType)
	require.Equal(t, raw, decoded)
}

func TestDecodeAddressUniversal_ZeroChainTypeRejected(t *testing.T) {
	var addr UniversalAddress
	_, _, err := DecodeAddressUniversal(addr, false)
	require.ErrorIs(t, err, ErrZeroChainType)
}

func TestDecodeAddressUniversal_StrictVsLenientReserved(t *testing.T) {
	var raw [20]byte
	addr := EncodeAddressUniversal(raw, ChainTypeCosmos)
	addr[31] = 0x01 // corrupt a reserved byte

	_, _, err := DecodeAddressUniversal(addr, true)
	require.ErrorIs(t, err, ErrNonZeroReserved)

	chainType, _, err := DecodeAddressUniversal(addr, false)
	require.NoError(t, err)
	require.Equal(t, ChainTypeCosmos, chainType)
}

// TestComputeXChainHashID_PreimageLayout pins the exact 224-byte preimage
// layout described by the spec: seven 32-byte words in field order, bytes4
// chain IDs right-padded, amount and nonce left-padded big-endian. A
// divergence here is a fund-loss bug, not a test failure to shrug off.
func TestComputeXChainHashID_PreimageLayout(t *testing.T) {
	srcChain := ChainIDFromUint32(1)
	destChain := ChainIDFromUint32(2)

	var srcAcc, destAcc, token UniversalAddress
	for i := range srcAcc {
		srcAcc[i] = byte(i + 1)
	}
	for i := range destAcc {
		destAcc[i] = byte(i + 100)
	}
	for i := range token {
		token[i] = byte(i + 200)
	}

	desc := TransferDescriptor{
		SrcChain:    srcChain,
		DestChain:   destChain,
		SrcAccount:  srcAcc,
		DestAccount: destAcc,
		DestToken:   token,
		Amount:      big.NewInt(1_000_000),
		Nonce:       7,
	}

	got, err := ComputeXChainHashID(desc)
	require.NoError(t, err)

	expectedPreimage := make([]byte, 0, 224)
	expectedPreimage = append(expectedPreimage, common.RightPadBytes(srcChain[:], 32)...)
	expectedPreimage = append(expectedPreimage, common.RightPadBytes(destChain[:], 32)...)
	expectedPreimage = append(expectedPreimage, srcAcc[:]...)
	expectedPreimage = append(expectedPreimage, destAcc[:]...)
	expectedPreimage = append(expectedPreimage, token[:]...)
	expectedPreimage = append(expectedPreimage, common.LeftPadBytes(big.NewInt(1_000_000).Bytes(), 32)...)
	expectedPreimage = append(expectedPreimage, common.LeftPadBytes([]byte{0, 0, 0, 0, 0, 0, 0, 7}, 32)...)

	require.Len(t, expectedPreimage, 224)
	want := crypto.Keccak256(expectedPreimage)
	require.Equal(t, want, got[:])

	// Determinism: recomputing over the same descriptor must be stable.
	again, err := ComputeXChainHashID(desc)
	require.NoError(t, err)
	require.Equal(t, got, again)
}

func TestComputeXChainHashID_RejectsOversizedAmount(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 129) // > uint128
	desc := TransferDescriptor{Amount: tooBig, Nonce: 0}
	_, err := ComputeXChainHashID(desc)
	require.Error(t, err)
}

func TestBech32ToBytes20_RoundTrip(t *testing.T) {
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = byte(i * 7 % 251)
	}
	converted, err := bech32.ConvertBits(raw, 8, 5, true)
	require.NoError(t, err)
	encoded, err := bech32.Encode("terra", converted)
	require.NoError(t, err)

	got, err := Bech32ToBytes20(encoded)
	require.NoError(t, err)
	require.Equal(t, raw, got[:])
}

func TestBech32ToBytes20_WrongLengthRejected(t *testing.T) {
	raw := make([]byte, 16)
	converted, err := bech32.ConvertBits(raw, 8, 5, true)
	require.NoError(t, err)
	encoded, err := bech32.Encode("terra", converted)
	require.NoError(t, err)

	_, err = Bech32ToBytes20(encoded)
	require.Error(t, err)
}
