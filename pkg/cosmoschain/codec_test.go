package cosmoschain

import (
	"testing"

	"github.com/chainsafe/xchain-bridge-operator/pkg/hashing"

	"github.com/stretchr/testify/require"
)

func TestHex32_RoundTrip(t *testing.T) {
	var k hashing.Key32
	k[0] = 0xde
	k[31] = 0xad

	s := hex32(k)
	decoded, err := decodeKey32(s)
	require.NoError(t, err)
	require.Equal(t, k, decoded)
}

func TestDecodeKey32_WrongLength(t *testing.T) {
	_, err := decodeKey32("abcd")
	require.Error(t, err)
}

func TestDecodeChainID_WrongLength(t *testing.T) {
	_, err := decodeChainID("aabbccddee")
	require.Error(t, err)
}

func TestDecodeUniversalAddress_InvalidHex(t *testing.T) {
	_, err := decodeUniversalAddress("not-hex")
	require.Error(t, err)
}

func TestPendingWithdrawFromResp_ValidRecord(t *testing.T) {
	var hash hashing.Key32
	hash[0] = 0x01
	var srcChain hashing.ChainID
	srcChain[3] = 2
	var addr hashing.UniversalAddress
	addr[4] = 9

	resp := &pendingWithdrawResp{
		XChainHashID: hex32(hash),
		SrcChain:     decodeHexChainID(t, srcChain),
		SrcAccount:   decodeHexAddr(t, addr),
		DestAccount:  decodeHexAddr(t, addr),
		Token:        decodeHexAddr(t, addr),
		Recipient:    decodeHexAddr(t, addr),
		Amount:       "12345",
		Nonce:        3,
		OperatorGas:  "100",
		SubmittedAt:  10,
		ApprovedAt:   20,
		Approved:     true,
	}

	pw, err := pendingWithdrawFromResp(resp)
	require.NoError(t, err)
	require.Equal(t, hash, pw.XChainHashID)
	require.Equal(t, srcChain, pw.SrcChain)
	require.Equal(t, "12345", pw.Amount.String())
	require.Equal(t, "100", pw.OperatorGas.String())
	require.True(t, pw.Approved)
}

func TestPendingWithdrawFromResp_MalformedAmountErrors(t *testing.T) {
	var hash hashing.Key32
	var srcChain hashing.ChainID
	resp := &pendingWithdrawResp{
		XChainHashID: hex32(hash),
		SrcChain:     decodeHexChainID(t, srcChain),
		Amount:       "not-a-number",
	}
	_, err := pendingWithdrawFromResp(resp)
	require.Error(t, err)
}

func TestPendingWithdrawFromResp_MissingOperatorGasDefaultsToZero(t *testing.T) {
	var hash hashing.Key32
	var srcChain hashing.ChainID
	resp := &pendingWithdrawResp{
		XChainHashID: hex32(hash),
		SrcChain:     decodeHexChainID(t, srcChain),
		Amount:       "0",
		OperatorGas:  "",
	}
	pw, err := pendingWithdrawFromResp(resp)
	require.NoError(t, err)
	require.Equal(t, "0", pw.OperatorGas.String())
}

func decodeHexChainID(t *testing.T, c hashing.ChainID) string {
	t.Helper()
	return c.String()
}

func decodeHexAddr(t *testing.T, a hashing.UniversalAddress) string {
	t.Helper()
	return hex32Addr(a)
}

func hex32Addr(a hashing.UniversalAddress) string {
	return hex32(hashing.Key32(a))
}
