package evmchain

import (
	"math/big"
	"strings"
	"testing"

	"github.com/chainsafe/xchain-bridge-operator/pkg/hashing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(bridgeV2ABI))
	require.NoError(t, err)
	return &Client{abi: parsed, logger: zap.NewNop()}
}

func TestDecodeDepositLog_DecodesTopicsAndData(t *testing.T) {
	c := testClient(t)

	var destChainTopic common.Hash
	copy(destChainTopic[:4], []byte{0x00, 0x00, 0x00, 0x01})
	var destAccountTopic common.Hash
	destAccountTopic[31] = 0x42

	var srcAccount [32]byte
	srcAccount[31] = 0x07
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	amount := big.NewInt(1_000_000)
	fee := big.NewInt(5)

	data, err := c.abi.Events["Deposit"].Inputs.NonIndexed().Pack(srcAccount, token, amount, uint64(9), fee)
	require.NoError(t, err)

	log := ethtypes.Log{
		Topics:      []common.Hash{c.abi.Events["Deposit"].ID, destChainTopic, destAccountTopic},
		Data:        data,
		BlockNumber: 100,
		TxHash:      common.HexToHash("0xabc"),
		Index:       3,
	}

	out, err := c.decodeDepositLog(log)
	require.NoError(t, err)
	require.Equal(t, hashing.ChainID{0, 0, 0, 1}, out.DestChain)
	require.Equal(t, hashing.UniversalAddress(destAccountTopic), out.DestAccount)
	require.Equal(t, hashing.UniversalAddress(srcAccount), out.SrcAccount)
	require.Equal(t, token, out.Token)
	require.Equal(t, amount, out.Amount)
	require.Equal(t, uint64(9), out.Nonce)
	require.Equal(t, fee, out.Fee)
	require.Equal(t, uint64(100), out.BlockNumber)
	require.Equal(t, uint(3), out.LogIndex)
}

func TestDecodeDepositLog_RejectsMissingTopics(t *testing.T) {
	c := testClient(t)
	log := ethtypes.Log{Topics: []common.Hash{c.abi.Events["Deposit"].ID}}
	_, err := c.decodeDepositLog(log)
	require.Error(t, err)
}

func TestDecodeWithdrawSubmitLog_DecodesHashFromTopic(t *testing.T) {
	c := testClient(t)

	var hashTopic common.Hash
	hashTopic[0] = 0xaa

	data, err := c.abi.Events["WithdrawSubmit"].Inputs.NonIndexed().Pack(
		[4]byte{0, 0, 0, 2},
		[32]byte{},
		[32]byte{},
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
		big.NewInt(42),
		uint64(1),
		big.NewInt(0),
	)
	require.NoError(t, err)

	log := ethtypes.Log{
		Topics: []common.Hash{c.abi.Events["WithdrawSubmit"].ID, hashTopic},
		Data:   data,
	}

	out, err := c.decodeWithdrawSubmitLog(log)
	require.NoError(t, err)
	require.Equal(t, hashing.Key32(hashTopic), out.XChainHashID)
	require.Equal(t, hashing.ChainID{0, 0, 0, 2}, out.SrcChain)
}

func TestDecodeWithdrawSubmitLog_RejectsMissingTopic(t *testing.T) {
	c := testClient(t)
	_, err := c.decodeWithdrawSubmitLog(ethtypes.Log{})
	require.Error(t, err)
}
