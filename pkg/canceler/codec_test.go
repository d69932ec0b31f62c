package canceler

import (
	"encoding/hex"
	"testing"

	"github.com/chainsafe/xchain-bridge-operator/pkg/hashing"

	"github.com/stretchr/testify/require"
)

func TestHexKey32(t *testing.T) {
	var k hashing.Key32
	k[0] = 0xab
	k[31] = 0xcd

	got := hexKey32(k)
	require.Equal(t, "0x"+hex.EncodeToString(k[:]), got)
	require.Len(t, got, 2+64)
}
