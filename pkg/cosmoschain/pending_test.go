package cosmoschain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chainsafe/xchain-bridge-operator/pkg/hashing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testLCDServer serves a single pending_withdrawals page.
func testLCDServer(t *testing.T, withdrawals []pendingWithdrawResp) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := pendingWithdrawalsResp{Withdrawals: withdrawals, HasMore: false}
		data, err := json.Marshal(resp)
		require.NoError(t, err)
		envelope := map[string]json.RawMessage{"data": data}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(envelope))
	}))
	return srv
}

func clientAgainst(srv *httptest.Server) *Client {
	return &Client{
		bridgeContract: "terra1bridgexxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx",
		httpClient:     srv.Client(),
		logger:         zap.NewNop(),
		urls:           []string{srv.URL},
		active:         0,
	}
}

func TestGetPendingWithdrawHashes_ReturnsHashesFromEnumeration(t *testing.T) {
	var hash1, hash2 hashing.Key32
	hash1[0] = 1
	hash2[0] = 2
	var srcChain hashing.ChainID

	withdrawals := []pendingWithdrawResp{
		{XChainHashID: hex32(hash1), SrcChain: srcChain.String(), Amount: "1"},
		{XChainHashID: hex32(hash2), SrcChain: srcChain.String(), Amount: "2"},
	}
	srv := testLCDServer(t, withdrawals)
	defer srv.Close()

	c := clientAgainst(srv)
	hashes, err := c.GetPendingWithdrawHashes(context.Background())
	require.NoError(t, err)
	require.Len(t, hashes, 2)
	require.ElementsMatch(t, []hashing.Key32{hash1, hash2}, hashes)
}

func TestGetPendingWithdrawHashes_DropsMalformedRecordsRatherThanFailing(t *testing.T) {
	var hash hashing.Key32
	hash[0] = 9
	var srcChain hashing.ChainID

	withdrawals := []pendingWithdrawResp{
		{XChainHashID: hex32(hash), SrcChain: srcChain.String(), Amount: "1"},
		{XChainHashID: "not-hex", SrcChain: srcChain.String(), Amount: "1"},
	}
	srv := testLCDServer(t, withdrawals)
	defer srv.Close()

	c := clientAgainst(srv)
	hashes, err := c.GetPendingWithdrawHashes(context.Background())
	require.NoError(t, err)
	require.Equal(t, []hashing.Key32{hash}, hashes)
}
