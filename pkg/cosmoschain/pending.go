package cosmoschain

import (
	"context"
	"sort"

	"github.com/chainsafe/xchain-bridge-operator/pkg/bridgeerrors"
	"github.com/chainsafe/xchain-bridge-operator/pkg/chain"

	"go.uber.org/zap"
)

type pendingWithdrawalsResp struct {
	Withdrawals []pendingWithdrawResp `json:"withdrawals"`
	HasMore     bool                  `json:"has_more"`
}

// ListPendingWithdrawals pages through the contract's pending_withdrawals
// query (bounded by pageSize/maxPages) and returns the union sorted by
// ApprovedAt ascending, the canceler's oldest-first fairness requirement
// (§4.8 step 2). When maxPages is hit with more pages remaining, the
// caller is told via truncated so it can log the unprocessed count instead
// of silently dropping it.
func (c *Client) ListPendingWithdrawals(ctx context.Context, pageSize, maxPages int) (results []*chain.PendingWithdraw, truncated bool, err error) {
	startAfter := ""
	for page := 0; page < maxPages; page++ {
		msg := map[string]interface{}{
			"pending_withdrawals": map[string]interface{}{
				"limit":       pageSize,
				"start_after": startAfter,
			},
		}
		var resp pendingWithdrawalsResp
		if qerr := c.smartQuery(ctx, msg, &resp); qerr != nil {
			return results, false, bridgeerrors.TransientNetworkError("cosmoschain: pending_withdrawals query", qerr)
		}
		for i := range resp.Withdrawals {
			r := resp.Withdrawals[i]
			pw, perr := pendingWithdrawFromResp(&r)
			if perr != nil {
				c.logger.Warn("cosmoschain: dropping malformed pending withdrawal", zap.Error(perr))
				continue
			}
			results = append(results, pw)
			startAfter = r.XChainHashID
		}
		if !resp.HasMore || len(resp.Withdrawals) == 0 {
			truncated = false
			break
		}
		if page == maxPages-1 {
			truncated = true
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].ApprovedAt < results[j].ApprovedAt })
	return results, truncated, nil
}
