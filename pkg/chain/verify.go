package chain

import (
	"context"

	"github.com/chainsafe/xchain-bridge-operator/pkg/hashing"
)

// Verdict is the outcome of verifying a pending withdrawal against its
// claimed source chain.
type Verdict int

const (
	VerdictUnknown Verdict = iota // source chain not recognized; leave pending for rediscovery
	VerdictPending                // recognized but the query itself failed; retry next cycle
	VerdictValid
	VerdictInvalid
)

// VerifySourceDeposit implements the fail-closed source-chain routing §4.6.1
// requires of every approval path before it trusts a pending withdrawal: the
// claimed source chain must be one we hold a configured Backend for, that
// chain must report a matching deposit, and the deposit's own dest_chain
// must match the chain the withdrawal was found on. Anything else refuses
// rather than approves — a missed case here is a fraud path, not a bug to
// paper over with a default.
func VerifySourceDeposit(ctx context.Context, sources map[hashing.ChainID]Backend, destChainID hashing.ChainID, pw *PendingWithdraw) (Verdict, string) {
	src, ok := sources[pw.SrcChain]
	if !ok {
		return VerdictUnknown, "source chain not configured"
	}

	deposit, err := src.GetDeposit(ctx, pw.XChainHashID)
	if err != nil {
		return VerdictPending, err.Error()
	}
	if deposit == nil {
		return VerdictInvalid, "no matching deposit on source chain"
	}
	if deposit.DestChain != destChainID {
		return VerdictInvalid, "deposit dest_chain does not match the chain the withdrawal was found on"
	}
	return VerdictValid, ""
}
