package chain

import "time"

// DelayForAttempt returns the backoff delay before retry attempt n
// (0-indexed: n=0 is the delay before the first retry), capped at r.Max.
func (r Retry) DelayForAttempt(n int) time.Duration {
	d := float64(r.Initial)
	for i := 0; i < n; i++ {
		d *= r.Factor
	}
	delay := time.Duration(d)
	if delay > r.Max {
		return r.Max
	}
	if delay < 0 {
		return r.Max
	}
	return delay
}

// Sleep blocks for DelayForAttempt(n) or until done is closed, whichever
// comes first.
func (r Retry) Sleep(done <-chan struct{}, n int) {
	t := time.NewTimer(r.DelayForAttempt(n))
	defer t.Stop()
	select {
	case <-t.C:
	case <-done:
	}
}

// DefaultEVMPrecheckRetry is the canceler's EVM can_cancel pre-check retry
// descriptor: 500ms initial, doubling, capped at 10s.
var DefaultEVMPrecheckRetry = Retry{
	Initial:     500 * time.Millisecond,
	Factor:      2,
	Max:         10 * time.Second,
	MaxAttempts: 2,
}

// DefaultCosmosSequenceRetry is the Cosmos client's account-sequence-mismatch
// retry descriptor: 500ms -> 1s -> 2s, capped at 10s, up to 3 attempts.
var DefaultCosmosSequenceRetry = Retry{
	Initial:     500 * time.Millisecond,
	Factor:      2,
	Max:         10 * time.Second,
	MaxAttempts: 3,
}
