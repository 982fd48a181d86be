package watcher

import "time"

// ReconnectPolicy decides how the watcher resubscribes after a
// subscription failure. MaxAttempts of zero retries forever. The delay
// is fixed: the subscription guards a best-effort accelerant, on-chain
// state stays the source of truth while it is down.
type ReconnectPolicy struct {
	Delay       time.Duration
	MaxAttempts int
}

// Next returns the wait before the given attempt (1-based) and whether
// the watcher should retry at all.
func (p ReconnectPolicy) Next(attempt int) (time.Duration, bool) {
	if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
		return 0, false
	}
	return p.Delay, true
}
