// Package ratelimit provides per-identity fixed-window rate limiting for
// gateway operations.
//
// The algorithm is a fixed window, not a sliding window or token bucket:
// each identity gets a counter that resets at window boundaries measured
// from its first request. A burst of up to twice the cap is possible across
// a window boundary; that tradeoff buys O(1) memory per identity and
// trivial reasoning. Callers needing stricter fairness must layer a
// sliding window on top.
//
// # Basic Usage
//
//	store := ratelimit.NewMemoryStore()
//	limiter, err := ratelimit.NewFixedWindow(20, time.Hour, store)
//
//	result, err := limiter.Check(ctx, "user-123")
//	if !result.Allowed {
//	    // map to a 429-equivalent, result.ResetAfter says when to retry
//	}
//
// # Configuration
//
//	rate_limit:
//	  enabled: true
//	  max_requests: 20
//	  window: 1h
//	  backend: "memory"  # or "sql"
//
// # Storage backends
//
//   - memory: per-process map, lost on restart; the right default for a
//     single-instance deployment
//   - sql: shared table (sqlite, postgres, mysql) so multiple instances
//     can share quotas
//
// Check is atomic as a unit: two concurrent requests can never both take
// the last remaining slot. Blocked requests do not increment the counter,
// so a client hammering a blocked identity cannot push its reset out.
package ratelimit
