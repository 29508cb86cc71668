package repository

import "errors"

// Upstream error taxonomy. Implementations of MarketData wrap one of these
// sentinels so the scheduler can classify failures without knowing the
// transport.
var (
	// ErrUnavailable covers network failures and per-call timeouts.
	// Retried a bounded number of times, then the symbol goes absent.
	ErrUnavailable = errors.New("upstream unavailable")

	// ErrRateLimited means the upstream pushed back. Not a task failure by
	// itself; the scheduler widens inter-request spacing for the rest of
	// the cycle.
	ErrRateLimited = errors.New("upstream rate limited")

	// ErrNotFound means the symbol is unknown or delisted. Remembered and
	// not retried every cycle.
	ErrNotFound = errors.New("symbol not found")

	// ErrMalformed means the payload did not parse. Logged, treated as
	// absent, never crashes the cycle.
	ErrMalformed = errors.New("malformed upstream response")
)
