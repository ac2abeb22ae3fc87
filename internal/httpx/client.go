// Package httpx provides the shared request pipeline (§4.C) used by both
// upstream clients: cache lookup, rate-limit acquire, circuit-breaker
// gate, HTTP attempt with deadline, retry-with-backoff, and cache store.
// CopyHTTPClientWithTimeout is grounded on the teacher's
// infrastructure/httputil.CopyHTTPClientWithTimeout helper.
package httpx

import (
	"net/http"
	"time"
)

// CopyHTTPClientWithTimeout returns a shallow copy of base with its
// Timeout set, never mutating the caller-provided instance. If base is
// nil, a new http.Client is returned. If force is true the timeout is
// applied even when base.Timeout is already non-zero.
func CopyHTTPClientWithTimeout(base *http.Client, timeout time.Duration, force bool) *http.Client {
	if base == nil {
		return &http.Client{Timeout: timeout}
	}
	copied := *base
	if copied.Timeout == 0 || force {
		copied.Timeout = timeout
	}
	return &copied
}

// DefaultRequestDeadline is the per-request deadline of §4.C step 4.
const DefaultRequestDeadline = 30 * time.Second
