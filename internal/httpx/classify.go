package httpx

import (
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/resilience"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/svcerrors"
)

// ClassifyHTTPError turns a transport error / status code pair into either
// a resilience.Retriable error (5xx, connection errors, timeouts — counts
// toward rate-limit/circuit-breaker bookkeeping) or a plain *svcerrors.
// ServiceError (4xx other than 429, which must never count toward the
// breaker per §4.B). status should be 0 when err is a transport-level
// failure with no response.
func ClassifyHTTPError(status int, err error) error {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return resilience.MarkRetriable(svcerrors.New(svcerrors.KindUpstreamTimeout, err))
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return resilience.MarkRetriable(svcerrors.New(svcerrors.KindUpstream, err))
		}
		return resilience.MarkRetriable(svcerrors.New(svcerrors.KindUpstream, err))
	}

	switch {
	case status == 0:
		return nil
	case status == http.StatusTooManyRequests:
		return resilience.MarkRetriable(svcerrors.New(svcerrors.KindRateLimit, nil))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return svcerrors.New(svcerrors.KindAuth, nil)
	case status == http.StatusNotFound:
		return svcerrors.New(svcerrors.KindNotFound, nil)
	case status >= 500:
		return resilience.MarkRetriable(svcerrors.New(svcerrors.KindUpstream, nil).WithDetails("status", status))
	case status >= 400:
		return svcerrors.New(svcerrors.KindUpstream, nil).WithDetails("status", status)
	default:
		return nil
	}
}
