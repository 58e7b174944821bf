package github

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"

	"github.com/oshokin/update-gateway/internal/domain/update"
)

// statusError is a non-2xx answer from the storage host.
type statusError struct {
	op   string
	code int
}

// Error implements the error interface.
func (e *statusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.op, e.code)
}

// classify maps GitHub and transport errors onto the domain taxonomy.
// 404 and 410 become update.ErrNotFound; everything else is an *update.UpstreamError.
func classify(op string, err error) error {
	var (
		rateErr   *github.RateLimitError
		abuseErr  *github.AbuseRateLimitError
		respErr   *github.ErrorResponse
		statusErr *statusError
	)

	switch {
	case errors.As(err, &rateErr):
		return &update.UpstreamError{Op: op, Kind: update.KindRateLimited, StatusCode: responseStatus(rateErr.Response), Err: err}
	case errors.As(err, &abuseErr):
		return &update.UpstreamError{Op: op, Kind: update.KindRateLimited, StatusCode: responseStatus(abuseErr.Response), Err: err}
	case errors.As(err, &respErr):
		return fromStatus(op, responseStatus(respErr.Response), err)
	case errors.As(err, &statusErr):
		return fromStatus(op, statusErr.code, err)
	default:
		// Transport failures, timeouts and cancellations.
		return &update.UpstreamError{Op: op, Kind: update.KindUnavailable, Err: err}
	}
}

// fromStatus classifies an HTTP status code.
func fromStatus(op string, code int, err error) error {
	switch {
	case code == http.StatusNotFound, code == http.StatusGone:
		return fmt.Errorf("%s: %w", op, update.ErrNotFound)
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return &update.UpstreamError{Op: op, Kind: update.KindCredential, StatusCode: code, Err: err}
	case code == http.StatusTooManyRequests:
		return &update.UpstreamError{Op: op, Kind: update.KindRateLimited, StatusCode: code, Err: err}
	case code >= http.StatusInternalServerError:
		return &update.UpstreamError{Op: op, Kind: update.KindUnavailable, StatusCode: code, Err: err}
	default:
		return &update.UpstreamError{Op: op, Kind: update.KindProtocol, StatusCode: code, Err: err}
	}
}

// responseStatus returns the status code of resp or zero.
func responseStatus(resp *http.Response) int {
	if resp == nil {
		return 0
	}

	return resp.StatusCode
}
