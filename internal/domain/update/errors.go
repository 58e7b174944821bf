package update

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no release or asset matches; for update checks this is
	// the normal "no update available" outcome.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest means the client supplied a malformed query or reference.
	ErrBadRequest = errors.New("bad request")
	// ErrUnparsable means a version string is not a semantic version.
	ErrUnparsable = errors.New("unparsable version")
	// ErrUpstream is the class of all upstream failures; see UpstreamError.
	ErrUpstream = errors.New("upstream failure")
	// ErrCredential matches upstream failures caused by a rejected credential.
	ErrCredential = errors.New("upstream credential rejected")
)

// UpstreamKind classifies upstream failures for operators.
type UpstreamKind string

// Upstream failure kinds.
const (
	// KindUnavailable covers network errors, timeouts and 5xx answers.
	KindUnavailable UpstreamKind = "unavailable"
	// KindCredential covers 401/403 answers: the token is invalid or expired.
	KindCredential UpstreamKind = "credential"
	// KindRateLimited covers exhausted API quotas.
	KindRateLimited UpstreamKind = "rate-limited"
	// KindProtocol covers unexpected answers such as malformed payloads.
	KindProtocol UpstreamKind = "protocol"
)

// UpstreamError describes a failed call to the release host.
// Its message never contains the credential.
type UpstreamError struct {
	// Op names the upstream operation, e.g. "list releases".
	Op string
	// Kind classifies the failure.
	Kind UpstreamKind
	// StatusCode is the HTTP status returned by upstream, zero if none.
	StatusCode int
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s: %s (status %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("upstream %s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrUpstream) and errors.Is(err, ErrCredential) work.
func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrUpstream:
		return true
	case ErrCredential:
		return e.Kind == KindCredential
	default:
		return false
	}
}

// UpstreamKindOf returns the kind of the first UpstreamError in err's chain.
func UpstreamKindOf(err error) (UpstreamKind, bool) {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.Kind, true
	}

	return "", false
}
