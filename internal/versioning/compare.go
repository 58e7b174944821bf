package versioning

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/oshokin/update-gateway/internal/domain/update"
)

// Result is the outcome of comparing a candidate with the current version.
type Result int

// Comparison results.
const (
	// NotNewer means the candidate is equal to or older than the current version.
	NotNewer Result = iota
	// Newer means the candidate has higher precedence than the current version.
	Newer
	// Unparsable means one of the inputs is not a semantic version.
	Unparsable
)

// String implements fmt.Stringer.
func (r Result) String() string {
	switch r {
	case Newer:
		return "newer"
	case NotNewer:
		return "not-newer"
	case Unparsable:
		return "unparsable"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Normalize trims whitespace and a single leading "v" or "V" from a tag.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 1 && (s[0] == 'v' || s[0] == 'V') {
		return s[1:]
	}

	return s
}

// Parse parses a strict semantic version after Normalize.
// The returned error wraps update.ErrUnparsable.
func Parse(s string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(Normalize(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", update.ErrUnparsable, s, err)
	}

	return v, nil
}

// Compare reports whether candidate is newer than current.
// On Unparsable the returned error names the offending input.
func Compare(current, candidate string) (Result, error) {
	cur, err := Parse(current)
	if err != nil {
		return Unparsable, fmt.Errorf("current version: %w", err)
	}

	cand, err := Parse(candidate)
	if err != nil {
		return Unparsable, fmt.Errorf("candidate version: %w", err)
	}

	if cand.GreaterThan(cur) {
		return Newer, nil
	}

	return NotNewer, nil
}
