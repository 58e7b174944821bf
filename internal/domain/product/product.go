package product

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Product is one independently configured application.
type Product struct {
	// ID is the lower-cased product identifier used in URLs.
	ID string
	// Owner is the upstream repository owner (user or organization).
	Owner string
	// Repo is the upstream repository name.
	Repo string
	// Credential authorizes reads of the repository releases and assets.
	Credential Credential
	// Channels lists named channels recognized for this product in addition
	// to the globally configured ones.
	Channels []string
}

var (
	// ErrInvalidProduct is returned when a product definition is incomplete or malformed.
	ErrInvalidProduct = errors.New("invalid product")

	// idPattern restricts identifiers to a single URL path segment.
	idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
)

// NormalizeID lower-cases and trims a product identifier.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Validate checks that all fields needed for upstream access are present.
func (p *Product) Validate() error {
	if !idPattern.MatchString(p.ID) {
		return fmt.Errorf("%w: id %q must match %s", ErrInvalidProduct, p.ID, idPattern)
	}

	if p.Owner == "" || p.Repo == "" {
		return fmt.Errorf("%w: %s: owner and repo are required", ErrInvalidProduct, p.ID)
	}

	if p.Credential.IsZero() {
		return fmt.Errorf("%w: %s: token is required", ErrInvalidProduct, p.ID)
	}

	return nil
}

// Slug returns "owner/repo" for log lines.
func (p *Product) Slug() string {
	return p.Owner + "/" + p.Repo
}
