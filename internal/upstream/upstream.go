// Package upstream defines the capability the gateway needs from the release
// host. Implementations attach the product credential to outbound requests
// only; nothing they return carries it.
package upstream

import (
	"context"

	"github.com/oshokin/update-gateway/internal/domain/product"
	"github.com/oshokin/update-gateway/internal/domain/update"
)

// Client lists releases and opens asset downloads for one repository at a time.
type Client interface {
	// ListReleases returns the published releases of owner/repo, newest first
	// as reported by upstream.
	ListReleases(ctx context.Context, owner, repo string, credential product.Credential) ([]*update.Release, error)

	// ReleaseByTag returns the published release of owner/repo tagged tag.
	// A missing release yields update.ErrNotFound.
	ReleaseByTag(ctx context.Context, owner, repo string, credential product.Credential, tag string) (*update.Release, error)

	// OpenAsset starts downloading the asset with the given id from owner/repo.
	// The returned stream's Name is the upstream filename; the caller closes Body.
	OpenAsset(ctx context.Context, owner, repo string, credential product.Credential, assetID int64) (*update.AssetStream, error)
}
