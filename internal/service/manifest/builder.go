package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/oshokin/update-gateway/internal/domain/product"
	"github.com/oshokin/update-gateway/internal/domain/update"
	"github.com/oshokin/update-gateway/internal/platform"
	"github.com/oshokin/update-gateway/internal/upstream"
	"github.com/oshokin/update-gateway/internal/versioning"
)

// MaxSignatureSize bounds how much of a signature asset is embedded.
const MaxSignatureSize = 64 << 10

var errSignatureTooLarge = errors.New("signature exceeds size limit")

// Builder creates manifests.
type Builder struct {
	upstream upstream.Client
}

// NewBuilder creates a builder that fetches signatures through client.
func NewBuilder(client upstream.Client) *Builder {
	return &Builder{
		upstream: client,
	}
}

// Build composes the manifest for release and its matched installer.
// baseURL is the public origin of the gateway, e.g. "https://updates.example.com".
func (b *Builder) Build(
	ctx context.Context,
	p product.Product,
	release *update.Release,
	match *platform.Match,
	baseURL string,
) (*update.Manifest, error) {
	downloadURL, err := DownloadURL(baseURL, p.ID, release.Tag, match.Asset)
	if err != nil {
		return nil, err
	}

	m := &update.Manifest{
		Version: versioning.Normalize(release.Tag),
		Notes:   release.Notes,
		PubDate: release.PublishedAt.UTC(),
		URL:     downloadURL,
	}

	if match.Signature != nil {
		m.Signature, err = b.signature(ctx, p, *match.Signature)
		if err != nil {
			return nil, err
		}
	}

	return m, nil
}

// DownloadURL returns the gateway URL serving asset of the release tagged tag:
// {baseURL}/{product}/download/{tag}/{asset_id}/{filename}.
func DownloadURL(baseURL, productID, tag string, asset update.Asset) (string, error) {
	u, err := url.JoinPath(baseURL,
		url.PathEscape(productID),
		"download",
		url.PathEscape(tag),
		strconv.FormatInt(asset.ID, 10),
		url.PathEscape(asset.Name))
	if err != nil {
		return "", fmt.Errorf("build download url: %w", err)
	}

	return u, nil
}

// signature downloads the companion signature and returns it as text.
func (b *Builder) signature(ctx context.Context, p product.Product, sig update.Asset) (string, error) {
	stream, err := b.upstream.OpenAsset(ctx, p.Owner, p.Repo, p.Credential, sig.ID)
	if err != nil {
		// A signature listed in the release but missing on download is an upstream inconsistency.
		if errors.Is(err, update.ErrNotFound) {
			return "", &update.UpstreamError{Op: "fetch signature", Kind: update.KindProtocol, Err: err}
		}

		return "", err
	}

	defer stream.Body.Close()

	data, err := io.ReadAll(io.LimitReader(stream.Body, MaxSignatureSize+1))
	if err != nil {
		return "", &update.UpstreamError{Op: "fetch signature", Kind: update.KindUnavailable, Err: err}
	}

	if len(data) > MaxSignatureSize {
		return "", &update.UpstreamError{
			Op:   "fetch signature",
			Kind: update.KindProtocol,
			Err:  fmt.Errorf("%w: %s is larger than %d bytes", errSignatureTooLarge, sig.Name, MaxSignatureSize),
		}
	}

	return string(data), nil
}
