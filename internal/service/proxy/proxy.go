package proxy

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/oshokin/update-gateway/internal/domain/product"
	"github.com/oshokin/update-gateway/internal/domain/update"
	"github.com/oshokin/update-gateway/internal/logger"
	"github.com/oshokin/update-gateway/internal/upstream"
)

// maxFilenameLength is the longest filename accepted in a download reference.
const maxFilenameLength = 255

// Proxy resolves download references to upstream streams.
type Proxy struct {
	registry *product.Registry
	upstream upstream.Client
}

// New creates a proxy.
func New(registry *product.Registry, client upstream.Client) *Proxy {
	return &Proxy{
		registry: registry,
		upstream: client,
	}
}

// Open validates the reference and starts the upstream download.
// The returned body is closed automatically when ctx is done; callers still close it.
func (p *Proxy) Open(ctx context.Context, productID, tag, assetRef, filename string) (*update.AssetStream, error) {
	prod, asset, err := p.locate(ctx, productID, tag, assetRef, filename)
	if err != nil {
		return nil, err
	}

	stream, err := p.upstream.OpenAsset(ctx, prod.Owner, prod.Repo, prod.Credential, asset.ID)
	if err != nil {
		return nil, err
	}

	if stream.Name != filename {
		_ = stream.Body.Close()

		logger.WarnKV(ctx, "Asset name does not match download reference",
			"asset_id", asset.ID,
			"upstream_name", stream.Name)

		return nil, fmt.Errorf("%w: asset %d is not %q", update.ErrNotFound, asset.ID, filename)
	}

	body := &body{ReadCloser: stream.Body}
	body.stop = context.AfterFunc(ctx, func() {
		_ = body.close()
	})

	stream.Body = body

	return stream, nil
}

// Stat resolves the reference like Open but returns only the release metadata of the asset.
func (p *Proxy) Stat(ctx context.Context, productID, tag, assetRef, filename string) (update.Asset, error) {
	_, asset, err := p.locate(ctx, productID, tag, assetRef, filename)

	return asset, err
}

// locate checks that the reference names an asset of a published release of the product.
func (p *Proxy) locate(
	ctx context.Context,
	productID, tag, assetRef, filename string,
) (product.Product, update.Asset, error) {
	prod, err := p.registry.Lookup(productID)
	if err != nil {
		return product.Product{}, update.Asset{}, err
	}

	assetID, err := ParseAssetID(assetRef)
	if err != nil {
		return product.Product{}, update.Asset{}, err
	}

	if err = ValidateTag(tag); err != nil {
		return product.Product{}, update.Asset{}, err
	}

	if err = ValidateFilename(filename); err != nil {
		return product.Product{}, update.Asset{}, err
	}

	release, err := p.upstream.ReleaseByTag(ctx, prod.Owner, prod.Repo, prod.Credential, tag)
	if err != nil {
		return product.Product{}, update.Asset{}, err
	}

	if release.Draft {
		return product.Product{}, update.Asset{}, fmt.Errorf("%w: release %q is a draft", update.ErrNotFound, tag)
	}

	asset, ok := release.AssetByName(filename)
	if !ok || asset.ID != assetID {
		return product.Product{}, update.Asset{}, fmt.Errorf("%w: release %q has no asset %d named %q",
			update.ErrNotFound, tag, assetID, filename)
	}

	return prod, asset, nil
}

// ParseAssetID parses a positive decimal asset identifier.
func ParseAssetID(ref string) (int64, error) {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: asset id %q", update.ErrBadRequest, ref)
	}

	return id, nil
}

// ValidateTag accepts a non-empty release tag without control characters.
func ValidateTag(tag string) error {
	switch {
	case strings.TrimSpace(tag) == "":
		return fmt.Errorf("%w: release tag is required", update.ErrBadRequest)
	case len(tag) > maxFilenameLength:
		return fmt.Errorf("%w: release tag longer than %d bytes", update.ErrBadRequest, maxFilenameLength)
	case strings.ContainsFunc(tag, unicode.IsControl):
		return fmt.Errorf("%w: release tag %q", update.ErrBadRequest, tag)
	}

	return nil
}

// ValidateFilename accepts a single plain path segment.
func ValidateFilename(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: filename %q", update.ErrBadRequest, name)
	case len(name) > maxFilenameLength:
		return fmt.Errorf("%w: filename longer than %d bytes", update.ErrBadRequest, maxFilenameLength)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: filename %q contains a separator", update.ErrBadRequest, name)
	}

	return nil
}

// body closes the upstream stream once, either on Close or when the request context ends.
type body struct {
	io.ReadCloser

	stop func() bool
	once sync.Once
	err  error
}

// Close implements io.Closer.
func (b *body) Close() error {
	b.stop()

	return b.close()
}

func (b *body) close() error {
	b.once.Do(func() {
		b.err = b.ReadCloser.Close()
	})

	return b.err
}
