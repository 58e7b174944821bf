// Package upstreamtest provides an in-memory upstream.Client for tests.
package upstreamtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/oshokin/update-gateway/internal/domain/product"
	"github.com/oshokin/update-gateway/internal/domain/update"
)

// Repo is the content of one fake repository.
type Repo struct {
	// Releases are returned by ListReleases in this order.
	Releases []*update.Release
	// Blobs maps asset IDs to their bytes.
	Blobs map[int64][]byte
	// Err, when set, is returned by every call for the repository.
	Err error
}

// Fake is a concurrency-safe upstream.Client backed by memory.
type Fake struct {
	mu    sync.Mutex
	repos map[string]*Repo

	// Credential, when non-empty, is required on every call.
	Credential product.Credential

	listCalls atomic.Int64
	tagCalls  atomic.Int64
	openCalls atomic.Int64
	closed    atomic.Int64
}

// New creates an empty fake.
func New() *Fake {
	return &Fake{
		repos: make(map[string]*Repo),
	}
}

// SetRepo installs the content of owner/repo.
func (f *Fake) SetRepo(owner, repo string, content *Repo) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.repos[owner+"/"+repo] = content
}

// ListCalls returns the number of ListReleases calls.
func (f *Fake) ListCalls() int64 {
	return f.listCalls.Load()
}

// TagCalls returns the number of ReleaseByTag calls.
func (f *Fake) TagCalls() int64 {
	return f.tagCalls.Load()
}

// OpenCalls returns the number of OpenAsset calls.
func (f *Fake) OpenCalls() int64 {
	return f.openCalls.Load()
}

// ClosedBodies returns how many opened bodies were closed.
func (f *Fake) ClosedBodies() int64 {
	return f.closed.Load()
}

// ListReleases implements upstream.Client.
func (f *Fake) ListReleases(
	ctx context.Context,
	owner, repo string,
	credential product.Credential,
) ([]*update.Release, error) {
	f.listCalls.Add(1)

	content, err := f.lookup(ctx, owner, repo, credential, "list releases")
	if err != nil {
		return nil, err
	}

	return content.Releases, nil
}

// ReleaseByTag implements upstream.Client.
// Drafts are reported as missing, like the GitHub API does.
func (f *Fake) ReleaseByTag(
	ctx context.Context,
	owner, repo string,
	credential product.Credential,
	tag string,
) (*update.Release, error) {
	f.tagCalls.Add(1)

	content, err := f.lookup(ctx, owner, repo, credential, "get release")
	if err != nil {
		return nil, err
	}

	for _, r := range content.Releases {
		if r.Tag == tag && !r.Draft {
			return r, nil
		}
	}

	return nil, fmt.Errorf("release %q: %w", tag, update.ErrNotFound)
}

// OpenAsset implements upstream.Client.
func (f *Fake) OpenAsset(
	ctx context.Context,
	owner, repo string,
	credential product.Credential,
	assetID int64,
) (*update.AssetStream, error) {
	f.openCalls.Add(1)

	content, err := f.lookup(ctx, owner, repo, credential, "open asset")
	if err != nil {
		return nil, err
	}

	for _, r := range content.Releases {
		for _, a := range r.Assets {
			if a.ID != assetID {
				continue
			}

			blob, ok := content.Blobs[assetID]
			if !ok {
				break
			}

			return &update.AssetStream{
				Body:        &trackingBody{Reader: bytes.NewReader(blob), closed: &f.closed},
				Name:        a.Name,
				Size:        int64(len(blob)),
				ContentType: a.ContentType,
			}, nil
		}
	}

	return nil, fmt.Errorf("asset %d: %w", assetID, update.ErrNotFound)
}

func (f *Fake) lookup(
	ctx context.Context,
	owner, repo string,
	credential product.Credential,
	op string,
) (*Repo, error) {
	if err := ctx.Err(); err != nil {
		return nil, &update.UpstreamError{Op: op, Kind: update.KindUnavailable, Err: err}
	}

	if !f.Credential.IsZero() && credential != f.Credential {
		return nil, &update.UpstreamError{
			Op:         op,
			Kind:       update.KindCredential,
			StatusCode: 401,
			Err:        errors.New("bad credentials"),
		}
	}

	f.mu.Lock()
	content, ok := f.repos[owner+"/"+repo]
	f.mu.Unlock()

	if !ok {
		return nil, &update.UpstreamError{
			Op:         op,
			Kind:       update.KindCredential,
			StatusCode: 404,
			Err:        fmt.Errorf("repository %s/%s is not visible", owner, repo),
		}
	}

	if content.Err != nil {
		return nil, content.Err
	}

	return content, nil
}

// trackingBody counts Close calls.
type trackingBody struct {
	io.Reader

	closed *atomic.Int64
	once   sync.Once
}

// Close implements io.Closer.
func (b *trackingBody) Close() error {
	b.once.Do(func() {
		b.closed.Add(1)
	})

	return nil
}
