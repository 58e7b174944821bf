package resolver

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/oshokin/update-gateway/internal/domain/product"
	"github.com/oshokin/update-gateway/internal/domain/update"
	"github.com/oshokin/update-gateway/internal/logger"
	"github.com/oshokin/update-gateway/internal/platform"
	"github.com/oshokin/update-gateway/internal/upstream"
)

// Resolver finds the newest release qualifying for a channel.
type Resolver struct {
	upstream upstream.Client
	matcher  *platform.Matcher
	// group collapses concurrent listings of the same product into one upstream call.
	// Nothing outlives the call.
	group singleflight.Group
}

// New creates a resolver.
func New(client upstream.Client, matcher *platform.Matcher) *Resolver {
	return &Resolver{
		upstream: client,
		matcher:  matcher,
	}
}

// Resolve returns the release channel currently points at for p.
// Drafts never qualify. The most recently published release wins and ties
// go to the lexicographically greatest tag. It returns an error wrapping
// update.ErrNotFound when no release qualifies.
func (r *Resolver) Resolve(ctx context.Context, p product.Product, channel update.Channel) (*update.Release, error) {
	releases, err := r.list(ctx, p)
	if err != nil {
		return nil, err
	}

	matcher := r.matcher.WithChannels(p.Channels...)

	var best *update.Release

	for _, release := range releases {
		if release.Draft || !matcher.Qualifies(release, channel) {
			continue
		}

		if best == nil || isNewer(release, best) {
			best = release
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no %s release among %d for %s", update.ErrNotFound, channel, len(releases), p.Slug())
	}

	logger.DebugKV(ctx, "Resolved release",
		"tag", best.Tag,
		"published_at", best.PublishedAt,
		"candidates", len(releases))

	return best, nil
}

// list fetches releases, sharing an in-flight call for the same product.
// A caller that gives up returns immediately; the shared call keeps running for the others.
func (r *Resolver) list(ctx context.Context, p product.Product) ([]*update.Release, error) {
	ch := r.group.DoChan(p.ID, func() (any, error) {
		return r.upstream.ListReleases(context.WithoutCancel(ctx), p.Owner, p.Repo, p.Credential)
	})

	select {
	case <-ctx.Done():
		return nil, &update.UpstreamError{
			Op:   "list releases",
			Kind: update.KindUnavailable,
			Err:  ctx.Err(),
		}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		releases, _ := res.Val.([]*update.Release)

		return releases, nil
	}
}

// isNewer reports whether a should be preferred over b.
func isNewer(a, b *update.Release) bool {
	if !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.After(b.PublishedAt)
	}

	return a.Tag > b.Tag
}
