package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oshokin/update-gateway/internal/domain/product"
	"github.com/oshokin/update-gateway/internal/domain/update"
	"github.com/oshokin/update-gateway/internal/logger"
	"github.com/oshokin/update-gateway/internal/platform"
	"github.com/oshokin/update-gateway/internal/service/manifest"
	"github.com/oshokin/update-gateway/internal/service/resolver"
	"github.com/oshokin/update-gateway/internal/upstream"
	"github.com/oshokin/update-gateway/internal/versioning"
)

// Service handles update checks.
type Service struct {
	registry *product.Registry
	resolver *resolver.Resolver
	matcher  *platform.Matcher
	builder  *manifest.Builder
}

// New wires a service around one upstream client.
// channels lists the named channels recognized for every product.
func New(registry *product.Registry, client upstream.Client, channels update.ChannelSet) *Service {
	matcher := platform.NewMatcher(channels)

	return &Service{
		registry: registry,
		resolver: resolver.New(client, matcher),
		matcher:  matcher,
		builder:  manifest.NewBuilder(client),
	}
}

// CheckUpdate decides whether q's client should update.
// "No update" is a successful Outcome; errors are reserved for unknown
// products, malformed queries and upstream failures.
func (s *Service) CheckUpdate(ctx context.Context, q update.Query, baseURL string) (*update.Outcome, error) {
	p, err := s.registry.Lookup(q.Product)
	if err != nil {
		return nil, err
	}

	if err = validateQuery(q); err != nil {
		return nil, err
	}

	ctx = logger.WithFields(ctx,
		"product", p.ID,
		"channel", q.Channel,
		"target", q.Target,
		"arch", q.Arch,
		"current_version", q.CurrentVersion)

	if !platform.Supported(q.Target, q.Arch) {
		logger.DebugKV(ctx, "Unsupported platform")

		return &update.Outcome{Reason: update.ReasonUnsupported}, nil
	}

	release, err := s.resolver.Resolve(ctx, p, q.Channel)
	if err != nil {
		if errors.Is(err, update.ErrNotFound) {
			logger.DebugKV(ctx, "No release for channel", "error", err)

			return &update.Outcome{Reason: update.ReasonNoRelease}, nil
		}

		return nil, err
	}

	ctx = logger.WithKV(ctx, "release", release.Tag)

	result, err := versioning.Compare(q.CurrentVersion, release.Tag)

	switch result {
	case versioning.Unparsable:
		logger.WarnKV(ctx, "Cannot compare versions", "error", err)

		return &update.Outcome{Reason: update.ReasonUnparsable}, nil
	case versioning.NotNewer:
		return &update.Outcome{Reason: update.ReasonUpToDate}, nil
	}

	match, err := s.matcher.WithChannels(p.Channels...).Match(release, q.Channel, q.Target, q.Arch)
	if err != nil {
		if errors.Is(err, update.ErrNotFound) {
			logger.WarnKV(ctx, "Newer release has no matching asset",
				"assets", release.AssetNames(),
				"error", err)

			return &update.Outcome{Reason: update.ReasonAssetMismatch}, nil
		}

		return nil, err
	}

	if len(match.Ambiguous) > 0 {
		logger.WarnKV(ctx, "Several assets match, using the first one",
			"asset", match.Asset.Name,
			"ignored", match.Ambiguous)
	}

	m, err := s.builder.Build(ctx, p, release, match, baseURL)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Update available", "version", m.Version, "asset", match.Asset.Name)

	return &update.Outcome{Manifest: m, Reason: update.ReasonAvailable}, nil
}

// validateQuery checks the parts of a query that routing cannot.
func validateQuery(q update.Query) error {
	switch {
	case q.Channel == "":
		return fmt.Errorf("%w: channel is required", update.ErrBadRequest)
	case strings.TrimSpace(q.Target) == "":
		return fmt.Errorf("%w: target is required", update.ErrBadRequest)
	case strings.TrimSpace(q.Arch) == "":
		return fmt.Errorf("%w: arch is required", update.ErrBadRequest)
	case strings.TrimSpace(q.CurrentVersion) == "":
		return fmt.Errorf("%w: current version is required", update.ErrBadRequest)
	}

	return nil
}
