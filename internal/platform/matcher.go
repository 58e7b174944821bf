package platform

import (
	"fmt"
	"strings"

	"github.com/oshokin/update-gateway/internal/domain/update"
)

// Match is the asset chosen for a query.
type Match struct {
	// Asset is the selected installer.
	Asset update.Asset
	// Signature is the companion "<name>.sig" asset, if the release has one.
	Signature *update.Asset
	// Ambiguous lists other installers that matched as well, in upstream order.
	// A non-empty list is an upstream data-quality issue; the first match wins.
	Ambiguous []string
}

// Matcher applies the channel convention and the platform vocabulary.
type Matcher struct {
	channels update.ChannelSet
}

// NewMatcher creates a matcher that treats the given channel prefixes as recognized.
func NewMatcher(channels update.ChannelSet) *Matcher {
	return &Matcher{
		channels: channels,
	}
}

// WithChannels returns a matcher that also recognizes the named channels,
// e.g. the channels configured for a single product.
func (m *Matcher) WithChannels(names ...string) *Matcher {
	channels := m.channels

	for _, name := range names {
		c, err := update.ParseChannel(name)
		if err != nil {
			continue
		}

		channels = channels.With(c)
	}

	return &Matcher{
		channels: channels,
	}
}

// Match selects the installer for channel, target and arch from the release assets.
// It returns an error wrapping update.ErrNotFound when nothing matches.
func (m *Matcher) Match(release *update.Release, channel update.Channel, target, arch string) (*Match, error) {
	target = strings.ToLower(strings.TrimSpace(target))
	arch = strings.ToLower(strings.TrimSpace(arch))

	r, ok := rules[target]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported target %q", update.ErrNotFound, target)
	}

	channels := m.channels.With(channel)

	var result *Match

	for _, asset := range release.Assets {
		rest, ok := channels.Accepts(channel, asset.Name)
		if !ok || !r.matches(arch, rest) {
			continue
		}

		if result == nil {
			result = &Match{Asset: asset}
			continue
		}

		result.Ambiguous = append(result.Ambiguous, asset.Name)
	}

	if result == nil {
		return nil, fmt.Errorf("%w: no %s asset for %s/%s", update.ErrNotFound, channel, target, arch)
	}

	if sig, ok := release.AssetByName(result.Asset.Name + signatureSuffix); ok {
		result.Signature = &sig
	}

	return result, nil
}

// Qualifies reports whether the release has at least one non-signature
// asset belonging to channel. It ignores target and arch.
func (m *Matcher) Qualifies(release *update.Release, channel update.Channel) bool {
	channels := m.channels.With(channel)

	for _, asset := range release.Assets {
		if IsSignature(asset.Name) {
			continue
		}

		if _, ok := channels.Accepts(channel, asset.Name); ok {
			return true
		}
	}

	return false
}
