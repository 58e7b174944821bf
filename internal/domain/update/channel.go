package update

import (
	"fmt"
	"regexp"
	"strings"
)

// Channel is a named update track. The zero value is not valid; use Stable.
type Channel string

// Stable is the default channel whose assets carry no channel prefix.
const Stable Channel = "stable"

// channelPattern keeps channel names safe for filename prefixes and URLs.
var channelPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ParseChannel normalizes a channel name from a URL segment.
// An empty name means Stable.
func ParseChannel(s string) (Channel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Stable, nil
	}

	if !channelPattern.MatchString(s) {
		return "", fmt.Errorf("%w: channel %q", ErrBadRequest, s)
	}

	return Channel(s), nil
}

// IsStable reports whether c is the stable channel.
func (c Channel) IsStable() bool {
	return c == Stable
}

// Prefix returns the filename prefix for the channel, e.g. "BETA." for beta.
// Stable has no prefix.
func (c Channel) Prefix() string {
	if c.IsStable() {
		return ""
	}

	return strings.ToUpper(string(c)) + "."
}

// ChannelSet is the set of named channels whose prefixes are recognized.
// Filenames starting with any of these prefixes never count as stable.
type ChannelSet struct {
	prefixes []string
}

// NewChannelSet builds a set from channel names. Invalid names and stable are skipped.
func NewChannelSet(names ...string) ChannelSet {
	var (
		set  ChannelSet
		seen = make(map[Channel]struct{}, len(names))
	)

	for _, name := range names {
		c, err := ParseChannel(name)
		if err != nil || c.IsStable() {
			continue
		}

		if _, ok := seen[c]; ok {
			continue
		}

		seen[c] = struct{}{}
		set.prefixes = append(set.prefixes, c.Prefix())
	}

	return set
}

// With returns a copy of the set that also recognizes c.
func (s ChannelSet) With(c Channel) ChannelSet {
	if c.IsStable() {
		return s
	}

	for _, p := range s.prefixes {
		if p == c.Prefix() {
			return s
		}
	}

	prefixes := make([]string, 0, len(s.prefixes)+1)
	prefixes = append(prefixes, s.prefixes...)

	return ChannelSet{prefixes: append(prefixes, c.Prefix())}
}

// Accepts reports whether filename belongs to channel c and returns the
// remainder after the channel prefix. Prefix matching is case-sensitive.
func (s ChannelSet) Accepts(c Channel, filename string) (string, bool) {
	if !c.IsStable() {
		rest, ok := strings.CutPrefix(filename, c.Prefix())
		return rest, ok && rest != ""
	}

	for _, p := range s.prefixes {
		if strings.HasPrefix(filename, p) {
			return "", false
		}
	}

	return filename, true
}
