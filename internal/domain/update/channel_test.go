package update

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseChannel covers normalization, the stable default and rejection of unsafe names.
func TestParseChannel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Channel{
		"":       Stable,
		"stable": Stable,
		"Stable": Stable,
		"beta":   "beta",
		" BETA ": "beta",
		"fas2":   "fas2",
	} {
		got, err := ParseChannel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	for _, in := range []string{"../x", "be ta", "-beta", "beta.x"} {
		_, err := ParseChannel(in)
		require.ErrorIs(t, err, ErrBadRequest, in)
	}
}

// TestChannelPrefix ensures named channels map to upper-case dotted prefixes.
func TestChannelPrefix(t *testing.T) {
	t.Parallel()

	require.Empty(t, Stable.Prefix())
	require.Equal(t, "BETA.", Channel("beta").Prefix())
	require.Equal(t, "FAS2.", Channel("fas2").Prefix())
}

// TestChannelSet_Accepts verifies prefix matching for named and stable channels.
func TestChannelSet_Accepts(t *testing.T) {
	t.Parallel()

	set := NewChannelSet("beta", "stable", "bad name", "beta")

	rest, ok := set.Accepts("beta", "BETA.app_1.0.0_x64.msi")
	require.True(t, ok)
	require.Equal(t, "app_1.0.0_x64.msi", rest)

	_, ok = set.Accepts("beta", "beta.app_1.0.0_x64.msi")
	require.False(t, ok, "prefix matching is case-sensitive")

	_, ok = set.Accepts("beta", "BETA.")
	require.False(t, ok)

	_, ok = set.Accepts(Stable, "BETA.app_1.0.0_x64.msi")
	require.False(t, ok, "recognized prefix is not stable")

	rest, ok = set.Accepts(Stable, "KWALIS.-.Naturland_1.2.0_x64_en-US.msi")
	require.True(t, ok, "unrecognized dotted names stay stable")
	require.Equal(t, "KWALIS.-.Naturland_1.2.0_x64_en-US.msi", rest)

	_, ok = set.Accepts(Stable, "NIGHTLY.app.msi")
	require.True(t, ok)

	_, ok = set.With("nightly").Accepts(Stable, "NIGHTLY.app.msi")
	require.False(t, ok)
}
