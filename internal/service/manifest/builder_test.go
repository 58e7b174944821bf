package manifest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/update-gateway/internal/domain/product"
	"github.com/oshokin/update-gateway/internal/domain/update"
	"github.com/oshokin/update-gateway/internal/platform"
	"github.com/oshokin/update-gateway/internal/upstream/upstreamtest"
)

const testToken = product.Credential("secret-token")

var testProduct = product.Product{ID: "myapp", Owner: "acme", Repo: "myapp", Credential: testToken}

func fixture(sig []byte) (*update.Release, *upstreamtest.Fake) {
	release := &update.Release{
		Tag:         "v1.1.0",
		Notes:       "Bug fixes",
		PublishedAt: time.Date(2024, 5, 1, 14, 30, 0, 0, time.FixedZone("CEST", 2*60*60)),
		Assets: []update.Asset{
			{ID: 11, Name: "myapp_1.1.0_amd64.AppImage"},
			{ID: 12, Name: "myapp_1.1.0_amd64.AppImage.sig"},
		},
	}

	fake := upstreamtest.New()
	fake.Credential = testToken
	fake.SetRepo("acme", "myapp", &upstreamtest.Repo{
		Releases: []*update.Release{release},
		Blobs:    map[int64][]byte{12: sig},
	})

	return release, fake
}

// TestBuildEmbedsSignature composes a complete manifest.
func TestBuildEmbedsSignature(t *testing.T) {
	t.Parallel()

	release, fake := fixture([]byte("dW50cnVzdGVkIGNvbW1lbnQ="))
	sig := release.Assets[1]

	m, err := NewBuilder(fake).Build(context.Background(), testProduct, release,
		&platform.Match{Asset: release.Assets[0], Signature: &sig},
		"https://updates.example.com")
	require.NoError(t, err)

	require.Equal(t, "1.1.0", m.Version)
	require.Equal(t, "Bug fixes", m.Notes)
	require.Equal(t, time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC), m.PubDate)
	require.Equal(t, time.UTC, m.PubDate.Location())
	require.Equal(t, "https://updates.example.com/myapp/download/v1.1.0/11/myapp_1.1.0_amd64.AppImage", m.URL)
	require.Equal(t, "dW50cnVzdGVkIGNvbW1lbnQ=", m.Signature)
	require.EqualValues(t, 1, fake.ClosedBodies())
	require.NotContains(t, m.URL, string(testToken))
}

// TestBuildWithoutSignature leaves the field empty and makes no download.
func TestBuildWithoutSignature(t *testing.T) {
	t.Parallel()

	release, fake := fixture(nil)

	m, err := NewBuilder(fake).Build(context.Background(), testProduct, release,
		&platform.Match{Asset: release.Assets[0]}, "https://updates.example.com/")
	require.NoError(t, err)
	require.Empty(t, m.Signature)
	require.Equal(t, "https://updates.example.com/myapp/download/v1.1.0/11/myapp_1.1.0_amd64.AppImage", m.URL)
	require.Zero(t, fake.OpenCalls())
}

// TestBuildRejectsOversizedSignature bounds the embedded signature.
func TestBuildRejectsOversizedSignature(t *testing.T) {
	t.Parallel()

	release, fake := fixture([]byte(strings.Repeat("a", MaxSignatureSize+1)))
	sig := release.Assets[1]

	_, err := NewBuilder(fake).Build(context.Background(), testProduct, release,
		&platform.Match{Asset: release.Assets[0], Signature: &sig}, "https://updates.example.com")
	require.ErrorIs(t, err, update.ErrUpstream)
	require.ErrorIs(t, err, errSignatureTooLarge)
	require.EqualValues(t, 1, fake.ClosedBodies())
}

// TestBuildMissingSignatureBlob reports an upstream inconsistency.
func TestBuildMissingSignatureBlob(t *testing.T) {
	t.Parallel()

	release, fake := fixture(nil)
	fake.SetRepo("acme", "myapp", &upstreamtest.Repo{Releases: []*update.Release{release}})
	sig := release.Assets[1]

	_, err := NewBuilder(fake).Build(context.Background(), testProduct, release,
		&platform.Match{Asset: release.Assets[0], Signature: &sig}, "https://updates.example.com")
	require.ErrorIs(t, err, update.ErrUpstream)

	kind, ok := update.UpstreamKindOf(err)
	require.True(t, ok)
	require.Equal(t, update.KindProtocol, kind)
}

// TestDownloadURLEscapesSegments keeps odd filenames inside their path segment.
func TestDownloadURLEscapesSegments(t *testing.T) {
	t.Parallel()

	u, err := DownloadURL("http://localhost:8080/updates", "myapp", "release/1.0",
		update.Asset{ID: 5, Name: "My App 1.0 #1.msi"})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/updates/myapp/download/release%2F1.0/5/My%20App%201.0%20%231.msi", u)
}
