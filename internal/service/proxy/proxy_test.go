package proxy

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/update-gateway/internal/domain/product"
	"github.com/oshokin/update-gateway/internal/domain/update"
	"github.com/oshokin/update-gateway/internal/upstream/upstreamtest"
)

const (
	testToken = product.Credential("secret-token")
	testTag   = "v1.1.0"
	testName  = "myapp_1.1.0_amd64.AppImage"
)

func newProxy(t *testing.T, extra ...*update.Release) (*Proxy, *upstreamtest.Fake) {
	t.Helper()

	registry, err := product.NewRegistry([]product.Product{
		{ID: "myapp", Owner: "acme", Repo: "myapp", Credential: testToken},
	})
	require.NoError(t, err)

	releases := append([]*update.Release{{
		Tag: testTag,
		Assets: []update.Asset{
			{ID: 11, Name: testName, Size: 6, ContentType: "application/octet-stream"},
		},
	}}, extra...)

	fake := upstreamtest.New()
	fake.Credential = testToken
	fake.SetRepo("acme", "myapp", &upstreamtest.Repo{
		Releases: releases,
		Blobs:    map[int64][]byte{11: []byte("binary"), 12: []byte("draft")},
	})

	return New(registry, fake), fake
}

// TestOpenStreamsMatchingAsset returns the upstream stream for a valid reference.
func TestOpenStreamsMatchingAsset(t *testing.T) {
	t.Parallel()

	p, fake := newProxy(t)

	stream, err := p.Open(context.Background(), "MyApp", testTag, "11", testName)
	require.NoError(t, err)

	data, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	require.Equal(t, "binary", string(data))
	require.Equal(t, int64(6), stream.Size)

	require.NoError(t, stream.Body.Close())
	require.NoError(t, stream.Body.Close())
	require.EqualValues(t, 1, fake.ClosedBodies())
}

// TestOpenValidatesBeforeUpstream rejects malformed references without upstream traffic.
func TestOpenValidatesBeforeUpstream(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		product, tag, id, filename string
		want                       error
	}{
		"unknown product": {"ghost", testTag, "11", "a.msi", product.ErrUnknownProduct},
		"non-numeric id":  {"myapp", testTag, "abc", "a.msi", update.ErrBadRequest},
		"zero id":         {"myapp", testTag, "0", "a.msi", update.ErrBadRequest},
		"negative id":     {"myapp", testTag, "-4", "a.msi", update.ErrBadRequest},
		"overflowing id":  {"myapp", testTag, "99999999999999999999", "a.msi", update.ErrBadRequest},
		"empty tag":       {"myapp", " ", "11", "a.msi", update.ErrBadRequest},
		"control in tag":  {"myapp", "v1\n", "11", "a.msi", update.ErrBadRequest},
		"empty filename":  {"myapp", testTag, "11", "", update.ErrBadRequest},
		"dot-dot":         {"myapp", testTag, "11", "..", update.ErrBadRequest},
		"slash":           {"myapp", testTag, "11", "../etc/passwd", update.ErrBadRequest},
		"backslash":       {"myapp", testTag, "11", `..\boot.ini`, update.ErrBadRequest},
		"too long":        {"myapp", testTag, "11", strings.Repeat("a", 256), update.ErrBadRequest},
	}

	p, fake := newProxy(t)

	for name, tc := range cases {
		_, err := p.Open(context.Background(), tc.product, tc.tag, tc.id, tc.filename)
		require.ErrorIs(t, err, tc.want, name)
	}

	require.Zero(t, fake.TagCalls())
	require.Zero(t, fake.OpenCalls())
}

// TestOpenScopesReferenceToRelease refuses assets that the named release does not publish.
func TestOpenScopesReferenceToRelease(t *testing.T) {
	t.Parallel()

	p, fake := newProxy(t, &update.Release{
		Tag:    "v2.0.0",
		Draft:  true,
		Assets: []update.Asset{{ID: 12, Name: "myapp_2.0.0_amd64.AppImage"}},
	})

	cases := map[string]struct{ tag, id, filename string }{
		"draft release":         {"v2.0.0", "12", "myapp_2.0.0_amd64.AppImage"},
		"draft asset elsewhere": {testTag, "12", "myapp_2.0.0_amd64.AppImage"},
		"unknown tag":           {"v9.9.9", "11", testName},
		"wrong id for name":     {testTag, "12", testName},
		"wrong name for id":     {testTag, "11", "other.msi"},
	}

	for name, tc := range cases {
		_, err := p.Open(context.Background(), "myapp", tc.tag, tc.id, tc.filename)
		require.ErrorIs(t, err, update.ErrNotFound, name)
	}

	require.Zero(t, fake.OpenCalls())
}

// TestOpenRejectsRenamedUpstreamAsset closes the stream when upstream reports another name.
func TestOpenRejectsRenamedUpstreamAsset(t *testing.T) {
	t.Parallel()

	p, fake := newProxy(t)

	// Upstream resolves asset 13 to the first release that lists it.
	fake.SetRepo("acme", "myapp", &upstreamtest.Repo{
		Releases: []*update.Release{
			{Tag: "v1.0.0", Assets: []update.Asset{{ID: 13, Name: "old.AppImage"}}},
			{Tag: "v1.2.0", Assets: []update.Asset{{ID: 13, Name: "myapp_1.2.0_amd64.AppImage"}}},
		},
		Blobs: map[int64][]byte{13: []byte("moved")},
	})

	_, err := p.Open(context.Background(), "myapp", "v1.2.0", "13", "myapp_1.2.0_amd64.AppImage")
	require.ErrorIs(t, err, update.ErrNotFound)
	require.EqualValues(t, 1, fake.OpenCalls())
	require.EqualValues(t, 1, fake.ClosedBodies())
}

// TestOpenMissingAsset passes upstream NotFound through.
func TestOpenMissingAsset(t *testing.T) {
	t.Parallel()

	p, _ := newProxy(t, &update.Release{
		Tag:    "v1.0.0",
		Assets: []update.Asset{{ID: 77, Name: "gone.AppImage"}},
	})

	_, err := p.Open(context.Background(), "myapp", "v1.0.0", "77", "gone.AppImage")
	require.ErrorIs(t, err, update.ErrNotFound)
}

// TestStatReadsReleaseMetadataOnly answers without starting a download.
func TestStatReadsReleaseMetadataOnly(t *testing.T) {
	t.Parallel()

	p, fake := newProxy(t)

	asset, err := p.Stat(context.Background(), "myapp", testTag, "11", testName)
	require.NoError(t, err)
	require.Equal(t, testName, asset.Name)
	require.Equal(t, int64(6), asset.Size)
	require.Equal(t, "application/octet-stream", asset.ContentType)
	require.EqualValues(t, 1, fake.TagCalls())
	require.Zero(t, fake.OpenCalls())

	_, err = p.Stat(context.Background(), "myapp", testTag, "11", "other.msi")
	require.ErrorIs(t, err, update.ErrNotFound)
}

// TestOpenClosesOnDisconnect releases the upstream body when the request ends.
func TestOpenClosesOnDisconnect(t *testing.T) {
	t.Parallel()

	p, fake := newProxy(t)

	ctx, cancel := context.WithCancel(context.Background())

	stream, err := p.Open(ctx, "myapp", testTag, "11", testName)
	require.NoError(t, err)

	cancel()

	require.Eventually(t, func() bool {
		return fake.ClosedBodies() == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, stream.Body.Close())
	require.EqualValues(t, 1, fake.ClosedBodies())
}
