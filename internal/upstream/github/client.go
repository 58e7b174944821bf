package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/oshokin/update-gateway/internal/domain/product"
	"github.com/oshokin/update-gateway/internal/domain/update"
	"github.com/oshokin/update-gateway/internal/upstream"
	"github.com/oshokin/update-gateway/internal/version"
)

const (
	// DefaultAPIURL is the public GitHub REST endpoint.
	DefaultAPIURL = "https://api.github.com/"
	// DefaultTimeout bounds API calls and the time to the first byte of a download.
	DefaultTimeout = 15 * time.Second
	// DefaultMaxPages bounds how many release pages are listed.
	DefaultMaxPages = 3

	perPage        = 100
	dialTimeout    = 10 * time.Second
	tlsTimeout     = 10 * time.Second
	idleTimeout    = 90 * time.Second
	maxIdleConns   = 100
	maxIdlePerHost = 10

	// assetStateUploaded marks assets that finished uploading.
	assetStateUploaded = "uploaded"
)

// errFirstByteTimeout is the cancellation cause when a download does not start in time.
var errFirstByteTimeout = errors.New("no response before timeout")

// Options configures the GitHub client.
type Options struct {
	// APIURL is the REST API root; empty means DefaultAPIURL.
	APIURL string
	// Timeout bounds API calls and the time to the first byte of a download.
	Timeout time.Duration
	// MaxPages bounds how many pages of releases are listed.
	MaxPages int
}

// Client talks to the GitHub REST API.
type Client struct {
	baseURL  *url.URL
	timeout  time.Duration
	maxPages int
	// http is credential-free: oauth2 wraps its transport per call, and it
	// follows storage redirects as is.
	http *http.Client
}

var _ upstream.Client = (*Client)(nil)

// New validates the options and creates a client.
func New(opts Options) (*Client, error) {
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}

	baseURL, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}

	if baseURL.Scheme != "https" && baseURL.Scheme != "http" {
		return nil, fmt.Errorf("api url %q: scheme must be http or https", apiURL)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   tlsTimeout,
		ResponseHeaderTimeout: opts.Timeout,
		IdleConnTimeout:       idleTimeout,
		MaxIdleConns:          maxIdleConns,
		MaxIdleConnsPerHost:   maxIdlePerHost,
		// Keep upstream Content-Length intact for the client.
		DisableCompression: true,
	}

	return &Client{
		baseURL:  baseURL,
		timeout:  opts.Timeout,
		maxPages: opts.MaxPages,
		http:     &http.Client{Transport: transport},
	}, nil
}

// api builds a GitHub client whose requests carry credential.
// Products without a credential reach public repositories anonymously.
func (c *Client) api(ctx context.Context, credential product.Credential) *github.Client {
	// Asset downloads swap CheckRedirect on the client, so each call gets its own.
	httpClient := &http.Client{Transport: c.http.Transport}

	if !credential.IsZero() {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
		source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential.Reveal()})
		httpClient = oauth2.NewClient(ctx, source)
	}

	gh := github.NewClient(httpClient)
	gh.BaseURL = c.baseURL
	gh.UserAgent = version.UserAgent()

	return gh
}

// ListReleases implements upstream.Client.
func (c *Client) ListReleases(
	ctx context.Context,
	owner, repo string,
	credential product.Credential,
) ([]*update.Release, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		gh       = c.api(ctx, credential)
		opts     = &github.ListOptions{PerPage: perPage}
		releases = make([]*update.Release, 0, perPage)
	)

	for range c.maxPages {
		batch, resp, err := gh.Repositories.ListReleases(ctx, owner, repo, opts)
		if err != nil {
			err = classify("list releases", err)
			// A missing repository means the credential cannot see it.
			if errors.Is(err, update.ErrNotFound) {
				return nil, &update.UpstreamError{
					Op:         "list releases",
					Kind:       update.KindCredential,
					StatusCode: http.StatusNotFound,
					Err:        fmt.Errorf("repository %s/%s is not visible", owner, repo),
				}
			}

			return nil, err
		}

		for _, r := range batch {
			releases = append(releases, convertRelease(r))
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}

		opts.Page = resp.NextPage
	}

	return releases, nil
}

// ReleaseByTag implements upstream.Client.
// GitHub never returns drafts for this call.
func (c *Client) ReleaseByTag(
	ctx context.Context,
	owner, repo string,
	credential product.Credential,
	tag string,
) (*update.Release, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	r, _, err := c.api(ctx, credential).Repositories.GetReleaseByTag(ctx, owner, repo, tag)
	if err != nil {
		return nil, classify("get release", err)
	}

	return convertRelease(r), nil
}

// OpenAsset implements upstream.Client.
// The asset metadata is checked first so callers can verify the filename;
// the download itself is bounded only until its first byte.
func (c *Client) OpenAsset(
	ctx context.Context,
	owner, repo string,
	credential product.Credential,
	assetID int64,
) (*update.AssetStream, error) {
	gh := c.api(ctx, credential)

	metaCtx, cancelMeta := context.WithTimeout(ctx, c.timeout)
	asset, _, err := gh.Repositories.GetReleaseAsset(metaCtx, owner, repo, assetID)

	cancelMeta()

	if err != nil {
		return nil, classify("get asset", err)
	}

	stream := &update.AssetStream{
		Name:        asset.GetName(),
		Size:        int64(asset.GetSize()),
		ContentType: asset.GetContentType(),
	}

	dlCtx, cancel := context.WithCancelCause(ctx)
	timer := time.AfterFunc(c.timeout, func() {
		cancel(errFirstByteTimeout)
	})

	body, redirectURL, err := gh.Repositories.DownloadReleaseAsset(dlCtx, owner, repo, assetID, nil)
	if err == nil && redirectURL != "" {
		body, err = c.followRedirect(dlCtx, redirectURL, stream)
	}

	if !timer.Stop() && err == nil {
		_ = body.Close()
		err = errFirstByteTimeout
	}

	if err != nil {
		if cause := context.Cause(dlCtx); errors.Is(cause, errFirstByteTimeout) {
			err = cause
		}

		cancel(nil)

		return nil, classify("download asset", err)
	}

	stream.Body = &streamBody{ReadCloser: body, cancel: cancel}

	return stream, nil
}

// followRedirect downloads from the storage URL GitHub redirected to.
// The request carries no credential; the URL itself is pre-signed.
func (c *Client) followRedirect(ctx context.Context, location string, stream *update.AssetStream) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build storage request for %s: %w", redactURL(location), errors.Unwrap(err))
	}

	req.Header.Set("Accept", "application/octet-stream")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}

		return nil, fmt.Errorf("fetch %s: %w", redactURL(location), err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()

		return nil, &statusError{op: "fetch " + redactURL(location), code: resp.StatusCode}
	}

	if resp.ContentLength >= 0 {
		stream.Size = resp.ContentLength
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		stream.ContentType = ct
	}

	return resp.Body, nil
}

// streamBody releases the download context when the body is closed.
type streamBody struct {
	io.ReadCloser

	cancel context.CancelCauseFunc
}

// Close implements io.Closer.
func (b *streamBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel(nil)

	return err
}

// convertRelease maps a GitHub release to the domain model, keeping asset order
// and skipping assets that are still uploading.
func convertRelease(r *github.RepositoryRelease) *update.Release {
	out := &update.Release{
		Tag:         r.GetTagName(),
		Notes:       r.GetBody(),
		PublishedAt: r.GetPublishedAt().Time,
		Draft:       r.GetDraft(),
		Assets:      make([]update.Asset, 0, len(r.Assets)),
	}

	for _, a := range r.Assets {
		if state := a.GetState(); state != "" && state != assetStateUploaded {
			continue
		}

		out.Assets = append(out.Assets, update.Asset{
			ID:          a.GetID(),
			Name:        a.GetName(),
			Size:        int64(a.GetSize()),
			ContentType: a.GetContentType(),
		})
	}

	return out
}

// redactURL drops the query string, which carries storage signatures.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil

	return u.String()
}
