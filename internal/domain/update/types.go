package update

import (
	"io"
	"time"
)

// Query is one inbound "is there a newer version?" request.
type Query struct {
	// Product is the product identifier from the URL.
	Product string
	// Channel is the requested update track.
	Channel Channel
	// Target is the platform identifier, e.g. "windows", "darwin", "linux".
	Target string
	// Arch is the CPU architecture, e.g. "x86_64", "aarch64".
	Arch string
	// CurrentVersion is the version installed on the client.
	CurrentVersion string
}

// Asset is a single file attached to an upstream release.
type Asset struct {
	// ID is the upstream asset identifier used to download it.
	ID int64
	// Name is the asset filename.
	Name string
	// Size is the size in bytes reported by upstream.
	Size int64
	// ContentType is the media type reported by upstream.
	ContentType string
}

// Release is a published upstream release. Assets keep upstream order.
type Release struct {
	Tag         string
	Notes       string
	PublishedAt time.Time
	Draft       bool
	Assets      []Asset
}

// AssetByName returns the first asset with the given filename.
func (r *Release) AssetByName(name string) (Asset, bool) {
	for _, a := range r.Assets {
		if a.Name == name {
			return a, true
		}
	}

	return Asset{}, false
}

// AssetNames returns the filenames in upstream order.
func (r *Release) AssetNames() []string {
	names := make([]string, len(r.Assets))
	for i, a := range r.Assets {
		names[i] = a.Name
	}

	return names
}

// Manifest is the client-facing description of an available update.
// Notes is always present (possibly empty); Signature is omitted when the
// release carries no companion signature.
type Manifest struct {
	Version   string    `json:"version"`
	Notes     string    `json:"notes"`
	PubDate   time.Time `json:"pub_date"`
	URL       string    `json:"url"`
	Signature string    `json:"signature,omitempty"`
}

// Reason explains the outcome of an update check.
type Reason string

// Outcome reasons.
const (
	ReasonAvailable     Reason = "available"
	ReasonUpToDate      Reason = "up-to-date"
	ReasonNoRelease     Reason = "no-release"
	ReasonAssetMismatch Reason = "asset-mismatch"
	ReasonUnparsable    Reason = "unparsable-version"
	ReasonUnsupported   Reason = "unsupported-platform"
)

// Outcome is the result of an update check. A nil Manifest means no update.
type Outcome struct {
	Manifest *Manifest
	Reason   Reason
}

// Available reports whether an update is offered.
func (o *Outcome) Available() bool {
	return o != nil && o.Manifest != nil
}

// AssetStream is an open upstream download.
// The caller owns Body and must close it.
type AssetStream struct {
	Body        io.ReadCloser
	Name        string
	Size        int64
	ContentType string
}
