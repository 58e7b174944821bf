// Package update holds the data model shared by the release resolution and
// proxying services: queries, releases, assets, channels, manifests and the
// error taxonomy that the transport layer maps to client-visible outcomes.
package update
