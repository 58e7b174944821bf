// Package manifest composes the client-facing description of an available update.
//
// Download URLs always point back at the gateway; upstream URLs and the
// product credential never reach the manifest.
package manifest
