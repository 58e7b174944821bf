// Package version exposes build metadata for the gateway.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Short and Full render them for CLI output; UserAgent is what
// the gateway announces to the release host.
package version
