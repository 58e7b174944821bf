// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC health client wrapper with timeouts, used by
// the healthcheck command to probe a running gateway.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
