// Package integration exercises the whole gateway against a fake GitHub API.
package integration
