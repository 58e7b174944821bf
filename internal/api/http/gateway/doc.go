// Package gateway implements the HTTP transport of the update gateway.
//
// It maps URL paths to update checks and asset downloads, translates domain
// errors to status codes and never forwards upstream headers or error text to
// clients.
package gateway
