// Package product contains the configured products served by the gateway.
//
// A Product maps an identifier to one upstream repository and the credential
// used to read it. The Registry is built once at startup and is read-only
// afterwards, so it can be shared by concurrent requests without locking.
package product
