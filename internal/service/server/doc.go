// Package server runs the gateway process: the public HTTP listener and the
// gRPC health listener, with graceful shutdown when the context ends.
package server
