// Package health exposes the standard grpc.health.v1 service for the gateway.
//
// Orchestrators and the healthcheck command probe it on the admin listener,
// separate from the public HTTP port.
package health
