// Package proxy opens upstream asset downloads on behalf of clients.
//
// References are validated before any upstream call, and the upstream body
// is closed as soon as the client goes away.
package proxy
