// Package versioning decides whether a release version is newer than the
// version installed on a client, using semantic-version precedence.
package versioning
