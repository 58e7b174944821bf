// Package resolver selects the release a channel currently points at.
package resolver
