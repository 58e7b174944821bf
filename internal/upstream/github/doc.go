// Package github implements upstream.Client on top of the GitHub REST API.
//
// Every call builds its own API client around an oauth2 transport carrying
// the product credential, so the credential is scoped to one request and no
// mutable client state is shared between concurrent requests. Asset
// downloads that GitHub redirects to its storage host are followed with a
// credential-free client.
package github
