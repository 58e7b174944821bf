package product

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCredentialNeverRendersSecret checks every textual rendering of a Credential.
func TestCredentialNeverRendersSecret(t *testing.T) {
	t.Parallel()

	const secret = "ghp_supersecretvalue"

	c := Credential(secret)

	require.Equal(t, secret, c.Reveal())
	require.NotContains(t, c.String(), secret)
	require.NotContains(t, fmt.Sprintf("%v %s %#v %+v", c, c, c, c), secret)

	p := Product{ID: "myapp", Owner: "acme", Repo: "myapp", Credential: c}
	require.NotContains(t, fmt.Sprintf("%v %+v %#v", p, p, p), secret)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.NotContains(t, string(data), secret)
	require.Contains(t, string(data), redacted)
}

// TestCredentialZero covers the empty credential.
func TestCredentialZero(t *testing.T) {
	t.Parallel()

	require.True(t, Credential("").IsZero())
	require.Empty(t, Credential("").String())
	require.False(t, Credential("x").IsZero())
}
