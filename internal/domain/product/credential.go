package product

// redacted is what every textual rendering of a Credential produces.
const redacted = "[REDACTED]"

// Credential is an upstream access token.
// Formatting, logging and marshalling never reveal its value; only upstream
// adapters call Reveal when they build the outbound request.
type Credential string

// Reveal returns the raw secret.
func (c Credential) Reveal() string {
	return string(c)
}

// IsZero reports whether no secret is set.
func (c Credential) IsZero() bool {
	return c == ""
}

// String implements fmt.Stringer.
func (c Credential) String() string {
	if c == "" {
		return ""
	}

	return redacted
}

// GoString implements fmt.GoStringer so %#v does not leak the secret either.
func (c Credential) GoString() string {
	return c.String()
}

// MarshalText implements encoding.TextMarshaler, used by zap and encoding/json.
func (c Credential) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
