package b2api

// Token is an authorization token issued by B2. It prints as a placeholder so
// that it never ends up in logs, error messages or reports.
type Token string

const redacted = "[REDACTED]"

func (t Token) String() string {
	if t == "" {
		return ""
	}
	return redacted
}

func (t Token) GoString() string {
	return t.String()
}

func (t Token) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Reveal returns the raw token for use in an Authorization header.
func (t Token) Reveal() string {
	return string(t)
}
