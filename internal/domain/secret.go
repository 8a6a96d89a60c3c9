package domain

import "encoding/json"

const redactedValue = "[REDACTED]"

// Secret holds a credential that must never reach logs or diagnostics.
// Formatting and marshalling always produce a placeholder; Reveal returns
// the real value.
type Secret string

// Reveal returns the underlying credential.
func (s Secret) Reveal() string { return string(s) }

// IsZero reports whether no secret is set.
func (s Secret) IsZero() bool { return s == "" }

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redactedValue
}

func (s Secret) GoString() string { return `domain.Secret("` + s.String() + `")` }

func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s Secret) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
