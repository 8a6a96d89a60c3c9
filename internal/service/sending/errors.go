package sending

import (
	"errors"
	"fmt"
)

// TransportError is a delivery failure reported by a mail provider.
// RecipientAttributable marks failures caused by the recipient address
// rather than by the sender, credentials or service.
type TransportError struct {
	Code                  string
	Message               string
	StatusCode            int
	RecipientAttributable bool
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRecipientError reports whether err carries a recipient-attributable
// TransportError.
func IsRecipientError(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.RecipientAttributable
}
