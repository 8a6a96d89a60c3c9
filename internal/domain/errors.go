package domain

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a missing or malformed profile setting. It is
// raised when a profile is loaded, never while a batch is being sent.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

func missing(key string) *ConfigurationError {
	return &ConfigurationError{Key: key, Reason: "value is required"}
}

func malformed(key, reason string) *ConfigurationError {
	return &ConfigurationError{Key: key, Reason: reason}
}

// AsConfigurationError unwraps err into a *ConfigurationError if it holds one.
func AsConfigurationError(err error) (*ConfigurationError, bool) {
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr, true
	}
	return nil, false
}
