package profile

import "errors"

// Sentinel errors for the profile service layer.
var (
	ErrNotFound        = errors.New("sender profile not found")
	ErrBootstrapLocked = errors.New("profile bootstrap already running elsewhere")
)
