// Package profile manages named sender profiles: loading and validating
// them, applying administrative changes, and bootstrapping the default
// Office365 profile on first start.
//
// Profiles are stored as flat key/value settings so that new keys can be
// added without a schema migration. The service depends only on the
// Repository interface in repository.go.
package profile
