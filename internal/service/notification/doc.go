// Package notification runs notification jobs: it loads the sender profile,
// binds a transport, paces the recipients through the dispatcher and records
// every delivery.
package notification
