// Package sending dispatches a rendered notification to a batch of
// recipients, one transport call per recipient.
//
// The Dispatcher resolves the sender identity once per batch, classifies
// every transport result into an outcome, updates the recipient's delivery
// status when it has one, and reduces all outcomes into a single
// BatchResult. It never retries and never splits a batch; chunking and
// pacing belong to the caller (see internal/worker).
package sending
