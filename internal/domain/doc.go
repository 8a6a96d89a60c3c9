// Package domain defines the core types shared by the notification sender:
// sender profiles, message templates, recipients and send outcomes.
//
// Types in this package are value objects with no database dependencies and
// no HTTP concerns. They are the shared language between handlers, services,
// transports and repositories.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - Parsing and validation live next to the type they check
package domain
