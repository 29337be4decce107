// Package domain defines the core business types for the newsletter service.
//
// Types in this package are value objects and entities with no database
// dependencies and no HTTP concerns. They are the shared language between
// handlers, services, and repositories.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - Validated wrappers (SubscriberEmail, SubscriberName) are only obtainable
//     through their Parse constructors
//   - Constants and enums belong here
package domain
