// Package subscription implements the subscribe and confirm workflow.
//
// A new subscriber is stored as pending together with a confirmation token in
// one repository transaction, then sent a confirmation email. Following the
// link flips the subscriber to confirmed. Re-subscribing with a pending
// address, or calling Resend, issues a fresh token and email.
//
// Repository implementations live in repository/postgres/ and repository/memory/.
package subscription
