// Package newsletter broadcasts an issue to every confirmed subscriber.
//
// Publish authenticates the operator, validates the issue, serialises
// concurrent fan-outs behind a distributed lock, and delivers one message per
// recipient with bounded concurrency and a send-rate limit. Stored addresses
// are re-validated before delivery; invalid ones are skipped and logged.
package newsletter
