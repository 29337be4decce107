// Package email delivers single messages through an outbound email provider.
//
// Sender is the port consumed by the subscription workflow and the newsletter
// dispatcher. SES and SparkPost are the two adapters; NewFromConfig picks one.
package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/logger"
)

// Provider names used in receipts, errors, and metrics labels.
const (
	ProviderSES       = "ses"
	ProviderSparkPost = "sparkpost"
)

// Message is one email to one recipient.
type Message struct {
	To      domain.SubscriberEmail
	Subject string
	HTML    string
	Text    string
}

// Receipt is what the provider returned for an accepted message.
type Receipt struct {
	MessageID string
	Provider  string
	SentAt    time.Time
}

// Sender delivers a message. Implementations bound every call with their
// configured timeout and report failures as *DeliveryError.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// DeliveryError reports a message the provider did not accept.
type DeliveryError struct {
	Recipient string
	Provider  string
	Timeout   bool
	Err       error
}

func (e *DeliveryError) Error() string {
	kind := "failed"
	if e.Timeout {
		kind = "timed out"
	}
	provider := e.Provider
	if provider == "" {
		provider = "email"
	}
	return fmt.Sprintf("%s delivery to %s %s: %v", provider, logger.RedactEmail(e.Recipient), kind, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsTimeout reports whether err contains a delivery that timed out.
func IsTimeout(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Timeout
}

// deliveryError classifies err from a call made under callCtx.
func deliveryError(callCtx context.Context, provider string, to domain.SubscriberEmail, err error) *DeliveryError {
	timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded)
	return &DeliveryError{Recipient: to.String(), Provider: provider, Timeout: timeout, Err: err}
}

// Outcome labels err for metrics: "timeout" or "failed".
func Outcome(err error) string {
	if IsTimeout(err) {
		return "timeout"
	}
	return "failed"
}

// ProviderOf returns the provider named in a *DeliveryError within err, or "".
func ProviderOf(err error) string {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Provider
	}
	return ""
}
