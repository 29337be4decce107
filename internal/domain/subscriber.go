package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriberStatus enumerates the states a subscriber can be in. The only
// transition is SubscriberPending -> SubscriberConfirmed.
type SubscriberStatus string

const (
	SubscriberPending   SubscriberStatus = "pending_confirmation"
	SubscriberConfirmed SubscriberStatus = "confirmed"
)

// NewSubscriber is validated form input that has not been stored yet.
type NewSubscriber struct {
	Email SubscriberEmail
	Name  SubscriberName
}

// Pending returns the subscriber row to store for n, awaiting confirmation.
func (n NewSubscriber) Pending(id uuid.UUID, at time.Time) *Subscriber {
	return &Subscriber{
		ID:           id,
		Email:        n.Email.String(),
		Name:         n.Name.String(),
		SubscribedAt: at,
		Status:       SubscriberPending,
	}
}

// Subscriber is a stored newsletter recipient.
type Subscriber struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	Email        string           `json:"email" db:"email"`
	Name         string           `json:"name" db:"name"`
	SubscribedAt time.Time        `json:"subscribed_at" db:"subscribed_at"`
	Status       SubscriberStatus `json:"status" db:"status"`
}

// Confirmed reports whether the subscriber may receive newsletter issues.
func (s *Subscriber) Confirmed() bool { return s.Status == SubscriberConfirmed }

// ConfirmationToken binds a confirmation link to one subscriber.
type ConfirmationToken struct {
	Token        string    `json:"-" db:"subscription_token"`
	SubscriberID uuid.UUID `json:"subscriber_id" db:"subscriber_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the token is older than ttl at now. A ttl of zero
// disables expiry.
func (t *ConfirmationToken) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(t.CreatedAt) > ttl
}

// StoredRecipient is a confirmed subscriber's email as read back from the
// store, before it is re-validated for delivery.
type StoredRecipient struct {
	SubscriberID uuid.UUID
	Email        string
}
