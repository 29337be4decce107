package subscription

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignite/newsletter/internal/domain"
)

// Repository defines the data access contract for subscribers and their
// confirmation tokens. Implementations must be safe for concurrent use.
type Repository interface {
	// CreatePending inserts a pending subscriber and its first token in one
	// transaction. Neither row is visible if either insert fails. Returns
	// ErrDuplicateSubscriber if the email is already stored.
	CreatePending(ctx context.Context, sub *domain.Subscriber, tok *domain.ConfirmationToken) error

	// FindByEmail returns the subscriber with the given email. Returns
	// ErrSubscriberNotFound if there is none.
	FindByEmail(ctx context.Context, email string) (*domain.Subscriber, error)

	// StoreToken adds another confirmation token for an existing subscriber.
	StoreToken(ctx context.Context, tok *domain.ConfirmationToken) error

	// FindToken returns the stored token. Returns ErrTokenNotFound if it
	// does not exist.
	FindToken(ctx context.Context, token string) (*domain.ConfirmationToken, error)

	// Confirm marks the subscriber confirmed. Confirming a confirmed
	// subscriber is a no-op. Returns ErrSubscriberNotFound if the id is
	// unknown.
	Confirm(ctx context.Context, subscriberID uuid.UUID) error
}
