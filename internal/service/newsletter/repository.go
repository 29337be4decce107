package newsletter

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignite/newsletter/internal/domain"
)

// Repository reads the newsletter audience.
type Repository interface {
	// ConfirmedRecipients returns every confirmed subscriber's stored email.
	// Pending subscribers are never included.
	ConfirmedRecipients(ctx context.Context) ([]domain.StoredRecipient, error)
}

// Authenticator resolves an Authorization header value to an operator id.
// *auth.Validator satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (uuid.UUID, error)
}
