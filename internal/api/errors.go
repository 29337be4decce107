package api

import (
	"errors"
	"net/http"

	"github.com/ignite/newsletter/internal/auth"
	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/httputil"
	"github.com/ignite/newsletter/internal/service/newsletter"
	"github.com/ignite/newsletter/internal/service/subscription"
)

// respondError maps a service error onto its HTTP status. Validation and
// state errors carry a client-safe message; anything else is logged and
// answered with a generic 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.BadRequest(w, r, verr.Error())
	case errors.Is(err, newsletter.ErrUnauthorized):
		// Malformed headers and wrong passwords look the same to the caller.
		httputil.Unauthorized(w, r, auth.Challenge())
	case errors.Is(err, subscription.ErrAlreadyConfirmed):
		httputil.Conflict(w, r, "subscription is already confirmed")
	case errors.Is(err, subscription.ErrSubscriberNotFound):
		httputil.NotFound(w, r, "no pending subscription for that address")
	case errors.Is(err, subscription.ErrTokenNotFound), errors.Is(err, subscription.ErrTokenExpired):
		httputil.Error(w, r, http.StatusUnauthorized, "invalid or expired subscription token")
	default:
		httputil.InternalError(w, r, err)
	}
}
