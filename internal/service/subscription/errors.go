package subscription

import "errors"

// Sentinel errors for the subscription service layer.
var (
	ErrSubscriberNotFound  = errors.New("subscriber not found")
	ErrDuplicateSubscriber = errors.New("subscriber email already exists")
	ErrAlreadyConfirmed    = errors.New("subscriber is already confirmed")
	ErrTokenNotFound       = errors.New("confirmation token not recognised")
	ErrTokenExpired        = errors.New("confirmation token has expired")
)
