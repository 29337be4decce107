package newsletter

import "errors"

// Sentinel errors for the newsletter service layer.
var (
	ErrUnauthorized   = errors.New("operator authentication failed")
	ErrDeliveryFailed = errors.New("newsletter delivery failed")
	ErrUnknownPolicy  = errors.New("unknown failure policy")
)
