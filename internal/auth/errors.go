package auth

import "errors"

var (
	// ErrMalformed means the Authorization header could not be parsed.
	ErrMalformed = errors.New("malformed basic auth header")
	// ErrInvalidCredentials means the header parsed but matched no operator.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ErrOperatorExists is returned when creating an operator whose username is
// taken.
var ErrOperatorExists = errors.New("operator username already exists")
