package auth

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"
)

const basicPrefix = "Basic "

// Credentials is a username and password pair taken from an Authorization
// header.
type Credentials struct {
	Username string
	Password string
}

// ParseBasic extracts credentials from an HTTP Basic Authorization header
// value. The decoded payload must be valid UTF-8 and is split on the first
// ':' so passwords may contain colons.
func ParseBasic(header string) (Credentials, error) {
	if header == "" {
		return Credentials{}, fmt.Errorf("%w: missing authorization header", ErrMalformed)
	}
	if !strings.HasPrefix(header, basicPrefix) {
		return Credentials{}, fmt.Errorf("%w: scheme is not Basic", ErrMalformed)
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, basicPrefix))
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: invalid base64: %v", ErrMalformed, err)
	}
	if !utf8.Valid(decoded) {
		return Credentials{}, fmt.Errorf("%w: payload is not UTF-8", ErrMalformed)
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return Credentials{}, fmt.Errorf("%w: missing ':' separator", ErrMalformed)
	}
	return Credentials{Username: username, Password: password}, nil
}
