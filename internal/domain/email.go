package domain

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	maxEmailLength      = 254
	maxEmailLocalLength = 64
)

var emailValidator = validator.New()

// SubscriberEmail is an address that passed ParseEmail. The zero value is
// not a valid address; obtain one through ParseEmail only.
type SubscriberEmail struct {
	addr string
}

// ParseEmail validates raw as a deliverable address. It rejects empty input,
// input over 254 bytes, embedded whitespace or control characters, a missing
// '@', empty local or domain parts, and anything outside the email grammar.
// The result is lowercased so one mailbox maps to one subscriber.
func ParseEmail(raw string) (SubscriberEmail, error) {
	if raw == "" {
		return SubscriberEmail{}, invalid("email", "is empty")
	}
	if len(raw) > maxEmailLength {
		return SubscriberEmail{}, invalid("email", "is too long")
	}
	for _, r := range raw {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return SubscriberEmail{}, invalid("email", "contains whitespace or control characters")
		}
	}

	at := strings.LastIndexByte(raw, '@')
	if at < 0 {
		return SubscriberEmail{}, invalid("email", "is missing '@'")
	}
	local, host := raw[:at], raw[at+1:]
	if local == "" {
		return SubscriberEmail{}, invalid("email", "has an empty local part")
	}
	if host == "" {
		return SubscriberEmail{}, invalid("email", "has an empty domain")
	}
	if len(local) > maxEmailLocalLength {
		return SubscriberEmail{}, invalid("email", "local part is too long")
	}
	if err := emailValidator.Var(raw, "email"); err != nil {
		return SubscriberEmail{}, invalid("email", "is not a valid address")
	}

	return SubscriberEmail{addr: strings.ToLower(raw)}, nil
}

// String returns the normalised address.
func (e SubscriberEmail) String() string { return e.addr }
