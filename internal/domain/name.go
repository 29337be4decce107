package domain

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// MaxNameLength is the upper bound on a display name, in grapheme clusters.
const MaxNameLength = 256

const forbiddenNameChars = `/()"<>\{}`

// SubscriberName is a display name that passed ParseName.
type SubscriberName struct {
	name string
}

// ParseName validates a subscriber display name.
func ParseName(raw string) (SubscriberName, error) {
	if strings.TrimSpace(raw) == "" {
		return SubscriberName{}, invalid("name", "is empty")
	}
	if uniseg.GraphemeClusterCount(raw) > MaxNameLength {
		return SubscriberName{}, invalid("name", "is too long")
	}
	if strings.ContainsAny(raw, forbiddenNameChars) {
		return SubscriberName{}, invalid("name", "contains forbidden characters")
	}
	for _, r := range raw {
		if unicode.IsControl(r) {
			return SubscriberName{}, invalid("name", "contains control characters")
		}
	}
	return SubscriberName{name: raw}, nil
}

func (n SubscriberName) String() string { return n.name }
