package domain

import "github.com/google/uuid"

// NewsletterIssue is one request-scoped issue to broadcast. It is never stored.
type NewsletterIssue struct {
	Title string
	HTML  string
	Text  string
}

// Validate checks that every part of the issue is present.
func (i NewsletterIssue) Validate() error {
	switch {
	case i.Title == "":
		return invalid("title", "is required")
	case i.HTML == "":
		return invalid("content.html", "is required")
	case i.Text == "":
		return invalid("content.text", "is required")
	}
	return nil
}

// OperatorCredential is a stored operator login. PasswordHash is the
// lowercase hex SHA3-256 digest of the password.
type OperatorCredential struct {
	UserID       uuid.UUID `db:"user_id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
}
