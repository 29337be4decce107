package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/service/subscription"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// SubscriptionRepo implements subscription.Repository and
// newsletter.Repository against PostgreSQL.
type SubscriptionRepo struct{ db *sql.DB }

// NewSubscriptionRepo creates a Postgres-backed subscriber repository.
func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

func (r *SubscriptionRepo) CreatePending(ctx context.Context, sub *domain.Subscriber, tok *domain.ConfirmationToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO subscriptions (id, email, name, subscribed_at, status)
		VALUES ($1, $2, $3, $4, $5)
	`, sub.ID, sub.Email, sub.Name, sub.SubscribedAt, string(domain.SubscriberPending))
	if err != nil {
		if isUniqueViolation(err) {
			return subscription.ErrDuplicateSubscriber
		}
		return fmt.Errorf("insert subscriber: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO subscription_tokens (subscription_token, subscriber_id, created_at)
		VALUES ($1, $2, $3)
	`, tok.Token, tok.SubscriberID, tok.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) FindByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	var s domain.Subscriber
	var status string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, subscribed_at, status
		FROM subscriptions WHERE email = $1
	`, email).Scan(&s.ID, &s.Email, &s.Name, &s.SubscribedAt, &status)
	if err == sql.ErrNoRows {
		return nil, subscription.ErrSubscriberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find subscriber: %w", err)
	}
	s.Status = domain.SubscriberStatus(status)
	return &s, nil
}

func (r *SubscriptionRepo) StoreToken(ctx context.Context, tok *domain.ConfirmationToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscription_tokens (subscription_token, subscriber_id, created_at)
		VALUES ($1, $2, $3)
	`, tok.Token, tok.SubscriberID, tok.CreatedAt)
	if err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) FindToken(ctx context.Context, token string) (*domain.ConfirmationToken, error) {
	var t domain.ConfirmationToken
	err := r.db.QueryRowContext(ctx, `
		SELECT subscription_token, subscriber_id, created_at
		FROM subscription_tokens WHERE subscription_token = $1
	`, token).Scan(&t.Token, &t.SubscriberID, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, subscription.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}
	return &t, nil
}

// Confirm only ever moves pending to confirmed; it never writes the reverse.
func (r *SubscriptionRepo) Confirm(ctx context.Context, subscriberID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET status = $2
		WHERE id = $1 AND status IN ($2, $3)
	`, subscriberID, string(domain.SubscriberConfirmed), string(domain.SubscriberPending))
	if err != nil {
		return fmt.Errorf("confirm subscriber: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("confirm subscriber: %w", err)
	}
	if n == 0 {
		return subscription.ErrSubscriberNotFound
	}
	return nil
}

func (r *SubscriptionRepo) ConfirmedRecipients(ctx context.Context) ([]domain.StoredRecipient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email FROM subscriptions
		WHERE status = $1
		ORDER BY subscribed_at
	`, string(domain.SubscriberConfirmed))
	if err != nil {
		return nil, fmt.Errorf("list confirmed subscribers: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredRecipient
	for rows.Next() {
		var rcpt domain.StoredRecipient
		if err := rows.Scan(&rcpt.SubscriberID, &rcpt.Email); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		out = append(out, rcpt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list confirmed subscribers: %w", err)
	}
	return out, nil
}
