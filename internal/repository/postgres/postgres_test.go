package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/newsletter/internal/auth"
	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/service/subscription"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func pendingFixture() (*domain.Subscriber, *domain.ConfirmationToken) {
	id := uuid.New()
	now := time.Now().UTC()
	return &domain.Subscriber{ID: id, Email: "ursula@example.com", Name: "le guin", SubscribedAt: now, Status: domain.SubscriberPending},
		&domain.ConfirmationToken{Token: "abcdefghijklmnopqrstuvwxy", SubscriberID: id, CreatedAt: now}
}

func TestCreatePending_CommitsBothRows(t *testing.T) {
	db, mock := newMock(t)
	sub, tok := pendingFixture()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO subscriptions").
		WithArgs(sub.ID, sub.Email, sub.Name, sub.SubscribedAt, "pending_confirmation").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO subscription_tokens").
		WithArgs(tok.Token, sub.ID, tok.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, NewSubscriptionRepo(db).CreatePending(context.Background(), sub, tok))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePending_TokenFailureRollsBack(t *testing.T) {
	db, mock := newMock(t)
	sub, tok := pendingFixture()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO subscriptions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO subscription_tokens").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := NewSubscriptionRepo(db).CreatePending(context.Background(), sub, tok)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePending_UniqueViolation(t *testing.T) {
	db, mock := newMock(t)
	sub, tok := pendingFixture()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO subscriptions").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "subscriptions_email_key"})
	mock.ExpectRollback()

	err := NewSubscriptionRepo(db).CreatePending(context.Background(), sub, tok)
	assert.ErrorIs(t, err, subscription.ErrDuplicateSubscriber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmail(t *testing.T) {
	db, mock := newMock(t)
	id := uuid.New()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, email, name, subscribed_at, status").
		WithArgs("ursula@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "subscribed_at", "status"}).
			AddRow(id.String(), "ursula@example.com", "le guin", at, "confirmed"))
	mock.ExpectQuery("SELECT id, email, name, subscribed_at, status").
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	repo := NewSubscriptionRepo(db)
	sub, err := repo.FindByEmail(context.Background(), "ursula@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, sub.ID)
	assert.Equal(t, domain.SubscriberConfirmed, sub.Status)
	assert.Equal(t, at, sub.SubscribedAt)

	_, err = repo.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, subscription.ErrSubscriberNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindToken(t *testing.T) {
	db, mock := newMock(t)
	id := uuid.New()
	at := time.Now().UTC()

	mock.ExpectQuery("SELECT subscription_token, subscriber_id, created_at").
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"subscription_token", "subscriber_id", "created_at"}).
			AddRow("tok", id.String(), at))
	mock.ExpectQuery("SELECT subscription_token, subscriber_id, created_at").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT subscription_token, subscriber_id, created_at").
		WithArgs("broken").
		WillReturnError(errors.New("connection reset"))

	repo := NewSubscriptionRepo(db)
	tok, err := repo.FindToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, id, tok.SubscriberID)

	_, err = repo.FindToken(context.Background(), "missing")
	assert.ErrorIs(t, err, subscription.ErrTokenNotFound)

	_, err = repo.FindToken(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, subscription.ErrTokenNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreToken(t *testing.T) {
	db, mock := newMock(t)
	_, tok := pendingFixture()

	mock.ExpectExec("INSERT INTO subscription_tokens").
		WithArgs(tok.Token, tok.SubscriberID, tok.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, NewSubscriptionRepo(db).StoreToken(context.Background(), tok))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirm(t *testing.T) {
	db, mock := newMock(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE subscriptions SET status").
		WithArgs(id, "confirmed", "pending_confirmation").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE subscriptions SET status").
		WithArgs(id, "confirmed", "pending_confirmation").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewSubscriptionRepo(db)
	require.NoError(t, repo.Confirm(context.Background(), id))
	assert.ErrorIs(t, repo.Confirm(context.Background(), id), subscription.ErrSubscriberNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmedRecipients(t *testing.T) {
	db, mock := newMock(t)
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT id, email FROM subscriptions").
		WithArgs("confirmed").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow(a.String(), "a@example.com").
			AddRow(b.String(), "not-an-email"))

	got, err := NewSubscriptionRepo(db).ConfirmedRecipients(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].SubscriberID)
	assert.Equal(t, "not-an-email", got[1].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOperatorRepo(t *testing.T) {
	db, mock := newMock(t)
	id := uuid.New()
	hash := auth.HashPassword("secret")

	mock.ExpectQuery("SELECT user_id FROM users").
		WithArgs("admin", hash).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(id.String()))
	mock.ExpectQuery("SELECT user_id FROM users").
		WithArgs("admin", "wrong").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "admin", hash).
		WillReturnError(&pq.Error{Code: "23505"})

	repo := NewOperatorRepo(db)
	got, err := repo.FindOperator(context.Background(), "admin", hash)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = repo.FindOperator(context.Background(), "admin", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = repo.CreateOperator(context.Background(), "admin", hash)
	assert.ErrorIs(t, err, auth.ErrOperatorExists)
	require.NoError(t, mock.ExpectationsWereMet())
}
