// Package memory is an in-process subscriber store with the same semantics
// as the Postgres repositories. It backs service tests and local runs
// without a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ignite/newsletter/internal/auth"
	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/service/subscription"
)

// Store is a mutex-guarded subscriber, token, and operator store.
type Store struct {
	mu          sync.Mutex
	subscribers map[uuid.UUID]*domain.Subscriber
	byEmail     map[string]uuid.UUID
	tokens      map[string]*domain.ConfirmationToken
	operators   map[string]domain.OperatorCredential // keyed by username
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		subscribers: make(map[uuid.UUID]*domain.Subscriber),
		byEmail:     make(map[string]uuid.UUID),
		tokens:      make(map[string]*domain.ConfirmationToken),
		operators:   make(map[string]domain.OperatorCredential),
	}
}

// CreatePending implements subscription.Repository.
func (s *Store) CreatePending(_ context.Context, sub *domain.Subscriber, tok *domain.ConfirmationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[sub.Email]; ok {
		return subscription.ErrDuplicateSubscriber
	}
	if _, ok := s.tokens[tok.Token]; ok {
		return subscription.ErrDuplicateSubscriber
	}
	cp := *sub
	s.subscribers[cp.ID] = &cp
	s.byEmail[cp.Email] = cp.ID
	t := *tok
	s.tokens[t.Token] = &t
	return nil
}

// FindByEmail implements subscription.Repository.
func (s *Store) FindByEmail(_ context.Context, email string) (*domain.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, subscription.ErrSubscriberNotFound
	}
	cp := *s.subscribers[id]
	return &cp, nil
}

// StoreToken implements subscription.Repository.
func (s *Store) StoreToken(_ context.Context, tok *domain.ConfirmationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[tok.SubscriberID]; !ok {
		return subscription.ErrSubscriberNotFound
	}
	t := *tok
	s.tokens[t.Token] = &t
	return nil
}

// FindToken implements subscription.Repository.
func (s *Store) FindToken(_ context.Context, token string) (*domain.ConfirmationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return nil, subscription.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

// Confirm implements subscription.Repository.
func (s *Store) Confirm(_ context.Context, subscriberID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscribers[subscriberID]
	if !ok {
		return subscription.ErrSubscriberNotFound
	}
	sub.Status = domain.SubscriberConfirmed
	return nil
}

// ConfirmedRecipients implements newsletter.Repository. Results are ordered
// by subscription time.
func (s *Store) ConfirmedRecipients(_ context.Context) ([]domain.StoredRecipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := make([]*domain.Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		if sub.Confirmed() {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubscribedAt.Before(subs[j].SubscribedAt) })

	out := make([]domain.StoredRecipient, len(subs))
	for i, sub := range subs {
		out[i] = domain.StoredRecipient{SubscriberID: sub.ID, Email: sub.Email}
	}
	return out, nil
}

// FindOperator implements auth.CredentialStore.
func (s *Store) FindOperator(_ context.Context, username, passwordHash string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.operators[username]
	if !ok || op.PasswordHash != passwordHash {
		return uuid.Nil, auth.ErrInvalidCredentials
	}
	return op.UserID, nil
}

// CreateOperator stores an operator credential and returns its id.
func (s *Store) CreateOperator(_ context.Context, username, passwordHash string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.operators[username]; ok {
		return uuid.Nil, auth.ErrOperatorExists
	}
	id := uuid.New()
	s.operators[username] = domain.OperatorCredential{UserID: id, Username: username, PasswordHash: passwordHash}
	return id, nil
}

// Subscriber returns a copy of the stored subscriber. Used by tests.
func (s *Store) Subscriber(id uuid.UUID) (domain.Subscriber, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscribers[id]
	if !ok {
		return domain.Subscriber{}, false
	}
	return *sub, true
}

// Count returns the number of stored subscribers.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// TokensFor returns every token issued to a subscriber.
func (s *Store) TokensFor(id uuid.UUID) []domain.ConfirmationToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ConfirmationToken
	for _, t := range s.tokens {
		if t.SubscriberID == id {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
