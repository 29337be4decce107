package subscription

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/email"
	"github.com/ignite/newsletter/internal/metrics"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/token"
)

// Options configures a Service.
type Options struct {
	// BaseURL is the public origin confirmation links point at.
	BaseURL string
	// TokenTTL bounds how long a confirmation link works. Zero disables
	// expiry.
	TokenTTL time.Duration
	Logger   zerolog.Logger
}

// Service implements the subscription workflow. All public methods are safe
// for concurrent use if the repository and sender are.
type Service struct {
	repo      Repository
	sender    email.Sender
	templates *confirmationTemplates
	baseURL   string
	tokenTTL  time.Duration
	log       zerolog.Logger

	now      func() time.Time
	newToken func() (string, error)
}

// NewService creates a subscription service.
func NewService(repo Repository, sender email.Sender, opts Options) (*Service, error) {
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("subscription: base url: %w", err)
	}
	tpl, err := parseConfirmationTemplates()
	if err != nil {
		return nil, fmt.Errorf("subscription: %w", err)
	}
	return &Service{
		repo:      repo,
		sender:    sender,
		templates: tpl,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		tokenTTL:  opts.TokenTTL,
		log:       opts.Logger.With().Str("component", "subscription").Logger(),
		now:       time.Now,
		newToken:  token.Generate,
	}, nil
}

// Subscribe validates the form input, stores a pending subscriber with a
// confirmation token, and emails the confirmation link. An address that is
// already pending gets a fresh token and email instead of a second row.
// Returns *domain.ValidationError for bad input and ErrAlreadyConfirmed for a
// confirmed address.
func (s *Service) Subscribe(ctx context.Context, rawEmail, rawName string) error {
	addr, err := domain.ParseEmail(rawEmail)
	if err != nil {
		return err
	}
	name, err := domain.ParseName(rawName)
	if err != nil {
		return err
	}

	existing, err := s.repo.FindByEmail(ctx, addr.String())
	switch {
	case err == nil:
		return s.reissue(ctx, existing, addr)
	case !errors.Is(err, ErrSubscriberNotFound):
		return fmt.Errorf("subscribe: look up subscriber: %w", err)
	}

	sub := domain.NewSubscriber{Email: addr, Name: name}.Pending(uuid.New(), s.now().UTC())
	tok, err := s.issueToken(sub.ID)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	if err := s.repo.CreatePending(ctx, sub, tok); err != nil {
		if !errors.Is(err, ErrDuplicateSubscriber) {
			return fmt.Errorf("subscribe: store subscriber: %w", err)
		}
		// Lost a race with a concurrent subscribe for the same address.
		existing, err := s.repo.FindByEmail(ctx, addr.String())
		if err != nil {
			return fmt.Errorf("subscribe: look up subscriber after conflict: %w", err)
		}
		return s.reissue(ctx, existing, addr)
	}

	metrics.IncSubscriptionEvent("subscribed")
	s.log.Info().
		Str("subscriber_id", sub.ID.String()).
		Str("email", logger.RedactEmail(sub.Email)).
		Msg("pending subscriber stored")

	return s.sendConfirmation(ctx, addr, tok.Token)
}

// Resend issues a new confirmation link to a pending subscriber. Returns
// ErrSubscriberNotFound for an unknown address and ErrAlreadyConfirmed for a
// confirmed one.
func (s *Service) Resend(ctx context.Context, rawEmail string) error {
	addr, err := domain.ParseEmail(rawEmail)
	if err != nil {
		return err
	}
	existing, err := s.repo.FindByEmail(ctx, addr.String())
	if err != nil {
		if errors.Is(err, ErrSubscriberNotFound) {
			return ErrSubscriberNotFound
		}
		return fmt.Errorf("resend: look up subscriber: %w", err)
	}
	return s.reissue(ctx, existing, addr)
}

// Confirm marks the subscriber owning tokenValue as confirmed. Repeating a
// confirmation with the same token succeeds without further changes.
func (s *Service) Confirm(ctx context.Context, tokenValue string) error {
	if !token.Valid(tokenValue) {
		return ErrTokenNotFound
	}

	tok, err := s.repo.FindToken(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("confirm: look up token: %w", err)
	}
	if tok.Expired(s.tokenTTL, s.now()) {
		return ErrTokenExpired
	}

	if err := s.repo.Confirm(ctx, tok.SubscriberID); err != nil {
		if errors.Is(err, ErrSubscriberNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("confirm: update status: %w", err)
	}

	metrics.IncSubscriptionEvent("confirmed")
	s.log.Info().Str("subscriber_id", tok.SubscriberID.String()).Msg("subscriber confirmed")
	return nil
}

// reissue stores a new token for a pending subscriber and emails it.
func (s *Service) reissue(ctx context.Context, sub *domain.Subscriber, addr domain.SubscriberEmail) error {
	if sub.Confirmed() {
		return ErrAlreadyConfirmed
	}
	tok, err := s.issueToken(sub.ID)
	if err != nil {
		return fmt.Errorf("reissue: %w", err)
	}
	if err := s.repo.StoreToken(ctx, tok); err != nil {
		return fmt.Errorf("reissue: store token: %w", err)
	}

	metrics.IncSubscriptionEvent("reissued")
	s.log.Info().Str("subscriber_id", sub.ID.String()).Msg("confirmation token reissued")

	return s.sendConfirmation(ctx, addr, tok.Token)
}

func (s *Service) issueToken(subscriberID uuid.UUID) (*domain.ConfirmationToken, error) {
	value, err := s.newToken()
	if err != nil {
		return nil, err
	}
	return &domain.ConfirmationToken{
		Token:        value,
		SubscriberID: subscriberID,
		CreatedAt:    s.now().UTC(),
	}, nil
}

// ConfirmationLink returns the link emailed for tokenValue.
func (s *Service) ConfirmationLink(tokenValue string) string {
	return s.baseURL + "/subscriptions/confirm?subscription_token=" + url.QueryEscape(tokenValue)
}

func (s *Service) sendConfirmation(ctx context.Context, to domain.SubscriberEmail, tokenValue string) error {
	html, text, err := s.templates.render(s.ConfirmationLink(tokenValue))
	if err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}

	receipt, err := s.sender.Send(ctx, email.Message{
		To:      to,
		Subject: confirmationSubject,
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		metrics.IncDelivery(metrics.KindConfirmation, email.ProviderOf(err), email.Outcome(err))
		return fmt.Errorf("send confirmation: %w", err)
	}

	metrics.IncDelivery(metrics.KindConfirmation, receipt.Provider, "delivered")
	return nil
}
