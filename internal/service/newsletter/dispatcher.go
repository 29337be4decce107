package newsletter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ignite/newsletter/internal/auth"
	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/email"
	"github.com/ignite/newsletter/internal/metrics"
	"github.com/ignite/newsletter/internal/pkg/distlock"
	"github.com/ignite/newsletter/internal/pkg/logger"
)

// FailurePolicy decides what a fan-out does after a delivery fails.
type FailurePolicy string

const (
	// Collect keeps sending to every recipient and reports all failures.
	Collect FailurePolicy = "collect"
	// FailFast stops scheduling sends after the first failure.
	FailFast FailurePolicy = "fail_fast"
)

// ParsePolicy converts a configuration string to a FailurePolicy.
func ParsePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case Collect, FailFast:
		return FailurePolicy(s), nil
	case "":
		return Collect, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

const lockKey = "newsletter:publish"

// Options configures a Dispatcher.
type Options struct {
	Policy      FailurePolicy
	Concurrency int
	// Limiter caps the provider send rate. Nil means unlimited.
	Limiter *rate.Limiter
	LockTTL time.Duration
	// LockPoll is how often a waiting Publish retries the fan-out lock.
	LockPoll time.Duration
	Logger   zerolog.Logger
}

// Dispatcher publishes newsletter issues.
type Dispatcher struct {
	auth   Authenticator
	repo   Repository
	sender email.Sender
	locks  distlock.Factory
	opts   Options
	log    zerolog.Logger
}

// NewDispatcher creates a Dispatcher. Zero-valued options get defaults.
func NewDispatcher(authn Authenticator, repo Repository, sender email.Sender, locks distlock.Factory, opts Options) (*Dispatcher, error) {
	if _, err := ParsePolicy(string(opts.Policy)); err != nil {
		return nil, err
	}
	if opts.Policy == "" {
		opts.Policy = Collect
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	if opts.LockPoll <= 0 {
		opts.LockPoll = 250 * time.Millisecond
	}
	return &Dispatcher{
		auth:   authn,
		repo:   repo,
		sender: sender,
		locks:  locks,
		opts:   opts,
		log:    opts.Logger.With().Str("component", "newsletter").Logger(),
	}, nil
}

// Publish authenticates the caller and sends issue to every confirmed
// subscriber. Authentication failures match ErrUnauthorized and an incomplete
// issue returns *domain.ValidationError; neither sends anything. If any
// delivery fails the returned error matches ErrDeliveryFailed and wraps each
// *email.DeliveryError; the report is returned alongside it.
func (d *Dispatcher) Publish(ctx context.Context, authorization string, issue domain.NewsletterIssue) (*Report, error) {
	operatorID, err := d.auth.Authenticate(ctx, authorization)
	if err != nil {
		if auth.IsAuthError(err) {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("publish: authenticate: %w", err)
	}
	if err := issue.Validate(); err != nil {
		return nil, err
	}

	log := d.log.With().Str("operator_id", operatorID.String()).Str("title", issue.Title).Logger()

	lock := d.locks(lockKey, d.opts.LockTTL)
	if err := distlock.AcquireWait(ctx, lock, d.opts.LockPoll); err != nil {
		return nil, fmt.Errorf("publish: acquire fan-out lock: %w", err)
	}
	defer func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := lock.Release(rctx); err != nil {
			log.Warn().Err(err).Msg("release fan-out lock")
		}
	}()

	// The lock must outlive a slow fan-out. If it is lost anyway, stop
	// sending so two fan-outs never overlap.
	fanCtx, cancelFan := context.WithCancelCause(ctx)
	defer cancelFan(nil)
	stopKeepalive := distlock.Keepalive(ctx, lock, d.opts.LockTTL, func(err error) {
		if errors.Is(err, distlock.ErrNotAcquired) {
			log.Error().Err(err).Msg("fan-out lock lost, aborting")
			cancelFan(fmt.Errorf("fan-out lock lost: %w", err))
			return
		}
		log.Warn().Err(err).Msg("extend fan-out lock")
	})
	defer stopKeepalive()

	start := time.Now()
	defer func() { metrics.ObservePublishDuration(time.Since(start).Seconds()) }()

	stored, err := d.repo.ConfirmedRecipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("publish: load recipients: %w", err)
	}

	report := newReport(issue.Title)
	recipients := make([]domain.SubscriberEmail, 0, len(stored))
	for _, r := range stored {
		addr, err := domain.ParseEmail(r.Email)
		if err != nil {
			log.Warn().
				Str("subscriber_id", r.SubscriberID.String()).
				Str("email", logger.RedactEmail(r.Email)).
				Err(err).
				Msg("skipping confirmed subscriber with invalid stored email")
			report.Skipped = append(report.Skipped, r.Email)
			metrics.IncDelivery(metrics.KindIssue, "", "skipped")
			continue
		}
		recipients = append(recipients, addr)
	}

	failures := d.fanOut(fanCtx, issue, recipients, report)
	report.sort()

	log.Info().
		Int("delivered", len(report.Delivered)).
		Int("skipped", len(report.Skipped)).
		Int("failed", len(report.Failed)).
		Int("unsent", len(report.Unsent)).
		Msg("newsletter published")

	if len(failures) > 0 {
		return report, fmt.Errorf("%w: %d of %d recipients: %w",
			ErrDeliveryFailed, len(failures), len(recipients), errors.Join(failures...))
	}
	return report, nil
}

// fanOut sends issue to each recipient and records outcomes in report. It
// returns one error per recipient that was not delivered.
func (d *Dispatcher) fanOut(ctx context.Context, issue domain.NewsletterIssue, recipients []domain.SubscriberEmail, report *Report) []error {
	var (
		mu       sync.Mutex
		failures []error
	)

	g, gctx := &errgroup.Group{}, ctx
	if d.opts.Policy == FailFast {
		g, gctx = errgroup.WithContext(ctx)
	}
	g.SetLimit(d.opts.Concurrency)

	unsent := func(to domain.SubscriberEmail, err error) {
		mu.Lock()
		defer mu.Unlock()
		report.Unsent = append(report.Unsent, to.String())
		if d.opts.Policy == Collect || ctx.Err() != nil {
			failures = append(failures, &email.DeliveryError{Recipient: to.String(), Err: err})
		}
	}

	for i, to := range recipients {
		if gctx.Err() != nil {
			for _, rest := range recipients[i:] {
				unsent(rest, context.Cause(gctx))
			}
			break
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				unsent(to, context.Cause(gctx))
				return nil
			}
			if d.opts.Limiter != nil {
				if err := d.opts.Limiter.Wait(gctx); err != nil {
					unsent(to, err)
					return nil
				}
			}

			receipt, err := d.sender.Send(gctx, email.Message{
				To:      to,
				Subject: issue.Title,
				HTML:    issue.HTML,
				Text:    issue.Text,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				report.Failed = append(report.Failed, to.String())
				metrics.IncDelivery(metrics.KindIssue, email.ProviderOf(err), email.Outcome(err))
				return err
			}
			report.Delivered = append(report.Delivered, to.String())
			metrics.IncDelivery(metrics.KindIssue, receipt.Provider, "delivered")
			return nil
		})
	}
	_ = g.Wait()

	return failures
}
