package email

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ignite/newsletter/internal/config"
	"github.com/ignite/newsletter/internal/pkg/httpretry"
)

// NewFromConfig builds the Sender selected by cfg.Provider.
func NewFromConfig(ctx context.Context, cfg config.EmailClientConfig, log zerolog.Logger) (Sender, error) {
	sender, err := cfg.Sender()
	if err != nil {
		return nil, fmt.Errorf("email: sender address: %w", err)
	}

	switch cfg.Provider {
	case config.ProviderSES:
		ses, err := NewSES(ctx, cfg.SES, sender, cfg.Timeout(), log)
		if err != nil {
			return nil, err
		}
		return ses, nil
	case config.ProviderSparkPost:
		if cfg.SparkPost.APIKey == "" {
			return nil, fmt.Errorf("email: sparkpost api key not configured")
		}
		client := httpretry.NewRetryClient(
			&http.Client{Timeout: cfg.Timeout()},
			cfg.SparkPost.MaxRetries,
			httpretry.WithLogger(log.With().Str("component", "sparkpost").Logger()),
		)
		return NewSparkPost(client, cfg.SparkPost.BaseURL, cfg.SparkPost.APIKey, sender, cfg.Timeout(), log), nil
	default:
		return nil, fmt.Errorf("email: unknown provider %q", cfg.Provider)
	}
}
