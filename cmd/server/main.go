package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ignite/newsletter/internal/api"
	"github.com/ignite/newsletter/internal/auth"
	"github.com/ignite/newsletter/internal/config"
	"github.com/ignite/newsletter/internal/email"
	"github.com/ignite/newsletter/internal/pkg/distlock"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/repository/postgres"
	"github.com/ignite/newsletter/internal/service/newsletter"
	"github.com/ignite/newsletter/internal/service/subscription"
)

func main() {
	configDir := os.Getenv("APP_CONFIG_DIR")
	if configDir == "" {
		configDir = "config"
	}
	cfg, err := config.LoadFromEnv(configDir)
	if err != nil {
		bootLog := logger.New("", "")
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(cfg.Environment, cfg.Log.Level)
	log.Info().Str("environment", cfg.Environment).Msg("starting newsletter server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer db.Close()
	log.Info().Str("host", cfg.Database.Host).Msg("connected to database")

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			log.Warn().Err(err).Msg("redis unreachable, using postgres advisory locks")
			redisClient.Close()
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
		}
	}

	sender, err := email.NewFromConfig(ctx, cfg.EmailClient, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build email client")
	}

	subscriptions := postgres.NewSubscriptionRepo(db)
	operators := postgres.NewOperatorRepo(db)

	subSvc, err := subscription.NewService(subscriptions, sender, subscription.Options{
		BaseURL:  cfg.Application.BaseURL,
		TokenTTL: cfg.Application.TokenTTL(),
		Logger:   log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build subscription service")
	}

	dispatcher, err := buildDispatcher(cfg, operators, subscriptions, sender, distlock.NewFactory(redisClient, db), log)
	if err != nil {
		log.Fatal().Err(err).Msg("build newsletter dispatcher")
	}

	router := api.SetupRoutes(api.Deps{
		Logger:         log,
		Subscriptions:  subSvc,
		Newsletters:    dispatcher,
		Health:         api.NewHealthChecker(db, redisClient),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	addr := cfg.Application.Address()
	server := api.NewServer(addr, router)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-done
	log.Info().Msg("shutting down")
	cancel()

	// In-flight publishes get a bounded grace period.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("server stopped")
}

func buildDispatcher(
	cfg *config.Config,
	operators auth.CredentialStore,
	recipients newsletter.Repository,
	sender email.Sender,
	locks distlock.Factory,
	log zerolog.Logger,
) (*newsletter.Dispatcher, error) {
	policy, err := newsletter.ParsePolicy(cfg.Newsletter.FailurePolicy)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if sps := cfg.EmailClient.SendsPerSecond; sps > 0 {
		burst := int(sps)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(sps), burst)
	}

	return newsletter.NewDispatcher(auth.NewValidator(operators), recipients, sender, locks, newsletter.Options{
		Policy:      policy,
		Concurrency: cfg.Newsletter.Concurrency,
		Limiter:     limiter,
		LockTTL:     cfg.Newsletter.LockTTL(),
		Logger:      log,
	})
}
