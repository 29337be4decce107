// Command operator creates a publishing operator account.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/ignite/newsletter/internal/auth"
	"github.com/ignite/newsletter/internal/config"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/repository/postgres"
)

func main() {
	configDir := flag.String("config", "config", "directory holding base.yaml and the environment overlays")
	username := flag.String("username", "", "operator username")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configDir)
	if err != nil {
		bootLog := logger.New("", "")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.Environment, cfg.Log.Level)

	// The password comes from the environment so it stays out of shell history.
	password := os.Getenv("OPERATOR_PASSWORD")
	if *username == "" || password == "" {
		log.Fatal().Msg("-username and OPERATOR_PASSWORD are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer db.Close()

	id, err := postgres.NewOperatorRepo(db).CreateOperator(ctx, *username, auth.HashPassword(password))
	if err != nil {
		log.Fatal().Err(err).Str("username", *username).Msg("create operator")
	}
	log.Info().Str("user_id", id.String()).Str("username", *username).Msg("operator created")
}
