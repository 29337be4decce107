package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ignite/newsletter/internal/config"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/repository/postgres"
)

func main() {
	configDir := flag.String("config", "config", "directory holding base.yaml and the environment overlays")
	dir := flag.String("dir", "migrations", "directory of *.sql migration files")
	listOnly := flag.Bool("list", false, "list tables instead of migrating")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configDir)
	if err != nil {
		bootLog := logger.New("", "")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.Environment, cfg.Log.Level)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer db.Close()

	if *listOnly {
		tables, err := postgres.Tables(ctx, db)
		if err != nil {
			log.Fatal().Err(err).Msg("list tables")
		}
		for _, t := range tables {
			fmt.Println(" ", t)
		}
		fmt.Printf("Total: %d tables\n", len(tables))
		return
	}

	applied, err := postgres.Migrate(ctx, db, os.DirFS(*dir), log)
	if err != nil {
		log.Fatal().Err(err).Strs("applied", applied).Msg("migration failed")
	}
	log.Info().Int("applied", len(applied)).Msg("migrations complete")
}
