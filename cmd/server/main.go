package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/countries-api-service/internal/config"
	"github.com/countries-api-service/internal/countries"
	"github.com/countries-api-service/internal/server"
	"github.com/countries-api-service/internal/service"
	"github.com/countries-api-service/internal/store"
	"github.com/countries-api-service/internal/token"
	"github.com/countries-api-service/migrations"
)

// Set via -ldflags at build time
var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("fatal")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	st := store.NewPostgres(pool)
	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	srv := server.New(cfg, server.Deps{
		Auth:      service.NewAuthService(st, tokens),
		Keys:      service.NewAPIKeyService(st),
		Tokens:    tokens,
		Countries: countries.NewClient(cfg.CountriesAPIURL, cfg.CountriesAPITimeout),
		Usage:     st,
		DB:        st,
		Version:   version,
	})

	return srv.ListenAndServe()
}

func runMigrations(databaseURL string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	log.Info().Msg("database schema up to date")
	return nil
}
