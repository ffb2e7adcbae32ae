package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"soa-backend/internal/config"
	"soa-backend/internal/infrastructure/database"
	"soa-backend/internal/interfaces/router"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	setupLogger(cfg)

	rt, err := router.CreateApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("app create")
	}

	ctx := context.Background()
	if rt.DB != nil {
		sqlDB, err := rt.DB.DB()
		if err != nil {
			log.Fatal().Err(err).Msg("postgres: get DB")
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("postgres connection failed")
		}
		log.Info().Msg("postgres connected")
		if cfg.RunMigrations {
			if err := database.Migrate(cfg.DatabaseURL); err != nil {
				log.Fatal().Err(err).Msg("migrations failed")
			}
		}
	}
	if err := rt.Rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	log.Info().Msg("redis connected")

	if rt.Scheduler != nil {
		if err := rt.Scheduler.Start(); err != nil {
			log.Fatal().Err(err).Msg("maintenance scheduler")
		}
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("mode", cfg.RegistrationMode).Msg("server running")
		if err := rt.App.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	if rt.Scheduler != nil {
		<-rt.Scheduler.Stop().Done()
	}
	if err := rt.App.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if err := rt.Rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close")
	}
}
