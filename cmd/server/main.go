// Command server runs the match-finder HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/kdufoot/matchfinder/internal/config"
	"github.com/kdufoot/matchfinder/internal/database"
	"github.com/kdufoot/matchfinder/internal/handler"
	"github.com/kdufoot/matchfinder/internal/logger"
	"github.com/kdufoot/matchfinder/internal/permission"
	"github.com/kdufoot/matchfinder/internal/queue"
	"github.com/kdufoot/matchfinder/internal/quota"
	"github.com/kdufoot/matchfinder/internal/repository"
	"github.com/kdufoot/matchfinder/internal/router"
	"github.com/kdufoot/matchfinder/internal/routing"
	"github.com/kdufoot/matchfinder/internal/service"
)

const serviceName = "matchfinder"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Setup(serviceName, cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer db.Close()

	evaluator, closeStore := newEvaluator(cfg, log)
	defer closeStore()

	publisher := newPublisher(ctx, cfg, log)

	postings := repository.NewPostingRepo(db)
	contacts := repository.NewContactRepo(db)
	resolver := routing.NewClient(routing.Config{
		BaseURL:     cfg.Routing.BaseURL,
		APIKey:      cfg.Routing.APIKey,
		BatchSize:   cfg.Routing.BatchSize,
		Timeout:     cfg.Routing.Timeout,
		Parallelism: cfg.Routing.Parallelism,
		RPS:         cfg.Routing.RPS,
		Burst:       cfg.Routing.Burst,
	})
	if !resolver.Enabled() {
		log.Warn().Msg("no routing API key; radius searches use straight-line distance")
	}

	gate := permission.NewGate(evaluator)
	matches := handler.NewMatchHandler(
		service.NewDiscovery(postings, resolver, service.DiscoveryConfig{
			BoxFactor:    cfg.Discovery.BoxFactor,
			CandidateCap: cfg.Discovery.CandidateCap,
			MaxRadiusKm:  cfg.Discovery.MaxRadiusKm,
		}),
		service.NewPostings(postings),
		service.NewLifecycle(postings, contacts, publisher, service.ParseRetransition(cfg.ContactRetransition)),
		gate,
	)

	e := router.New(router.Deps{
		Logger:      log,
		DB:          db,
		Gate:        gate,
		Matches:     matches,
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if p, ok := publisher.(*queue.AMQPPublisher); ok {
		_ = p.Close()
	}
}

// newEvaluator builds the quota evaluator over Redis, or over process
// memory when Redis is unreachable.
func newEvaluator(cfg config.Config, log zerolog.Logger) (*quota.Evaluator, func()) {
	table, err := cfg.Quota.QuotaTable()
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.Quota.File).Msg("quota table")
	}

	var store quota.CounterStore
	closeFn := func() {}
	if rdb := config.NewRedisClient(); rdb != nil {
		store = quota.NewRedisStore(rdb)
		closeFn = func() { _ = rdb.Close() }
	} else {
		log.Warn().Msg("redis unavailable; quota counters are per process")
		store = quota.NewMemoryStore()
	}
	return quota.NewEvaluator(store, table, quota.WithStrict(cfg.Quota.Strict)), closeFn
}

// newPublisher returns the broker publisher, starting the lifecycle
// consumer when configured.  Without a broker URL events are dropped.
func newPublisher(ctx context.Context, cfg config.Config, log zerolog.Logger) queue.Publisher {
	if cfg.Broker.URL == "" {
		log.Info().Msg("no broker configured; lifecycle events are not published")
		return queue.NoopPublisher{}
	}
	if cfg.Broker.Consumer {
		go func() {
			if err := queue.StartConsumer(ctx, cfg.Broker.URL, cfg.Broker.Queue, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("lifecycle consumer stopped")
			}
		}()
	}
	return queue.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Queue)
}
