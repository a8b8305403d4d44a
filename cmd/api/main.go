package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/gestaozabele/eventos/internal/admin"
	"github.com/gestaozabele/eventos/internal/auth"
	"github.com/gestaozabele/eventos/internal/call"
	"github.com/gestaozabele/eventos/internal/config"
	"github.com/gestaozabele/eventos/internal/dashboard"
	"github.com/gestaozabele/eventos/internal/db"
	"github.com/gestaozabele/eventos/internal/feature"
	internalhttp "github.com/gestaozabele/eventos/internal/http"
	"github.com/gestaozabele/eventos/internal/notify"
	"github.com/gestaozabele/eventos/internal/ranking"
	"github.com/gestaozabele/eventos/internal/report"
	"github.com/gestaozabele/eventos/internal/sales"
	"github.com/gestaozabele/eventos/internal/session"
	"github.com/gestaozabele/eventos/internal/task"
	"github.com/gestaozabele/eventos/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()

	shutdownTracing := telemetry.Setup(ctx, cfg.Telemetry)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn().Err(err).Msg("telemetria: falha ao encerrar")
		}
	}()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAdminTTL)
	notifier := notify.NewWebhookNotifier(cfg.Webhooks, log.With().Str("component", "notify").Logger())

	sessionStore := session.NewStore(redisClient, cfg.CheckinSessionTTL)
	sessions := session.NewService(session.NewResolver(session.NewRepository(pool)), sessionStore, jwtManager)

	features := feature.NewService(feature.NewRepository(pool))
	callRepo := call.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	dash := dashboard.NewService(callRepo, redisClient, cfg.Dashboard, log.With().Str("component", "dashboard").Logger())
	if cfg.Dashboard.Enabled {
		dash.Start(ctx)
		defer dash.Stop()
	}

	handler := internalhttp.NewRouter(internalhttp.Deps{
		Config:    cfg,
		DB:        pool,
		Redis:     redisClient,
		JWT:       jwtManager,
		Sessions:  sessions,
		Reports:   report.NewService(report.NewRepository(pool), redisClient, features, notifier, sessionStore.TTL()),
		Tasks:     task.NewService(task.NewRepository(pool), notifier),
		Calls:     call.NewService(callRepo, notifier),
		Sales:     sales.NewService(sales.NewRepository(pool), features, notifier),
		Features:  features,
		Dashboard: dash,
		Ranking:   ranking.NewService(ranking.NewRepository(pool)),
		AdminAuth: admin.NewAuthService(adminRepo, redisClient, jwtManager, cfg.JWTRefreshTTL),
		Events:    admin.NewEventService(adminRepo),
		Tables:    admin.NewCrudService(adminRepo),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           otelhttp.NewHandler(handler, "eventos-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
