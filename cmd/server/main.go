package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/eventhub/internal/config"
	"github.com/iliyamo/eventhub/internal/handler"
	"github.com/iliyamo/eventhub/internal/middleware"
	"github.com/iliyamo/eventhub/internal/queue"
	"github.com/iliyamo/eventhub/internal/router"
	"github.com/iliyamo/eventhub/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load() // a missing .env is fine; the environment wins
	cfg := config.Load()

	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis backs the rate limiter and, with PASS_STORE=redis, the passes.
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable; verification is not rate limited")
	} else {
		defer rdb.Close()
	}

	store, closeStore, err := openStore(ctx, cfg, rdb, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.Pass.EventsEnabled {
		buf := queue.NewBufferedPublisher(queue.NewPublisher(cfg.Pass.AMQPURL), 256, cfg.Pass.StoreTimeout, log)
		go buf.Run(ctx)
		events = buf
		if cfg.Pass.RunConsumer {
			c := &queue.Consumer{URL: cfg.Pass.AMQPURL, Dir: cfg.Pass.LogDir, Logger: log}
			go func() {
				if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("pass-consumer stopped", "error", err)
				}
			}()
		}
	}

	tokens := service.NewTokenGenerator(cfg.Pass.Prefix)
	issuer := service.NewIssuer(store, tokens, events, log, cfg.Pass.StoreTimeout)
	verifier := service.NewVerifier(store, events, log, cfg.Pass.StoreTimeout)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(log))

	var pinger handler.Pinger
	if p, ok := store.(handler.Pinger); ok {
		pinger = p
	}
	router.RegisterRoutes(e, pinger)
	passes := handler.NewPassHandler(issuer, verifier, log)
	router.RegisterStudent(e, passes, cfg.JWTSecret)
	router.RegisterStaff(e, passes, cfg.JWTSecret, limiter)
	if cfg.Pass.InternalKey == "" {
		log.Warn("INTERNAL_API_KEY unset; /internal routes answer 401")
	}
	router.RegisterInternal(e, handler.NewInternalPassHandler(store, log), cfg.Pass.InternalKey, limiter)

	addr := ":" + cfg.Port // Address string with port
	log.Info("listening", "addr", addr, "env", cfg.Env, "pass_store", cfg.Pass.Store)

	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(addr) }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				log.Error("request", append(attrs, "error", v.Error)...)
				return nil
			}
			log.Info("request", attrs...)
			return nil
		},
	})
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
