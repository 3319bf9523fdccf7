package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/eventhub/internal/config"
	"github.com/iliyamo/eventhub/internal/database"
	"github.com/iliyamo/eventhub/internal/passclient"
	"github.com/iliyamo/eventhub/internal/repository"
	"github.com/iliyamo/eventhub/internal/service"
)

// openStore builds the pass store selected by PASS_STORE.  The returned
// func releases whatever the store holds open.
func openStore(ctx context.Context, cfg config.Config, rdb *redis.Client, log *slog.Logger) (service.PassStore, func(), error) {
	noop := func() {}
	switch cfg.Pass.Store {
	case config.StoreMySQL:
		db, err := database.Open(ctx, database.Options{
			User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("open mysql: %w", err)
		}
		if err := database.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("ensure schema: %w", err)
		}
		log.Info("pass store ready", "backend", "mysql", "host", cfg.DBHost, "db", cfg.DBName)
		return repository.NewPassRepo(db), func() { _ = db.Close() }, nil

	case config.StoreRedis:
		if rdb == nil {
			return nil, noop, errors.New("PASS_STORE=redis but redis is unreachable")
		}
		log.Info("pass store ready", "backend", "redis")
		return repository.NewRedisPassStore(rdb, "eventhub"), noop, nil

	case config.StoreMemory:
		log.Warn("pass store is in-memory; passes are lost on restart")
		return repository.NewMemoryPassStore(), noop, nil

	case config.StoreRemote:
		log.Info("pass store ready", "backend", "remote", "url", cfg.Pass.ServiceURL)
		return passclient.New(cfg.Pass.ServiceURL, passclient.WithInternalKey(cfg.Pass.InternalKey)), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown pass store %q", cfg.Pass.Store)
}
