package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/MohsinAliJafery/backend/internal/config"
	"github.com/MohsinAliJafery/backend/internal/ports"
	"github.com/MohsinAliJafery/backend/internal/repository"
)

// openStore connects the transaction store selected by DB_DRIVER, applying
// migrations first when migrate is set. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, migrate bool, logger *slog.Logger) (ports.ITransactionRepository, func(), error) {
	switch cfg.DbDriver {
	case "memory":
		logger.Warn("using in-memory transaction store; data is lost on restart")
		return repository.NewMemoryTransactionRepository(), func() {}, nil

	case "sqlite":
		db, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			if err := repository.Migrate(ctx, db, repository.DialectSQLite); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		logger.Info("connected to sqlite", slog.String("path", cfg.SQLitePath))
		return repository.NewSQLiteTransactionRepository(db), func() { db.Close() }, nil

	case "postgres":
		pool, err := config.InitPostgresPool(ctx, cfg.PostgresURL())
		if err != nil {
			return nil, nil, err
		}
		db := stdlib.OpenDBFromPool(pool)
		release := func() {
			db.Close()
			pool.Close()
		}
		if migrate {
			if err := repository.Migrate(ctx, db, repository.DialectPostgres); err != nil {
				release()
				return nil, nil, err
			}
		}
		logger.Info("connected to database", slog.String("host", cfg.DbHost), slog.String("name", cfg.DbName))
		return repository.NewTransactionRepository(pool), release, nil
	}
	return nil, nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DbDriver)
}
