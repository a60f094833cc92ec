package main

import (
	"fmt"
	"log/slog"

	"github.com/sirupsen/logrus"

	"bank-ledger/internal/config"
	"bank-ledger/internal/repository"
	"bank-ledger/internal/repository/gormstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config.Load")
		return
	}

	// Library code logs through slog; route it into the same stream.
	logger := slog.New(slog.NewTextHandler(logrus.StandardLogger().Writer(), nil))

	// run returns before Fatal so its deferred closes get to run.
	if err := run(cfg, logger); err != nil {
		logrus.WithError(err).WithField("store_driver", cfg.StoreDriver).Fatal("Migration failed")
		return
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	switch cfg.StoreDriver {
	case config.DriverPostgres, config.DriverSQLite:
		dialect, err := repository.DialectFor(cfg.StoreDriver)
		if err != nil {
			return fmt.Errorf("repository.DialectFor: %w", err)
		}
		dsn := cfg.GetDBConnectionString()
		if dialect == repository.SQLite {
			dsn = repository.SQLiteDSN(cfg.SQLitePath)
		}

		if err := repository.Migrate(dialect, dsn, logger); err != nil {
			return fmt.Errorf("repository.Migrate (%s): %w", dialect.Name, err)
		}

	case config.DriverMySQL:
		client, err := gormstore.Open(gormstore.Config{
			Host:     cfg.DBHost,
			Port:     cfg.MySQLPort(),
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			LogLevel: "warn",
		}, logger)
		if err != nil {
			return fmt.Errorf("gormstore.Open: %w", err)
		}
		defer client.Close()

		if err := client.AutoMigrate(); err != nil {
			return fmt.Errorf("gormstore.AutoMigrate: %w", err)
		}

	default:
		logrus.WithField("store_driver", cfg.StoreDriver).Info("Nothing to migrate")
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"store_driver": cfg.StoreDriver,
	}).Info("Migration complete")
	return nil
}
