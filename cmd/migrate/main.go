package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iufi-bot/iufi/iufi"
	"github.com/iufi-bot/iufi/iufi/database"
	"github.com/iufi-bot/iufi/iufi/logger"
	"github.com/iufi-bot/iufi/iufi/migration"
)

func main() {
	path := flag.String("config", "config.toml", "path to config")
	batchSize := flag.Int("batch-size", 0, "rows written per batch")
	flag.Parse()

	slog.SetDefault(slog.New(logger.NewHandler()))

	cfg, err := iufi.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Mongo.URI == "" || cfg.Mongo.Database == "" {
		slog.Error("mongo.uri and mongo.database must be set to migrate")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		slog.Error("Failed to connect to mongo", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			slog.Warn("Failed to disconnect from mongo", slog.Any("error", err))
		}
	}()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema", slog.Any("error", err))
		os.Exit(1)
	}

	migrator := migration.NewMigrator(client.Database(cfg.Mongo.Database), db)
	migrator.SetBatchSize(*batchSize)
	if err := migrator.MigrateAll(ctx); err != nil {
		slog.Error("Migration failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("Migration completed successfully!")
}
