// Command migrate_data copies messages and contacts from a relational store
// (SQLite file or PostgreSQL) into the configured MongoDB database.
package main

import (
	"context"
	"flag"
	"os"

	"whatsapp-console/internal/config"
	"whatsapp-console/internal/database"
	"whatsapp-console/internal/logger"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	source := flag.String("source", config.DriverSQLite, "relational source: sqlite or postgres")
	sqlitePath := flag.String("sqlite", cfg.DBPath, "path of the SQLite source database")
	flag.Parse()

	ctx := context.Background()

	// 1. Connect to the relational source
	var (
		src *database.SQLStore
		err error
	)
	switch *source {
	case config.DriverSQLite:
		src, err = database.OpenSQLite(*sqlitePath)
	case config.DriverPostgres:
		src, err = database.OpenPostgres(cfg.PostgresDSN())
	default:
		logger.Error("unknown source", "source", *source)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("failed to open source", "source", *source, "error", err)
		os.Exit(1)
	}
	defer src.Close(ctx)

	// 2. Connect to MongoDB (destination)
	dst, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		logger.Error("failed to connect destination", "error", err)
		os.Exit(1)
	}
	defer dst.Close(ctx)

	logger.Info("starting data migration", "source", *source, "database", cfg.MongoDatabase)

	stats, err := database.Copy(ctx, src, dst)
	if err != nil {
		logger.Error("migration aborted", "error", err, "contacts", stats.Contacts, "messages", stats.Messages)
		os.Exit(1)
	}
	logger.Info("migration completed", "contacts", stats.Contacts, "messages", stats.Messages, "skipped", stats.Skipped)
}
