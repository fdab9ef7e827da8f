package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"catalog_sync/internal/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrationsPath := flag.String("migrations", "file://migrations", "migrations source url")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	direction := flag.Arg(0)
	if direction != "up" && direction != "down" {
		logger.Error("usage: migrate [-config path] [-migrations url] <up|down>")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	m, err := migrate.New(*migrationsPath, cfg.Database.URL())
	if err != nil {
		logger.Error("failed to create migrate instance", "error", err)
		os.Exit(1)
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to apply")
		return
	}
	if err != nil {
		logger.Error("migration failed", "direction", direction, "error", err)
		os.Exit(1)
	}

	logger.Info("migration completed", "direction", direction)
}
