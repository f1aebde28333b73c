//cmd/seeder/main.go
package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/unclebandit/marketing-genius/internal/config"
	"github.com/unclebandit/marketing-genius/internal/db"
)

func main() {
	migrations := flag.String("migrations", "migrations", "directory of schema files")
	seed := flag.String("seed", "seed", "directory of seed files; empty to skip")
	flag.Parse()

	cfg, _, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("database unavailable", zap.Error(err))
	}
	defer conn.Close()

	if err := db.ExecDir(ctx, conn, *migrations, logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	if *seed != "" {
		if err := db.ExecDir(ctx, conn, *seed, logger); err != nil {
			logger.Fatal("seeding failed", zap.Error(err))
		}
	}

	logger.Info("database seeding completed successfully")
}
