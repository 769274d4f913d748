package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/vncsmyrnk/univote/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/univote/internal/config"
)

// Applies a single embedded migration, e.g. "create_univote_schema.up" or
// "create_univote_schema.down". Remaining arguments are passed to config.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("a migration name is required.")
	}
	migrationName := os.Args[1]

	cfg, err := config.Load("migrations", os.Args[2:])
	if err != nil {
		log.Fatal(err)
	}
	if cfg.DatabaseType != config.DatabasePostgres {
		log.Fatalf("migrations only apply to postgres, got %q", cfg.DatabaseType)
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	fileName, fileContent, err := postgres.MigrationFile(migrationName)
	if err != nil {
		log.Fatal(err)
	}

	if _, err := db.ExecContext(ctx, string(fileContent)); err != nil {
		log.Fatalf("Failed to execute SQL file %s: %v", fileName, err)
	}

	fmt.Printf("Migration file %s executed successfully.\n", fileName)
}
