package main

import (
	"context"
	"log"

	"tara-tutor-be/internal/config"
	"tara-tutor-be/pkg/database"
	"tara-tutor-be/pkg/index/pgvector"
)

// Creates the vector extension and the document_fragments table ahead of the first
// pgvector-backed deploy.
func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(context.Background(), cfg.Database.Connection, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Migrating document_fragments...")
	if err := pgvector.Migrate(db); err != nil {
		log.Fatal("Error: Migration failed:", err)
	}
	log.Println("Migration complete")
}
