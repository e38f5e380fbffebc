// Command migrate creates the database schema and optionally loads result
// JSON files written by `invlearn learn --out` or `invlearn batch --out-dir`.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"invlearn/adapters/postgres"
	"invlearn/app"
	"invlearn/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <database_url> [results_dir]")
	}

	databaseURL := os.Args[1]
	ctx := context.Background()

	// Connect to database
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Schema migration failed: %v", err)
	}
	log.Printf("Schema at version %s", runner.Version())

	if len(os.Args) < 3 {
		return
	}
	resultsDir := os.Args[2]

	invariants := postgres.NewInvariantRepository(db)
	sessions := postgres.NewSessionRepository(db)

	files, err := findResultFiles(resultsDir)
	if err != nil {
		log.Fatalf("Failed to find result files: %v", err)
	}
	log.Printf("Found %d result files to import", len(files))

	migrated := 0
	skipped := 0
	for _, file := range files {
		result, err := loadResultFromFile(file)
		if err != nil {
			log.Printf("Failed to load result from %s: %v", file, err)
			skipped++
			continue
		}
		if err := app.Import(ctx, result, invariants, sessions); err != nil {
			log.Printf("Failed to import %s: %v", filepath.Base(file), err)
			skipped++
			continue
		}
		migrated++
		log.Printf("Imported session %s (%s) from %s", result.SessionID, result.Status, filepath.Base(file))
	}

	log.Printf("Migration complete: %d migrated, %d skipped", migrated, skipped)
}

func findResultFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

func loadResultFromFile(filePath string) (*app.Result, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var result app.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
