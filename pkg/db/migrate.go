package db

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type Migration struct {
	Version string
	Name    string
	SQL     string
}

// LoadMigrations returns the embedded migrations ordered by version. File
// names follow "<version>_<name>.sql".
func LoadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, _, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			log.Warnf("Skipping invalid migration filename: %s", entry.Name())
			continue
		}
		content, err := migrationFiles.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, Migration{Version: version, Name: entry.Name(), SQL: string(content)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Migrate applies every pending migration, each in its own transaction.
func Migrate(conn *sqlx.DB) error {
	if _, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var versions []string
	if err := conn.Select(&versions, `SELECT version FROM schema_migrations`); err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	migrations, err := LoadMigrations()
	if err != nil {
		return err
	}

	pending := 0
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := applyMigration(conn, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		pending++
	}

	if pending == 0 {
		log.Info("No pending migrations")
	} else {
		log.Infof("Successfully applied %d migration(s)", pending)
	}
	return nil
}

func applyMigration(conn *sqlx.DB, m Migration) error {
	tx, err := conn.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", m.Name, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.Name, err)
	}

	log.Infof("Applied migration: %s", m.Name)
	return nil
}
