// Package migration applies the embedded schema migrations at startup.
package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// RunMigrations applies every embedded *.up.sql file that has not been
// applied yet, in lexical order. Each file runs in its own transaction.
func RunMigrations(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	).Error; err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	names, err := migrationNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		var count int64
		if err := db.Table("schema_migrations").
			Where("version = ?", name).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check %s: %w", name, err)
		}
		if count > 0 {
			continue
		}
		if err := applyMigration(db, name); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func applyMigration(db *gorm.DB, name string) error {
	contents, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/"+name)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range splitStatements(string(contents)) {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return tx.Exec(
			`INSERT INTO schema_migrations (version) VALUES (?)`,
			name,
		).Error
	})
}

// splitStatements breaks a migration file on semicolons at line ends.
// The schema avoids procedural SQL so this is enough.
func splitStatements(contents string) []string {
	parts := strings.Split(contents, ";")
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		statements = append(statements, trimmed)
	}
	return statements
}
