package schema

import (
	"context"
	"database/sql"
)

// DefaultMigrations возвращает шаги для MigratingUpgrade.
// Ключ: версия, с которой шаг стартует.
func DefaultMigrations() map[int]MigrationStep {
	return map[int]MigrationStep{
		1: addNameIndex,
	}
}

// 1 -> 2: индекс по имени для поиска.
func addNameIndex(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_items_name ON items(name)`)
	return err
}
