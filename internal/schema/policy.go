package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// UpgradePolicy определяет, что происходит со схемой при смене версии.
// Реализации: DestructiveUpgrade и MigratingUpgrade.
type UpgradePolicy interface {
	// Name возвращает имя политики для логов и конфигурации.
	Name() string
	// create строит в пустом файле схему версии to.
	create(ctx context.Context, tx *sql.Tx, to int) error
	upgrade(ctx context.Context, tx *sql.Tx, from, to int) error
}

// MigrationStep переводит схему с версии v на v+1.
type MigrationStep func(ctx context.Context, tx *sql.Tx) error

// DestructiveUpgrade удаляет таблицу и строит схему целевой версии заново. Данные теряются.
// Steps применяются поверх базовой таблицы, отсутствующие шаги пропускаются.
type DestructiveUpgrade struct {
	Steps map[int]MigrationStep
}

func (DestructiveUpgrade) Name() string { return "destructive" }

func (p DestructiveUpgrade) create(ctx context.Context, tx *sql.Tx, to int) error {
	if _, err := tx.ExecContext(ctx, createItemsDDL); err != nil {
		return fmt.Errorf("create items: %w", err)
	}
	for v := 1; v < to; v++ {
		step, ok := p.Steps[v]
		if !ok {
			continue
		}
		if err := step(ctx, tx); err != nil {
			return fmt.Errorf("migration %d -> %d: %w", v, v+1, err)
		}
	}
	return nil
}

func (p DestructiveUpgrade) upgrade(ctx context.Context, tx *sql.Tx, _, to int) error {
	if _, err := tx.ExecContext(ctx, dropItemsDDL); err != nil {
		return fmt.Errorf("drop items: %w", err)
	}
	return p.create(ctx, tx, to)
}

// MigratingUpgrade применяет зарегистрированные шаги по порядку, не трогая данные.
// Ключ Steps: версия, с которой шаг стартует. Новый файл проходит ту же цепочку с версии 1.
type MigratingUpgrade struct {
	Steps map[int]MigrationStep
}

func (MigratingUpgrade) Name() string { return "migrating" }

func (p MigratingUpgrade) create(ctx context.Context, tx *sql.Tx, to int) error {
	if err := p.check(1, to); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, createItemsDDL); err != nil {
		return fmt.Errorf("create items: %w", err)
	}
	return p.upgrade(ctx, tx, 1, to)
}

func (p MigratingUpgrade) upgrade(ctx context.Context, tx *sql.Tx, from, to int) error {
	// сначала убеждаемся, что цепочка полная, чтобы не применить её наполовину
	if err := p.check(from, to); err != nil {
		return err
	}
	for v := from; v < to; v++ {
		if err := p.Steps[v](ctx, tx); err != nil {
			return fmt.Errorf("migration %d -> %d: %w", v, v+1, err)
		}
	}
	return nil
}

func (p MigratingUpgrade) check(from, to int) error {
	for v := from; v < to; v++ {
		if _, ok := p.Steps[v]; !ok {
			return fmt.Errorf("%w: %d -> %d", ErrNoMigration, v, v+1)
		}
	}
	return nil
}

// PolicyByName возвращает политику по имени из конфигурации.
// steps описывают эволюцию схемы и нужны обеим политикам.
func PolicyByName(name string, steps map[int]MigrationStep) (UpgradePolicy, error) {
	switch name {
	case "", "destructive":
		return DestructiveUpgrade{Steps: steps}, nil
	case "migrating":
		return MigratingUpgrade{Steps: steps}, nil
	default:
		return nil, fmt.Errorf("unknown upgrade policy %q", name)
	}
}
