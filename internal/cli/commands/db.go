package commands

import (
	"StuffTracker/internal/bootstrap"
	"StuffTracker/internal/config"
	"StuffTracker/internal/transfer"
	"context"
	"fmt"
	"time"
)

type openCmd struct{}

func (openCmd) Name() string        { return "open" }
func (openCmd) Description() string { return "Открыть БД: создать или обновить схему до текущей версии" }
func (openCmd) Usage() string       { return "open" }

func (openCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	return withApp(cfg, func(app *bootstrap.App) error {
		if _, err := app.Schema.Open(ctx); err != nil {
			return err
		}
		v, err := app.Schema.Version(ctx)
		if err != nil {
			return err
		}
		n, err := app.Items.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(Out, "Opened %s (version %d, %d items)\n", app.Schema.Path(), v, n)
		return nil
	})
}

type statusCmd struct{}

func (statusCmd) Name() string        { return "status" }
func (statusCmd) Description() string { return "Показать путь, наличие и версию файла БД" }
func (statusCmd) Usage() string       { return "status" }

func (statusCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	return withApp(cfg, func(app *bootstrap.App) error {
		fmt.Fprintf(Out, "path:    %s\n", app.Schema.Path())
		fmt.Fprintf(Out, "policy:  %s\n", app.Schema.Policy().Name())
		fmt.Fprintf(Out, "target:  %d\n", app.Schema.TargetVersion())
		if !app.Schema.Exists() {
			// статус не должен создавать файл
			fmt.Fprintln(Out, "exists:  no")
			return nil
		}
		v, err := app.Schema.StoredVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(Out, "exists:  yes")
		fmt.Fprintf(Out, "version: %d\n", v)
		return nil
	})
}

type resetCmd struct{}

func (resetCmd) Name() string        { return "reset" }
func (resetCmd) Description() string { return "Удалить все записи и пересоздать таблицу" }
func (resetCmd) Usage() string       { return "reset" }

func (resetCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	return withApp(cfg, func(app *bootstrap.App) error {
		if err := app.Schema.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(Out, "Database reset")
		return nil
	})
}

type exportCmd struct{}

func (exportCmd) Name() string { return "export" }
func (exportCmd) Description() string {
	return "Скопировать файл БД в path (по умолчанию в каталог резервных копий)"
}
func (exportCmd) Usage() string { return "export [path]" }

func (exportCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 1 {
		return ErrUsage
	}
	dst := transfer.DefaultBackupPath(cfg.BackupDir, time.Now())
	if len(args) == 1 {
		dst = args[0]
	}
	return withApp(cfg, func(app *bootstrap.App) error {
		if err := app.Transfer.ExportTo(ctx, dst); err != nil {
			return err
		}
		fmt.Fprintf(Out, "Exported to %s\n", dst)
		return nil
	})
}

type importCmd struct{}

func (importCmd) Name() string        { return "import" }
func (importCmd) Description() string { return "Заменить файл БД содержимым файла path" }
func (importCmd) Usage() string       { return "import <path>" }

func (importCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return ErrUsage
	}
	return withApp(cfg, func(app *bootstrap.App) error {
		if err := app.Transfer.ImportFrom(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(Out, "Imported from %s\n", args[0])
		return nil
	})
}

func init() {
	RegisterCmd(openCmd{})
	RegisterCmd(statusCmd{})
	RegisterCmd(resetCmd{})
	RegisterCmd(exportCmd{})
	RegisterCmd(importCmd{})
}
