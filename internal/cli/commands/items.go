package commands

import (
	"StuffTracker/internal/bootstrap"
	"StuffTracker/internal/config"
	"StuffTracker/internal/model"
	"context"
	"fmt"
	"strconv"
)

type itemsCmd struct{}

func (itemsCmd) Name() string        { return "items" }
func (itemsCmd) Description() string { return "Показать все записи" }
func (itemsCmd) Usage() string       { return "items" }

func (itemsCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	return withApp(cfg, func(app *bootstrap.App) error {
		list, err := app.Items.List(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(Out, "Нет записей")
			return nil
		}
		for _, it := range list {
			pic := ""
			if len(it.Picture) > 0 {
				pic = fmt.Sprintf("  picture=%dB", len(it.Picture))
			}
			fmt.Fprintf(Out, "- %d  name=%s  brand=%s  model=%s%s\n", it.ID, it.Name, it.Brand, it.Model, pic)
		}
		fmt.Fprintf(Out, "Всего: %d\n", len(list))
		return nil
	})
}

type itemAddCmd struct{}

func (itemAddCmd) Name() string        { return "item-add" }
func (itemAddCmd) Description() string { return "Добавить запись" }
func (itemAddCmd) Usage() string       { return "item-add <name> [brand] [model] [note]" }

func (itemAddCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 4 {
		return ErrUsage
	}
	it := model.Item{Name: args[0]}
	fields := []*string{&it.Brand, &it.Model, &it.Note}
	for i, v := range args[1:] {
		*fields[i] = v
	}
	return withApp(cfg, func(app *bootstrap.App) error {
		id, err := app.Items.Add(ctx, it)
		if err != nil {
			return err
		}
		fmt.Fprintln(Out, "Created:")
		fmt.Fprintf(Out, "  id:   %d\n", id)
		fmt.Fprintf(Out, "  name: %s\n", it.Name)
		return nil
	})
}

type itemDelCmd struct{}

func (itemDelCmd) Name() string        { return "item-del" }
func (itemDelCmd) Description() string { return "Удалить запись по id" }
func (itemDelCmd) Usage() string       { return "item-del <id>" }

func (itemDelCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return ErrUsage
	}
	return withApp(cfg, func(app *bootstrap.App) error {
		if err := app.Items.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(Out, "Deleted: %d\n", id)
		return nil
	})
}

func init() {
	RegisterCmd(itemsCmd{})
	RegisterCmd(itemAddCmd{})
	RegisterCmd(itemDelCmd{})
}
