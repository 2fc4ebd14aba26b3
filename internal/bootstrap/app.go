package bootstrap

import (
	"StuffTracker/internal/config"
	"StuffTracker/internal/repo"
	"StuffTracker/internal/schema"
	"StuffTracker/internal/service"
	"StuffTracker/internal/transfer"
	"fmt"

	"go.uber.org/zap"
)

// App связывает компоненты хранилища, собранные из конфигурации.
type App struct {
	Config   *config.Config
	Schema   *schema.Manager
	Transfer *transfer.Helper
	Items    *service.ItemService
	Logger   *zap.SugaredLogger
}

// NewApp собирает компоненты по конфигурации и возвращает (app, cleanup, error).
// Файл БД не открывается: это происходит лениво при первом обращении.
// cleanup необходимо вызвать после окончания работы, чтобы закрыть соединение с БД.
func NewApp(cfg *config.Config, logger *zap.SugaredLogger) (*App, func() error, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	policy, err := schema.PolicyByName(cfg.UpgradePolicy, schema.DefaultMigrations())
	if err != nil {
		return nil, nil, fmt.Errorf("upgrade policy: %w", err)
	}
	mgr := schema.NewManager(cfg.DBPath(), cfg.SchemaVersion,
		schema.WithPolicy(policy),
		schema.WithLogger(logger),
	)
	app := &App{
		Config:   cfg,
		Schema:   mgr,
		Transfer: transfer.NewHelper(mgr, logger),
		Items:    service.NewItemService(repo.NewItemRepository(mgr), cfg.PictureMaxKB, logger),
		Logger:   logger,
	}
	cleanup := func() error { return mgr.Close() }
	return app, cleanup, nil
}
