package handlers

import (
	"StuffTracker/internal/config"
	"StuffTracker/internal/middleware"
	"StuffTracker/internal/schema"
	"StuffTracker/internal/service"
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SchemaStore описывает операции над схемой, доступные через HTTP.
type SchemaStore interface {
	Path() string
	Exists() bool
	TargetVersion() int
	Policy() schema.UpgradePolicy
	Reset(ctx context.Context) error
	StoredVersion(ctx context.Context) (int, error)
}

// FileTransfer: экспорт и импорт файла БД.
type FileTransfer interface {
	ExportTo(ctx context.Context, destinationPath string) error
	ImportFrom(ctx context.Context, sourcePath string) error
}

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	itemService *service.ItemService,
	store SchemaStore,
	files FileTransfer,
	logger *zap.SugaredLogger,
	cfg *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithRequestID)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithGzip)
	r.Use(middleware.WithAuth(cfg.AuthSecret))

	itemHandler := NewItemHandler(itemService, logger)
	dbHandler := NewDBHandler(store, files, logger, cfg)

	// чтение доступно без токена
	r.Get("/api/items", itemHandler.List)
	r.Get("/api/items/{id}", itemHandler.Get)
	r.Get("/api/db/status", dbHandler.Status)

	// изменения только с валидным токеном
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/api/items", itemHandler.Add)
		r.Put("/api/items/{id}", itemHandler.Update)
		r.Delete("/api/items/{id}", itemHandler.Delete)

		r.Post("/api/db/reset", dbHandler.Reset)
		r.Post("/api/db/export", dbHandler.Export)
		r.Post("/api/db/import", dbHandler.Import)
	})

	return &Handler{Router: r}
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, reason string) {
	writeJSON(w, status, errorResponse{Error: msg, Reason: reason})
}
