package handlers

import (
	"StuffTracker/internal/middleware"
	"StuffTracker/internal/model"
	"StuffTracker/internal/repo"
	"StuffTracker/internal/schema"
	"StuffTracker/internal/service"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ItemHandler обрабатывает CRUD-запросы к записям.
type ItemHandler struct {
	ItemService *service.ItemService
	Logger      *zap.SugaredLogger
}

// NewItemHandler создаёт хендлер items
func NewItemHandler(itemService *service.ItemService, logger *zap.SugaredLogger) *ItemHandler {
	return &ItemHandler{ItemService: itemService, Logger: logger}
}

// List отдаёт все записи без картинок.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.ItemService.List(r.Context())
	if err != nil {
		h.fail(w, r, "List", err)
		return
	}
	res := make([]map[string]any, 0, len(list))
	for i := range list {
		res = append(res, service.Summary(&list[i]))
	}
	writeJSON(w, http.StatusOK, res)
}

// Get отдаёт запись целиком, картинка кодируется в base64.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	it, err := h.ItemService.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Get", err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// Add создаёт запись из JSON-тела.
func (h *ItemHandler) Add(w http.ResponseWriter, r *http.Request) {
	var it model.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		h.Logger.Warnw("Add: invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request", "")
		return
	}
	id, err := h.ItemService.Add(r.Context(), it)
	if err != nil {
		h.fail(w, r, "Add", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// Update перезаписывает запись {id}.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var it model.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		h.Logger.Warnw("Update: invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request", "")
		return
	}
	it.ID = id
	if err := h.ItemService.Update(r.Context(), it); err != nil {
		h.fail(w, r, "Update", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete удаляет запись {id}.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.ItemService.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "Delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ItemHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidItem):
		writeError(w, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", "")
	case errors.Is(err, schema.ErrStorageFault):
		h.Logger.Errorw(op+": storage fault", "request_id", middleware.GetRequestID(r.Context()), "error", err)
		writeError(w, http.StatusInsufficientStorage, "storage unavailable", "storage")
	default:
		h.Logger.Errorw(op+": service error", "request_id", middleware.GetRequestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id", "")
		return 0, false
	}
	return id, true
}
