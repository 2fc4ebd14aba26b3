package handlers

import (
	"StuffTracker/internal/config"
	"StuffTracker/internal/middleware"
	"StuffTracker/internal/transfer"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DBHandler обслуживает сброс, экспорт и импорт файла БД.
type DBHandler struct {
	Store  SchemaStore
	Files  FileTransfer
	Logger *zap.SugaredLogger
	Config *config.Config
	now    func() time.Time
}

// NewDBHandler создаёт хендлер обслуживания БД
func NewDBHandler(store SchemaStore, files FileTransfer, logger *zap.SugaredLogger, cfg *config.Config) *DBHandler {
	return &DBHandler{Store: store, Files: files, Logger: logger, Config: cfg, now: time.Now}
}

// PathRequest: тело запросов экспорта и импорта.
type PathRequest struct {
	Path string `json:"path"`
}

// StatusResponse описывает состояние файла БД.
type StatusResponse struct {
	Path          string `json:"path"`
	Exists        bool   `json:"exists"`
	Version       int    `json:"version,omitempty"`
	TargetVersion int    `json:"target_version"`
	Policy        string `json:"policy"`
}

// Status отдаёт путь, наличие и версию файла БД. Файл при этом не создаётся и не обновляется.
func (h *DBHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Path:          h.Store.Path(),
		Exists:        h.Store.Exists(),
		TargetVersion: h.Store.TargetVersion(),
		Policy:        h.Store.Policy().Name(),
	}
	if resp.Exists {
		v, err := h.Store.StoredVersion(r.Context())
		if err != nil {
			h.Logger.Errorw("Status: read version", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error", "")
			return
		}
		resp.Version = v
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reset пересоздаёт таблицу, версия сохраняется.
func (h *DBHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sub, _ := middleware.GetSubjectFromContext(r.Context())
	if err := h.Store.Reset(r.Context()); err != nil {
		h.Logger.Errorw("Reset failed", "subject", sub, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	h.Logger.Infow("database reset", "subject", sub)
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

// Export копирует файл БД в указанный путь или в каталог резервных копий.
func (h *DBHandler) Export(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePath(w, r, true)
	if !ok {
		return
	}
	if req.Path == "" {
		req.Path = transfer.DefaultBackupPath(h.Config.BackupDir, h.now())
	}
	if err := h.Files.ExportTo(r.Context(), req.Path); err != nil {
		writeTransferError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok", "path": req.Path})
}

// Import заменяет файл БД содержимым указанного файла.
func (h *DBHandler) Import(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePath(w, r, false)
	if !ok {
		return
	}
	if err := h.Files.ImportFrom(r.Context(), req.Path); err != nil {
		writeTransferError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok", "path": req.Path})
}

// decodePath читает PathRequest; пустое тело допустимо только при allowEmpty.
func (h *DBHandler) decodePath(w http.ResponseWriter, r *http.Request, allowEmpty bool) (PathRequest, bool) {
	var req PathRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !(allowEmpty && errors.Is(err, io.EOF)) {
		h.Logger.Warnw("invalid request body", "uri", r.RequestURI, "error", err)
		writeError(w, http.StatusBadRequest, "invalid request", "")
		return req, false
	}
	if req.Path == "" && !allowEmpty {
		writeError(w, http.StatusBadRequest, "path is required", transfer.ReasonInvalidPath.String())
		return req, false
	}
	return req, true
}

func writeTransferError(w http.ResponseWriter, err error) {
	reason := transfer.ReasonOf(err)
	status := http.StatusInternalServerError
	switch reason {
	case transfer.ReasonMissingSource:
		status = http.StatusNotFound
	case transfer.ReasonInvalidPath:
		status = http.StatusBadRequest
	case transfer.ReasonStorage:
		status = http.StatusInsufficientStorage
	}
	writeError(w, status, err.Error(), reason.String())
}
