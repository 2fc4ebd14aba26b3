package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// backupTimeLayout: формат имени резервной копии, например 2016-10-27_15-05-02.
const backupTimeLayout = "2006-01-02_15-04-05"

// Store описывает то, что Helper требует от владельца файла БД.
type Store interface {
	Path() string
	Exists() bool
	Open(ctx context.Context) (*sql.DB, error)
	// Exclusive закрывает живой хэндл и выполняет fn, пока никто не может открыть файл.
	Exclusive(fn func(path string) error) error
}

// Helper копирует файл БД целиком во внешний путь и обратно.
// Операции не атомарны: сбой посреди копирования оставляет усечённый файл.
type Helper struct {
	store  Store
	logger *zap.SugaredLogger
}

// NewHelper создаёт Helper поверх store. logger может быть nil.
func NewHelper(store Store, logger *zap.SugaredLogger) *Helper {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Helper{store: store, logger: logger}
}

// DefaultBackupPath возвращает путь резервной копии в dir с именем по текущему времени.
func DefaultBackupPath(dir string, now time.Time) string {
	return filepath.Join(dir, now.Format(backupTimeLayout)+".db")
}

// ExportTo копирует файл БД в destinationPath, создавая недостающие каталоги.
// Если файла БД нет, ничего не создаётся.
func (h *Helper) ExportTo(ctx context.Context, destinationPath string) error {
	err := h.export(ctx, destinationPath)
	if err != nil {
		h.logger.Errorw("export failed", "path", destinationPath, "reason", ReasonOf(err), "error", err)
		return &Error{Op: "export", Path: destinationPath, Err: err}
	}
	h.logger.Infow("database exported", "path", destinationPath)
	return nil
}

func (h *Helper) export(ctx context.Context, dst string) error {
	if err := h.checkPath(dst); err != nil {
		return err
	}
	if !h.store.Exists() {
		return fmt.Errorf("%w: %s", ErrMissingSource, h.store.Path())
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: create dirs: %w", ErrStorageFault, err)
	}
	return h.store.Exclusive(func(src string) error {
		return copyFile(src, dst)
	})
}

// ImportFrom заменяет файл БД содержимым sourcePath. Если файла БД ещё нет,
// сначала создаётся пустая схема. Содержимое источника не проверяется.
func (h *Helper) ImportFrom(ctx context.Context, sourcePath string) error {
	err := h.importFile(ctx, sourcePath)
	if err != nil {
		h.logger.Errorw("import failed", "path", sourcePath, "reason", ReasonOf(err), "error", err)
		return &Error{Op: "import", Path: sourcePath, Err: err}
	}
	h.logger.Infow("database imported", "path", sourcePath)
	return nil
}

func (h *Helper) importFile(ctx context.Context, src string) error {
	if err := h.checkPath(src); err != nil {
		return err
	}
	st, err := os.Stat(src)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrMissingSource, src)
	case err != nil:
		return fmt.Errorf("%w: stat source: %w", ErrStorageFault, err)
	case !st.Mode().IsRegular():
		return fmt.Errorf("%w: %s is not a regular file", ErrMissingSource, src)
	}
	if !h.store.Exists() {
		// открываем и закрываем, чтобы на диске появилась базовая схема
		if _, err := h.store.Open(ctx); err != nil {
			return err
		}
	}
	// следующий Open увидит импортированный файл
	return h.store.Exclusive(func(dst string) error {
		return copyFile(src, dst)
	})
}

func (h *Helper) checkPath(p string) error {
	if p == "" || !filepath.IsAbs(p) {
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, p)
	}
	if filepath.Clean(p) == filepath.Clean(h.store.Path()) {
		return fmt.Errorf("%w: %q is the database file itself", ErrInvalidPath, p)
	}
	return nil
}

// copyFile копирует src в dst побайтно. Оба файла закрываются на любом пути выхода.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingSource, src)
		}
		return fmt.Errorf("%w: open source: %w", ErrStorageFault, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("%w: open destination: %w", ErrStorageFault, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close destination: %w", ErrIO, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("%w: copy: %w", ErrIO, err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %w", ErrIO, err)
	}
	return nil
}
