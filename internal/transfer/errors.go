package transfer

import (
	"StuffTracker/internal/schema"
	"errors"
	"fmt"
)

var (
	// ErrMissingSource: исходный файл отсутствует.
	ErrMissingSource = errors.New("source file does not exist")
	// ErrStorageFault: носитель недоступен для записи или чтения.
	ErrStorageFault = schema.ErrStorageFault
	// ErrIO: прочие ошибки ввода-вывода во время копирования.
	ErrIO = errors.New("i/o error")
	// ErrInvalidPath: путь не абсолютный или указывает на сам файл БД.
	ErrInvalidPath = errors.New("invalid path")
)

// Reason: причина неудачи экспорта или импорта.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonMissingSource
	ReasonStorage
	ReasonIO
	ReasonInvalidPath
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMissingSource:
		return "missing_source"
	case ReasonStorage:
		return "storage"
	case ReasonIO:
		return "io"
	case ReasonInvalidPath:
		return "invalid_path"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// ReasonOf определяет причину по ошибке, возвращённой ExportTo/ImportFrom.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrMissingSource):
		return ReasonMissingSource
	case errors.Is(err, ErrInvalidPath):
		return ReasonInvalidPath
	case errors.Is(err, ErrStorageFault):
		return ReasonStorage
	default:
		return ReasonIO
	}
}

// Error описывает неудачную операцию переноса файла.
type Error struct {
	Op   string // "export" или "import"
	Path string // внешний путь, переданный вызывающим
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Reason возвращает причину неудачи.
func (e *Error) Reason() Reason { return ReasonOf(e.Err) }
