package schema

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed ddl/items.sql
var createItemsDDL string

const dropItemsDDL = `DROP TABLE IF EXISTS items`

var (
	// ErrStorageFault: каталог или файл БД недоступен для записи/чтения.
	ErrStorageFault = errors.New("storage fault")
	// ErrDowngrade: версия в файле новее той, с которой работает приложение.
	ErrDowngrade = errors.New("schema downgrade is not supported")
	// ErrNoMigration: для MigratingUpgrade не найден шаг миграции.
	ErrNoMigration = errors.New("no migration step")
)

// Manager управляет жизненным циклом схемы одного файла SQLite:
// ленивое создание, смена версии, сброс.
type Manager struct {
	path    string
	version int
	policy  UpgradePolicy
	logger  *zap.SugaredLogger

	mu sync.Mutex
	db *sql.DB
}

// Option настраивает Manager.
type Option func(*Manager)

// WithPolicy задаёт политику смены версии. По умолчанию DestructiveUpgrade.
func WithPolicy(p UpgradePolicy) Option {
	return func(m *Manager) {
		if p != nil {
			m.policy = p
		}
	}
}

// WithLogger задаёт логгер.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager создаёт менеджер для файла path и целевой версии схемы version.
// Файл не создаётся до первого Open.
func NewManager(path string, version int, opts ...Option) *Manager {
	if version < 1 {
		version = 1
	}
	m := &Manager{
		path:    path,
		version: version,
		policy:  DestructiveUpgrade{},
		logger:  zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Path возвращает путь к файлу БД.
func (m *Manager) Path() string { return m.path }

// TargetVersion возвращает версию схемы, с которой работает приложение.
func (m *Manager) TargetVersion() int { return m.version }

// Policy возвращает текущую политику смены версии.
func (m *Manager) Policy() UpgradePolicy { return m.policy }

// Exists сообщает, есть ли файл БД на диске.
func (m *Manager) Exists() bool {
	st, err := os.Stat(m.path)
	return err == nil && st.Mode().IsRegular()
}

// Open возвращает открытый на запись хэндл. При первом вызове создаёт каталог,
// файл и таблицу, а при устаревшей версии применяет политику смены версии.
// Повторные вызовы возвращают тот же хэндл.
func (m *Manager) Open(ctx context.Context) (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db != nil {
		return m.db, nil
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %w", ErrStorageFault, err)
	}
	db, err := sql.Open("sqlite", m.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStorageFault, m.path, err)
	}
	// один писатель: все запросы идут через одно соединение
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: open %s: %w", ErrStorageFault, m.path, err)
	}
	if err := m.prepare(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	m.db = db
	return db, nil
}

// prepare создаёт таблицу или меняет версию схемы в одной транзакции.
func (m *Manager) prepare(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrStorageFault, err)
	}
	defer func() {
		// no-op после Commit
		_ = tx.Rollback()
	}()

	current, err := readVersion(ctx, tx)
	if err != nil {
		return err
	}
	switch {
	case current == 0:
		m.logger.Infow("creating schema", "path", m.path, "version", m.version)
		if err := m.policy.create(ctx, tx, m.version); err != nil {
			return err
		}
	case current < m.version:
		m.logger.Infow("upgrading schema",
			"path", m.path, "from", current, "to", m.version, "policy", m.policy.Name())
		if err := m.policy.upgrade(ctx, tx, current, m.version); err != nil {
			return err
		}
	case current > m.version:
		return fmt.Errorf("%w: file has version %d, expected %d", ErrDowngrade, current, m.version)
	default:
		return tx.Commit()
	}
	if err := writeVersion(ctx, tx, m.version); err != nil {
		return err
	}
	return tx.Commit()
}

// OnVersionChange применяет политику смены версии к уже открытой БД
// и записывает newVersion как текущую версию файла.
func (m *Manager) OnVersionChange(ctx context.Context, oldVersion, newVersion int) error {
	if newVersion < oldVersion {
		return fmt.Errorf("%w: %d -> %d", ErrDowngrade, oldVersion, newVersion)
	}
	db, err := m.Open(ctx)
	if err != nil {
		return err
	}
	return m.inTx(ctx, db, func(tx *sql.Tx) error {
		if err := m.policy.upgrade(ctx, tx, oldVersion, newVersion); err != nil {
			return err
		}
		return writeVersion(ctx, tx, newVersion)
	})
}

// Reset удаляет таблицу и строит схему текущей версии заново, номер версии сохраняется.
func (m *Manager) Reset(ctx context.Context) error {
	db, err := m.Open(ctx)
	if err != nil {
		return err
	}
	m.logger.Infow("resetting schema", "path", m.path, "version", m.version)
	return m.inTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, dropItemsDDL); err != nil {
			return fmt.Errorf("drop items: %w", err)
		}
		return m.policy.create(ctx, tx, m.version)
	})
}

// Version читает версию схемы, записанную в файле.
func (m *Manager) Version(ctx context.Context) (int, error) {
	db, err := m.Open(ctx)
	if err != nil {
		return 0, err
	}
	var v int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

// StoredVersion читает версию из файла через отдельное соединение только на чтение.
// Схему не создаёт и политику не применяет; для отсутствующего файла возвращает 0.
func (m *Manager) StoredVersion(ctx context.Context) (int, error) {
	if !m.Exists() {
		return 0, nil
	}
	db, err := sql.Open("sqlite", "file:"+m.path+"?mode=ro")
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %w", ErrStorageFault, m.path, err)
	}
	defer db.Close()
	var v int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("%w: read user_version: %w", ErrStorageFault, err)
	}
	return v, nil
}

// Exclusive закрывает хэндл и выполняет fn над файлом, удерживая менеджер.
// Open на это время блокируется, следующий вызов откроет файл заново.
func (m *Manager) Exclusive(fn func(path string) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db != nil {
		err := m.db.Close()
		m.db = nil
		if err != nil {
			return fmt.Errorf("%w: close %s: %w", ErrStorageFault, m.path, err)
		}
	}
	return fn(m.path)
}

// Close закрывает хэндл. Безопасен для nil и повторного вызова.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

func (m *Manager) inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func readVersion(ctx context.Context, tx *sql.Tx) (int, error) {
	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("%w: read user_version: %w", ErrStorageFault, err)
	}
	return v, nil
}

// PRAGMA не принимает параметры, поэтому значение подставляется как целое.
func writeVersion(ctx context.Context, tx *sql.Tx, v int) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, v)); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	return nil
}
