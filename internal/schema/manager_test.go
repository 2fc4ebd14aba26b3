package schema

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// newTestManager создаёт менеджер с файлом БД во временном каталоге.
func newTestManager(t *testing.T, version int, opts ...Option) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "databases", "stufftracker.db")
	m := NewManager(path, version, opts...)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func insertItem(t *testing.T, db *sql.DB, name string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO items(name, brand, model, note, picture) VALUES(?, 'b', 'm', 'n', ?)`,
		name, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("insert %s: %v", name, err)
	}
}

func countItems(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// schemaObjects возвращает описание таблиц и индексов файла в стабильном порядке.
func schemaObjects(t *testing.T, db *sql.DB) string {
	t.Helper()
	rows, err := db.Query(`SELECT type, name, COALESCE(sql, '') FROM sqlite_master
		WHERE name NOT LIKE 'sqlite_%' ORDER BY type, name`)
	if err != nil {
		t.Fatalf("sqlite_master: %v", err)
	}
	defer rows.Close()
	var b strings.Builder
	for rows.Next() {
		var typ, name, ddl string
		if err := rows.Scan(&typ, &name, &ddl); err != nil {
			t.Fatal(err)
		}
		b.WriteString(typ + " " + name + ": " + ddl + "\n")
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
	return b.String()
}

func hasNameIndex(t *testing.T, db *sql.DB) bool {
	t.Helper()
	var idx int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_items_name'`).Scan(&idx); err != nil {
		t.Fatal(err)
	}
	return idx == 1
}

func TestOpen_CreatesFileAndSchema(t *testing.T) {
	m := newTestManager(t, 1)
	if m.Exists() {
		t.Fatalf("db file must not exist before Open")
	}
	db, err := m.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !m.Exists() {
		t.Fatalf("db file not created: %s", m.Path())
	}
	if n := countItems(t, db); n != 0 {
		t.Fatalf("expected empty table, got %d rows", n)
	}
	v, err := m.Version(context.Background())
	if err != nil || v != 1 {
		t.Fatalf("version: v=%d err=%v", v, err)
	}
}

func TestOpen_ReturnsSameHandle(t *testing.T) {
	m := newTestManager(t, 1)
	db1, err := m.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	db2, err := m.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if db1 != db2 {
		t.Fatalf("expected the same handle on repeated Open")
	}
}

func TestOpen_StorageFault(t *testing.T) {
	// родитель каталога данных: обычный файл, создать каталог невозможно
	base := filepath.Join(t.TempDir(), "not_a_dir")
	if err := os.WriteFile(base, []byte("x"), 0o600); err != nil {
		t.Fatalf("prepare file: %v", err)
	}
	m := NewManager(filepath.Join(base, "db", "stufftracker.db"), 1)
	if _, err := m.Open(context.Background()); !errors.Is(err, ErrStorageFault) {
		t.Fatalf("expected ErrStorageFault, got %v", err)
	}
}

func TestOpen_DestructiveUpgradeDropsRows(t *testing.T) {
	m1 := newTestManager(t, 1)
	db, err := m1.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	insertItem(t, db, "drill")
	insertItem(t, db, "saw")
	if err := m1.Close(); err != nil {
		t.Fatal(err)
	}

	for _, to := range []int{2, 3, 10} {
		m := NewManager(m1.Path(), to)
		db, err := m.Open(context.Background())
		if err != nil {
			t.Fatalf("open v%d: %v", to, err)
		}
		if n := countItems(t, db); n != 0 {
			t.Fatalf("v%d: expected 0 rows after upgrade, got %d", to, n)
		}
		v, _ := m.Version(context.Background())
		if v != to {
			t.Fatalf("expected version %d, got %d", to, v)
		}
		insertItem(t, db, "left-over")
		_ = m.Close()
	}
}

func TestOpen_SameVersionKeepsRows(t *testing.T) {
	m := newTestManager(t, 2)
	db, err := m.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	insertItem(t, db, "hammer")
	_ = m.Close()

	m2 := NewManager(m.Path(), 2)
	defer m2.Close()
	db, err = m2.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n := countItems(t, db); n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
}

func TestOpen_DowngradeRejected(t *testing.T) {
	m := newTestManager(t, 3)
	if _, err := m.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	_ = m.Close()

	old := NewManager(m.Path(), 2)
	if _, err := old.Open(context.Background()); !errors.Is(err, ErrDowngrade) {
		t.Fatalf("expected ErrDowngrade, got %v", err)
	}
}

func TestOpen_MigratingUpgradeKeepsRows(t *testing.T) {
	m1 := newTestManager(t, 1)
	db, err := m1.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	insertItem(t, db, "level")
	_ = m1.Close()

	var applied []int
	steps := map[int]MigrationStep{
		1: func(ctx context.Context, tx *sql.Tx) error {
			applied = append(applied, 1)
			_, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_items_name ON items(name)`)
			return err
		},
		2: func(ctx context.Context, tx *sql.Tx) error {
			applied = append(applied, 2)
			return nil
		},
	}
	m := NewManager(m1.Path(), 3, WithPolicy(MigratingUpgrade{Steps: steps}))
	defer m.Close()
	db, err = m.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if n := countItems(t, db); n != 1 {
		t.Fatalf("migrating upgrade must keep rows, got %d", n)
	}
	if len(applied) != 2 || applied[0] != 1 || applied[1] != 2 {
		t.Fatalf("unexpected steps order: %v", applied)
	}
}

func TestOpen_MigratingUpgradeMissingStep(t *testing.T) {
	m1 := newTestManager(t, 1)
	db, err := m1.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	insertItem(t, db, "tape")
	_ = m1.Close()

	m := NewManager(m1.Path(), 3, WithPolicy(MigratingUpgrade{Steps: map[int]MigrationStep{
		1: func(context.Context, *sql.Tx) error { return nil },
	}}))
	if _, err := m.Open(context.Background()); !errors.Is(err, ErrNoMigration) {
		t.Fatalf("expected ErrNoMigration, got %v", err)
	}

	// файл остался на версии 1 с данными
	back := NewManager(m1.Path(), 1)
	defer back.Close()
	db, err = back.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n := countItems(t, db); n != 1 {
		t.Fatalf("failed migration must not touch rows, got %d", n)
	}
}

func TestOnVersionChange_Destructive(t *testing.T) {
	m := newTestManager(t, 1)
	db, err := m.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	insertItem(t, db, "a")
	insertItem(t, db, "b")

	if err := m.OnVersionChange(context.Background(), 1, 2); err != nil {
		t.Fatalf("OnVersionChange: %v", err)
	}
	if n := countItems(t, db); n != 0 {
		t.Fatalf("expected 0 rows, got %d", n)
	}
	v, _ := m.Version(context.Background())
	if v != 2 {
		t.Fatalf("expected version 2, got %d", v)
	}
	if err := m.OnVersionChange(context.Background(), 2, 1); !errors.Is(err, ErrDowngrade) {
		t.Fatalf("expected ErrDowngrade, got %v", err)
	}
}

func TestReset_KeepsVersion(t *testing.T) {
	m := newTestManager(t, 4)
	db, err := m.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	insertItem(t, db, "x")
	if err := m.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if n := countItems(t, db); n != 0 {
		t.Fatalf("expected 0 rows after reset, got %d", n)
	}
	v, _ := m.Version(context.Background())
	if v != 4 {
		t.Fatalf("reset must keep version 4, got %d", v)
	}
}

func TestClose_NilAndTwice(t *testing.T) {
	var nilMgr *Manager
	if err := nilMgr.Close(); err != nil {
		t.Fatalf("nil Close must not fail: %v", err)
	}
	m := newTestManager(t, 1)
	if _, err := m.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close #1: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close #2: %v", err)
	}
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("", nil)
	if err != nil || p.Name() != "destructive" {
		t.Fatalf("default policy: %v %v", p, err)
	}
	p, err = PolicyByName("migrating", map[int]MigrationStep{})
	if err != nil || p.Name() != "migrating" {
		t.Fatalf("migrating policy: %v %v", p, err)
	}
	p, err = PolicyByName("destructive", DefaultMigrations())
	if d, ok := p.(DestructiveUpgrade); err != nil || !ok || len(d.Steps) != 1 {
		t.Fatalf("destructive policy must carry steps: %#v %v", p, err)
	}
	if _, err := PolicyByName("nope", nil); err == nil {
		t.Fatalf("unknown policy must fail")
	}
}

func TestDefaultMigrations_OneToTwo(t *testing.T) {
	m1 := newTestManager(t, 1)
	db, err := m1.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	insertItem(t, db, "kept")
	_ = m1.Close()

	m := NewManager(m1.Path(), 2, WithPolicy(MigratingUpgrade{Steps: DefaultMigrations()}))
	defer m.Close()
	db, err = m.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if n := countItems(t, db); n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
	if !hasNameIndex(t, db) {
		t.Fatalf("index not created")
	}
}

func TestOpen_FreshFileMatchesMigratedFile(t *testing.T) {
	steps := DefaultMigrations()

	// v1 -> v2 через миграцию
	migrated := newTestManager(t, 1)
	if _, err := migrated.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	_ = migrated.Close()
	m := NewManager(migrated.Path(), 2, WithPolicy(MigratingUpgrade{Steps: steps}))
	defer m.Close()
	migratedDB, err := m.Open(context.Background())
	if err != nil {
		t.Fatalf("open migrated: %v", err)
	}

	for _, p := range []UpgradePolicy{MigratingUpgrade{Steps: steps}, DestructiveUpgrade{Steps: steps}} {
		fresh := newTestManager(t, 2, WithPolicy(p))
		freshDB, err := fresh.Open(context.Background())
		if err != nil {
			t.Fatalf("%s: open fresh: %v", p.Name(), err)
		}
		if got, want := schemaObjects(t, freshDB), schemaObjects(t, migratedDB); got != want {
			t.Fatalf("%s: fresh v2 schema differs from migrated v2:\n%s\nvs\n%s", p.Name(), got, want)
		}
		if v, _ := fresh.Version(context.Background()); v != 2 {
			t.Fatalf("%s: expected version 2, got %d", p.Name(), v)
		}
	}
}

func TestOpen_FreshMigratingWithoutChainFails(t *testing.T) {
	m := newTestManager(t, 3, WithPolicy(MigratingUpgrade{Steps: DefaultMigrations()}))
	if _, err := m.Open(context.Background()); !errors.Is(err, ErrNoMigration) {
		t.Fatalf("expected ErrNoMigration, got %v", err)
	}
}

func TestDestructiveUpgrade_BuildsTargetSchema(t *testing.T) {
	m1 := newTestManager(t, 1)
	db, err := m1.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	insertItem(t, db, "gone")
	_ = m1.Close()

	m := NewManager(m1.Path(), 2, WithPolicy(DestructiveUpgrade{Steps: DefaultMigrations()}))
	defer m.Close()
	db, err = m.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if n := countItems(t, db); n != 0 {
		t.Fatalf("expected 0 rows, got %d", n)
	}
	if !hasNameIndex(t, db) {
		t.Fatalf("recreated v2 schema must carry the name index")
	}

	insertItem(t, db, "x")
	if err := m.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if !hasNameIndex(t, db) {
		t.Fatalf("reset must rebuild the v2 schema")
	}
}

func TestStoredVersion_DoesNotUpgrade(t *testing.T) {
	m1 := newTestManager(t, 1)
	db, err := m1.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	insertItem(t, db, "kept")
	_ = m1.Close()

	m := NewManager(m1.Path(), 2)
	defer m.Close()
	v, err := m.StoredVersion(context.Background())
	if err != nil {
		t.Fatalf("StoredVersion: %v", err)
	}
	if v != 1 {
		t.Fatalf("expected stored version 1, got %d", v)
	}

	// файл не тронут: прежняя версия видит строки
	back := NewManager(m1.Path(), 1)
	defer back.Close()
	db, err = back.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n := countItems(t, db); n != 1 {
		t.Fatalf("StoredVersion must not touch rows, got %d", n)
	}
}

func TestStoredVersion_MissingFile(t *testing.T) {
	m := newTestManager(t, 2)
	v, err := m.StoredVersion(context.Background())
	if err != nil || v != 0 {
		t.Fatalf("missing file: v=%d err=%v", v, err)
	}
	if m.Exists() {
		t.Fatalf("StoredVersion must not create the file")
	}
}

func TestExclusive_ClosesHandleAndBlocksOpen(t *testing.T) {
	m := newTestManager(t, 1)
	db, err := m.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	insertItem(t, db, "a")

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- m.Exclusive(func(path string) error {
			if path != m.Path() {
				t.Errorf("unexpected path %s", path)
			}
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	opened := make(chan *sql.DB, 1)
	go func() {
		db, err := m.Open(context.Background())
		if err != nil {
			t.Errorf("open: %v", err)
		}
		opened <- db
	}()
	select {
	case <-opened:
		t.Fatalf("Open must wait for Exclusive to finish")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Exclusive: %v", err)
	}
	reopened := <-opened
	if reopened == nil || reopened == db {
		t.Fatalf("expected a fresh handle after Exclusive")
	}
	if n := countItems(t, reopened); n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
}

func TestExclusive_PropagatesError(t *testing.T) {
	m := newTestManager(t, 1)
	want := errors.New("copy failed")
	if err := m.Exclusive(func(string) error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
