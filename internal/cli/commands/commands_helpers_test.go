package commands

import (
	"StuffTracker/internal/config"
	"bytes"
	"path/filepath"
	"testing"
)

// testConfig направляет БД и резервные копии во временный каталог,
// чтобы артефакты тестов не попадали в пользовательские каталоги.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DataDir:       filepath.Join(dir, "databases"),
		DBName:        "stufftracker.db",
		SchemaVersion: 1,
		UpgradePolicy: config.PolicyDestructive,
		BackupDir:     filepath.Join(dir, "backups"),
		PictureMaxKB:  16,
		BaseURL:       "localhost:8081",
		AuthSecret:    "test-secret",
	}
}

// перехват stdout на время теста
func withStdoutCapture(t *testing.T, fn func()) string {
	t.Helper()
	old := Out
	var buf bytes.Buffer
	Out = &buf
	defer func() { Out = old }()
	fn()
	return buf.String()
}
