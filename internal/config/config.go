package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// DevAuthSecret: секрет по умолчанию для локальной работы CLI. Сервер с ним не стартует.
const DevAuthSecret = "dev-secret-key"

// ErrInsecureSecret: сервер запущен без собственного AUTH_SECRET.
var ErrInsecureSecret = errors.New("AUTH_SECRET must be set to a non-default value")

// Политики смены версии схемы.
const (
	PolicyDestructive = "destructive"
	PolicyMigrating   = "migrating"
)

type Config struct {
	// Storage settings
	DataDir       string `env:"DATA_DIR"`
	DBName        string `env:"DB_NAME"`
	SchemaVersion int    `env:"SCHEMA_VERSION"`
	UpgradePolicy string `env:"UPGRADE_POLICY"`
	BackupDir     string `env:"BACKUP_DIR"`
	PictureMaxKB  int    `env:"PICTURE_MAX_KB"`

	// HTTP settings
	BaseURL    string `env:"BASE_URL"`
	AuthSecret string `env:"AUTH_SECRET"`

	// Logging
	LogLevel string `env:"LOG_LEVEL"`
	LogFile  string `env:"LOG_FILE"`

	Version bool `env:"-"` // show version and exit (flag only)
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags работают поверх значений из env
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "каталог приложения с файлом БД")
	flag.StringVar(&cfg.DBName, "db-name", cfg.DBName, "имя файла БД")
	flag.IntVar(&cfg.SchemaVersion, "schema-version", cfg.SchemaVersion, "текущая версия схемы")
	flag.StringVar(&cfg.UpgradePolicy, "upgrade-policy", cfg.UpgradePolicy, "destructive | migrating")
	flag.StringVar(&cfg.BackupDir, "backup-dir", cfg.BackupDir, "каталог для резервных копий по умолчанию")
	flag.IntVar(&cfg.PictureMaxKB, "picture-max-kb", cfg.PictureMaxKB, "максимальный размер картинки, КБ")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "адрес HTTP-сервера (host:port)")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для проверки JWT")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug | info | warn | error")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "файл журнала с ротацией (пусто: не писать)")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show version and exit")

	flag.Parse()

	cfg.applyDefaults()
	return cfg
}

var hostPortRe = regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)

// applyDefaults заполняет незаданные поля значениями по умолчанию.
func (cfg *Config) applyDefaults() {
	if cfg.DataDir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			cfg.DataDir = filepath.Join(dir, "StuffTracker", "databases")
		} else {
			cfg.DataDir = filepath.Join(".", "databases")
		}
	}
	if cfg.DBName == "" {
		cfg.DBName = "stufftracker.db"
	}
	if cfg.SchemaVersion <= 0 {
		cfg.SchemaVersion = 1
	}
	cfg.UpgradePolicy = strings.ToLower(strings.TrimSpace(cfg.UpgradePolicy))
	if cfg.UpgradePolicy != PolicyMigrating {
		cfg.UpgradePolicy = PolicyDestructive
	}
	if cfg.BackupDir == "" {
		home, _ := os.UserHomeDir()
		cfg.BackupDir = filepath.Join(home, "StuffTracker", "backups")
	}
	if cfg.PictureMaxKB <= 0 {
		cfg.PictureMaxKB = 2048
	}
	// BaseURL должен быть вида "address:port" (без схемы и пути)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = DevAuthSecret
	}
}

// ValidateServer проверяет настройки, обязательные для HTTP-сервера.
func (cfg *Config) ValidateServer() error {
	if cfg.AuthSecret == "" || cfg.AuthSecret == DevAuthSecret {
		return ErrInsecureSecret
	}
	return nil
}

// DBPath возвращает полный путь к файлу БД.
func (cfg *Config) DBPath() string {
	return filepath.Join(cfg.DataDir, cfg.DBName)
}
