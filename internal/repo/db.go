package repo

import (
	"database/sql"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB оборачивает уже открытый хэндл SQLite (modernc.org/sqlite) в gorm.
// Схемой владеет schema.Manager, поэтому AutoMigrate здесь не вызывается.
func InitDB(conn *sql.DB) (*gorm.DB, error) {
	dial := gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", Conn: conn})
	return gorm.Open(dial, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}
