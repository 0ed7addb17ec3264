package mysql

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"litigation-assistant/internal/config"
)

// DefaultMigrationPath 遷移檔所在目錄
const DefaultMigrationPath = "file://scripts/migrate/mysql"

// Migrate 將資料庫結構升級到最新版本
func Migrate(dbCfg config.DatabaseConfig, migrationPath string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if migrationPath == "" {
		migrationPath = DefaultMigrationPath
	}
	log.Info("[Migrate] 準備執行資料庫遷移", zap.String("source", migrationPath), zap.String("db", dbCfg.DBName))
	m, err := migrate.New(migrationPath, dbCfg.MigrateURL())
	if err != nil {
		return fmt.Errorf("建立遷移實例失敗: %w", err)
	}
	defer m.Close()

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("獲取資料庫遷移版本失敗: %w", err)
	}
	if dirty {
		return fmt.Errorf("資料庫處於 dirty 狀態 (版本 %d)，遷移失敗", currentVersion)
	}
	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("[Migrate] 資料庫結構已是最新，無需遷移", zap.Uint("version", currentVersion))
	case err != nil:
		return fmt.Errorf("執行資料庫遷移 (m.Up) 失敗: %w", err)
	default:
		newVersion, _, _ := m.Version()
		log.Info("[Migrate] 資料庫遷移成功完成", zap.Uint("from", currentVersion), zap.Uint("to", newVersion))
	}
	return nil
}
