package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig HTTP 伺服器設定
type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	MaxUploadMB int64  `mapstructure:"maxUploadMB"`
}

// GeminiClientConfig 模型端點設定
type GeminiClientConfig struct {
	APIKey string `mapstructure:"apiKey"`
	Model  string `mapstructure:"model"`
}

// DatabaseConfig 診斷紀錄資料庫設定，Enabled 為 false 時不連線
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbName"`
}

// SchedulerConfig 週期性清理任務的 Cron 表達式 (含秒)
type SchedulerConfig struct {
	Enabled                  bool   `mapstructure:"enabled"`
	SessionSweepCronSpec     string `mapstructure:"sessionSweepCronSpec"`
	DiagnosticsPurgeCronSpec string `mapstructure:"diagnosticsPurgeCronSpec"`
}

// SessionConfig 工作階段閒置多久後被清除
type SessionConfig struct {
	IdleTTL time.Duration `mapstructure:"idleTTL"`
}

// DiagnosticsConfig 診斷紀錄保留天數
type DiagnosticsConfig struct {
	RetentionDays int `mapstructure:"retentionDays"`
}

// LoggingConfig zap 日誌設定
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// PromptConfig 以操作名稱覆寫預設的 prompt 範本，未設定者沿用內建範本
type PromptConfig map[string]string

// Config 應用程式設定
type Config struct {
	AppName      string             `mapstructure:"appName"`
	Server       ServerConfig       `mapstructure:"server"`
	GeminiClient GeminiClientConfig `mapstructure:"geminiClient"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Session      SessionConfig      `mapstructure:"session"`
	Diagnostics  DiagnosticsConfig  `mapstructure:"diagnostics"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Prompts      PromptConfig       `mapstructure:"prompts"`
}

// DSN 組出 go-sql-driver/mysql 的連線字串
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

// MigrateURL 組出 golang-migrate 使用的資料庫 URL
func (d DatabaseConfig) MigrateURL() string {
	return fmt.Sprintf("mysql://%s&multiStatements=true", d.DSN())
}

// New 建立已套用預設值與環境變數對應的 viper 實例
func New(configPath string, configName string) *viper.Viper {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("appName", "litigation-assistant")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.maxUploadMB", 20)
	v.SetDefault("geminiClient.apiKey", "")
	v.SetDefault("geminiClient.model", "gemini-2.5-flash")
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.sessionSweepCronSpec", "0 */5 * * * *")
	v.SetDefault("scheduler.diagnosticsPurgeCronSpec", "0 30 3 * * *")
	v.SetDefault("session.idleTTL", "2h")
	v.SetDefault("diagnostics.retentionDays", 30)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.outputPath", "stdout")
	return v
}

// Load 讀取設定檔；找不到檔案時僅使用預設值與環境變數
func Load(configPath string, configName string) (*Config, error) {
	return FromViper(New(configPath, configName))
}

// FromViper 讀取設定檔並解析到 Config，可讓呼叫端先綁定命令列旗標
func FromViper(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("讀取設定檔時發生錯誤: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("無法解析設定檔到結構: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 檢查彼此相依的設定值
func (c *Config) Validate() error {
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.maxUploadMB 必須大於 0")
	}
	if c.Session.IdleTTL <= 0 {
		return fmt.Errorf("session.idleTTL 必須大於 0")
	}
	if c.Database.Enabled && c.Database.Driver != "mysql" {
		return fmt.Errorf("不支援的資料庫驅動程式: %s", c.Database.Driver)
	}
	if c.Diagnostics.RetentionDays < 0 {
		return fmt.Errorf("diagnostics.retentionDays 不得為負數")
	}
	return nil
}
