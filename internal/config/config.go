// Package config 載入服務設定：yaml 檔、STAKE_* 環境變數覆寫、預設值
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-stake-ledger/pkg/mysql"
	"github.com/JoeShih716/go-stake-ledger/pkg/sqldb"
)

// LedgerType 帳本後端
type LedgerType string

const (
	LedgerMemoryMutex LedgerType = "memory_mutex"
	LedgerMemoryLMAX  LedgerType = "memory_lmax"
	LedgerMySQL       LedgerType = "mysql"
	LedgerSQLite      LedgerType = "sqlite"
	LedgerPostgres    LedgerType = "postgres"
)

// Config 服務所有設定
type Config struct {
	Server struct {
		GRPCAddr        string        `yaml:"grpc_addr"`
		HTTPAddr        string        `yaml:"http_addr"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Pool struct {
		Denom string `yaml:"denom"`
		// Creator 啟動時若池子未初始化，以此身分初始化
		Creator string `yaml:"creator"`
		// Admin 空白時由 Creator 擔任
		Admin string `yaml:"admin"`
	} `yaml:"pool"`
	Ledger struct {
		Type    LedgerType `yaml:"type"`
		WALPath string     `yaml:"wal_path"`
	} `yaml:"ledger"`
	MySQL mysql.Config `yaml:"mysql"`
	SQL   sqldb.Config `yaml:"sql"`
	Distribution struct {
		Enabled bool          `yaml:"enabled"`
		Cron    string        `yaml:"cron"`
		Amount  uint64        `yaml:"amount"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"distribution"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	RateLimit struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	Bank struct {
		// KeepRecent LogSender 保留的最近轉帳筆數
		KeepRecent int `yaml:"keep_recent"`
	} `yaml:"bank"`
}

// Load 讀取 yaml (檔案不存在時只用環境變數與預設值)，接著套用環境變數覆寫
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.GRPCAddr, "STAKE_GRPC_ADDR")
	setString(&cfg.Server.HTTPAddr, "STAKE_HTTP_ADDR")
	setString(&cfg.Pool.Denom, "STAKE_DENOM")
	setString(&cfg.Pool.Creator, "STAKE_CREATOR")
	setString(&cfg.Pool.Admin, "STAKE_ADMIN")
	if v := os.Getenv("STAKE_LEDGER_TYPE"); v != "" {
		cfg.Ledger.Type = LedgerType(v)
	}
	setString(&cfg.Ledger.WALPath, "STAKE_WAL_PATH")
	setString(&cfg.MySQL.Host, "STAKE_MYSQL_HOST")
	setString(&cfg.MySQL.User, "STAKE_MYSQL_USER")
	setString(&cfg.MySQL.Password, "STAKE_MYSQL_PASSWORD")
	setString(&cfg.MySQL.DBName, "STAKE_MYSQL_DB")
	if v := os.Getenv("STAKE_MYSQL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STAKE_MYSQL_PORT: %w", err)
		}
		cfg.MySQL.Port = port
	}
	setString(&cfg.SQL.DSN, "STAKE_SQL_DSN")
	setString(&cfg.Log.Level, "STAKE_LOG_LEVEL")
	setString(&cfg.Log.Format, "STAKE_LOG_FORMAT")
	setString(&cfg.Distribution.Cron, "STAKE_DISTRIBUTION_CRON")
	if v := os.Getenv("STAKE_DISTRIBUTION_AMOUNT"); v != "" {
		amount, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("STAKE_DISTRIBUTION_AMOUNT: %w", err)
		}
		cfg.Distribution.Amount = amount
	}
	if v := os.Getenv("STAKE_DISTRIBUTION_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STAKE_DISTRIBUTION_ENABLED: %w", err)
		}
		cfg.Distribution.Enabled = enabled
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.GRPCAddr == "" {
		cfg.Server.GRPCAddr = ":50051"
	}
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Pool.Denom == "" {
		cfg.Pool.Denom = "ubay"
	}
	if cfg.Ledger.Type == "" {
		cfg.Ledger.Type = LedgerMemoryMutex
	}
	if cfg.Ledger.WALPath == "" {
		cfg.Ledger.WALPath = "data/wal.log"
	}
	// 補全 MySQL 連線池預設值 (如果 yaml 沒寫)
	if cfg.MySQL.MaxOpenConns == 0 {
		cfg.MySQL.MaxOpenConns = 100
	}
	if cfg.MySQL.MaxIdleConns == 0 {
		cfg.MySQL.MaxIdleConns = 10
	}
	if cfg.MySQL.ConnMaxLifetime == 0 {
		cfg.MySQL.ConnMaxLifetime = 30 * time.Minute
	}
	switch cfg.Ledger.Type {
	case LedgerSQLite:
		cfg.SQL.Driver = sqldb.DriverSQLite
		if cfg.SQL.DSN == "" {
			cfg.SQL.DSN = "data/stake_ledger.db"
		}
	case LedgerPostgres:
		cfg.SQL.Driver = sqldb.DriverPostgres
	}
	if cfg.Distribution.Cron == "" {
		cfg.Distribution.Cron = "0 0 0 * * *"
	}
	if cfg.Distribution.Timeout == 0 {
		cfg.Distribution.Timeout = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Bank.KeepRecent == 0 {
		cfg.Bank.KeepRecent = 100
	}
}

// Validate 檢查必要欄位
func (c *Config) Validate() error {
	switch c.Ledger.Type {
	case LedgerMemoryMutex, LedgerMemoryLMAX, LedgerSQLite:
	case LedgerMySQL:
		if c.MySQL.Host == "" {
			return fmt.Errorf("mysql.host is required for ledger type %s", c.Ledger.Type)
		}
		if c.MySQL.DBName == "" {
			return fmt.Errorf("mysql.db_name is required for ledger type %s", c.Ledger.Type)
		}
	case LedgerPostgres:
		if c.SQL.DSN == "" {
			return fmt.Errorf("sql.dsn is required for ledger type %s", c.Ledger.Type)
		}
	default:
		return fmt.Errorf("unknown ledger.type %q", c.Ledger.Type)
	}
	if c.Pool.Creator == "" {
		return fmt.Errorf("pool.creator is required")
	}
	if c.Distribution.Enabled && c.Distribution.Amount == 0 {
		return fmt.Errorf("distribution.amount must be positive when distribution is enabled")
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.requests_per_second must not be negative")
	}
	return nil
}
