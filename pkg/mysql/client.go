package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Client 帳本使用的 GORM 連線
type Client struct {
	db *gorm.DB
}

// NewClient 連線 MySQL，失敗時依 Config 重試
//
// 參數:
//
//	ctx: context.Context - 取消後停止重試
//	cfg: Config - MySQL 連線配置
//	log: *logrus.Entry - 記錄重試過程
//
// 回傳值:
//
//	*Client: 封裝後的 MySQL 客戶端
//	error: 重試用完仍無法連線
func NewClient(ctx context.Context, cfg Config, log *logrus.Entry) (*Client, error) {
	cfg = cfg.withDefaults()
	gormConfig := &gorm.Config{
		// 帳本自己用 db.Transaction 包每一筆指令，不需要 GORM 再包一層
		SkipDefaultTransaction: true,
		Logger:                 newLogger(cfg.LogLevel, log.WithField("source", "gorm")),
	}

	var db *gorm.DB
	var err error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		db, err = open(ctx, cfg, gormConfig)
		if err == nil {
			break
		}
		if attempt == cfg.MaxRetries {
			break
		}
		log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"max":     cfg.MaxRetries,
			"host":    cfg.Host,
		}).Warn("failed to connect to mysql, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.RetryInterval):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql after %d attempts: %w", cfg.MaxRetries, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.db: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log.WithFields(logrus.Fields{"host": cfg.Host, "db": cfg.DBName}).Info("mysql connected")
	return &Client{db: db}, nil
}

func open(ctx context.Context, cfg Config, gormConfig *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, err
	}
	rawDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := rawDB.PingContext(ctx); err != nil {
		_ = rawDB.Close()
		return nil, err
	}
	return db, nil
}

// DB 給 MySQLLedger 使用
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Close 關閉連線池
func (c *Client) Close() error {
	rawDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.db: %w", err)
	}
	return rawDB.Close()
}

// newLogger GORM 的輸出導到 logrus，level 決定 GORM 自己的過濾等級
func newLogger(level string, out *logrus.Entry) logger.Interface {
	var logLevel logger.LogLevel
	switch level {
	case "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "silent":
		logLevel = logger.Silent
	default:
		logLevel = logger.Error
	}
	return logger.New(out, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logLevel,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
