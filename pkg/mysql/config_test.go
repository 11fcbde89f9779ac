package mysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"

	stakelog "github.com/JoeShih716/go-stake-ledger/pkg/logger"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 3307, User: "stake", Password: "secret", DBName: "pool"}
	assert.Equal(t, "stake:secret@tcp(db:3307)/pool?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DSN())
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{Host: "db"}.withDefaults()
	assert.Equal(t, 3306, cfg.Port)
	assert.Equal(t, 10, cfg.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.RetryInterval)
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"info", "warn", "error", "silent", "verbose"} {
		assert.Implements(t, (*logger.Interface)(nil), newLogger(level, stakelog.Discard()))
	}
}
