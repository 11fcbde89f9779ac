package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/engine"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/store"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
)

// sqlCommand 對應資料庫的 pool_commands 表，紀錄每個成功的指令
type sqlCommand struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	RefID     []byte `gorm:"column:ref_id;type:binary(16);uniqueIndex"` // 對應 domain.CommandID
	Sequence  uint64 `gorm:"uniqueIndex"`
	Type      uint8
	Sender    string `gorm:"size:128;index"`
	Payload   []byte `gorm:"type:blob"` // 完整指令 JSON，金額是 uint64 不適合直接放數值欄位
	CreatedAt int64  `gorm:"autoCreateTime:milli"` // 自動寫入時間
}

func (*sqlCommand) TableName() string {
	return "pool_commands"
}

// MySQLLedger 以 MySQL 為儲存的帳本
//
// 每個指令在一個資料庫交易內完成：冪等檢查、鎖住 state 列、執行、寫入指令紀錄。
// 所有寫入都要先鎖 state 列，因此不同 process 同時寫入也會被排成單一順序。
type MySQLLedger struct {
	db     *gorm.DB
	engine *engine.Engine
	log    *logrus.Entry
}

// NewMySQLLedger 建立 MySQLLedger
func NewMySQLLedger(db *gorm.DB, eng *engine.Engine, log *logrus.Entry) *MySQLLedger {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &MySQLLedger{
		db:     db,
		engine: eng,
		log:    log.WithField("component", "mysql_ledger"),
	}
}

// AutoMigrate 建立或更新資料表
func (ledger *MySQLLedger) AutoMigrate(ctx context.Context) error {
	return ledger.db.WithContext(ctx).AutoMigrate(&sqlEntry{}, &sqlCommand{})
}

// PostCommand 在資料庫交易中套用指令
func (ledger *MySQLLedger) PostCommand(ctx context.Context, cmd *domain.Command) (*domain.Response, error) {
	if err := cmd.CheckID(); err != nil {
		return nil, err
	}
	var resp *domain.Response
	err := ledger.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先檢查是否有這筆指令紀錄
		var existing sqlCommand
		err := tx.Where("ref_id = ?", cmd.CommandID[:]).First(&existing).Error
		if err == nil {
			return domain.ErrCommandAlreadyProcessed
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			ledger.log.WithError(err).Error("select command failed")
			return domain.ErrSelectCommandFailed
		}

		// 悲觀鎖：鎖住 state 列，所有寫入者排隊
		var locked []sqlEntry
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("entry_key = ?", engine.StateKey()).
			Find(&locked).Error; err != nil {
			return err
		}

		var last uint64
		if err := tx.Model(&sqlCommand{}).Select("COALESCE(MAX(sequence), 0)").Scan(&last).Error; err != nil {
			return err
		}
		cmd.Sequence = last + 1

		stx := store.NewTx(&gormKV{db: tx})
		resp, err = ledger.engine.Apply(stx, cmd)
		if err != nil {
			return err
		}
		if err := stx.Commit(); err != nil {
			return err
		}

		payload, err := json.Marshal(cmd)
		if err != nil {
			return err
		}
		record := sqlCommand{
			RefID:    cmd.CommandID[:],
			Sequence: cmd.Sequence,
			Type:     uint8(cmd.Type),
			Sender:   cmd.Sender,
			Payload:  payload,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("insert command record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (ledger *MySQLLedger) reader(ctx context.Context) store.KV {
	return &gormKV{db: ledger.db.WithContext(ctx)}
}

// GetPrincipal 取得帳戶本金
func (ledger *MySQLLedger) GetPrincipal(ctx context.Context, account string) (uint64, error) {
	return ledger.engine.Principal(ledger.reader(ctx), account)
}

// GetGain 取得帳戶未提領收益
func (ledger *MySQLLedger) GetGain(ctx context.Context, account string) (uint64, error) {
	return ledger.engine.Gain(ledger.reader(ctx), account)
}

// GetPoolState 取得池子狀態
func (ledger *MySQLLedger) GetPoolState(ctx context.Context) (domain.PoolState, error) {
	return ledger.engine.State(ledger.reader(ctx))
}

// GetContractInfo 取得版本資訊
func (ledger *MySQLLedger) GetContractInfo(ctx context.Context) (domain.ContractInfo, error) {
	return ledger.engine.ContractInfo(ledger.reader(ctx))
}

// ListAccounts 在同一個交易中讀取本金與收益，取得一致的快照
func (ledger *MySQLLedger) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	err := ledger.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		accounts, err = ledger.engine.Accounts(&gormKV{db: tx})
		return err
	})
	return accounts, err
}

// Commands 依 sequence 列出 after 之後的指令
func (ledger *MySQLLedger) Commands(ctx context.Context, after uint64, limit int) ([]domain.Command, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []sqlCommand
	if err := ledger.db.WithContext(ctx).
		Where("sequence > ?", after).
		Order("sequence").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	cmds := make([]domain.Command, 0, len(rows))
	for _, r := range rows {
		var cmd domain.Command
		if err := json.Unmarshal(r.Payload, &cmd); err != nil {
			return nil, fmt.Errorf("decode command %d: %w", r.Sequence, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

var (
	_ usecase.Ledger     = (*MySQLLedger)(nil)
	_ usecase.CommandLog = (*MySQLLedger)(nil)
)
