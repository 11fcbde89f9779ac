// Package sqlkv 以 SQLite 或 PostgreSQL 儲存的帳本 (透過 sqlx)
package sqlkv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/engine"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/store"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-stake-ledger/pkg/sqldb"
)

// advisoryLockKey PostgreSQL 交易層級 advisory lock 的 key，多個 process 共用同一個池子時排隊
const advisoryLockKey = 0x5354414b45 // "STAKE"

// commandRow 對應 pool_commands 表
type commandRow struct {
	Sequence  int64  `db:"sequence"`
	RefID     string `db:"ref_id"`
	Type      int64  `db:"type"`
	Sender    string `db:"sender"`
	Payload   string `db:"payload"`
	CreatedAt int64  `db:"created_at"`
}

// Ledger 以 sqlx 存取的帳本
type Ledger struct {
	db     *sqlx.DB
	engine *engine.Engine
	log    *logrus.Entry
	// 同一個 process 內的寫入序列化
	mu sync.Mutex
}

// NewLedger 建立 Ledger，呼叫端需先 Migrate
func NewLedger(db *sqlx.DB, eng *engine.Engine, log *logrus.Entry) *Ledger {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Ledger{
		db:     db,
		engine: eng,
		log:    log.WithFields(logrus.Fields{"component": "sql_ledger", "driver": db.DriverName()}),
	}
}

// Migrate 建立資料表 (可重複執行)
func Migrate(ctx context.Context, db *sqlx.DB) error {
	binary := "BLOB"
	if db.DriverName() == sqldb.DriverPostgres {
		binary = "BYTEA"
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS pool_entries (
			entry_key   %[1]s PRIMARY KEY,
			entry_value %[1]s NOT NULL
		)`, binary),
		`CREATE TABLE IF NOT EXISTS pool_commands (
			sequence   BIGINT PRIMARY KEY,
			ref_id     TEXT NOT NULL UNIQUE,
			type       INTEGER NOT NULL,
			sender     TEXT NOT NULL,
			payload    TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pool_commands_sender ON pool_commands(sender)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// PostCommand 在資料庫交易中套用指令
func (l *Ledger) PostCommand(ctx context.Context, cmd *domain.Command) (*domain.Response, error) {
	if err := cmd.CheckID(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // Commit 之後 Rollback 會回傳 ErrTxDone

	resp, err := l.applyInTx(ctx, tx, cmd)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return resp, nil
}

func (l *Ledger) applyInTx(ctx context.Context, tx *sqlx.Tx, cmd *domain.Command) (*domain.Response, error) {
	if tx.DriverName() == sqldb.DriverPostgres {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
			return nil, err
		}
	}

	var seen int
	err := tx.GetContext(ctx, &seen,
		tx.Rebind("SELECT COUNT(1) FROM pool_commands WHERE ref_id = ?"), cmd.CommandID.String())
	if err != nil {
		l.log.WithError(err).Error("select command failed")
		return nil, domain.ErrSelectCommandFailed
	}
	if seen > 0 {
		return nil, domain.ErrCommandAlreadyProcessed
	}

	var last int64
	if err := tx.GetContext(ctx, &last, "SELECT COALESCE(MAX(sequence), 0) FROM pool_commands"); err != nil {
		return nil, err
	}
	cmd.Sequence = uint64(last) + 1

	stx := store.NewTx(&sqlxKV{ctx: ctx, q: tx})
	resp, err := l.engine.Apply(stx, cmd)
	if err != nil {
		return nil, err
	}
	if err := stx.Commit(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	row := commandRow{
		Sequence:  int64(cmd.Sequence),
		RefID:     cmd.CommandID.String(),
		Type:      int64(cmd.Type),
		Sender:    cmd.Sender,
		Payload:   string(payload),
		CreatedAt: cmd.CreatedAt,
	}
	_, err = tx.NamedExecContext(ctx,
		`INSERT INTO pool_commands (sequence, ref_id, type, sender, payload, created_at)
		VALUES (:sequence, :ref_id, :type, :sender, :payload, :created_at)`, row)
	if err != nil {
		return nil, fmt.Errorf("insert command record: %w", err)
	}
	return resp, nil
}

func (l *Ledger) reader(ctx context.Context) store.KV {
	return &sqlxKV{ctx: ctx, q: l.db}
}

// GetPrincipal 取得帳戶本金
func (l *Ledger) GetPrincipal(ctx context.Context, account string) (uint64, error) {
	return l.engine.Principal(l.reader(ctx), account)
}

// GetGain 取得帳戶未提領收益
func (l *Ledger) GetGain(ctx context.Context, account string) (uint64, error) {
	return l.engine.Gain(l.reader(ctx), account)
}

// GetPoolState 取得池子狀態
func (l *Ledger) GetPoolState(ctx context.Context) (domain.PoolState, error) {
	return l.engine.State(l.reader(ctx))
}

// GetContractInfo 取得版本資訊
func (l *Ledger) GetContractInfo(ctx context.Context) (domain.ContractInfo, error) {
	return l.engine.ContractInfo(l.reader(ctx))
}

// ListAccounts 在同一個交易中讀取本金與收益
func (l *Ledger) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // 唯讀交易
	return l.engine.Accounts(&sqlxKV{ctx: ctx, q: tx})
}

// Commands 依序列出已處理的指令，給稽核或重建使用
func (l *Ledger) Commands(ctx context.Context, after uint64, limit int) ([]domain.Command, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []commandRow
	err := l.db.SelectContext(ctx, &rows, l.db.Rebind(
		"SELECT sequence, ref_id, type, sender, payload, created_at FROM pool_commands WHERE sequence > ? ORDER BY sequence LIMIT ?"),
		int64(after), limit)
	if err != nil {
		return nil, err
	}
	cmds := make([]domain.Command, 0, len(rows))
	for _, r := range rows {
		var cmd domain.Command
		if err := json.Unmarshal([]byte(r.Payload), &cmd); err != nil {
			return nil, fmt.Errorf("decode command %d: %w", r.Sequence, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

var (
	_ usecase.Ledger     = (*Ledger)(nil)
	_ usecase.CommandLog = (*Ledger)(nil)
)
