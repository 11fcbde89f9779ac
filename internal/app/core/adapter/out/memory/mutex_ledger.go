package memory

import (
	"context"
	"sync"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/engine"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-stake-ledger/pkg/wal"
)

// MutexLedger 是一個使用 Mutex 實現的帳本
//
// 結構:
//
//	book: 帳本資料、冪等紀錄與 WAL
//	mu: 寫入獨占，查詢共用
type MutexLedger struct {
	book *book
	mu   sync.RWMutex
}

// NewMutexLedger 建立一個新的 MutexLedger 實例
//
// 參數:
//
//	eng: 記帳核心
//	wal: Write-Ahead Log 實例，可為 nil (不落盤)
//
// 回傳:
//
//	*MutexLedger: MutexLedger 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewMutexLedger(eng *engine.Engine, wal *wal.WAL) (*MutexLedger, error) {
	ledger := &MutexLedger{
		book: newBook(eng, wal),
	}
	if err := ledger.book.recoverFromWAL(); err != nil {
		return nil, err
	}
	return ledger, nil
}

// PostCommand 處理指令 (Level 1: Mutex Lock)
//
// 參數:
//
//	ctx: 上下文
//	cmd: 指令，成功後 cmd.Sequence 會被填入
//
// 回傳:
//
//	*domain.Response: 執行結果
//	error: 處理錯誤
func (m *MutexLedger) PostCommand(ctx context.Context, cmd *domain.Command) (*domain.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.apply(cmd)
}

// GetPrincipal 取得帳戶本金
func (m *MutexLedger) GetPrincipal(ctx context.Context, account string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.engine.Principal(m.book.state, account)
}

// GetGain 取得帳戶未提領收益
func (m *MutexLedger) GetGain(ctx context.Context, account string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.engine.Gain(m.book.state, account)
}

// GetPoolState 取得池子狀態
func (m *MutexLedger) GetPoolState(ctx context.Context) (domain.PoolState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.engine.State(m.book.state)
}

// GetContractInfo 取得版本資訊
func (m *MutexLedger) GetContractInfo(ctx context.Context) (domain.ContractInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.engine.ContractInfo(m.book.state)
}

// ListAccounts 列出所有帳戶
func (m *MutexLedger) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.engine.Accounts(m.book.state)
}

// CheckInvariants 檢查帳本不變量
func (m *MutexLedger) CheckInvariants() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.engine.CheckInvariants(m.book.state)
}

var _ usecase.Ledger = (*MutexLedger)(nil)
