package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/engine"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-stake-ledger/pkg/wal"
)

// ErrLedgerStopped 核心迴圈已經停止
var ErrLedgerStopped = errors.New("ledger stopped")

// commandRequest 指令請求包裝channel，讓PostCommand可以等待結果
type commandRequest struct {
	Cmd    *domain.Command
	Result chan commandResult // 讓 PostCommand 等這個 channel
}

type commandResult struct {
	resp *domain.Response
	err  error
}

// LMAXLedger 單一寫入者的帳本
//
// 所有指令經由 channel 交給同一個 goroutine 依序處理，寫入路徑不需要鎖。
// 查詢直接讀 MemoryStore (本身是 thread-safe，且 Commit 一次套用整批寫入)。
type LMAXLedger struct {
	book *book
	// 輸送帶 負責接收指令
	commandChan chan *commandRequest
	// Pool 減少 GC 壓力
	requestPool sync.Pool
	// 核心迴圈結束後關閉
	done    chan struct{}
	started sync.Once
}

// NewLMAXLedger 建立一個新的 LMAXLedger 實例，必須呼叫 Start 才會開始處理指令
//
// 參數:
//
//	eng: 記帳核心
//	wal: Write-Ahead Log 實例，可為 nil
//
// 回傳:
//
//	*LMAXLedger: LMAXLedger 實例
//	error: 初始化錯誤
func NewLMAXLedger(eng *engine.Engine, wal *wal.WAL) (*LMAXLedger, error) {
	ledger := &LMAXLedger{
		book:        newBook(eng, wal),
		commandChan: make(chan *commandRequest, 1000), // Buffer 1000
		done:        make(chan struct{}),
		requestPool: sync.Pool{
			New: func() interface{} {
				return &commandRequest{
					Result: make(chan commandResult, 1),
				}
			},
		},
	}

	// 在啟動前先恢復資料
	if err := ledger.book.recoverFromWAL(); err != nil {
		return nil, err
	}
	return ledger, nil
}

// PostCommand 接收指令請求
//
// PostCommand(等待) -> Channel -> Run Loop (核心) -> Tx -> WAL -> Commit -> Result Channel -> PostCommand(收到結果)
//
// ctx 取消時立即返回，但已經進入輸送帶的指令仍會被執行。
func (l *LMAXLedger) PostCommand(ctx context.Context, cmd *domain.Command) (*domain.Response, error) {
	req := l.requestPool.Get().(*commandRequest)
	req.Cmd = cmd

	select {
	case l.commandChan <- req:
	case <-ctx.Done():
		l.requestPool.Put(req)
		return nil, ctx.Err()
	case <-l.done:
		l.requestPool.Put(req)
		return nil, ErrLedgerStopped
	}

	select {
	case res := <-req.Result:
		req.Cmd = nil
		l.requestPool.Put(req)
		return res.resp, res.err
	case <-ctx.Done():
		// 核心迴圈之後還會寫入 Result，這個 req 不能放回 Pool
		return nil, ctx.Err()
	case <-l.done:
		// 迴圈在 drain 之後才關閉 done，結果若有就一定已經在 channel 裡
		select {
		case res := <-req.Result:
			return res.resp, res.err
		default:
			return nil, ErrLedgerStopped
		}
	}
}

// Start 啟動核心引擎 (非同步)，ctx 結束後處理完輸送帶上剩下的指令才停止
func (l *LMAXLedger) Start(ctx context.Context) {
	l.started.Do(func() {
		go l.run(ctx)
	})
}

// Done 核心迴圈停止後關閉
func (l *LMAXLedger) Done() <-chan struct{} {
	return l.done
}

func (l *LMAXLedger) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			// 收到關閉信號，把剩下的指令處理完
			l.drain()
			return
		case req := <-l.commandChan:
			l.processCommand(req)
		}
	}
}

func (l *LMAXLedger) drain() {
	for {
		select {
		case req := <-l.commandChan:
			l.processCommand(req)
		default:
			return
		}
	}
}

// processCommand 處理單筆指令並回傳結果
func (l *LMAXLedger) processCommand(req *commandRequest) {
	resp, err := l.book.apply(req.Cmd)
	req.Result <- commandResult{resp: resp, err: err}
}

// GetPrincipal 取得帳戶本金
func (l *LMAXLedger) GetPrincipal(ctx context.Context, account string) (uint64, error) {
	return l.book.engine.Principal(l.book.state, account)
}

// GetGain 取得帳戶未提領收益
func (l *LMAXLedger) GetGain(ctx context.Context, account string) (uint64, error) {
	return l.book.engine.Gain(l.book.state, account)
}

// GetPoolState 取得池子狀態
func (l *LMAXLedger) GetPoolState(ctx context.Context) (domain.PoolState, error) {
	return l.book.engine.State(l.book.state)
}

// GetContractInfo 取得版本資訊
func (l *LMAXLedger) GetContractInfo(ctx context.Context) (domain.ContractInfo, error) {
	return l.book.engine.ContractInfo(l.book.state)
}

// ListAccounts 在快照上列出帳戶，避免讀到兩次 Commit 之間的資料
func (l *LMAXLedger) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return l.book.engine.Accounts(l.book.state.Snapshot())
}

var _ usecase.Ledger = (*LMAXLedger)(nil)
