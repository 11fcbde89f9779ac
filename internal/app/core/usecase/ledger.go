package usecase

import (
	"context"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
)

// Ledger 是帳本儲存的介面
//
// 實作必須保證：
//   - 指令依序套用，失敗的指令不留下任何痕跡
//   - 相同 CommandID 只會被套用一次，第二次回傳 domain.ErrCommandAlreadyProcessed
//   - CommandID 為 uuid.Nil 的指令一律拒絕 (domain.Command.CheckID)，不佔序號也不留紀錄
type Ledger interface {
	// PostCommand 套用一個指令，成功時回傳結果 (含對外轉帳指示)
	PostCommand(ctx context.Context, cmd *domain.Command) (*domain.Response, error)
	// GetPrincipal 帳戶本金
	GetPrincipal(ctx context.Context, account string) (uint64, error)
	// GetGain 帳戶未提領收益
	GetGain(ctx context.Context, account string) (uint64, error)
	// GetPoolState 池子狀態
	GetPoolState(ctx context.Context) (domain.PoolState, error)
	// GetContractInfo 初始化時紀錄的版本資訊
	GetContractInfo(ctx context.Context) (domain.ContractInfo, error)
	// ListAccounts 所有帳戶，依身分遞增
	ListAccounts(ctx context.Context) ([]domain.Account, error)
}

// CommandLog 能依序列出已處理指令的帳本 (SQL 後端) 另外實作此介面
type CommandLog interface {
	// Commands sequence 大於 after 的指令，依 sequence 遞增，最多 limit 筆
	Commands(ctx context.Context, after uint64, limit int) ([]domain.Command, error)
}

// TransferLog 保留最近轉帳的 Sender 另外實作此介面
type TransferLog interface {
	Recent() []domain.Transfer
}

// Sender 執行提領產生的對外轉帳
type Sender interface {
	Send(ctx context.Context, transfer domain.Transfer) error
}
