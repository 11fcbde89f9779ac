package domain

import "github.com/google/uuid"

// CommandType 指令類型
// 為了極致節省記憶體，使用 uint8
type CommandType uint8

const (
	// 初始化池子
	CommandTypeInstantiate CommandType = 1
	// 存入本金
	CommandTypeDeposit CommandType = 2
	// admin 注入收益並分配
	CommandTypeDistribute CommandType = 3
	// 提領本金 (連同等比例的收益)
	CommandTypeWithdraw CommandType = 4
)

func (t CommandType) String() string {
	switch t {
	case CommandTypeInstantiate:
		return "instantiate"
	case CommandTypeDeposit:
		return "deposit"
	case CommandTypeDistribute:
		return "distribute"
	case CommandTypeWithdraw:
		return "withdraw"
	default:
		return "unknown"
	}
}

// MessageInfo 呼叫者身分與附帶的資金
type MessageInfo struct {
	Sender string
	Funds  []Coin
}

// Command 會改變帳本狀態的指令 注意欄位排序以避免 Padding
type Command struct {
	// Sequence: 由 Ledger 分配的順序號，用於 WAL 重放確保順序一致
	Sequence uint64 `json:"sequence"`
	// Amount: Withdraw 要提領的本金
	Amount uint64 `json:"amount,omitempty"`
	// CreatedAt: 指令時間 (UnixNano)
	CreatedAt int64 `json:"created_at"`
	// CommandID: 外部追蹤號 (UUID)，用於冪等
	CommandID uuid.UUID `json:"command_id"`
	// Sender: 已驗證過的呼叫者身分
	Sender string `json:"sender"`
	// Admin: Instantiate 指定的 admin，空字串代表使用 Sender
	Admin string `json:"admin,omitempty"`
	// Funds: 呼叫附帶的資金
	Funds []Coin `json:"funds,omitempty"`
	// Type: 放到最後面，利用 Padding 空間
	Type CommandType `json:"type"`
}

// Info 回傳呼叫者與資金
func (c *Command) Info() MessageInfo {
	return MessageInfo{
		Sender: c.Sender,
		Funds:  c.Funds,
	}
}

// CheckID 帳本只接受帶 CommandID 的指令，uuid.Nil 回傳 InvalidArgument(command_id)
func (c *Command) CheckID() error {
	if c.CommandID == uuid.Nil {
		return NewArgumentError("command_id")
	}
	return nil
}
