// Package engine 是質押池的記帳核心：存入、分配收益、提領與查詢。
//
// Engine 本身不保存任何狀態，所有資料都透過 store.KV 讀寫；
// 每次 Execute 都在 store.Tx 裡完成，任何錯誤都不會留下部分寫入。
package engine

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/store"
)

const (
	// ContractName 寫入 contract_info 的名稱
	ContractName = "go-stake-ledger"
	// ContractVersion 寫入 contract_info 的版本
	ContractVersion = "0.1.0"
	// DefaultDenom 預設認得的代幣
	DefaultDenom = "ubay"

	maxIdentityLen = 128
)

var (
	stateItem    = store.NewItem[domain.PoolState]("state")
	contractItem = store.NewItem[domain.ContractInfo]("contract_info")
	amountByUser = store.NewAmountMap("amount")
	gainByUser   = store.NewAmountMap("gain")
)

// Engine 記帳核心，只認得一種代幣
type Engine struct {
	denom string
}

// New 建立 Engine，denom 為空時使用 DefaultDenom
func New(denom string) *Engine {
	denom = strings.TrimSpace(denom)
	if denom == "" {
		denom = DefaultDenom
	}
	return &Engine{denom: denom}
}

// Denom 池子認得的代幣
func (e *Engine) Denom() string {
	return e.denom
}

// Execute 執行一個指令並寫回 kv；失敗時 kv 完全不變
func (e *Engine) Execute(kv store.KV, cmd *domain.Command) (*domain.Response, error) {
	tx := store.NewTx(kv)
	resp, err := e.Apply(tx, cmd)
	if err != nil {
		tx.Discard()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return resp, nil
}

// Apply 在 kv 上執行指令但不負責原子性
// 呼叫端必須傳入 store.Tx，並自行決定 Commit 或丟棄 (例如先寫 WAL 再 Commit)
func (e *Engine) Apply(kv store.KV, cmd *domain.Command) (*domain.Response, error) {
	info := cmd.Info()
	switch cmd.Type {
	case domain.CommandTypeInstantiate:
		return e.instantiate(kv, info, cmd.Admin)
	case domain.CommandTypeDeposit:
		return e.deposit(kv, info)
	case domain.CommandTypeDistribute:
		return e.distribute(kv, info)
	case domain.CommandTypeWithdraw:
		return e.withdraw(kv, info, cmd.Amount)
	default:
		return nil, domain.ErrUnknownCommand
	}
}

// verifyDeposit 取出附帶的池子代幣金額，沒有或為 0 時回傳 ErrInvalidDeposit
func (e *Engine) verifyDeposit(info domain.MessageInfo) (uint64, error) {
	amount, err := domain.AmountOf(info.Funds, e.denom)
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, domain.ErrInvalidDeposit
	}
	return amount, nil
}

func loadState(kv store.KV) (domain.PoolState, error) {
	state, ok, err := stateItem.MayLoad(kv)
	if err != nil {
		return state, err
	}
	if !ok {
		return state, domain.ErrNotInitialized
	}
	return state, nil
}

// ValidIdentity 身分不可為空、不可含空白或控制字元
func ValidIdentity(id string) bool {
	if id == "" || len(id) > maxIdentityLen {
		return false
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// StateKey 池子狀態所在的 key，SQL 帳本用它做悲觀鎖
func StateKey() []byte {
	return stateItem.Key()
}
