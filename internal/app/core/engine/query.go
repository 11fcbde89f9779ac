package engine

import (
	"fmt"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/store"
)

// Principal 帳戶目前的本金，從未存入過為 0
func (e *Engine) Principal(kv store.KV, account string) (uint64, error) {
	return amountByUser.MayLoad(kv, account)
}

// Gain 帳戶尚未提領的收益，從未分到過為 0
func (e *Engine) Gain(kv store.KV, account string) (uint64, error) {
	return gainByUser.MayLoad(kv, account)
}

// PoolTotal 池子總額
func (e *Engine) PoolTotal(kv store.KV) (uint64, error) {
	state, err := loadState(kv)
	if err != nil {
		return 0, err
	}
	return state.PoolTotalAmount, nil
}

// State 池子完整狀態
func (e *Engine) State(kv store.KV) (domain.PoolState, error) {
	return loadState(kv)
}

// ContractInfo 初始化時寫入的版本資訊
func (e *Engine) ContractInfo(kv store.KV) (domain.ContractInfo, error) {
	info, err := contractItem.Load(kv)
	if isNotFound(err) {
		return info, domain.ErrNotInitialized
	}
	return info, err
}

// Accounts 依身分遞增列出所有帳戶 (本金或收益任一有紀錄即列出)
func (e *Engine) Accounts(kv store.KV) ([]domain.Account, error) {
	accounts := make([]domain.Account, 0)
	index := make(map[string]int)

	err := amountByUser.Range(kv, func(account string, principal uint64) error {
		index[account] = len(accounts)
		accounts = append(accounts, domain.Account{ID: account, Principal: principal})
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = gainByUser.Range(kv, func(account string, gain uint64) error {
		i, ok := index[account]
		if !ok {
			// 收益只會透過 Distribute 發給有本金的帳戶，正常不會走到這裡
			index[account] = len(accounts)
			accounts = append(accounts, domain.Account{ID: account, Gain: gain})
			return nil
		}
		accounts[i].Gain = gain
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// CheckInvariants 檢查帳本不變量
//
//	PoolTotalAmount == Σ本金 + TotalYield
//	Σ收益 + TotalGainPaid <= TotalYield (差額是分配時截斷的零頭)
func (e *Engine) CheckInvariants(kv store.KV) error {
	state, err := loadState(kv)
	if err != nil {
		return err
	}
	accounts, err := e.Accounts(kv)
	if err != nil {
		return err
	}

	var principals, gains uint64
	for _, acc := range accounts {
		if principals, err = domain.CheckedAdd(principals, acc.Principal); err != nil {
			return fmt.Errorf("%w: principal sum: %v", domain.ErrInvariantViolated, err)
		}
		if gains, err = domain.CheckedAdd(gains, acc.Gain); err != nil {
			return fmt.Errorf("%w: gain sum: %v", domain.ErrInvariantViolated, err)
		}
	}

	expected, err := domain.CheckedAdd(principals, state.TotalYield)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvariantViolated, err)
	}
	if state.PoolTotalAmount != expected {
		return fmt.Errorf("%w: pool total %d != principal %d + yield %d",
			domain.ErrInvariantViolated, state.PoolTotalAmount, principals, state.TotalYield)
	}

	owed, err := domain.CheckedAdd(gains, state.TotalGainPaid)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvariantViolated, err)
	}
	if owed > state.TotalYield {
		return fmt.Errorf("%w: gain %d + paid %d exceeds yield %d",
			domain.ErrInvariantViolated, gains, state.TotalGainPaid, state.TotalYield)
	}
	return nil
}
