package engine

import (
	"strconv"
	"strings"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/store"
)

// instantiate 建立池子狀態，admin 不合法時退回使用呼叫者
func (e *Engine) instantiate(kv store.KV, info domain.MessageInfo, admin string) (*domain.Response, error) {
	if _, ok, err := stateItem.MayLoad(kv); err != nil {
		return nil, err
	} else if ok {
		return nil, domain.ErrAlreadyInitialized
	}

	admin = strings.TrimSpace(admin)
	if !ValidIdentity(admin) {
		admin = info.Sender
	}
	if !ValidIdentity(admin) {
		return nil, domain.NewArgumentError("admin")
	}

	if err := contractItem.Save(kv, domain.ContractInfo{
		Contract: ContractName,
		Version:  ContractVersion,
	}); err != nil {
		return nil, err
	}
	if err := stateItem.Save(kv, domain.PoolState{Admin: admin}); err != nil {
		return nil, err
	}

	return domain.NewResponse().
		AddAttribute("method", "instantiate").
		AddAttribute("admin", admin), nil
}

// deposit 本金與池子總額同時增加
func (e *Engine) deposit(kv store.KV, info domain.MessageInfo) (*domain.Response, error) {
	amount, err := e.verifyDeposit(info)
	if err != nil {
		return nil, err
	}
	if !ValidIdentity(info.Sender) {
		return nil, domain.NewArgumentError("sender")
	}
	state, err := loadState(kv)
	if err != nil {
		return nil, err
	}

	principal, err := amountByUser.Update(kv, info.Sender, func(balance uint64) (uint64, error) {
		return domain.CheckedAdd(balance, amount)
	})
	if err != nil {
		return nil, err
	}
	if state.PoolTotalAmount, err = domain.CheckedAdd(state.PoolTotalAmount, amount); err != nil {
		return nil, err
	}
	if err := stateItem.Save(kv, state); err != nil {
		return nil, err
	}

	return domain.NewResponse().
		AddAttribute("method", "deposit").
		AddAttribute("sender", info.Sender).
		AddAttribute("amount", formatAmount(amount)).
		AddAttribute("principal", formatAmount(principal)), nil
}

type holding struct {
	account   string
	principal uint64
}

// distribute admin 注入收益，依注入當下的本金比例分給每個帳戶
//
// 分母 T 在任何寫入前就固定下來；每個帳戶拿 floor(p * amount / T)，
// 截斷剩下的零頭不追蹤也不重新分配，只記在 residual 標記裡。
func (e *Engine) distribute(kv store.KV, info domain.MessageInfo) (*domain.Response, error) {
	state, err := loadState(kv)
	if err != nil {
		return nil, err
	}
	if info.Sender != state.Admin {
		return nil, domain.ErrUnauthorized
	}
	amount, err := e.verifyDeposit(info)
	if err != nil {
		return nil, err
	}

	total := state.PoolTotalAmount
	holders := make([]holding, 0)
	err = amountByUser.Range(kv, func(account string, principal uint64) error {
		if principal > 0 {
			holders = append(holders, holding{account: account, principal: principal})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(holders) == 0 {
		return nil, domain.ErrEmptyPool
	}

	var distributed uint64
	for _, h := range holders {
		delta, err := domain.MulDivFloor(h.principal, amount, total)
		if err != nil {
			return nil, err
		}
		if delta == 0 {
			continue
		}
		if _, err := gainByUser.Update(kv, h.account, func(gain uint64) (uint64, error) {
			return domain.CheckedAdd(gain, delta)
		}); err != nil {
			return nil, err
		}
		if distributed, err = domain.CheckedAdd(distributed, delta); err != nil {
			return nil, err
		}
	}

	if state.PoolTotalAmount, err = domain.CheckedAdd(total, amount); err != nil {
		return nil, err
	}
	if state.TotalYield, err = domain.CheckedAdd(state.TotalYield, amount); err != nil {
		return nil, err
	}
	if err := stateItem.Save(kv, state); err != nil {
		return nil, err
	}

	return domain.NewResponse().
		AddAttribute("method", "distribute").
		AddAttribute("amount", formatAmount(amount)).
		AddAttribute("accounts", strconv.Itoa(len(holders))).
		AddAttribute("distributed", formatAmount(distributed)).
		AddAttribute("residual", formatAmount(amount-distributed)), nil
}

// withdraw 提領本金，收益依相同比例一起提領
func (e *Engine) withdraw(kv store.KV, info domain.MessageInfo, amount uint64) (*domain.Response, error) {
	state, err := loadState(kv)
	if err != nil {
		return nil, err
	}
	principal, err := amountByUser.MayLoad(kv, info.Sender)
	if err != nil {
		return nil, err
	}
	gain, err := gainByUser.MayLoad(kv, info.Sender)
	if err != nil {
		return nil, err
	}
	if amount == 0 || amount > principal {
		return nil, domain.NewArgumentError("amount")
	}

	// amount <= principal，所以 gainOut <= gain；全額提領時 gainOut == gain
	gainOut, err := domain.MulDivFloor(amount, gain, principal)
	if err != nil {
		return nil, err
	}

	if _, err := gainByUser.Update(kv, info.Sender, func(before uint64) (uint64, error) {
		return domain.CheckedSub(before, gainOut)
	}); err != nil {
		return nil, err
	}
	if _, err := amountByUser.Update(kv, info.Sender, func(before uint64) (uint64, error) {
		return domain.CheckedSub(before, amount)
	}); err != nil {
		return nil, err
	}
	if state.PoolTotalAmount, err = domain.CheckedSub(state.PoolTotalAmount, amount); err != nil {
		return nil, err
	}
	if state.TotalGainPaid, err = domain.CheckedAdd(state.TotalGainPaid, gainOut); err != nil {
		return nil, err
	}
	if err := stateItem.Save(kv, state); err != nil {
		return nil, err
	}

	payout, err := domain.CheckedAdd(amount, gainOut)
	if err != nil {
		return nil, err
	}

	return domain.NewResponse().
		AddTransfer(domain.Transfer{
			ToAddress: info.Sender,
			Amount:    domain.Coins(payout, e.denom),
		}).
		AddAttribute("action", "withdraw").
		AddAttribute("to", info.Sender).
		AddAttribute("principal", formatAmount(amount)).
		AddAttribute("gain", formatAmount(gainOut)), nil
}
