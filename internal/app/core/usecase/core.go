package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/metrics"
)

// CoreUseCase 是核心業務邏輯層
//
// 負責補齊指令的追蹤資訊、交給 Ledger 套用、在成功後送出對外轉帳，並記錄 log 與指標。
type CoreUseCase struct {
	ledger Ledger
	sender Sender
	denom  string
	log    *logrus.Entry
}

// NewCoreUseCase 建立 CoreUseCase，sender 可為 nil (轉帳指示只回傳不執行)
func NewCoreUseCase(ledger Ledger, sender Sender, denom string, log *logrus.Entry) *CoreUseCase {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &CoreUseCase{
		ledger: ledger,
		sender: sender,
		denom:  denom,
		log:    log.WithField("component", "usecase"),
	}
}

// Denom 池子認得的代幣
func (c *CoreUseCase) Denom() string {
	return c.denom
}

// Instantiate 初始化池子，admin 為空時使用 sender
func (c *CoreUseCase) Instantiate(ctx context.Context, sender, admin string) (*domain.Response, error) {
	return c.PostCommand(ctx, &domain.Command{
		Type:   domain.CommandTypeInstantiate,
		Sender: sender,
		Admin:  admin,
	})
}

// Deposit 存入本金
func (c *CoreUseCase) Deposit(ctx context.Context, sender string, funds []domain.Coin) (*domain.Response, error) {
	return c.PostCommand(ctx, &domain.Command{
		Type:   domain.CommandTypeDeposit,
		Sender: sender,
		Funds:  funds,
	})
}

// Distribute admin 注入收益
func (c *CoreUseCase) Distribute(ctx context.Context, sender string, funds []domain.Coin) (*domain.Response, error) {
	return c.PostCommand(ctx, &domain.Command{
		Type:   domain.CommandTypeDistribute,
		Sender: sender,
		Funds:  funds,
	})
}

// Withdraw 提領本金與等比例收益
func (c *CoreUseCase) Withdraw(ctx context.Context, sender string, amount uint64) (*domain.Response, error) {
	return c.PostCommand(ctx, &domain.Command{
		Type:   domain.CommandTypeWithdraw,
		Sender: sender,
		Amount: amount,
	})
}

// PostCommand 處理指令
//
// CommandID 為空時自動產生；帶入相同 CommandID 重送會得到 domain.ErrCommandAlreadyProcessed。
// 轉帳在帳本提交後才送出，送出失敗只記錄 log，帳本不回滾。
func (c *CoreUseCase) PostCommand(ctx context.Context, cmd *domain.Command) (*domain.Response, error) {
	if cmd.CommandID == uuid.Nil {
		cmd.CommandID = uuid.New()
	}
	if cmd.CreatedAt == 0 {
		cmd.CreatedAt = time.Now().UnixNano()
	}

	entry := c.log.WithFields(logrus.Fields{
		"command_id": cmd.CommandID.String(),
		"type":       cmd.Type.String(),
		"sender":     cmd.Sender,
	})

	start := time.Now()
	resp, err := c.ledger.PostCommand(ctx, cmd)
	if err != nil {
		metrics.RecordCommand(cmd.Type.String(), domain.ErrorKind(err), time.Since(start))
		if isClientError(err) {
			entry.WithError(err).Info("command rejected")
		} else {
			entry.WithError(err).Error("command failed")
		}
		return nil, err
	}
	metrics.RecordCommand(cmd.Type.String(), "ok", time.Since(start))
	entry.WithField("sequence", cmd.Sequence).Debug("command applied")

	c.dispatchTransfers(ctx, entry, resp.Transfers)
	c.refreshPoolTotal(ctx)
	return resp, nil
}

func (c *CoreUseCase) dispatchTransfers(ctx context.Context, entry *logrus.Entry, transfers []domain.Transfer) {
	for _, t := range transfers {
		if amount, err := domain.AmountOf(t.Amount, c.denom); err == nil {
			metrics.AddPayout(amount)
		}
		if c.sender == nil {
			continue
		}
		if err := c.sender.Send(ctx, t); err != nil {
			entry.WithError(err).WithField("to", t.ToAddress).Error("transfer dispatch failed")
		}
	}
}

func (c *CoreUseCase) refreshPoolTotal(ctx context.Context) {
	state, err := c.ledger.GetPoolState(ctx)
	if err != nil {
		return
	}
	metrics.SetPoolTotal(state.PoolTotalAmount)
}

// GetPrincipal 帳戶本金
func (c *CoreUseCase) GetPrincipal(ctx context.Context, account string) (uint64, error) {
	return c.ledger.GetPrincipal(ctx, account)
}

// GetGain 帳戶未提領收益
func (c *CoreUseCase) GetGain(ctx context.Context, account string) (uint64, error) {
	return c.ledger.GetGain(ctx, account)
}

// GetPoolTotal 池子總額
func (c *CoreUseCase) GetPoolTotal(ctx context.Context) (uint64, error) {
	state, err := c.ledger.GetPoolState(ctx)
	if err != nil {
		return 0, err
	}
	return state.PoolTotalAmount, nil
}

// GetPoolState 池子狀態
func (c *CoreUseCase) GetPoolState(ctx context.Context) (domain.PoolState, error) {
	return c.ledger.GetPoolState(ctx)
}

// GetContractInfo 版本資訊
func (c *CoreUseCase) GetContractInfo(ctx context.Context) (domain.ContractInfo, error) {
	return c.ledger.GetContractInfo(ctx)
}

// ListAccounts 所有帳戶
func (c *CoreUseCase) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return c.ledger.ListAccounts(ctx)
}

// ErrUnsupported 目前的帳本或 Sender 沒有提供此查詢
var ErrUnsupported = errors.New("usecase: not supported by the configured backend")

// MaxCommandPage Commands 單次最多回傳的筆數
const MaxCommandPage = 1000

// Commands 列出 sequence 大於 after 的指令，帳本不是 CommandLog 時回傳 ErrUnsupported
func (c *CoreUseCase) Commands(ctx context.Context, after uint64, limit int) ([]domain.Command, error) {
	log, ok := c.ledger.(CommandLog)
	if !ok {
		return nil, ErrUnsupported
	}
	if limit <= 0 || limit > MaxCommandPage {
		limit = MaxCommandPage
	}
	return log.Commands(ctx, after, limit)
}

// RecentTransfers 最近送出的轉帳，Sender 不是 TransferLog 時回傳 ErrUnsupported
func (c *CoreUseCase) RecentTransfers() ([]domain.Transfer, error) {
	log, ok := c.sender.(TransferLog)
	if !ok {
		return nil, ErrUnsupported
	}
	return log.Recent(), nil
}

// EnsureInstantiated 池子尚未初始化時以 sender/admin 初始化，已初始化則不動作
func (c *CoreUseCase) EnsureInstantiated(ctx context.Context, sender, admin string) error {
	_, err := c.ledger.GetPoolState(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotInitialized) {
		return err
	}
	_, err = c.Instantiate(ctx, sender, admin)
	if errors.Is(err, domain.ErrAlreadyInitialized) {
		return nil
	}
	return err
}

// isClientError 呼叫端造成的錯誤，不需要用 Error 等級記錄
func isClientError(err error) bool {
	switch domain.ErrorKind(err) {
	case domain.KindInternal, domain.KindArithmeticOverflow, domain.KindArithmeticUnderflow, domain.KindDivisionByZero:
		return false
	default:
		return true
	}
}
