package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/engine"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-stake-ledger/pkg/logger"
)

type recordingSender struct {
	mu        sync.Mutex
	transfers []domain.Transfer
	err       error
}

func (s *recordingSender) Send(_ context.Context, t domain.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers = append(s.transfers, t)
	return s.err
}

func newCore(t *testing.T, sender usecase.Sender) *usecase.CoreUseCase {
	t.Helper()
	ledger, err := memory.NewMutexLedger(engine.New(engine.DefaultDenom), nil)
	require.NoError(t, err)
	return usecase.NewCoreUseCase(ledger, sender, engine.DefaultDenom, logger.Discard())
}

func TestCoreUseCase_WithdrawSendsTransfer(t *testing.T) {
	ctx := context.Background()
	sender := &recordingSender{}
	core := newCore(t, sender)

	require.NoError(t, core.EnsureInstantiated(ctx, "creator", ""))
	_, err := core.Deposit(ctx, "anyone", domain.Coins(2_000_000, engine.DefaultDenom))
	require.NoError(t, err)
	_, err = core.Distribute(ctx, "creator", domain.Coins(2_000_000, engine.DefaultDenom))
	require.NoError(t, err)

	resp, err := core.Withdraw(ctx, "anyone", 1_000_000)
	require.NoError(t, err)
	require.Len(t, resp.Transfers, 1)

	require.Len(t, sender.transfers, 1)
	assert.Equal(t, domain.Transfer{
		ToAddress: "anyone",
		Amount:    domain.Coins(2_000_000, engine.DefaultDenom),
	}, sender.transfers[0])

	total, err := core.GetPoolTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3_000_000), total)
}

func TestCoreUseCase_SendFailureKeepsLedger(t *testing.T) {
	ctx := context.Background()
	sender := &recordingSender{err: errors.New("bank down")}
	core := newCore(t, sender)

	require.NoError(t, core.EnsureInstantiated(ctx, "creator", ""))
	_, err := core.Deposit(ctx, "anyone", domain.Coins(500, engine.DefaultDenom))
	require.NoError(t, err)

	_, err = core.Withdraw(ctx, "anyone", 500)
	require.NoError(t, err)

	principal, err := core.GetPrincipal(ctx, "anyone")
	require.NoError(t, err)
	assert.Zero(t, principal)
}

func TestCoreUseCase_EnsureInstantiatedOnce(t *testing.T) {
	ctx := context.Background()
	core := newCore(t, nil)

	require.NoError(t, core.EnsureInstantiated(ctx, "creator", "treasury"))
	require.NoError(t, core.EnsureInstantiated(ctx, "someone", "other"))

	state, err := core.GetPoolState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "treasury", state.Admin)

	info, err := core.GetContractInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.ContractName, info.Contract)
}

func TestCoreUseCase_PostCommandFillsTracking(t *testing.T) {
	ctx := context.Background()
	core := newCore(t, nil)
	require.NoError(t, core.EnsureInstantiated(ctx, "creator", ""))

	cmd := &domain.Command{
		Type:   domain.CommandTypeDeposit,
		Sender: "anyone",
		Funds:  domain.Coins(1, engine.DefaultDenom),
	}
	_, err := core.PostCommand(ctx, cmd)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, cmd.CommandID)
	assert.NotZero(t, cmd.CreatedAt)
	assert.Equal(t, uint64(2), cmd.Sequence)

	_, err = core.PostCommand(ctx, cmd)
	assert.ErrorIs(t, err, domain.ErrCommandAlreadyProcessed)
}

func TestCoreUseCase_Rejections(t *testing.T) {
	ctx := context.Background()
	core := newCore(t, nil)

	_, err := core.Deposit(ctx, "anyone", domain.Coins(1, engine.DefaultDenom))
	assert.ErrorIs(t, err, domain.ErrNotInitialized)

	require.NoError(t, core.EnsureInstantiated(ctx, "creator", ""))
	_, err = core.Distribute(ctx, "anyone", domain.Coins(1, engine.DefaultDenom))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = core.Withdraw(ctx, "anyone", 0)
	assert.Equal(t, "amount", domain.ArgumentName(err))

	accounts, err := core.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}
