package bank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/pkg/logger"
)

func TestLogSender_KeepsRecent(t *testing.T) {
	s := NewLogSender(logger.Discard(), 2)
	ctx := context.Background()

	for _, to := range []string{"a", "b", "c"} {
		require.NoError(t, s.Send(ctx, domain.Transfer{ToAddress: to, Amount: domain.Coins(1, "ubay")}))
	}

	recent := s.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].ToAddress)
	assert.Equal(t, "c", recent[1].ToAddress)
}

func TestLogSender_CanceledContext(t *testing.T) {
	s := NewLogSender(logger.Discard(), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Send(ctx, domain.Transfer{ToAddress: "a"}), context.Canceled)
	assert.Empty(t, s.Recent())
}
