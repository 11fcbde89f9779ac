package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/engine"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-stake-ledger/pkg/logger"
	pb "github.com/JoeShih716/go-stake-ledger/proto"
)

const denom = engine.DefaultDenom

func startServer(t *testing.T) pb.PoolServiceClient {
	t.Helper()
	ledger, err := memory.NewMutexLedger(engine.New(denom), nil)
	require.NoError(t, err)
	core := usecase.NewCoreUseCase(ledger, nil, denom, logger.Discard())

	lis := bufconn.Listen(1 << 20)
	s := NewServer(core, logger.Discard())
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return pb.NewPoolServiceClient(conn)
}

func TestNewServer_RegistersOnlyPoolService(t *testing.T) {
	ledger, err := memory.NewMutexLedger(engine.New(denom), nil)
	require.NoError(t, err)
	s := NewServer(usecase.NewCoreUseCase(ledger, nil, denom, logger.Discard()), logger.Discard())
	defer s.Stop()

	info := s.GetServiceInfo()
	require.Len(t, info, 1)
	svc, ok := info[pb.PoolService_ServiceName]
	require.True(t, ok)
	assert.Len(t, svc.Methods, len(pb.PoolService_ServiceDesc.Methods))
}

func coins(amount uint64) []*pb.Coin {
	return []*pb.Coin{{Denom: denom, Amount: amount}}
}

func TestGrpcServer_Flow(t *testing.T) {
	ctx := context.Background()
	c := startServer(t)

	_, err := c.GetPoolTotal(ctx, &emptypb.Empty{})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	resp, err := c.Instantiate(ctx, &pb.InstantiateRequest{Sender: "creator"})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.Message)

	for _, acc := range []string{"anyone1", "anyone2", "anyone3"} {
		resp, err := c.Deposit(ctx, &pb.DepositRequest{Sender: acc, Funds: coins(2_000_000)})
		require.NoError(t, err)
		require.True(t, resp.Success, resp.Message)
	}
	resp, err = c.Distribute(ctx, &pb.DistributeRequest{Sender: "creator", Funds: coins(2_000_000)})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.Message)

	gain, err := c.GetGain(ctx, &pb.AccountRequest{Account: "anyone1"})
	require.NoError(t, err)
	assert.Equal(t, uint64(666_666), gain.Amount)

	total, err := c.GetPoolTotal(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, uint64(8_000_000), total.Amount)

	resp, err = c.Withdraw(ctx, &pb.WithdrawRequest{Sender: "anyone1", Amount: 2_000_000})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.Message)
	require.Len(t, resp.Transfers, 1)
	assert.Equal(t, "anyone1", resp.Transfers[0].ToAddress)
	assert.Equal(t, uint64(2_666_666), resp.Transfers[0].Amount[0].Amount)

	principal, err := c.GetPrincipal(ctx, &pb.AccountRequest{Account: "anyone1"})
	require.NoError(t, err)
	assert.Zero(t, principal.Amount)

	state, err := c.GetPoolState(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "creator", state.Admin)
	assert.Equal(t, uint64(6_000_000), state.PoolTotalAmount)
	assert.Equal(t, engine.ContractVersion, state.Version)
}

func TestGrpcServer_SoftFailures(t *testing.T) {
	ctx := context.Background()
	c := startServer(t)

	_, err := c.Instantiate(ctx, &pb.InstantiateRequest{Sender: "creator"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		call     func() (*pb.CommandResponse, error)
		wantKind string
		wantArg  string
	}{
		{
			name: "非 admin 分配",
			call: func() (*pb.CommandResponse, error) {
				return c.Distribute(ctx, &pb.DistributeRequest{Sender: "anyone", Funds: coins(1)})
			},
			wantKind: domain.KindUnauthorized,
		},
		{
			name: "沒有附帶資金",
			call: func() (*pb.CommandResponse, error) {
				return c.Deposit(ctx, &pb.DepositRequest{Sender: "anyone"})
			},
			wantKind: domain.KindInvalidDeposit,
		},
		{
			name: "提領 0",
			call: func() (*pb.CommandResponse, error) {
				return c.Withdraw(ctx, &pb.WithdrawRequest{Sender: "anyone", Amount: 0})
			},
			wantKind: domain.KindInvalidArgument,
			wantArg:  "amount",
		},
		{
			name: "command_id 格式錯誤",
			call: func() (*pb.CommandResponse, error) {
				return c.Deposit(ctx, &pb.DepositRequest{CommandId: "nope", Sender: "anyone", Funds: coins(1)})
			},
			wantKind: domain.KindInvalidArgument,
			wantArg:  "command_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.call()
			require.NoError(t, err)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantKind, resp.ErrorKind)
			assert.Equal(t, tt.wantArg, resp.Argument)
		})
	}
}

func TestGrpcServer_DuplicateCommandID(t *testing.T) {
	ctx := context.Background()
	c := startServer(t)
	_, err := c.Instantiate(ctx, &pb.InstantiateRequest{Sender: "creator"})
	require.NoError(t, err)

	id := uuid.NewString()
	resp, err := c.Deposit(ctx, &pb.DepositRequest{CommandId: id, Sender: "anyone", Funds: coins(5)})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, id, resp.CommandId)

	resp, err = c.Deposit(ctx, &pb.DepositRequest{CommandId: id, Sender: "anyone", Funds: coins(5)})
	require.NoError(t, err)
	assert.Equal(t, domain.KindAlreadyProcessed, resp.ErrorKind)

	principal, err := c.GetPrincipal(ctx, &pb.AccountRequest{Account: "anyone"})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), principal.Amount)
}
