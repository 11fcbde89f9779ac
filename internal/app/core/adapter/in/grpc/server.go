package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
	pb "github.com/JoeShih716/go-stake-ledger/proto"
)

type GrpcServer struct {
	pb.UnimplementedPoolServiceServer
	core *usecase.CoreUseCase
}

func NewGrpcServer(core *usecase.CoreUseCase) *GrpcServer {
	return &GrpcServer{
		core: core,
	}
}

// NewServer 建立已註冊 PoolService 的 grpc.Server
// 訊息是手寫的 JSON codec 型別，沒有 file descriptor，因此不註冊 reflection
func NewServer(core *usecase.CoreUseCase, log *logrus.Entry) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(LoggingInterceptor(log)))
	pb.RegisterPoolServiceServer(s, NewGrpcServer(core))
	return s
}

func (s *GrpcServer) Instantiate(ctx context.Context, req *pb.InstantiateRequest) (*pb.CommandResponse, error) {
	return s.post(ctx, req.CommandId, &domain.Command{
		Type:   domain.CommandTypeInstantiate,
		Sender: req.Sender,
		Admin:  req.Admin,
	})
}

func (s *GrpcServer) Deposit(ctx context.Context, req *pb.DepositRequest) (*pb.CommandResponse, error) {
	return s.post(ctx, req.CommandId, &domain.Command{
		Type:   domain.CommandTypeDeposit,
		Sender: req.GetSender(),
		Funds:  toDomainCoins(req.Funds),
	})
}

func (s *GrpcServer) Distribute(ctx context.Context, req *pb.DistributeRequest) (*pb.CommandResponse, error) {
	return s.post(ctx, req.CommandId, &domain.Command{
		Type:   domain.CommandTypeDistribute,
		Sender: req.Sender,
		Funds:  toDomainCoins(req.Funds),
	})
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *pb.WithdrawRequest) (*pb.CommandResponse, error) {
	return s.post(ctx, req.CommandId, &domain.Command{
		Type:   domain.CommandTypeWithdraw,
		Sender: req.GetSender(),
		Amount: req.Amount,
	})
}

// post 執行指令，業務錯誤回傳 Success=false (Soft Failure)
func (s *GrpcServer) post(ctx context.Context, commandID string, cmd *domain.Command) (*pb.CommandResponse, error) {
	// 1. UUID 解析，空字串由 usecase 自動產生
	if commandID != "" {
		u, err := uuid.Parse(commandID)
		if err != nil {
			return &pb.CommandResponse{
				Success:   false,
				ErrorKind: domain.KindInvalidArgument,
				Argument:  "command_id",
				Message:   "invalid command_id: " + err.Error(),
			}, nil
		}
		cmd.CommandID = u
	}

	// 2. 執行指令
	resp, err := s.core.PostCommand(ctx, cmd)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, status.FromContextError(err).Err()
		}
		return &pb.CommandResponse{
			Success:   false,
			ErrorKind: domain.ErrorKind(err),
			Argument:  domain.ArgumentName(err),
			Message:   err.Error(),
			CommandId: cmd.CommandID.String(),
		}, nil
	}

	out := &pb.CommandResponse{
		Success:   true,
		CommandId: cmd.CommandID.String(),
	}
	for _, attr := range resp.Attributes {
		out.Attributes = append(out.Attributes, &pb.Attribute{Key: attr.Key, Value: attr.Value})
	}
	for _, t := range resp.Transfers {
		out.Transfers = append(out.Transfers, &pb.Transfer{ToAddress: t.ToAddress, Amount: toPbCoins(t.Amount)})
	}
	return out, nil
}

func (s *GrpcServer) GetPrincipal(ctx context.Context, req *pb.AccountRequest) (*pb.AmountResponse, error) {
	amount, err := s.core.GetPrincipal(ctx, req.GetAccount())
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.AmountResponse{Amount: amount}, nil
}

func (s *GrpcServer) GetGain(ctx context.Context, req *pb.AccountRequest) (*pb.AmountResponse, error) {
	amount, err := s.core.GetGain(ctx, req.GetAccount())
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.AmountResponse{Amount: amount}, nil
}

func (s *GrpcServer) GetPoolTotal(ctx context.Context, _ *emptypb.Empty) (*pb.AmountResponse, error) {
	total, err := s.core.GetPoolTotal(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.AmountResponse{Amount: total}, nil
}

func (s *GrpcServer) GetPoolState(ctx context.Context, _ *emptypb.Empty) (*pb.PoolStateResponse, error) {
	state, err := s.core.GetPoolState(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	info, err := s.core.GetContractInfo(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.PoolStateResponse{
		Admin:           state.Admin,
		PoolTotalAmount: state.PoolTotalAmount,
		TotalYield:      state.TotalYield,
		TotalGainPaid:   state.TotalGainPaid,
		Contract:        info.Contract,
		Version:         info.Version,
	}, nil
}

// toStatus 查詢錯誤轉成 gRPC status
func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotInitialized):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func toDomainCoins(coins []*pb.Coin) []domain.Coin {
	out := make([]domain.Coin, 0, len(coins))
	for _, c := range coins {
		if c == nil {
			continue
		}
		out = append(out, domain.NewCoin(c.Amount, c.Denom))
	}
	return out
}

func toPbCoins(coins []domain.Coin) []*pb.Coin {
	out := make([]*pb.Coin, 0, len(coins))
	for _, c := range coins {
		out = append(out, &pb.Coin{Denom: c.Denom, Amount: c.Amount})
	}
	return out
}

// LoggingInterceptor 記錄每個 RPC 的方法、耗時與狀態碼
func LoggingInterceptor(log *logrus.Entry) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		entry := log.WithFields(logrus.Fields{
			"method":   info.FullMethod,
			"code":     status.Code(err).String(),
			"duration": time.Since(start).String(),
		})
		if err != nil {
			entry.WithError(err).Warn("rpc failed")
		} else {
			entry.Debug("rpc")
		}
		return resp, err
	}
}
