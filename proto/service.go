package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

const (
	PoolService_ServiceName             = "stakeledger.v1.PoolService"
	PoolService_Instantiate_FullMethod  = "/stakeledger.v1.PoolService/Instantiate"
	PoolService_Deposit_FullMethod      = "/stakeledger.v1.PoolService/Deposit"
	PoolService_Distribute_FullMethod   = "/stakeledger.v1.PoolService/Distribute"
	PoolService_Withdraw_FullMethod     = "/stakeledger.v1.PoolService/Withdraw"
	PoolService_GetPrincipal_FullMethod = "/stakeledger.v1.PoolService/GetPrincipal"
	PoolService_GetGain_FullMethod      = "/stakeledger.v1.PoolService/GetGain"
	PoolService_GetPoolTotal_FullMethod = "/stakeledger.v1.PoolService/GetPoolTotal"
	PoolService_GetPoolState_FullMethod = "/stakeledger.v1.PoolService/GetPoolState"
)

// PoolServiceServer 伺服器端介面
type PoolServiceServer interface {
	Instantiate(context.Context, *InstantiateRequest) (*CommandResponse, error)
	Deposit(context.Context, *DepositRequest) (*CommandResponse, error)
	Distribute(context.Context, *DistributeRequest) (*CommandResponse, error)
	Withdraw(context.Context, *WithdrawRequest) (*CommandResponse, error)
	GetPrincipal(context.Context, *AccountRequest) (*AmountResponse, error)
	GetGain(context.Context, *AccountRequest) (*AmountResponse, error)
	GetPoolTotal(context.Context, *emptypb.Empty) (*AmountResponse, error)
	GetPoolState(context.Context, *emptypb.Empty) (*PoolStateResponse, error)
}

// UnimplementedPoolServiceServer 嵌入後未實作的方法回傳 Unimplemented
type UnimplementedPoolServiceServer struct{}

func (UnimplementedPoolServiceServer) Instantiate(context.Context, *InstantiateRequest) (*CommandResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Instantiate not implemented")
}
func (UnimplementedPoolServiceServer) Deposit(context.Context, *DepositRequest) (*CommandResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Deposit not implemented")
}
func (UnimplementedPoolServiceServer) Distribute(context.Context, *DistributeRequest) (*CommandResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Distribute not implemented")
}
func (UnimplementedPoolServiceServer) Withdraw(context.Context, *WithdrawRequest) (*CommandResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Withdraw not implemented")
}
func (UnimplementedPoolServiceServer) GetPrincipal(context.Context, *AccountRequest) (*AmountResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPrincipal not implemented")
}
func (UnimplementedPoolServiceServer) GetGain(context.Context, *AccountRequest) (*AmountResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetGain not implemented")
}
func (UnimplementedPoolServiceServer) GetPoolTotal(context.Context, *emptypb.Empty) (*AmountResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPoolTotal not implemented")
}
func (UnimplementedPoolServiceServer) GetPoolState(context.Context, *emptypb.Empty) (*PoolStateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPoolState not implemented")
}

// RegisterPoolServiceServer 註冊服務
func RegisterPoolServiceServer(s grpc.ServiceRegistrar, srv PoolServiceServer) {
	s.RegisterService(&PoolService_ServiceDesc, srv)
}

// unaryHandler 產生 grpc.MethodHandler，取代產生碼裡每個方法各一份的 _Handler 函式
func unaryHandler[Req any, Resp any](fullMethod string, call func(PoolServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PoolServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PoolServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// PoolService_ServiceDesc 服務描述
var PoolService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: PoolService_ServiceName,
	HandlerType: (*PoolServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Instantiate", Handler: unaryHandler(PoolService_Instantiate_FullMethod, PoolServiceServer.Instantiate)},
		{MethodName: "Deposit", Handler: unaryHandler(PoolService_Deposit_FullMethod, PoolServiceServer.Deposit)},
		{MethodName: "Distribute", Handler: unaryHandler(PoolService_Distribute_FullMethod, PoolServiceServer.Distribute)},
		{MethodName: "Withdraw", Handler: unaryHandler(PoolService_Withdraw_FullMethod, PoolServiceServer.Withdraw)},
		{MethodName: "GetPrincipal", Handler: unaryHandler(PoolService_GetPrincipal_FullMethod, PoolServiceServer.GetPrincipal)},
		{MethodName: "GetGain", Handler: unaryHandler(PoolService_GetGain_FullMethod, PoolServiceServer.GetGain)},
		{MethodName: "GetPoolTotal", Handler: unaryHandler(PoolService_GetPoolTotal_FullMethod, PoolServiceServer.GetPoolTotal)},
		{MethodName: "GetPoolState", Handler: unaryHandler(PoolService_GetPoolState_FullMethod, PoolServiceServer.GetPoolState)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stakeledger/v1/pool.proto",
}

// PoolServiceClient 客戶端介面
type PoolServiceClient interface {
	Instantiate(ctx context.Context, in *InstantiateRequest, opts ...grpc.CallOption) (*CommandResponse, error)
	Deposit(ctx context.Context, in *DepositRequest, opts ...grpc.CallOption) (*CommandResponse, error)
	Distribute(ctx context.Context, in *DistributeRequest, opts ...grpc.CallOption) (*CommandResponse, error)
	Withdraw(ctx context.Context, in *WithdrawRequest, opts ...grpc.CallOption) (*CommandResponse, error)
	GetPrincipal(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*AmountResponse, error)
	GetGain(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*AmountResponse, error)
	GetPoolTotal(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*AmountResponse, error)
	GetPoolState(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*PoolStateResponse, error)
}

type poolServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPoolServiceClient 建立客戶端，每次呼叫都會帶上 JSON content-subtype
func NewPoolServiceClient(cc grpc.ClientConnInterface) PoolServiceClient {
	return &poolServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *poolServiceClient) Instantiate(ctx context.Context, in *InstantiateRequest, opts ...grpc.CallOption) (*CommandResponse, error) {
	return invoke[CommandResponse](ctx, c.cc, PoolService_Instantiate_FullMethod, in, opts)
}

func (c *poolServiceClient) Deposit(ctx context.Context, in *DepositRequest, opts ...grpc.CallOption) (*CommandResponse, error) {
	return invoke[CommandResponse](ctx, c.cc, PoolService_Deposit_FullMethod, in, opts)
}

func (c *poolServiceClient) Distribute(ctx context.Context, in *DistributeRequest, opts ...grpc.CallOption) (*CommandResponse, error) {
	return invoke[CommandResponse](ctx, c.cc, PoolService_Distribute_FullMethod, in, opts)
}

func (c *poolServiceClient) Withdraw(ctx context.Context, in *WithdrawRequest, opts ...grpc.CallOption) (*CommandResponse, error) {
	return invoke[CommandResponse](ctx, c.cc, PoolService_Withdraw_FullMethod, in, opts)
}

func (c *poolServiceClient) GetPrincipal(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*AmountResponse, error) {
	return invoke[AmountResponse](ctx, c.cc, PoolService_GetPrincipal_FullMethod, in, opts)
}

func (c *poolServiceClient) GetGain(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*AmountResponse, error) {
	return invoke[AmountResponse](ctx, c.cc, PoolService_GetGain_FullMethod, in, opts)
}

func (c *poolServiceClient) GetPoolTotal(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*AmountResponse, error) {
	return invoke[AmountResponse](ctx, c.cc, PoolService_GetPoolTotal_FullMethod, in, opts)
}

func (c *poolServiceClient) GetPoolState(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*PoolStateResponse, error) {
	return invoke[PoolStateResponse](ctx, c.cc, PoolService_GetPoolState_FullMethod, in, opts)
}
