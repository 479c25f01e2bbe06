package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const LedgerService_ServiceName = "bank.ledger.v1.LedgerService"

const (
	LedgerService_OpenAccount_FullMethodName        = "/bank.ledger.v1.LedgerService/OpenAccount"
	LedgerService_GetAccount_FullMethodName         = "/bank.ledger.v1.LedgerService/GetAccount"
	LedgerService_ListAccounts_FullMethodName       = "/bank.ledger.v1.LedgerService/ListAccounts"
	LedgerService_Deposit_FullMethodName            = "/bank.ledger.v1.LedgerService/Deposit"
	LedgerService_Withdraw_FullMethodName           = "/bank.ledger.v1.LedgerService/Withdraw"
	LedgerService_Transfer_FullMethodName           = "/bank.ledger.v1.LedgerService/Transfer"
	LedgerService_GetTransaction_FullMethodName     = "/bank.ledger.v1.LedgerService/GetTransaction"
	LedgerService_RecentTransactions_FullMethodName = "/bank.ledger.v1.LedgerService/RecentTransactions"
	LedgerService_SearchTransactions_FullMethodName = "/bank.ledger.v1.LedgerService/SearchTransactions"
)

// LedgerServiceClient 帳務服務客戶端
type LedgerServiceClient interface {
	OpenAccount(ctx context.Context, in *OpenAccountRequest, opts ...grpc.CallOption) (*OpenAccountResponse, error)
	GetAccount(ctx context.Context, in *GetAccountRequest, opts ...grpc.CallOption) (*GetAccountResponse, error)
	ListAccounts(ctx context.Context, in *ListAccountsRequest, opts ...grpc.CallOption) (*ListAccountsResponse, error)
	Deposit(ctx context.Context, in *DepositRequest, opts ...grpc.CallOption) (*DepositResponse, error)
	Withdraw(ctx context.Context, in *WithdrawRequest, opts ...grpc.CallOption) (*WithdrawResponse, error)
	Transfer(ctx context.Context, in *TransferRequest, opts ...grpc.CallOption) (*TransferResponse, error)
	GetTransaction(ctx context.Context, in *GetTransactionRequest, opts ...grpc.CallOption) (*GetTransactionResponse, error)
	RecentTransactions(ctx context.Context, in *RecentTransactionsRequest, opts ...grpc.CallOption) (*RecentTransactionsResponse, error)
	SearchTransactions(ctx context.Context, in *SearchTransactionsRequest, opts ...grpc.CallOption) (*SearchTransactionsResponse, error)
}

type ledgerServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerServiceClient(cc grpc.ClientConnInterface) LedgerServiceClient {
	return &ledgerServiceClient{cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	callOpts := append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, callOpts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) OpenAccount(ctx context.Context, in *OpenAccountRequest, opts ...grpc.CallOption) (*OpenAccountResponse, error) {
	return invoke[OpenAccountResponse](ctx, c.cc, LedgerService_OpenAccount_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) GetAccount(ctx context.Context, in *GetAccountRequest, opts ...grpc.CallOption) (*GetAccountResponse, error) {
	return invoke[GetAccountResponse](ctx, c.cc, LedgerService_GetAccount_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) ListAccounts(ctx context.Context, in *ListAccountsRequest, opts ...grpc.CallOption) (*ListAccountsResponse, error) {
	return invoke[ListAccountsResponse](ctx, c.cc, LedgerService_ListAccounts_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) Deposit(ctx context.Context, in *DepositRequest, opts ...grpc.CallOption) (*DepositResponse, error) {
	return invoke[DepositResponse](ctx, c.cc, LedgerService_Deposit_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) Withdraw(ctx context.Context, in *WithdrawRequest, opts ...grpc.CallOption) (*WithdrawResponse, error) {
	return invoke[WithdrawResponse](ctx, c.cc, LedgerService_Withdraw_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) Transfer(ctx context.Context, in *TransferRequest, opts ...grpc.CallOption) (*TransferResponse, error) {
	return invoke[TransferResponse](ctx, c.cc, LedgerService_Transfer_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) GetTransaction(ctx context.Context, in *GetTransactionRequest, opts ...grpc.CallOption) (*GetTransactionResponse, error) {
	return invoke[GetTransactionResponse](ctx, c.cc, LedgerService_GetTransaction_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) RecentTransactions(ctx context.Context, in *RecentTransactionsRequest, opts ...grpc.CallOption) (*RecentTransactionsResponse, error) {
	return invoke[RecentTransactionsResponse](ctx, c.cc, LedgerService_RecentTransactions_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) SearchTransactions(ctx context.Context, in *SearchTransactionsRequest, opts ...grpc.CallOption) (*SearchTransactionsResponse, error) {
	return invoke[SearchTransactionsResponse](ctx, c.cc, LedgerService_SearchTransactions_FullMethodName, in, opts)
}

// LedgerServiceServer 帳務服務伺服端介面
// 實作需嵌入 UnimplementedLedgerServiceServer
type LedgerServiceServer interface {
	OpenAccount(context.Context, *OpenAccountRequest) (*OpenAccountResponse, error)
	GetAccount(context.Context, *GetAccountRequest) (*GetAccountResponse, error)
	ListAccounts(context.Context, *ListAccountsRequest) (*ListAccountsResponse, error)
	Deposit(context.Context, *DepositRequest) (*DepositResponse, error)
	Withdraw(context.Context, *WithdrawRequest) (*WithdrawResponse, error)
	Transfer(context.Context, *TransferRequest) (*TransferResponse, error)
	GetTransaction(context.Context, *GetTransactionRequest) (*GetTransactionResponse, error)
	RecentTransactions(context.Context, *RecentTransactionsRequest) (*RecentTransactionsResponse, error)
	SearchTransactions(context.Context, *SearchTransactionsRequest) (*SearchTransactionsResponse, error)
	mustEmbedUnimplementedLedgerServiceServer()
}

// UnimplementedLedgerServiceServer 未實作的方法回傳 codes.Unimplemented
type UnimplementedLedgerServiceServer struct{}

func (UnimplementedLedgerServiceServer) OpenAccount(context.Context, *OpenAccountRequest) (*OpenAccountResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method OpenAccount not implemented")
}
func (UnimplementedLedgerServiceServer) GetAccount(context.Context, *GetAccountRequest) (*GetAccountResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetAccount not implemented")
}
func (UnimplementedLedgerServiceServer) ListAccounts(context.Context, *ListAccountsRequest) (*ListAccountsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListAccounts not implemented")
}
func (UnimplementedLedgerServiceServer) Deposit(context.Context, *DepositRequest) (*DepositResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Deposit not implemented")
}
func (UnimplementedLedgerServiceServer) Withdraw(context.Context, *WithdrawRequest) (*WithdrawResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Withdraw not implemented")
}
func (UnimplementedLedgerServiceServer) Transfer(context.Context, *TransferRequest) (*TransferResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Transfer not implemented")
}
func (UnimplementedLedgerServiceServer) GetTransaction(context.Context, *GetTransactionRequest) (*GetTransactionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetTransaction not implemented")
}
func (UnimplementedLedgerServiceServer) RecentTransactions(context.Context, *RecentTransactionsRequest) (*RecentTransactionsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RecentTransactions not implemented")
}
func (UnimplementedLedgerServiceServer) SearchTransactions(context.Context, *SearchTransactionsRequest) (*SearchTransactionsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SearchTransactions not implemented")
}
func (UnimplementedLedgerServiceServer) mustEmbedUnimplementedLedgerServiceServer() {}

// RegisterLedgerServiceServer 註冊服務
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerService_ServiceDesc, srv)
}

// unaryHandler 解碼請求後交給攔截器鏈與實作
func unaryHandler[Req any, Resp any](
	fullMethod string,
	call func(LedgerServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LedgerServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// LedgerService_ServiceDesc 服務描述
var LedgerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: LedgerService_ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "OpenAccount", Handler: unaryHandler(LedgerService_OpenAccount_FullMethodName, LedgerServiceServer.OpenAccount)},
		{MethodName: "GetAccount", Handler: unaryHandler(LedgerService_GetAccount_FullMethodName, LedgerServiceServer.GetAccount)},
		{MethodName: "ListAccounts", Handler: unaryHandler(LedgerService_ListAccounts_FullMethodName, LedgerServiceServer.ListAccounts)},
		{MethodName: "Deposit", Handler: unaryHandler(LedgerService_Deposit_FullMethodName, LedgerServiceServer.Deposit)},
		{MethodName: "Withdraw", Handler: unaryHandler(LedgerService_Withdraw_FullMethodName, LedgerServiceServer.Withdraw)},
		{MethodName: "Transfer", Handler: unaryHandler(LedgerService_Transfer_FullMethodName, LedgerServiceServer.Transfer)},
		{MethodName: "GetTransaction", Handler: unaryHandler(LedgerService_GetTransaction_FullMethodName, LedgerServiceServer.GetTransaction)},
		{MethodName: "RecentTransactions", Handler: unaryHandler(LedgerService_RecentTransactions_FullMethodName, LedgerServiceServer.RecentTransactions)},
		{MethodName: "SearchTransactions", Handler: unaryHandler(LedgerService_SearchTransactions_FullMethodName, LedgerServiceServer.SearchTransactions)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger.proto",
}
