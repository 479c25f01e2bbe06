package grpc

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	pb "github.com/JoeShih716/go-bank-ledger/proto"
)

// GrpcServer 把 LedgerService 的請求轉交給 CoreUseCase
type GrpcServer struct {
	pb.UnimplementedLedgerServiceServer
	core     *usecase.CoreUseCase
	validate *validator.Validate
}

func NewGrpcServer(core *usecase.CoreUseCase) *GrpcServer {
	return &GrpcServer{
		core:     core,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// NewServer 建立已註冊 LedgerService 與 health 的 *grpc.Server
//
// 攔截器順序: recovery -> request id -> logging -> auth
func NewServer(handler *GrpcServer, logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	logger = logger.With("component", "grpc")
	serverOpts := append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(logger),
			RequestIDInterceptor,
			LoggingInterceptor(logger),
			AuthInterceptor,
		),
	}, opts...)
	s := grpc.NewServer(serverOpts...)
	pb.RegisterLedgerServiceServer(s, handler)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(pb.LedgerService_ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthServer)
	return s
}

// begin 驗證請求並取出呼叫端身分
func (s *GrpcServer) begin(ctx context.Context, req any) (string, error) {
	customerID, ok := CustomerFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing "+pb.CustomerIDMetadataKey)
	}
	if err := s.validate.Struct(req); err != nil {
		return "", status.Error(codes.InvalidArgument, err.Error())
	}
	return customerID, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := domain.ParseAmount(s)
	if err != nil {
		return decimal.Zero, toStatus(err)
	}
	return amount, nil
}

func (s *GrpcServer) OpenAccount(ctx context.Context, req *pb.OpenAccountRequest) (*pb.OpenAccountResponse, error) {
	customerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	account, err := s.core.OpenAccount(ctx, customerID, req.AccountType)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.OpenAccountResponse{Account: toAccount(account)}, nil
}

func (s *GrpcServer) GetAccount(ctx context.Context, req *pb.GetAccountRequest) (*pb.GetAccountResponse, error) {
	customerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	account, err := s.core.GetAccountDetails(ctx, customerID, req.AccountNumber)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.GetAccountResponse{Account: toAccount(account)}, nil
}

func (s *GrpcServer) ListAccounts(ctx context.Context, req *pb.ListAccountsRequest) (*pb.ListAccountsResponse, error) {
	customerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	accounts, err := s.core.ListAccounts(ctx, customerID)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &pb.ListAccountsResponse{Accounts: make([]*pb.Account, len(accounts))}
	for i, account := range accounts {
		resp.Accounts[i] = toAccount(account)
	}
	return resp, nil
}

func (s *GrpcServer) Deposit(ctx context.Context, req *pb.DepositRequest) (*pb.DepositResponse, error) {
	customerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	record, err := s.core.Deposit(ctx, customerID, req.AccountNumber, amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.DepositResponse{Transaction: toTransaction(record)}, nil
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *pb.WithdrawRequest) (*pb.WithdrawResponse, error) {
	customerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	record, err := s.core.Withdraw(ctx, customerID, req.AccountNumber, amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.WithdrawResponse{Transaction: toTransaction(record)}, nil
}

func (s *GrpcServer) Transfer(ctx context.Context, req *pb.TransferRequest) (*pb.TransferResponse, error) {
	customerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	record, err := s.core.Transfer(ctx, customerID, req.SourceAccountNumber, req.DestinationAccountNumber, amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.TransferResponse{Transaction: toTransaction(record)}, nil
}

func (s *GrpcServer) GetTransaction(ctx context.Context, req *pb.GetTransactionRequest) (*pb.GetTransactionResponse, error) {
	customerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	record, err := s.core.GetTransaction(ctx, customerID, req.TransactionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.GetTransactionResponse{Transaction: toTransaction(record)}, nil
}

func (s *GrpcServer) RecentTransactions(ctx context.Context, req *pb.RecentTransactionsRequest) (*pb.RecentTransactionsResponse, error) {
	customerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	records, err := s.core.GetRecentTransactions(ctx, customerID, req.AccountNumber)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.RecentTransactionsResponse{Transactions: toTransactions(records)}, nil
}

func (s *GrpcServer) SearchTransactions(ctx context.Context, req *pb.SearchTransactionsRequest) (*pb.SearchTransactionsResponse, error) {
	customerID, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	criteria, err := toCriteria(req)
	if err != nil {
		return nil, err
	}
	page, err := s.core.SearchTransactionsPage(ctx, customerID, criteria, int(req.Page), int(req.Size))
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.SearchTransactionsResponse{
		Content:       toTransactions(page.Content),
		Page:          int32(page.Page),
		Size:          int32(page.Size),
		TotalElements: page.TotalElements,
		TotalPages:    int32(page.TotalPages),
		First:         page.First,
		Last:          page.Last,
	}, nil
}

func toCriteria(req *pb.SearchTransactionsRequest) (domain.SearchCriteria, error) {
	criteria := domain.SearchCriteria{
		AccountNumber: req.AccountNumber,
		Type:          req.Type,
	}
	var err error
	if criteria.From, err = optionalTime(req.From); err != nil {
		return criteria, err
	}
	if criteria.To, err = optionalTime(req.To); err != nil {
		return criteria, err
	}
	if criteria.MinAmount, err = optionalDecimal(req.MinAmount); err != nil {
		return criteria, err
	}
	if criteria.MaxAmount, err = optionalDecimal(req.MaxAmount); err != nil {
		return criteria, err
	}
	return criteria, nil
}

func optionalTime(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid time %q", s)
	}
	t = t.UTC()
	return &t, nil
}

func optionalDecimal(s string) (*decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid amount %q", s)
	}
	return &d, nil
}

func toAccount(a *domain.Account) *pb.Account {
	return &pb.Account{
		AccountNumber:   a.AccountNumber,
		OwnerID:         a.OwnerID,
		AccountType:     string(a.Type),
		Status:          string(a.Status),
		Balance:         a.Balance.StringFixed(domain.CurrencyScale),
		WithdrawalLimit: a.WithdrawalLimit.StringFixed(domain.CurrencyScale),
		TransferLimit:   a.TransferLimit.StringFixed(domain.CurrencyScale),
		MinimumBalance:  a.MinimumBalance.StringFixed(domain.CurrencyScale),
		MonthlyFee:      a.MonthlyFee.StringFixed(domain.CurrencyScale),
		InterestRate:    a.InterestRate.StringFixed(domain.CurrencyScale),
		BranchName:      a.BranchName,
		BranchCode:      a.BranchCode,
		OpenedAt:        a.OpenedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:       a.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toTransaction(r *domain.TransactionRecord) *pb.Transaction {
	return &pb.Transaction{
		TransactionID:             r.TransactionID,
		AccountNumber:             r.AccountNumber,
		Type:                      string(r.Type),
		Amount:                    r.Amount.StringFixed(domain.CurrencyScale),
		BalanceAfter:              r.BalanceAfter.StringFixed(domain.CurrencyScale),
		Timestamp:                 r.Timestamp.UTC().Format(time.RFC3339Nano),
		Status:                    string(r.Status),
		CounterpartyAccountNumber: r.CounterpartyAccountNumber,
		Sequence:                  r.Sequence,
	}
}

func toTransactions(records []*domain.TransactionRecord) []*pb.Transaction {
	out := make([]*pb.Transaction, len(records))
	for i, r := range records {
		out[i] = toTransaction(r)
	}
	return out
}

var _ pb.LedgerServiceServer = (*GrpcServer)(nil)
