package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	grpcpool "github.com/JoeShih716/go-bank-ledger/pkg/grpc"
	"github.com/JoeShih716/go-bank-ledger/pkg/logger"
	pb "github.com/JoeShih716/go-bank-ledger/proto"
)

// 壓測流程：開 N 個帳戶各存入固定金額，並發在帳戶間隨機轉帳，
// 最後檢查所有帳戶餘額總和不變。
func main() {
	addr := flag.String("addr", "localhost:50051", "ledger grpc address")
	total := flag.Int("total", 20000, "number of transfers (each uses two of the 100000 transaction ids)")
	concurrency := flag.Int("concurrency", 200, "concurrent requests")
	accounts := flag.Int("accounts", 20, "number of accounts to spread transfers over")
	initial := flag.String("initial", "1000.00", "initial deposit per account")
	flag.Parse()

	log := logger.New(os.Stderr, logger.Config{Level: "info", Prefix: "rpc-client"})
	if err := checkIDBudget(*total, *accounts); err != nil {
		log.Error("invalid flags", "error", err)
		os.Exit(1)
	}
	customerID := fmt.Sprintf("CU%08d", rand.IntN(100000000))

	pool := grpcpool.NewPool(grpcpool.WithInterceptor(identityInterceptor(customerID)))
	defer pool.Close()
	conn, err := pool.GetConnection(*addr)
	if err != nil {
		log.Error("did not connect", "error", err)
		os.Exit(1)
	}
	c := pb.NewLedgerServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	numbers, err := openFundedAccounts(ctx, c, *accounts, *initial)
	if err != nil {
		log.Error("prepare accounts failed", "error", err)
		os.Exit(1)
	}
	log.Info("accounts ready", "customer", customerID, "accounts", len(numbers))

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)

	startTime := time.Now()
	for i := 0; i < *total; i++ {
		g.Go(func() error {
			src := rand.IntN(len(numbers))
			dst := (src + 1 + rand.IntN(len(numbers)-1)) % len(numbers)
			_, err := c.Transfer(gctx, &pb.TransferRequest{
				SourceAccountNumber:      numbers[src],
				DestinationAccountNumber: numbers[dst],
				Amount:                   fmt.Sprintf("%d.%02d", rand.IntN(5), rand.IntN(100)+1),
			})
			if err != nil {
				if n := failed.Add(1); n%1000 == 1 {
					log.Warn("transfer failed", "index", i, "failed", n, "error", err)
				}
			}
			// 單筆失敗 (餘額不足、競爭) 不中斷整個壓測
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(startTime)
	fmt.Printf("Completed %d requests in %v (%d failed)\n", *total, elapsed, failed.Load())
	fmt.Printf("TPS: %.2f\n", float64(*total)/elapsed.Seconds())

	if err := verifyConservation(ctx, c, numbers, *initial); err != nil {
		log.Error("conservation check failed", "error", err)
		os.Exit(1)
	}
	log.Info("conservation check passed")
}

// transactionIDSpace TRANS + 5 位數可用的交易編號總數 (全服務共用)
var transactionIDSpace = int(math.Pow10(domain.TransactionIDDigits))

// checkIDBudget 每筆存款用一個交易編號，每筆轉帳用兩個，
// 超過一半的編號空間時配號會大量撞號並回傳 ResourceExhausted
func checkIDBudget(transfers, accounts int) error {
	if accounts < 2 {
		return fmt.Errorf("need at least 2 accounts, got %d", accounts)
	}
	needed := accounts + 2*transfers
	if needed > transactionIDSpace/2 {
		return fmt.Errorf("%d transfers over %d accounts need %d transaction ids, limit is %d (half of the id space)",
			transfers, accounts, needed, transactionIDSpace/2)
	}
	return nil
}

// identityInterceptor 每個請求帶上客戶 ID 與 request ID
func identityInterceptor(customerID string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx,
			pb.CustomerIDMetadataKey, customerID,
			pb.RequestIDMetadataKey, uuid.NewString(),
		)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func openFundedAccounts(ctx context.Context, c pb.LedgerServiceClient, n int, initial string) ([]string, error) {
	numbers := make([]string, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := range numbers {
		g.Go(func() error {
			opened, err := c.OpenAccount(gctx, &pb.OpenAccountRequest{AccountType: "checking"})
			if err != nil {
				return fmt.Errorf("open account: %w", err)
			}
			numbers[i] = opened.Account.AccountNumber
			_, err = c.Deposit(gctx, &pb.DepositRequest{AccountNumber: numbers[i], Amount: initial})
			if err != nil {
				return fmt.Errorf("deposit %s: %w", numbers[i], err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return numbers, nil
}

// verifyConservation 轉帳只搬移金額，總和必須等於初始存款總和
func verifyConservation(ctx context.Context, c pb.LedgerServiceClient, numbers []string, initial string) error {
	perAccount, err := decimal.NewFromString(initial)
	if err != nil {
		return err
	}
	want := perAccount.Mul(decimal.NewFromInt(int64(len(numbers))))

	sum := decimal.Zero
	for _, number := range numbers {
		resp, err := c.GetAccount(ctx, &pb.GetAccountRequest{AccountNumber: number})
		if err != nil {
			return fmt.Errorf("get account %s: %w", number, err)
		}
		balance, err := decimal.NewFromString(resp.Account.Balance)
		if err != nil {
			return err
		}
		if balance.IsNegative() {
			return fmt.Errorf("account %s has negative balance %s", number, balance)
		}
		sum = sum.Add(balance)
	}
	if !sum.Equal(want) {
		return fmt.Errorf("total balance %s, want %s", sum.StringFixed(2), want.StringFixed(2))
	}
	return nil
}
