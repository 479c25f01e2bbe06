package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc/reflection"
	"gorm.io/gorm"

	grpc_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/grpc"
	memory_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/memory"
	redis_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/redis"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/sqldb"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/internal/config"
	"github.com/JoeShih716/go-bank-ledger/pkg/logger"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
	"github.com/JoeShih716/go-bank-ledger/pkg/postgres"
	"github.com/JoeShih716/go-bank-ledger/pkg/redis"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config yaml")
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(os.Stderr, cfg.Log)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server exited")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// 2. 初始化儲存層
	ledger, closeLedger, err := openLedger(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLedger()

	if cfg.Seed.Enabled {
		if err := seedAccounts(ctx, ledger, cfg.Seed.Accounts, log); err != nil {
			return err
		}
	}

	opts := []usecase.Option{
		usecase.WithLogger(log),
		usecase.WithRetryPolicy(cfg.Ledger.MaxAttempts, cfg.Ledger.BackoffInitial, cfg.Ledger.BackoffMax),
	}

	// 3. Redis (可選): 最近交易快取 + 事件串流
	if cfg.Redis.Enabled {
		rdb, err := redis.NewClient(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		log.Info("connected to redis", "addr", cfg.Redis.Addr)

		dispatcher := memory_adapter.NewEventDispatcher(
			redis_adapter.NewStreamPublisher(rdb.Client, cfg.Redis.StreamMaxLen),
			cfg.Redis.EventBuffer,
			log,
		)
		dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
		dispatcher.Start(dispatcherCtx)
		defer func() {
			// 停止後會把輸送帶上剩下的事件送完
			cancelDispatcher()
			<-dispatcher.Done()
		}()

		opts = append(opts,
			usecase.WithRecentCache(redis_adapter.NewRecentCache(rdb.Client, cfg.Redis.CacheTTL, log)),
			usecase.WithEventPublisher(dispatcher),
		)
	}

	// 4. 初始化 UseCase
	coreUseCase := usecase.NewCoreUseCase(ledger, opts...)

	// 5. 初始化 gRPC Adapter (Driving Adapter)
	s := grpc_adapter.NewServer(grpc_adapter.NewGrpcServer(coreUseCase), log)
	reflection.Register(s) // 方便 grpcurl 測試

	// 6. 啟動 gRPC Server
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.GRPCAddr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting grpc server", "addr", lis.Addr().String(), "backend", cfg.Ledger.Backend)
		serveErr <- s.Serve(lis)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	// Graceful Shutdown，逾時則強制中斷
	log.Info("shutting down server...")
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Warn("graceful stop timed out, forcing", "timeout", cfg.Server.ShutdownTimeout)
		s.Stop()
	}
	return nil
}

// openLedger 依設定建立儲存層，回傳的 close 函式負責釋放連線或 WAL
func openLedger(ctx context.Context, cfg *config.Config, log *slog.Logger) (usecase.Ledger, func(), error) {
	switch cfg.Ledger.Backend {
	case config.BackendMySQL:
		client, err := mysql.NewClient(ctx, cfg.MySQL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to mysql", "host", cfg.MySQL.Host, "db", cfg.MySQL.DBName)
		return sqlLedger(ctx, cfg, client.DB(), client, log)

	case config.BackendPostgres:
		client, err := postgres.NewClient(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to postgres", "host", cfg.Postgres.Host, "db", cfg.Postgres.DBName)
		return sqlLedger(ctx, cfg, client.DB(), client, log)

	default:
		var walFile memory_adapter.WriteAheadLog
		closeWAL := func() {}
		if cfg.Ledger.WALPath != "" {
			f, err := wal.NewWAL(cfg.Ledger.WALPath)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to open wal: %w", err)
			}
			walFile = f
			closeWAL = func() {
				if err := f.Close(); err != nil {
					log.Warn("close wal failed", "error", err)
				}
			}
		}
		ledger, err := memory_adapter.NewMutexLedger(walFile)
		if err != nil {
			closeWAL()
			return nil, nil, fmt.Errorf("failed to recover ledger: %w", err)
		}
		log.Info("memory ledger ready", "wal", cfg.Ledger.WALPath)
		return ledger, closeWAL, nil
	}
}

func sqlLedger(ctx context.Context, cfg *config.Config, db *gorm.DB, closer io.Closer, log *slog.Logger) (usecase.Ledger, func(), error) {
	ledger := sqldb.NewSQLLedger(db)
	closeDB := func() {
		if err := closer.Close(); err != nil {
			log.Warn("close database failed", "error", err)
		}
	}
	if cfg.Ledger.AutoMigrate {
		if err := ledger.AutoMigrate(ctx); err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return ledger, closeDB, nil
}
