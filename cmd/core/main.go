package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	grpc_adapter "github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/in/grpc"
	http_adapter "github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/in/http"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/out/bank"
	memory_adapter "github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/out/sqlkv"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/engine"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/scheduler"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-stake-ledger/internal/config"
	"github.com/JoeShih716/go-stake-ledger/pkg/logger"
	"github.com/JoeShih716/go-stake-ledger/pkg/mysql"
	"github.com/JoeShih716/go-stake-ledger/pkg/sqldb"
	"github.com/JoeShih716/go-stake-ledger/pkg/wal"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid config: %v", err)
	}

	base := logger.New(cfg.Log.Level, cfg.Log.Format)
	log := logger.Component(base, "main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 初始化帳本
	eng := engine.New(cfg.Pool.Denom)
	ledger, closeLedger, err := buildLedger(ctx, cfg, eng, base)
	if err != nil {
		log.WithError(err).Fatal("Failed to init ledger")
	}
	defer closeLedger()
	log.WithField("ledger", cfg.Ledger.Type).Info("Ledger ready")

	// 3. 初始化 UseCase
	sender := bank.NewLogSender(logger.Component(base, "bank"), cfg.Bank.KeepRecent)
	coreUseCase := usecase.NewCoreUseCase(ledger, sender, cfg.Pool.Denom, logger.Component(base, "core"))
	if err := coreUseCase.EnsureInstantiated(ctx, cfg.Pool.Creator, cfg.Pool.Admin); err != nil {
		log.WithError(err).Fatal("Failed to instantiate pool")
	}
	if state, err := coreUseCase.GetPoolState(ctx); err == nil {
		log.WithFields(logrus.Fields{
			"admin":      state.Admin,
			"pool_total": state.PoolTotalAmount,
		}).Info("Pool loaded")
	}

	// 4. 啟動 gRPC Server
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.WithError(err).Fatal("failed to listen")
	}
	s := grpc_adapter.NewServer(coreUseCase, logger.Component(base, "grpc"))

	go func() {
		log.WithField("addr", cfg.Server.GRPCAddr).Info("Starting gRPC server")
		if err := s.Serve(lis); err != nil {
			log.WithError(err).Error("gRPC server stopped")
		}
	}()

	// 5. 啟動 HTTP Server
	limiter := http_adapter.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger.Component(base, "ratelimit"))
	limiter.StartCleanup(time.Minute, ctx.Done())
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           http_adapter.NewRouter(http_adapter.NewHandler(coreUseCase, logrus.NewEntry(base)), limiter),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("addr", cfg.Server.HTTPAddr).Info("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server stopped")
		}
	}()

	// 6. 收益注入排程
	var sched *scheduler.Scheduler
	if cfg.Distribution.Enabled {
		sched = scheduler.New(ctx, coreUseCase, scheduler.Config{
			Spec:    cfg.Distribution.Cron,
			Amount:  cfg.Distribution.Amount,
			Denom:   cfg.Pool.Denom,
			Timeout: cfg.Distribution.Timeout,
		}, logrus.NewEntry(base))
		if err := sched.Register(); err != nil {
			log.WithError(err).Fatal("Failed to register distribution")
		}
		sched.Start()
	}

	// Wait for interrupt
	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if sched != nil {
		sched.Stop()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown")
	}
	s.GracefulStop()
	log.Info("Server exited")
}

// buildLedger 依 ledger.type 建立帳本，回傳的 cleanup 在程式結束時呼叫
func buildLedger(ctx context.Context, cfg *config.Config, eng *engine.Engine, base *logrus.Logger) (usecase.Ledger, func(), error) {
	switch cfg.Ledger.Type {
	case config.LedgerMemoryMutex, config.LedgerMemoryLMAX:
		walFile, err := wal.NewWAL(cfg.Ledger.WALPath)
		if err != nil {
			return nil, nil, err
		}
		closeWAL := func() {
			if err := walFile.Close(); err != nil {
				base.WithError(err).Error("close wal")
			}
		}
		if cfg.Ledger.Type == config.LedgerMemoryMutex {
			ledger, err := memory_adapter.NewMutexLedger(eng, walFile)
			if err != nil {
				closeWAL()
				return nil, nil, err
			}
			if err := ledger.CheckInvariants(); err != nil {
				base.WithError(err).Error("ledger invariants violated after replay")
			}
			return ledger, closeWAL, nil
		}

		ledger, err := memory_adapter.NewLMAXLedger(eng, walFile)
		if err != nil {
			closeWAL()
			return nil, nil, err
		}
		// 獨立的 ctx：收到訊號後先停掉 Server，再讓帳本處理完佇列
		ledgerCtx, cancel := context.WithCancel(context.Background())
		ledger.Start(ledgerCtx)
		return ledger, func() {
			cancel()
			<-ledger.Done()
			closeWAL()
		}, nil

	case config.LedgerMySQL:
		client, err := mysql.NewClient(ctx, cfg.MySQL, logger.Component(base, "mysql"))
		if err != nil {
			return nil, nil, err
		}
		ledger := mysql_adapter.NewMySQLLedger(client.DB(), eng, logger.Component(base, "ledger"))
		if err := ledger.AutoMigrate(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return ledger, func() { _ = client.Close() }, nil

	case config.LedgerSQLite, config.LedgerPostgres:
		db, err := sqldb.Open(ctx, cfg.SQL)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlkv.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return sqlkv.NewLedger(db, eng, logger.Component(base, "ledger")), func() { _ = db.Close() }, nil
	}
	return nil, nil, errors.New("unknown ledger type " + string(cfg.Ledger.Type))
}
