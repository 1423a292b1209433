package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpadp "loan-servicing-backend/internal/adapter/http"
	mw "loan-servicing-backend/internal/adapter/middleware"
	"loan-servicing-backend/internal/adapter/repository/mysql"
	"loan-servicing-backend/internal/config"
	"loan-servicing-backend/internal/infrastructure/cache"
	"loan-servicing-backend/internal/infrastructure/db"
	"loan-servicing-backend/internal/infrastructure/logging"
	"loan-servicing-backend/internal/infrastructure/scheduler"
	"loan-servicing-backend/internal/infrastructure/storage"
	"loan-servicing-backend/internal/usecase/ledger"
	"loan-servicing-backend/internal/usecase/loan"
	"loan-servicing-backend/internal/usecase/overdue"
	"loan-servicing-backend/internal/usecase/verification"
	"loan-servicing-backend/pkg/clock"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	gdb, err := db.OpenGorm(cfg.MySQLDSN(), log)
	if err != nil {
		return fmt.Errorf("mysql: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	rdb, err := cache.OpenRedis(context.Background(), cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()

	proofs, err := storage.NewLocal(cfg.ProofDir, verification.MaxProofSize)
	if err != nil {
		return fmt.Errorf("proof storage: %w", err)
	}

	clk := clock.System{}
	loans := mysql.NewLoanRepository(gdb)
	payments := mysql.NewPaymentRepository(gdb)
	tx := mysql.NewGormUoW(gdb)

	loanUC := loan.NewUsecase(loans, tx, clk, log)
	ledgerUC := ledger.NewUsecase(loans, payments, tx, clk, log)
	verifyUC := verification.NewUsecase(loans, payments, tx, proofs, clk, log)
	sweeper := overdue.NewSweeper(payments, clk, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Logger(), middleware.Recover(), mw.Metrics())

	health := httpadp.NewHandler(
		httpadp.Check{Name: "mysql", Fn: sqlDB.PingContext},
		httpadp.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)
	e.GET("/health", health.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("",
		mw.JWTAuth([]byte(cfg.JWTSecret)),
		mw.Idempotency(rdb, cfg.IdempotencyTTL(), log),
	)
	httpadp.NewLoanHandler(loanUC, log).Register(api)
	httpadp.NewPaymentHandler(ledgerUC, verifyUC, log).Register(api)

	jobs := scheduler.New(log)
	if err := jobs.Add("overdue-sweep", cfg.OverdueSweepCron, func(ctx context.Context) error {
		n, err := sweeper.Run(ctx)
		if err == nil {
			log.Info("overdue sweep", zap.Int("stamped", n))
		}
		return err
	}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := ":" + cfg.AppPort
		log.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error { return jobs.Run(ctx) })

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
