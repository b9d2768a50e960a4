package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"content-subscription-platform/internal/config"
	"content-subscription-platform/internal/domain/ports/adapter"
	payAdapters "content-subscription-platform/internal/infra/adapters/payment"
	"content-subscription-platform/internal/infra/api"
	pg "content-subscription-platform/internal/infra/db/postgres"
	"content-subscription-platform/internal/infra/logging"
	"content-subscription-platform/internal/infra/metrics"
	red "content-subscription-platform/internal/infra/redis"
	"content-subscription-platform/internal/infra/sched"
	"content-subscription-platform/internal/infra/web"
	"content-subscription-platform/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode (noop gateway, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	subCache := red.NewSubscriptionCache(redisClient, cfg.Redis.TTL, logger)

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	videoRepo := pg.NewVideoRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Payment gateway ----
	var gateway adapter.PaymentGateway
	if cfg.Runtime.Dev && cfg.Payment.NowPayments.APIKey == "" {
		gateway = payAdapters.NewNoopGateway()
		logger.Warn().Msg("no gateway credentials; using noop gateway")
	} else {
		gateway, err = payAdapters.NewNowPaymentsGateway(
			cfg.Payment.NowPayments.APIKey,
			cfg.Payment.NowPayments.IPNSecret,
			cfg.Payment.NowPayments.Sandbox,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("nowpayments gateway init failed")
		}
	}

	plans, err := cfg.PlanCatalog()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid plan catalog")
	}

	// ---- Use cases ----
	userUC := usecase.NewUserUseCase(userRepo, logger)
	videoUC := usecase.NewVideoUseCase(videoRepo, logger)
	checkoutUC := usecase.NewCheckoutUseCase(paymentRepo, userRepo, gateway, plans, cfg.Payment.NowPayments.CallbackURL, logger)
	reconcileUC := usecase.NewReconcileUseCase(paymentRepo, userRepo, gateway, txManager, plans, subCache, logger)
	entitlementUC := usecase.NewEntitlementUseCase(userRepo, videoRepo, subCache, logger)
	statsUC := usecase.NewStatsUseCase(userRepo, paymentRepo)

	if _, err := userUC.EnsureAdmin(ctx, cfg.Admin.Username); err != nil {
		logger.Fatal().Err(err).Msg("admin bootstrap failed")
	}

	// ---- Background workers ----
	reconciler := sched.NewPaymentReconciler(reconcileUC, paymentRepo, cfg.Sched.ReconcileInterval, cfg.Sched.StaleAfter, logger)
	go reconciler.Start(ctx)
	expiry := sched.NewExpiryWorker(userRepo, cfg.Sched.ExpiryInterval, logger)
	go expiry.Start(ctx)

	// ---- HTTP servers ----
	publicSrv := api.NewServer(reconcileUC, checkoutUC, entitlementUC, statsUC, logger)
	auth := web.NewAuthManager(cfg.Admin.SessionSecret, cfg.Admin.APIKey, !cfg.Runtime.Dev, cfg.Admin.SessionTTL)
	adminSrv := web.NewServer(statsUC, userUC, videoUC, paymentRepo, auth, logger)

	errCh := make(chan error, 2)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info().Str("addr", addr).Msg("public api listening")
		errCh <- publicSrv.Run(ctx, addr)
	}()
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Admin.Port)
		logger.Info().Str("addr", addr).Msg("admin api listening")
		errCh <- adminSrv.Run(ctx, addr)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server failed")
		}
	}
}
