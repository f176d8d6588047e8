package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/db"
	"storefront/internal/infra/events"
	"storefront/internal/infra/gateway"
	"storefront/internal/infra/mail"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/session"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/server"
	"storefront/internal/usecase"
	"storefront/internal/validator"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		//loggerより前なのでstderrへ
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.GoEnv == "dev" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg, logger)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	restaurantRepo := infraRepo.NewRestaurantGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//Redis（無ければメモリ・キャッシュなし）
	var (
		sessions     repository.CheckoutSessionStore
		productCache usecase.ProductCache
	)
	if cfg.RedisAddr != "" {
		rdb, err := session.InitRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, logger)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		sessions = session.NewRedisStore(rdb, logger)
		productCache = cache.NewRedisProductCache(rdb, cfg.CatalogCacheTTL)
	} else {
		logger.Warn("REDIS_ADDR not set; checkout sessions kept in memory, catalog cache disabled")
		mem := session.NewMemoryStore()
		go mem.Run(ctx.Done(), time.Minute)
		sessions = mem
		productCache = cache.NoopProductCache{}
	}

	//Kafka（無ければ送らない）
	var publisher interface {
		usecase.OrderEventPublisher
		Close() error
	} = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.InitProducer(cfg.KafkaBrokers, logger)
		if err != nil {
			return err
		}
		publisher = events.NewKafkaPublisher(producer, cfg.KafkaOrderTopic, logger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("close event publisher failed", zap.Error(err))
		}
	}()

	gw := gateway.NewMyFatoorahClient(cfg.GatewayBaseURL, cfg.GatewayAPIToken, cfg.GatewayTimeout, logger)

	//Usecase生成
	finalizer := usecase.NewOrderFinalizer(txm, orderRepo, orderItemRepo, gw, publisher, logger, cfg.GatewayTimeout, cfg.DefaultCurrency)
	checkoutUC := usecase.NewCheckoutUsecase(sessions, gw, finalizer, usecase.CheckoutConfig{
		CallbackURL:     cfg.PaymentCallbackURL(),
		SessionTTL:      cfg.CheckoutSessionTTL,
		DefaultCurrency: cfg.DefaultCurrency,
		GatewayTimeout:  cfg.GatewayTimeout,
	}, logger)
	catalogUC := usecase.NewCatalogUsecase(productRepo, categoryRepo, restaurantRepo, productCache, logger)
	adminUC := usecase.NewAdminCatalogUsecase(txm, auditRepo, productCache, logger)
	authUC := usecase.NewAuthUsecase(cfg, userRepo, validator.NewAuthValidator(userRepo), mail.NewLogMailer(logger), logger)

	if err := authUC.EnsureAdmin(ctx); err != nil {
		return err
	}

	//Handler生成
	srv := server.New(cfg, logger)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	server.RegisterRoutes(srv.Echo(), cfg, userRepo, limiter, server.Handlers{
		Catalog:      handler.NewCatalogHandler(catalogUC),
		Payment:      handler.NewPaymentHandler(checkoutUC, finalizer, logger),
		Checkout:     handler.NewCheckoutHandler(checkoutUC),
		Auth:         handler.NewAuthHandler(authUC),
		AdminCatalog: handler.NewAdminCatalogHandler(adminUC),
		AdminUser:    handler.NewAdminUserHandler(authUC),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		limiter.Run(gctx.Done(), time.Minute)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
