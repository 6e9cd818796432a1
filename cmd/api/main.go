package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs-labo46/ec-shop-api/internal/config"
	"github.com/rs-labo46/ec-shop-api/internal/handler"
	"github.com/rs-labo46/ec-shop-api/internal/infra/db"
	infraRepo "github.com/rs-labo46/ec-shop-api/internal/infra/repository"
	"github.com/rs-labo46/ec-shop-api/internal/infra/stripegw"
	"github.com/rs-labo46/ec-shop-api/internal/logging"
	"github.com/rs-labo46/ec-shop-api/internal/metrics"
	"github.com/rs-labo46/ec-shop-api/internal/server"
	"github.com/rs-labo46/ec-shop-api/internal/usecase"
	"github.com/rs-labo46/ec-shop-api/internal/validator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.MustNewLogger(cfg.ServiceName, cfg.GoEnv, cfg.LogLevel)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	//DB接続
	gormDB, err := db.Connect(cfg.PostgresDSN(), logger)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	//メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//決済ゲートウェイ
	gw := stripegw.NewStripeGateway(cfg.StripeSecretKey)

	//Usecase生成
	userUC := usecase.NewUserUsecase(
		userRepo,
		validator.NewUserValidator(),
		usecase.NewBcryptPasswordHasher(12),
		usecase.NewBcryptPasswordHasher(12),
		usecase.NewJWTIssuer(cfg.JWTSecret, cfg.JWTAccessTTL),
		txm,
	)
	productUC := usecase.NewProductUsecase(txm, productRepo, inventoryRepo, gw, cfg.Currency)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, m)
	cartUC := usecase.NewCartUsecase(txm, cartItemRepo, productRepo, m)
	paymentUC := usecase.NewPaymentUsecase(gw, userRepo, orderRepo, orderUC, cfg.Currency, m)
	auditUC := usecase.NewAuditLogUsecase(auditRepo)

	//Handler生成
	handlers := server.Handlers{
		User:         handler.NewUserHandler(userUC),
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Order:        handler.NewOrderHandler(orderUC, cartUC),
		AdminOrder:   handler.NewAdminOrderHandler(orderUC, auditUC),
		Payment:      handler.NewPaymentHandler(paymentUC),
		Cart:         handler.NewCartHandler(cartUC),
	}

	e := server.New(cfg, logger, m, reg, userRepo, handlers)

	//Server起動（SIGINT/SIGTERMで停止）
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx, e, cfg.Addr(), logger); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
