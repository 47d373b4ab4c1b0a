package main

import (
	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/server"
	"storefront/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	//.envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config load failed")
	}

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})
	if cfg.GoEnv == "dev" {
		log.SetLevel(logrus.DebugLevel)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.WithError(err).Fatal("db connect failed")
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Address{},
		&model.Order{},
		&model.OrderItem{},
		&model.Discount{},
		&model.AuditLog{},
		&model.SessionRecord{},
	); err != nil {
		log.WithError(err).Fatal("migrate failed")
	}

	//Repository（GORM実装）生成
	sessionStore := infraRepo.NewSessionGormStore(gormDB)
	discountRepo := infraRepo.NewDiscountGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//Usecase生成
	cartUC := usecase.NewCartUsecase(sessionStore, cfg.TaxRate)
	discountUC := usecase.NewDiscountUsecase(discountRepo, auditRepo)
	checkoutUC := usecase.NewCheckoutUsecase(
		sessionStore, cartUC, discountUC, txManager, log,
		cfg.TaxRate, cfg.ExpressShippingCost,
	)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, auditRepo, log)

	//Handler生成
	handlers := server.Handlers{
		Cart:       handler.NewCartHandler(cartUC),
		Checkout:   handler.NewCheckoutHandler(checkoutUC),
		Discount:   handler.NewDiscountHandler(discountUC),
		AdminOrder: handler.NewAdminOrderHandler(adminOrderUC),
	}

	//Server起動
	e := server.New(cfg, handlers)

	addr := ":" + cfg.Port
	if cfg.Port[0] == ':' {
		addr = cfg.Port
	}

	if err := server.Start(e, addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
