package router

import (
	"time"

	"fursa/config"
	"fursa/internal/events"
	"fursa/internal/handler"
	"fursa/internal/lock"
	"fursa/internal/middleware"
	"fursa/internal/repository"
	"fursa/internal/service"
	"fursa/pkg/gateway"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps carries the externally-constructed collaborators; main decides which
// implementations run (real gateway vs stub, broker sink vs log sink).
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Provider gateway.Provider
	Sink     events.Sink
}

func Setup(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewRedisRateLimiter(deps.Redis, 100, 60*time.Second)))

	db := deps.DB

	// Repositories
	userRepo := repository.NewUserRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	intentionRepo := repository.NewIntentionRepository(db)
	opportunityRepo := repository.NewOpportunityRepository(db)
	investmentRepo := repository.NewInvestmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var locker lock.Locker
	if deps.Redis != nil {
		locker = lock.NewRedisLocker(deps.Redis, "")
	}

	// Services
	notifSvc := service.NewNotificationService(notificationRepo)
	sink := events.Fanout{notifSvc, deps.Sink}
	authSvc := service.NewAuthService(cfg, userRepo)
	allocationSvc := service.NewAllocationService(opportunityRepo, investmentRepo)
	settlementSvc := service.NewSettlementService(intentionRepo, walletRepo, allocationSvc, locker, sink, cfg.Settlement.LeaseTTL)
	paymentSvc := service.NewPaymentService(intentionRepo, deps.Provider, allocationSvc, cfg.Settlement.PaymentExpiry)
	walletSvc := service.NewWalletService(walletRepo, sink)
	distributionSvc := service.NewDistributionService(db, opportunityRepo, investmentRepo, walletRepo, sink)
	sweepSvc := service.NewSweepService(intentionRepo, locker)

	// Handlers
	adapter := gateway.NewAdapter(cfg.Gateway.WebhookSecret)
	authHandler := handler.NewAuthHandler(authSvc, userRepo)
	walletHandler := handler.NewWalletHandler(walletSvc, paymentSvc)
	investmentHandler := handler.NewInvestmentHandler(paymentSvc, investmentRepo)
	opportunityHandler := handler.NewOpportunityHandler(opportunityRepo)
	notificationHandler := handler.NewNotificationHandler(notifSvc)
	adminHandler := handler.NewAdminHandler(distributionSvc, sweepSvc)
	webhookHandler := handler.NewGatewayWebhookHandler(adapter, settlementSvc)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.GET("/me", authMw, authHandler.Me)
		}

		api.GET("/opportunities", opportunityHandler.List)
		api.GET("/opportunities/:id", opportunityHandler.Get)
		api.POST("/opportunities", authMw, middleware.RequireRole("OWNER", "ADMIN"), opportunityHandler.Create)

		wallet := api.Group("/wallet")
		wallet.Use(authMw)
		{
			wallet.GET("", walletHandler.GetBalance)
			wallet.GET("/entries", walletHandler.ListEntries)
			wallet.POST("/topup", walletHandler.InitiateTopUp)
			wallet.POST("/withdraw", walletHandler.Withdraw)
			wallet.POST("/transfer", walletHandler.Transfer)
		}

		investments := api.Group("/investments")
		investments.Use(authMw)
		{
			investments.POST("", investmentHandler.InitiatePurchase)
			investments.GET("", investmentHandler.List)
			investments.GET("/:id", investmentHandler.Get)
		}
		api.GET("/payments/:id", authMw, investmentHandler.GetPayment)

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/notifications", notificationHandler.List)
			me.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.AdminRequired())
		{
			admin.POST("/investments/:id/merchandise-arrived", adminHandler.MarkMerchandiseArrived)
			admin.POST("/opportunities/:id/actual-profit", adminHandler.RecordActualProfit)
			admin.POST("/opportunities/:id/distribute", adminHandler.Distribute)
		}

		api.POST("/cron/expire-payments", middleware.CronKeyRequired(cfg.Cron.Key), adminHandler.ExpirePayments)

		api.POST("/webhooks/gateway", webhookHandler.Handle)
	}

	return r
}
