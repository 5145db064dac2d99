package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/plumped/InventoryPulse-sub000/internal/config"
	masterdataEntity "github.com/plumped/InventoryPulse-sub000/internal/masterdata/entity"
	masterdataRepo "github.com/plumped/InventoryPulse-sub000/internal/masterdata/repository"
	"github.com/plumped/InventoryPulse-sub000/internal/middleware"
	"github.com/plumped/InventoryPulse-sub000/internal/notify"
	procureEntity "github.com/plumped/InventoryPulse-sub000/internal/procure/entity"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/handler"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/repository"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/service"
	rmaEntity "github.com/plumped/InventoryPulse-sub000/internal/rma/entity"
	rmahandler "github.com/plumped/InventoryPulse-sub000/internal/rma/handler"
	rmarepo "github.com/plumped/InventoryPulse-sub000/internal/rma/repository"
	rmaservice "github.com/plumped/InventoryPulse-sub000/internal/rma/service"
	settingsEntity "github.com/plumped/InventoryPulse-sub000/internal/settings/entity"
	settingsRepo "github.com/plumped/InventoryPulse-sub000/internal/settings/repository"
	stockEntity "github.com/plumped/InventoryPulse-sub000/internal/stock/entity"
	stockRepo "github.com/plumped/InventoryPulse-sub000/internal/stock/repository"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting pulse service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 数据库迁移
	for _, migrate := range []func(*gorm.DB) error{
		masterdataEntity.AutoMigrate,
		stockEntity.AutoMigrate,
		settingsEntity.AutoMigrate,
		rmaEntity.AutoMigrate,
		procureEntity.AutoMigrate,
	} {
		if err := migrate(db); err != nil {
			zapLogger.Warn("AutoMigrate warning", zap.Error(err))
		}
	}
	zapLogger.Info("Database migration completed")

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化邮件
	mailer := notify.NewMailer(cfg.SMTP, zapLogger)

	// 初始化依赖
	rmaRepo := rmarepo.NewRMARepository(db)
	services := service.NewServices(service.Deps{
		DB:        db,
		Repos:     repository.NewRepositories(db),
		Products:  masterdataRepo.NewProductRepository(db),
		Suppliers: masterdataRepo.NewSupplierRepository(db),
		Stock:     stockRepo.NewStockRepository(db),
		Settings:  settingsRepo.NewSettingsRepository(db),
		RMA:       rmaRepo,
		Workflow:  cfg.Workflow,
		Logger:    zapLogger,
		Mailer:    mailer,
		Redis:     rdb,
	})

	// RMA服务：收货服务作为订单侧观察者，RMA关闭后重算订单状态
	rmaService := rmaservice.NewRMAService(rmaRepo, services.Receipt)

	handlers := handler.NewHandlers(services)
	rmaHandler := rmahandler.NewRMAHandler(rmaService)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, rmaHandler, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, rmaH *rmahandler.RMAHandler, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		// 采购订单
		orders := authorized.Group("/purchase-orders")
		{
			orders.GET("", h.Order.List)
			orders.POST("", h.Order.Create)
			orders.POST("/import", h.Order.Import)
			orders.GET("/:id", h.Order.Get)
			orders.GET("/:id/export", h.Order.Export)
			orders.PUT("/:id", h.Order.Update)
			orders.DELETE("/:id", h.Order.Delete)
			orders.GET("/:id/comments", h.Order.ListComments)

			// 状态流转
			orders.POST("/:id/submit", h.Order.Submit)
			orders.POST("/:id/approve", h.Order.Approve)
			orders.POST("/:id/reject", h.Order.Reject)
			orders.POST("/:id/mark-sent", h.Order.MarkSent)

			// 行项取消
			orders.POST("/:id/items/:itemId/cancel", h.Order.CancelItem)
			orders.PUT("/:id/items/:itemId/cancel", h.Order.EditCancellation)
			orders.DELETE("/:id/items/:itemId/cancel", h.Order.RevertCancellation)

			// 分批发货
			orders.GET("/:id/splits", h.Split.List)
			orders.POST("/:id/splits", h.Split.Create)

			// 收货
			orders.POST("/:id/receive", h.Receipt.Receive)
			orders.GET("/:id/receipts", h.Receipt.List)

			// RMA草稿
			orders.GET("/:id/rma-drafts", rmaH.ListDrafts)
			orders.POST("/:id/rmas", rmaH.CreateFromDrafts)
		}

		// 分批发货（订单无关操作）
		authorized.PUT("/order-splits/:splitId/status", h.Split.UpdateStatus)
		authorized.DELETE("/order-splits/:splitId", h.Split.Delete)

		// 收货记录删除（回滚库存副作用）
		authorized.DELETE("/receipts/:receiptId", h.Receipt.Delete)

		// RMA关闭
		authorized.POST("/rmas/:rmaId/resolve", rmaH.Resolve)

		// 订单建议
		suggestions := authorized.Group("/order-suggestions")
		{
			suggestions.GET("", h.Suggestion.List)
			suggestions.POST("/refresh", h.Suggestion.Refresh)
			suggestions.POST("/create-orders", h.Suggestion.CreateOrders)
		}

		// 订单模板
		templates := authorized.Group("/order-templates")
		{
			templates.GET("", h.Template.List)
			templates.POST("", h.Template.Create)
			templates.GET("/:id", h.Template.Get)
			templates.PUT("/:id", h.Template.Update)
			templates.DELETE("/:id", h.Template.Delete)
			templates.POST("/process-recurring", h.Template.ProcessRecurring)
		}
	}
}
