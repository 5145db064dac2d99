package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/plumped/InventoryPulse-sub000/internal/config"
	masterdataRepo "github.com/plumped/InventoryPulse-sub000/internal/masterdata/repository"
	"github.com/plumped/InventoryPulse-sub000/internal/notify"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/repository"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/service"
	rmarepo "github.com/plumped/InventoryPulse-sub000/internal/rma/repository"
	settingsRepo "github.com/plumped/InventoryPulse-sub000/internal/settings/repository"
	stockRepo "github.com/plumped/InventoryPulse-sub000/internal/stock/repository"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	root := &cobra.Command{
		Use:   "pulse-jobs",
		Short: "采购工作流批处理任务",
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "suggestions",
			Short: "根据最低库存重新生成订单建议",
			RunE: func(cmd *cobra.Command, args []string) error {
				services, cleanup, err := buildServices()
				if err != nil {
					return err
				}
				defer cleanup()

				count, err := services.Suggestion.Generate(context.Background())
				if err != nil {
					return err
				}
				fmt.Printf("generated %d order suggestions\n", count)
				return nil
			},
		},
		&cobra.Command{
			Use:   "recurring",
			Short: "处理到期的周期性订单模板",
			RunE: func(cmd *cobra.Command, args []string) error {
				services, cleanup, err := buildServices()
				if err != nil {
					return err
				}
				defer cleanup()

				result, err := services.Template.ProcessRecurring(context.Background(), time.Now())
				if err != nil {
					return err
				}
				fmt.Printf("created %d orders from recurring templates, %d failed\n",
					result.Created, result.Failed)
				for _, msg := range result.Errors {
					fmt.Printf("  %s\n", msg)
				}
				return nil
			},
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildServices 构建批处理任务需要的服务集合，返回资源清理函数
func buildServices() (*service.Services, func(), error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.Password, cfg.Database.DBName, cfg.Database.SSLMode,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	services := service.NewServices(service.Deps{
		DB:        db,
		Repos:     repository.NewRepositories(db),
		Products:  masterdataRepo.NewProductRepository(db),
		Suppliers: masterdataRepo.NewSupplierRepository(db),
		Stock:     stockRepo.NewStockRepository(db),
		Settings:  settingsRepo.NewSettingsRepository(db),
		RMA:       rmarepo.NewRMARepository(db),
		Workflow:  cfg.Workflow,
		Logger:    zapLogger,
		Mailer:    notify.NewMailer(cfg.SMTP, zapLogger),
		Redis:     rdb,
	})

	cleanup := func() {
		zapLogger.Sync()
		rdb.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return services, cleanup, nil
}
