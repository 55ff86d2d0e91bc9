package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/redlitmus-in/MeterSquare-sub001/internal/config"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/middleware"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/handler"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/repository"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/service"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/shared/feishu"
)

// 构建期注入
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

	zapLogger.Info("Starting procure service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// AutoMigrate 采购实体
	if err := db.AutoMigrate(
		&entity.User{},
		&entity.BOQItem{},
		&entity.ProjectAssignment{},
		&entity.BOQItemAssignment{},
		&entity.Vendor{},
		&entity.ChangeRequest{},
		&entity.CRMaterial{},
		&entity.VendorSelection{},
		&entity.POChild{},
		&entity.POChildItem{},
		&entity.BOQLedger{},
		&entity.HistoryAction{},
	); err != nil {
		zapLogger.Warn("AutoMigrate procure tables warning", zap.Error(err))
	}

	// 初始化Redis（幂等缓存）
	rdb := initRedis(cfg.Redis)

	// 初始化MinIO（附件存储）
	minioClient := initMinIO(cfg.MinIO, zapLogger)

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, service.NewDedupCache(rdb), minioClient, cfg.MinIO.Bucket)

	// 初始化飞书客户端（审批通知）
	if cfg.Feishu.AppID != "" && cfg.Feishu.AppSecret != "" {
		services.SetNotifier(feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret))
		zapLogger.Info("Feishu notifier initialized")
	}

	handlers := handler.NewHandlers(services)

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

	// 注册路由
	registerRoutes(router, handlers, cfg)

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
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
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
	if cfg.Host == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func initMinIO(cfg config.MinIOConfig, zapLogger *zap.Logger) *minio.Client {
	if cfg.Endpoint == "" {
		zapLogger.Warn("MinIO not configured, attachments disabled")
		return nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		zapLogger.Warn("MinIO init failed, attachments disabled", zap.Error(err))
		return nil
	}
	return client
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
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
	v1 := r.Group("/api/v1/procure")
	v1.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		// 申请单
		crs := v1.Group("/change-requests")
		{
			crs.GET("", h.CR.List)
			crs.POST("", h.CR.Create)
			crs.GET("/:id", h.CR.Get)
			crs.POST("/:id/send-for-review", h.CR.SendForReview)
			crs.POST("/:id/approve", h.CR.Approve)
			crs.POST("/:id/reject", h.CR.Reject)
			crs.GET("/:id/history", h.CR.History)
			crs.GET("/:id/export", h.CR.Export)
			crs.POST("/:id/attachments", h.CR.UploadAttachment)
			crs.GET("/:id/attachments/download", h.CR.DownloadAttachment)

			// 选商与拆分
			crs.POST("/:id/select-vendor", h.Vendor.SelectVendor)
			crs.POST("/:id/materialize", h.POChild.Materialize)
			crs.POST("/:id/send-to-td", h.POChild.SendToTD)
			crs.GET("/:id/children", h.POChild.ListChildren)
		}

		// BOQ台账
		v1.GET("/boqs/:boq_id/history", h.CR.BOQHistory)

		// 供应商
		vendors := v1.Group("/vendors")
		{
			vendors.GET("", h.Vendor.List)
			vendors.POST("", h.Vendor.Create)
			vendors.GET("/:id", h.Vendor.Get)
			vendors.PUT("/:id", h.Vendor.Update)
			vendors.PUT("/:id/status", middleware.RequireRole(entity.RoleBuyer, entity.RoleTechnicalDirector), h.Vendor.SetStatus)
		}

		// 采购子单
		children := v1.Group("/po-children")
		{
			children.GET("/pending-td", h.POChild.PendingTD)
			children.GET("/:id", h.POChild.Get)
			children.POST("/:id/approve", h.POChild.Approve)
			children.POST("/:id/reject", h.POChild.Reject)
			children.POST("/:id/reselect-vendor", h.POChild.ReselectVendor)
			children.POST("/:id/complete", h.POChild.Complete)
			children.DELETE("/:id", h.POChild.Delete)
		}
	}
}
