package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"optionchains/internal/client/broker"
	"optionchains/internal/config"
	cronrunner "optionchains/internal/cron"
	"optionchains/internal/db"
	"optionchains/internal/handler"
	"optionchains/internal/logger"
	gormrepository "optionchains/internal/repository/gorm"
	"optionchains/internal/rollchain"
	"optionchains/internal/service"

	_ "optionchains/docs"
)

func main() {
	cfgPath := os.Getenv("OC_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("OC_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
	}

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	source, err := newOrderSource(cfg.Broker, logger)
	if err != nil {
		logger.Fatal("order source init failed", zap.Error(err))
	}
	syncSvc := &service.OrderSyncService{
		Repo:         store,
		Source:       source,
		Logger:       logger,
		LookbackDays: cfg.Detection.HistoryLookbackDays,
		Overlap:      cfg.OrderSync.OverlapWindow,
		BatchSize:    cfg.OrderSync.BatchSize,
	}
	detectionSvc := &service.ChainDetectionService{
		Repo:         store,
		Sync:         syncSvc,
		Detector:     rollchain.NewDetector(cfg.Detection.RollchainConfig(), logger),
		Logger:       logger,
		WindowDays:   cfg.Detection.WindowDays,
		HistoryDays:  cfg.Detection.HistoryLookbackDays,
		GroupWorkers: cfg.Detection.GroupWorkers,
		Users:        cfg.Detection.Users,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(handler.RequireBearer(cfg.Server.APIToken))
	engine.Use(handler.WriteAudit(logger))

	(&handler.HealthHandler{DB: dbConn}).Register(engine)
	(&handler.ChainsHandler{Repo: store, Detection: detectionSvc}).Register(engine)
	(&handler.RunsHandler{Repo: store}).Register(engine)
	(&handler.SettingsHandler{Repo: store, Settings: settingsSvc}).Register(engine)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		registerJobs(cronRunner, cfg, settingsSvc, syncSvc, detectionSvc, logger)
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// newOrderSource builds the configured broker source, wrapped in a circuit
// breaker when enabled.
func newOrderSource(cfg config.BrokerConfig, logger *zap.Logger) (broker.Source, error) {
	var source broker.Source
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", "http":
		source = broker.NewClient(nil, broker.ClientOptions{
			BaseURL:  cfg.BaseURL,
			Token:    cfg.Token,
			PageSize: cfg.PageSize,
			MaxPages: cfg.MaxPages,
			Timeout:  cfg.Timeout,
		})
	case "file":
		source = broker.NewFileSource(cfg.FileDir)
	default:
		return nil, fmt.Errorf("unknown broker kind %q", cfg.Kind)
	}
	if !cfg.Breaker.Enabled {
		return source, nil
	}
	return broker.NewCircuitBreakerSource(source, broker.BreakerSettings{
		MaxRequests:      cfg.Breaker.MaxRequests,
		Interval:         cfg.Breaker.Interval,
		Timeout:          cfg.Breaker.Timeout,
		FailureThreshold: cfg.Breaker.FailureThreshold,
	}, logger), nil
}

func registerJobs(
	runner *cronrunner.Runner,
	cfg config.Config,
	settings *service.SystemSettingsService,
	syncSvc *service.OrderSyncService,
	detection *service.ChainDetectionService,
	logger *zap.Logger,
) {
	if _, err := runner.Add("order_sync", cfg.Cron.OrderSync, func(ctx context.Context) error {
		if !settings.IsEnabled(ctx, service.FeatureOrderSync, true) {
			return nil
		}
		users, err := detection.KnownUsers(ctx)
		if err != nil {
			return err
		}
		return syncSvc.SyncAll(ctx, users)
	}); err != nil {
		logger.Warn("cron register order sync failed", zap.Error(err))
	}

	if _, err := runner.Add("chain_detection", cfg.Cron.ChainDetection, func(ctx context.Context) error {
		if !settings.IsEnabled(ctx, service.FeatureChainDetection, true) {
			return nil
		}
		results, err := detection.DetectAll(ctx)
		logger.Info("cron chain detection finished", zap.Int("users", len(results)))
		return err
	}); err != nil {
		logger.Warn("cron register chain detection failed", zap.Error(err))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
