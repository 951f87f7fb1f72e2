package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"stockwatch/internal/alertrule"
	"stockwatch/internal/auth"
	"stockwatch/internal/config"
	cronrunner "stockwatch/internal/cron"
	"stockwatch/internal/db"
	"stockwatch/internal/errtrack"
	"stockwatch/internal/handler"
	"stockwatch/internal/logger"
	"stockwatch/internal/metrics"
	"stockwatch/internal/notify"
	"stockwatch/internal/quote"
	gormrepository "stockwatch/internal/repository/gorm"
	"stockwatch/internal/service"
	"stockwatch/internal/stream"

	_ "stockwatch/docs"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfgPath := os.Getenv("SW_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SW_ENV_ONLY"); envOnlyRaw != "" {
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

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	tracker, err := errtrack.New(cfg.Sentry.DSN, cfg.App.Env)
	if err != nil {
		logger.Warn("sentry init failed, errors are only logged", zap.Error(err))
		tracker = errtrack.Noop{}
	}
	defer tracker.Flush(2 * time.Second)

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	metrics.Init()

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	var quotes quote.Source = quote.NewAlphaVantage(cfg.Quote, logger.Named("quote"))
	var redisCache *quote.RedisCache
	if addr := strings.TrimSpace(cfg.Redis.Addr); addr != "" {
		redisCache = quote.NewRedisCache(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, "stockwatch:")
		defer redisCache.Close()
		quotes = &quote.CachedSource{
			Source: quotes,
			Cache:  redisCache,
			TTL:    cfg.Quote.CacheTTL,
			Logger: logger.Named("quote_cache"),
		}
	}

	sink, err := notify.FromConfig(cfg.Notify, cfg.Checker.DeliveryTimeout, logger.Named("notify"))
	if err != nil {
		logger.Fatal("notification channels unavailable", zap.Error(err))
	}
	logger.Info("alert sink ready", zap.String("channels", sink.Name()))

	hub := stream.NewHub(64)
	checker := &service.StockChecker{
		Repo:             store,
		Quotes:           quotes,
		Sink:             sink,
		Logger:           logger.Named("checker"),
		Flags:            settingsSvc,
		Tracker:          tracker,
		Events:           hub,
		Band:             alertrule.NewBand(cfg.Checker.BandLowerPct, cfg.Checker.BandUpperPct),
		FetchConcurrency: cfg.Checker.FetchConcurrency,
	}

	tokens := auth.JWT{
		Secret:   []byte(cfg.Auth.JWTSecret),
		TokenTTL: cfg.Auth.TokenTTL,
		Issuer:   cfg.Auth.TokenIssuer,
	}
	pepper := cfg.Auth.PINPepper
	if pepper == "" {
		pepper = cfg.Auth.JWTSecret
	}
	accounts := &service.AccountService{
		Repo:   store,
		Hasher: auth.PINHasher{Pepper: []byte(pepper)},
		Tokens: tokens,
		Logger: logger.Named("accounts"),
	}
	portfolios := &service.PortfolioService{
		Repo:               store,
		Quotes:             quotes,
		Sink:               sink,
		Checker:            checker,
		Flags:              settingsSvc,
		Logger:             logger.Named("portfolio"),
		DefaultPollingRate: cfg.Checker.DefaultPollingRate,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(handler.RequestID())
	engine.Use(handler.AccessLog(logger.Named("http")))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Metrics: metrics.Handler()}
	if redisCache != nil {
		healthHandler.Cache = redisCache
	}
	healthHandler.Register(engine)
	handler.RegisterDocs(engine)

	authHandler := &handler.AuthHandler{
		Accounts:     accounts,
		Tokens:       tokens,
		CookieName:   cfg.Auth.CookieName,
		CookieSecure: cfg.Server.CookieSecure,
	}
	authHandler.Register(engine)
	portfolioHandler := &handler.PortfolioHandler{
		Service:    portfolios,
		Tokens:     tokens,
		CookieName: cfg.Auth.CookieName,
	}
	portfolioHandler.Register(engine)
	streamHandler := &handler.StreamHandler{
		Hub:        hub,
		Tokens:     tokens,
		CookieName: cfg.Auth.CookieName,
		Logger:     logger.Named("stream"),
	}
	streamHandler.Register(engine)
	adminHandler := &handler.AdminHandler{
		Settings:   settingsSvc,
		Checker:    checker,
		AdminToken: cfg.Server.AdminToken,
	}
	adminHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger.Named("cron"), ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.StockCheck, func(ctx context.Context) {
			if _, err := checker.RunScheduled(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("scheduled stock check failed", zap.Error(err))
				tracker.CaptureError(ctx, err, map[string]string{"job": "stock_check"})
			}
		})
		if err != nil {
			logger.Fatal("cron register stock check failed", zap.String("spec", cfg.Cron.StockCheck), zap.Error(err))
		}
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
