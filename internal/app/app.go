package app

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/merchantgate/server/internal/adapter/outbound/s3"
	"github.com/merchantgate/server/internal/gateway"
	"github.com/merchantgate/server/internal/gateway/alipay"
	"github.com/merchantgate/server/internal/gateway/bogus"
	"github.com/merchantgate/server/internal/gateway/mercadopago"
	"github.com/merchantgate/server/internal/gateway/stripe"
	"github.com/merchantgate/server/internal/gateway/wechat"
	"github.com/merchantgate/server/internal/module/payment"
	"github.com/merchantgate/server/internal/shared/auth"
	sharedcache "github.com/merchantgate/server/internal/shared/cache"
	"github.com/merchantgate/server/internal/shared/config"
	"github.com/merchantgate/server/internal/shared/database"
	"github.com/merchantgate/server/internal/shared/events"
	"github.com/merchantgate/server/internal/shared/logger"
	"github.com/merchantgate/server/internal/utils/metrics"
	"github.com/merchantgate/server/internal/utils/middleware"
)

// App wires configuration, storage, the gateway registry and the HTTP
// surface together.
type App struct {
	config    *config.Config
	db        *gorm.DB
	redis     redis.UniversalClient
	router    *gin.Engine
	logger    *logger.Logger
	zapLogger *zap.Logger
	metrics   *metrics.Metrics

	registry     *gateway.Registry
	archive      *s3.TranscriptArchive
	tokenManager *auth.Manager

	paymentService *payment.Service
	paymentHandler *payment.Handler
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	zapLog, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init zap logger: %w", err)
	}

	app := &App{
		config:    cfg,
		logger:    log,
		zapLogger: zapLog,
		metrics:   metrics.New(""),
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrate(&payment.Transaction{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	app.db = db

	// Redis is optional; rate limiting and idempotency degrade without it.
	if cfg.Redis.Address != "" {
		redisClient, err := sharedcache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("Redis connection failed, continuing without it", "error", err)
		} else {
			app.redis = redisClient
		}
	}

	registry, err := buildRegistry(cfg, zapLog)
	if err != nil {
		return nil, err
	}
	app.registry = registry

	if cfg.Storage.Enabled() {
		archive, err := s3.New(s3.Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			Bucket:          cfg.Storage.Bucket,
			Prefix:          cfg.Storage.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("init transcript archive: %w", err)
		}
		app.archive = archive
	}

	if cfg.Auth.JWTSecret != "" {
		app.tokenManager = auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	}

	app.initPaymentModule()
	app.router = app.setupRouter()
	app.registerRoutes()

	return app, nil
}

// buildRegistry constructs gateways from configured credentials. A gateway
// with no credentials is simply not registered; bad credentials fail startup.
func buildRegistry(cfg *config.Config, zapLog *zap.Logger) (*gateway.Registry, error) {
	registry := gateway.NewRegistry()

	if cfg.Gateways.Bogus.Enabled {
		registry.Register(bogus.New())
	}

	if cfg.Gateways.Stripe.APIKey != "" {
		g, err := stripe.New(stripe.Config{
			APIKey: cfg.Gateways.Stripe.APIKey,
			Transcripts: func(t string) {
				zapLog.Debug("stripe exchange", zap.String("transcript", t))
			},
		})
		if err != nil {
			return nil, fmt.Errorf("init stripe: %w", err)
		}
		registry.Register(g)
	}

	if cfg.Gateways.Alipay.AppID != "" {
		g, err := alipay.New(alipay.Config{
			AppID:           cfg.Gateways.Alipay.AppID,
			PrivateKey:      cfg.Gateways.Alipay.PrivateKey,
			AlipayPublicKey: cfg.Gateways.Alipay.AlipayPublicKey,
			IsProd:          !cfg.Gateways.Alipay.Test,
		})
		if err != nil {
			return nil, fmt.Errorf("init alipay: %w", err)
		}
		registry.Register(g)
	}

	if cfg.Gateways.Wechat.AppID != "" {
		g, err := wechat.New(wechat.Config{
			AppID:      cfg.Gateways.Wechat.AppID,
			MchID:      cfg.Gateways.Wechat.MchID,
			APIKeyV3:   cfg.Gateways.Wechat.APIKeyV3,
			SerialNo:   cfg.Gateways.Wechat.SerialNo,
			PrivateKey: cfg.Gateways.Wechat.PrivateKey,
			IsProd:     !cfg.Gateways.Wechat.Test,
		})
		if err != nil {
			return nil, fmt.Errorf("init wechat: %w", err)
		}
		registry.Register(g)
	}

	if cfg.Gateways.MercadoPago.AccessToken != "" {
		g, err := mercadopago.New(mercadopago.Config{AccessToken: cfg.Gateways.MercadoPago.AccessToken})
		if err != nil {
			return nil, fmt.Errorf("init mercadopago: %w", err)
		}
		registry.Register(g)
	}

	return registry, nil
}

func (a *App) initPaymentModule() {
	repo := payment.NewRepository(a.db)

	// Assign only when configured so the interface stays nil, not a
	// non-nil interface holding a nil pointer.
	var archive payment.TranscriptArchiver
	if a.archive != nil {
		archive = a.archive
	}

	bus := events.NewBus(a.zapLogger)
	bus.Register(events.NewHandlerFunc([]string{events.TransactionRecordedType}, func(e events.Event) error {
		if txn, ok := e.(*events.TransactionRecordedEvent); ok && !txn.Success {
			a.zapLogger.Warn("transaction declined",
				zap.String("transaction_id", txn.AggregateID().String()),
				zap.String("gateway", txn.Gateway),
				zap.String("operation", txn.Operation),
				zap.String("error_code", txn.ErrorCode),
			)
		}
		return nil
	}))

	a.paymentService = payment.NewService(repo, a.registry, archive, a.metrics, bus, a.zapLogger)
	a.paymentHandler = payment.NewHandler(a.paymentService)
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	return r
}

// registerRoutes registers the API surface.
func (a *App) registerRoutes() {
	v1 := a.router.Group("/api/v1")

	var limiter middleware.RateLimiter
	if a.redis != nil {
		limiter = sharedcache.NewRateLimiter(a.redis)
	}

	// Token exchange sits behind the API key alone.
	authGroup := v1.Group("/auth")
	authGroup.Use(middleware.APIKeyAuth(a.config.Auth.APIKeyHash, a.metrics))
	authGroup.POST("/token", a.issueToken)

	api := v1.Group("")
	api.Use(middleware.RateLimitByIP(limiter, 300, time.Minute))
	api.Use(middleware.APIKeyAuth(a.config.Auth.APIKeyHash, a.metrics))
	if a.tokenManager != nil {
		// Bearer tokens are optional on top of the API key; when present
		// they attach the merchant identity to the request.
		api.Use(middleware.BearerAuth(a.tokenManager, a.metrics, true))
	}
	if a.redis != nil {
		// POSTs in this group must carry an Idempotency-Key.
		api.Use(middleware.IdempotencyRequired())
		api.Use(middleware.Idempotency(a.redis, middleware.DefaultIdempotencyConfig()))
	}

	a.paymentHandler.RegisterRoutes(api)
}

// issueToken exchanges a valid API key for a short-lived bearer token.
func (a *App) issueToken(c *gin.Context) {
	if a.tokenManager == nil {
		c.JSON(404, gin.H{
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Token auth is not configured",
			},
		})
		return
	}

	var req struct {
		Merchant string `json:"merchant" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	token, expiresAt, err := a.tokenManager.IssueToken(req.Merchant)
	if err != nil {
		c.JSON(500, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to issue token",
			},
		})
		return
	}

	c.JSON(200, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_at":   expiresAt.Unix(),
	})
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop stops the application and releases resources.
func (a *App) Stop() {
	if a.zapLogger != nil {
		_ = a.zapLogger.Sync()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = database.Close(a.db)
	}
}
