package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/common/auth"
	apperrors "storefront-service/common/errors"
	"storefront-service/common/logger"
	commonmw "storefront-service/common/middleware"
	"storefront-service/config"
	"storefront-service/controllers"
	"storefront-service/database"
	"storefront-service/events"
	"storefront-service/middleware"
	aws_pkg "storefront-service/pkg/aws"
	"storefront-service/repository"
	"storefront-service/routes"
	"storefront-service/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "storefront-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// AWS clients are optional in development
	awsCfg, awsErr := aws_pkg.LoadAWSConfig(rootCtx)
	awsReady := awsErr == nil

	var cwWriter *aws_pkg.CloudWatchLogsClient
	if cfg.CloudWatchEnabled && awsReady {
		cwWriter, err = aws_pkg.NewCloudWatchLogsClient(rootCtx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			log.Printf("CloudWatch Logs unavailable, logging to stdout only: %v", err)
		}
	}
	if cwWriter != nil {
		logger.InitializeWithWriter(cfg.Env, cwWriter)
	} else {
		logger.Initialize(cfg.Env)
	}
	zl := logger.Log
	defer zl.Sync() //nolint:errcheck

	if awsErr != nil {
		zl.Warn("AWS config unavailable, SNS/SQS/CloudWatch disabled", zap.Error(awsErr))
	}

	if cfg.UseAWSSecrets {
		if !awsReady {
			zl.Fatal("AWS_USE_SECRETS is set but AWS config is unavailable")
		}
		if err := cfg.ApplySecrets(rootCtx, aws_pkg.NewSecretsClient(awsCfg)); err != nil {
			zl.Fatal("Failed to load secrets", zap.Error(err))
		}
	}
	if err := cfg.Validate(); err != nil {
		zl.Fatal("Invalid configuration", zap.Error(err))
	}

	db, err := database.Connect(cfg.DSN(), zl)
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck
	if err := database.Migrate(db); err != nil {
		zl.Fatal("Failed to migrate database", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(rootCtx, cfg.RedisURL, zl)
	if err != nil {
		zl.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close() //nolint:errcheck

	// Repositories
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	balanceRepo := repository.NewBalanceRepository(db)
	cartRepo := repository.NewCartRepository(redisClient, cfg.CartTTL)
	orderStore := repository.NewOrderStore(
		repository.NewGormOrderRepository(db),
		repository.NewLastOrderCache(redisClient, cfg.LastOrderTTL),
		zl,
	)

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		zl.Fatal("Failed to init token service", zap.Error(err))
	}
	identity := services.NewIdentityProvider(userRepo, tokens, zl)

	var verifier services.CredentialVerifier = services.NewStaticCredentialVerifier(cfg.AcceptedCredential)
	if cfg.CredentialMode == "account" {
		verifier = services.AccountCredentialVerifier{}
	}

	var metrics *aws_pkg.MetricsClient
	if awsReady {
		metrics = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	}

	publisher, closePublisher := newPublisher(cfg, awsCfg, awsReady, zl)
	defer closePublisher()

	registry := services.NewStorefrontRegistry(services.StorefrontDeps{
		Identity:  identity,
		Profiles:  profileRepo,
		Balances:  balanceRepo,
		Orders:    orderStore,
		Verifier:  verifier,
		Publisher: publisher,
		Metrics:   metricsRecorder(metrics),
		Carts:     cartRepo,
		Checkout: services.CheckoutConfig{
			BalanceTimeout:    cfg.BalanceTimeout,
			VerifyTimeout:     cfg.VerifyTimeout,
			DebitOnCommit:     cfg.DebitOnCommit,
			PaymentNetwork:    cfg.PaymentNetwork,
			DemoWalletAddress: cfg.DemoWalletAddress,
		},
		IdleTTL: cfg.SessionIdleTTL,
		Logger:  zl,
	})
	go registry.Run(rootCtx)

	if cfg.TopUpQueueURL != "" && awsReady {
		handler := services.NewTopUpHandler(balanceRepo, metricsRecorder(metrics), zl)
		consumer := aws_pkg.NewSQSConsumer(awsCfg, cfg.TopUpQueueURL, zl)
		go func() {
			if err := consumer.StartPolling(rootCtx, handler.Handle); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("Top-up consumer stopped", zap.Error(err))
			}
		}()
	}

	authLimiter := commonmw.NewRateLimiter(rate.Every(6*time.Second), 5, 10*time.Minute)
	go authLimiter.Run(rootCtx.Done())

	if err := controllers.RegisterValidators(); err != nil {
		zl.Fatal("Failed to register validators", zap.Error(err))
	}

	cookies := middleware.CookieConfig{
		Secure:        cfg.CookieSecure,
		VisitorMaxAge: int(cfg.CartTTL / time.Second),
		TokenMaxAge:   int(tokens.TTL() / time.Second),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(commonmw.SecurityHeaders())
	r.Use(logger.RequestID())
	r.Use(commonmw.RequestLogger(zl))
	r.Use(commonmw.Timeout(30 * time.Second))
	r.Use(commonmw.MetricsMiddleware(metrics, serviceName))
	r.Use(apperrors.ErrorMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})

	routes.RegisterStorefrontRoutes(r, routes.Controllers{
		Catalog:      controllers.NewCatalogController(),
		Cart:         controllers.NewCartController(registry, zl),
		Account:      controllers.NewAccountController(services.NewAccountOverviewService(balanceRepo, orderStore, zl), cookies, zl),
		Checkout:     controllers.NewCheckoutController(registry, zl),
		Confirmation: controllers.NewConfirmationController(services.NewConfirmationRenderer(orderStore, zl), zl),
		Balance: controllers.NewBalanceController(
			services.NewTopUpAdvisor(balanceRepo, services.TopUpConfig{
				WalletAddress: cfg.TopUpWalletAddress,
				Network:       cfg.PaymentNetwork,
				MinimumUSD:    cfg.TopUpMinimumUSD,
			}, zl),
			balanceRepo,
			zl,
		),
	}, routes.Options{
		Storefronts:      registry,
		Cookies:          cookies,
		AuthReadyTimeout: cfg.AuthReadyTimeout,
		AuthLimiter:      authLimiter,
		AdminAPIKey:      cfg.AdminAPIKey,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("Server failed", zap.Error(err))
		}
	}()

	zl.Info("Storefront service started", zap.String("port", cfg.Port))
	<-quit
	zl.Info("Shutting down storefront service...")

	stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}
	zl.Info("Server exited cleanly")
}

// newPublisher picks the order event bus. The returned func releases it.
func newPublisher(cfg *config.Config, awsCfg sdkaws.Config, awsReady bool, zl *zap.Logger) (events.Publisher, func()) {
	switch cfg.EventBus {
	case "sns":
		if !awsReady {
			zl.Warn("EVENT_BUS=sns but AWS config is unavailable, order events disabled")
			return events.NoopPublisher{}, func() {}
		}
		return events.NewSNSPublisher(aws_pkg.NewSNSClient(awsCfg), cfg.OrderSNSTopicARN), func() {}
	case "kafka":
		p := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		return p, func() {
			if err := p.Close(); err != nil {
				zl.Warn("Failed to close Kafka writer", zap.Error(err))
			}
		}
	default:
		return events.NoopPublisher{}, func() {}
	}
}

// metricsRecorder keeps a nil client from becoming a non-nil interface.
func metricsRecorder(m *aws_pkg.MetricsClient) services.MetricsRecorder {
	if m == nil {
		return nil
	}
	return m
}
