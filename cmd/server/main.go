package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	cartapp "github.com/storefront/backend/internal/application/cart"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	identityapp "github.com/storefront/backend/internal/application/identity"
	inventoryapp "github.com/storefront/backend/internal/application/inventory"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/cart"
	domainorder "github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/notification"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eventBus.Stop(stopCtx)
	}()

	// Idempotency store: Redis when configured, in-memory otherwise
	var idemStore shared.IdempotencyStore
	if cfg.Redis.Enabled {
		store, err := cache.NewRedisIdempotencyStore(cache.RedisOptions{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		idemStore = store
		log.Info("Redis idempotency store enabled", zap.String("addr", cfg.Redis.Addr()))
	} else {
		idemStore = cache.NewInMemoryIdempotencyStore()
	}
	defer func() {
		_ = idemStore.Close()
	}()

	// Domain policies from configuration
	deliveryPolicy := cart.DeliveryChargePolicy{
		Threshold: decimal.NewFromInt(cfg.Checkout.DeliveryChargeThreshold),
		Charge:    decimal.NewFromInt(cfg.Checkout.DeliveryCharge),
	}
	returnPolicy := domainorder.NewReturnWindowPolicy(cfg.Orders.ReturnWindowDays)

	// Application services
	stockLedger := inventoryapp.NewStockLedger(productRepo, log)
	stockLedger.SetMaxAttempts(cfg.Checkout.MaxReserveAttempts)

	productService := catalogapp.NewProductService(productRepo, log)
	productService.SetEventPublisher(eventBus)

	// Cart mutations and the checkout's read-and-clear serialize per user
	// through one shared lock
	cartLocks := shared.NewKeyedMutex()
	cartService := cartapp.NewCartService(cartRepo, productRepo, deliveryPolicy, cartLocks, log)

	userService := identityapp.NewUserService(userRepo, log)

	checkoutService := orderapp.NewCheckoutService(cartRepo, orderRepo, userRepo, stockLedger, cartLocks, log)
	checkoutService.SetEventPublisher(eventBus)
	checkoutService.SetIdempotencyStore(idemStore, shared.IdempotencyConfig{
		TTL:     cfg.Checkout.IdempotencyTTL,
		Enabled: cfg.Checkout.IdempotencyEnabled,
	})

	lifecycleService := orderapp.NewLifecycleService(orderRepo, stockLedger, returnPolicy, log)
	lifecycleService.SetEventPublisher(eventBus)

	// Order notifications ride the event bus
	notifier := notification.NewLogNotifier(log)
	eventBus.Subscribe(notification.NewOrderEventsHandler(orderRepo, notifier, log))

	// HTTP engine and middleware
	middleware.SetupValidator()
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
	)

	// Handlers
	productHandler := handler.NewProductHandler(productService)
	cartHandler := handler.NewCartHandler(cartService)
	orderHandler := handler.NewOrderHandler(checkoutService, lifecycleService)
	userHandler := handler.NewUserHandler(userService)
	systemHandler := handler.NewSystemHandler(db, version)

	// Health check endpoint (outside API versioning)
	engine.GET("/health", systemHandler.Health)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	catalogRoutes := router.NewDomainGroup("catalog", "")
	catalogRoutes.POST("/products", productHandler.Create)
	catalogRoutes.GET("/products", productHandler.List)
	catalogRoutes.GET("/products/:id", productHandler.Get)
	catalogRoutes.GET("/products/code/:code", productHandler.GetByCode)
	catalogRoutes.PUT("/products/:id", productHandler.Update)
	catalogRoutes.PUT("/products/:id/stock", productHandler.SetStock)
	catalogRoutes.PUT("/products/:id/active", productHandler.SetActive)
	catalogRoutes.DELETE("/products/:id", productHandler.Delete)

	cartRoutes := router.NewDomainGroup("cart", "/cart")
	cartRoutes.GET("", cartHandler.Get)
	cartRoutes.DELETE("", cartHandler.Clear)
	cartRoutes.POST("/lines", cartHandler.AddLine)
	cartRoutes.PUT("/lines/:id", cartHandler.UpdateLine)
	cartRoutes.DELETE("/lines/:id", cartHandler.RemoveLine)

	orderRoutes := router.NewDomainGroup("orders", "/orders")
	orderRoutes.POST("/checkout", orderHandler.Checkout)
	orderRoutes.GET("", orderHandler.List)
	orderRoutes.GET("/mine", orderHandler.ListMine)
	orderRoutes.GET("/number/:number", orderHandler.GetByNumber)
	orderRoutes.GET("/:id", orderHandler.Get)
	orderRoutes.POST("/:id/place", orderHandler.Place)
	orderRoutes.POST("/:id/confirm", orderHandler.Confirm)
	orderRoutes.POST("/:id/ship", orderHandler.Ship)
	orderRoutes.POST("/:id/deliver", orderHandler.Deliver)
	orderRoutes.POST("/:id/cancel", orderHandler.Cancel)
	orderRoutes.POST("/:id/return", orderHandler.Return)

	userRoutes := router.NewDomainGroup("users", "/users")
	userRoutes.POST("", userHandler.Register)
	userRoutes.GET("/me", userHandler.GetMe)
	userRoutes.PUT("/me/address", userHandler.SetDefaultAddress)
	userRoutes.GET("/:id", userHandler.Get)

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.Info)

	r.Register(catalogRoutes).
		Register(cartRoutes).
		Register(orderRoutes).
		Register(userRoutes).
		Register(systemRoutes)

	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
