package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watchstore/cache"
	"watchstore/checkout"
	"watchstore/config"
	"watchstore/database"
	"watchstore/handlers"
	"watchstore/kafka"
	"watchstore/middleware"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg := config.Load()

	db, err := database.InitDB(logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.InitRedis(logger)
	if err != nil {
		logger.Warn("Redis unavailable, product cache disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	producer, err := kafka.InitProducer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	consumer, err := kafka.InitConsumer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	go func() {
		if err := kafka.StartConsumer(consumer, db, logger); err != nil {
			logger.Error("Kafka consumer error", zap.Error(err))
		}
	}()

	shutdown, err := middleware.InitTracing("watchstore")
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdown()

	checkoutSvc := checkout.NewService(db, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	// OpenTelemetry middleware must be first to extract trace context
	router.Use(otelgin.Middleware("watchstore"))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", middleware.PrometheusHandler())

	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret, logger)
	router.POST("/register", authHandler.Register)
	router.POST("/login", authHandler.Login)

	productHandler := handlers.NewProductHandler(db, redisClient, logger)
	router.GET("/products", productHandler.GetProducts)
	router.GET("/products/:id", productHandler.GetProduct)

	brandHandler := handlers.NewBrandHandler(db, logger)
	router.GET("/brands", brandHandler.GetBrands)

	checkoutHandler := handlers.NewCheckoutHandler(checkoutSvc, producer, redisClient, logger)
	orderHandler := handlers.NewOrderHandler(db, checkoutSvc, logger)

	authed := router.Group("/", middleware.AuthRequired(cfg.JWTSecret))
	authed.POST("/checkout", checkoutHandler.Checkout)
	authed.GET("/orders", orderHandler.ListOrders)
	authed.GET("/orders/:id", orderHandler.GetOrder)
	authed.POST("/orders/:id/cancel", checkoutHandler.CancelOrder)

	admin := router.Group("/admin", middleware.AuthRequired(cfg.JWTSecret))
	admin.PUT("/orders/:id/status", orderHandler.UpdateOrderStatus)
	admin.POST("/products", productHandler.CreateProduct)
	admin.PUT("/products/:id", productHandler.UpdateProduct)
	admin.DELETE("/products/:id", productHandler.DeleteProduct)
	admin.POST("/brands", brandHandler.CreateBrand)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Watchstore API started", zap.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
