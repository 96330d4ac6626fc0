package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/vendor-api/internal/auth"
	"github.com/ksred/vendor-api/internal/config"
	"github.com/ksred/vendor-api/internal/database"
	"github.com/ksred/vendor-api/internal/metrics"
	"github.com/ksred/vendor-api/internal/order"
	"github.com/ksred/vendor-api/internal/vendor"
	"github.com/ksred/vendor-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the vendor API server with graceful shutdown support
func main() {
	cfg := config.Load()

	db, err := database.NewDatabase(cfg.DBPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)

	metricsService := metrics.NewService(db)

	vendorService := vendor.NewService(db)
	vendorHandlers := vendor.NewGinHandlers(vendorService)

	orderService := order.NewService(db, metricsService)
	orderHandlers := order.NewGinHandlers(orderService)

	// Setup middleware
	router.Use(middleware.HTTPMetrics())
	router.Use(middleware.RateLimit())

	setupRoutes(router, cfg.JWTSecret, authHandlers, vendorHandlers, orderHandlers)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// Auth routes are public; vendor and purchase order routes require a JWT.
// The prometheus scrape endpoint sits outside the API group.
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	vendorHandlers *vendor.GinHandlers,
	orderHandlers *order.GinHandlers,
) {
	router.GET("/metrics", middleware.PrometheusHandler())

	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Vendor routes
		vendors := v1.Group("/vendors")
		vendors.Use(middleware.JWTAuth(jwtSecret))
		{
			vendors.POST("", vendorHandlers.CreateVendorHandler())
			vendors.GET("", vendorHandlers.ListVendorsHandler())
			vendors.GET("/:vendor_code", vendorHandlers.GetVendorHandler())
			vendors.PUT("/:vendor_code", vendorHandlers.UpdateVendorHandler())
			vendors.DELETE("/:vendor_code", vendorHandlers.DeleteVendorHandler())
			vendors.GET("/:vendor_code/performance", vendorHandlers.GetPerformanceHandler())
			vendors.GET("/:vendor_code/history", vendorHandlers.GetHistoryHandler())
		}

		// Purchase order routes
		orders := v1.Group("/purchase-orders")
		orders.Use(middleware.JWTAuth(jwtSecret))
		{
			orders.POST("", orderHandlers.CreateOrderHandler())
			orders.GET("", orderHandlers.ListOrdersHandler())
			orders.GET("/:po_number", orderHandlers.GetOrderHandler())
			orders.PUT("/:po_number", orderHandlers.UpdateOrderHandler())
			orders.DELETE("/:po_number", orderHandlers.DeleteOrderHandler())
			orders.GET("/:po_number/acknowledge", orderHandlers.AcknowledgeHandler())
		}
	}
}
