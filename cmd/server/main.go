package main

import (
	"log"
	"time"

	"encargate/internal/config"
	"encargate/internal/database"
	"encargate/internal/handlers"
	"encargate/internal/metrics"
	"encargate/internal/notifications"
	"encargate/internal/redis"
	"encargate/internal/repository"
	"encargate/internal/services"
	"encargate/pkg/wompi"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize Redis (acceptance-token cache)
	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	// Initialize Wompi client
	signatures := wompi.NewSignatureService(cfg.WompiIntegritySecret, cfg.WompiEventsSecret, cfg.IsProduction())
	wompiClient := wompi.NewClient(
		cfg.WompiAPIURL,
		cfg.WompiPublicKey,
		cfg.WompiPrivateKey,
		signatures,
		redisClient,
		time.Duration(cfg.AcceptanceTokenTTL)*time.Second,
	)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	encargadoRepo := repository.NewEncargadoRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	reviewRepo := repository.NewReviewRepository(db)

	// Initialize notification hub and metrics
	hub := notifications.NewHub()
	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)

	// Initialize services
	pricingService := services.NewPricingService(cfg)
	userService := services.NewUserService(userRepo)
	encargadoService := services.NewEncargadoService(encargadoRepo, reviewRepo)
	orderService := services.NewOrderService(orderRepo, encargadoRepo, pricingService, wompiClient, hub, encargadoService, paymentMetrics)
	reviewService := services.NewReviewService(reviewRepo, orderRepo, encargadoService, hub)
	webhookService := services.NewWebhookService(orderService, orderRepo, signatures, paymentMetrics)
	adminService := services.NewAdminService(orderRepo, encargadoRepo, userRepo, pricingService)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(orderService)
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	wompiHandler := handlers.NewWompiHandler(wompiClient, signatures, orderService)
	pricingHandler := handlers.NewPricingHandler(pricingService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	encargadoHandler := handlers.NewEncargadoHandler(encargadoService)
	adminHandler := handlers.NewAdminHandler(adminService, orderService)

	// Setup routes
	router := gin.Default()

	api := router.Group("/api")
	{
		api.POST("/users", userHandler.CreateUser)
		api.GET("/users/:id", userHandler.GetUser)

		api.POST("/orders", orderHandler.CreateOrder)
		api.GET("/orders", orderHandler.GetOrders)
		api.GET("/orders/stats", orderHandler.GetStats)
		api.GET("/orders/:id", orderHandler.GetOrder)
		api.PATCH("/orders/:id/status", orderHandler.UpdateStatus)

		api.POST("/reviews", reviewHandler.CreateReview)
		api.GET("/reviews", reviewHandler.GetReviews)
		api.PUT("/reviews/:id", reviewHandler.UpdateReview)
		api.DELETE("/reviews/:id", reviewHandler.DeleteReview)

		api.GET("/encargados", encargadoHandler.GetEncargados)
		api.GET("/encargados/:id", encargadoHandler.GetEncargado)
		api.PATCH("/encargados/:id/availability", encargadoHandler.ToggleAvailability)

		api.POST("/payments/confirm-cash", paymentHandler.ConfirmCash)
		api.GET("/payments/status/:orderId", paymentHandler.GetPaymentStatus)
		api.POST("/payments/wompi/verify", paymentHandler.VerifyPayment)
		api.POST("/payments/wompi/webhook", webhookHandler.HandleWompiEvent)
		api.POST("/webhooks/wompi/events", webhookHandler.HandleWompiEvent)

		api.GET("/pricing/calculate", pricingHandler.Calculate)
		api.GET("/pricing/wompi-cost", pricingHandler.WompiCost)

		api.POST("/wompi/create-nequi-transaction", wompiHandler.CreateNequiTransaction)
		api.POST("/wompi/create-pse-transaction", wompiHandler.CreatePSETransaction)
		api.POST("/wompi/create-bancolombia-transaction", wompiHandler.CreateBancolombiaTransaction)
		api.POST("/wompi/create-card-transaction", wompiHandler.CreateCardTransaction)
		api.GET("/wompi/transaction/:id", wompiHandler.GetTransaction)
		api.POST("/wompi/cancel-transaction/:id", wompiHandler.CancelTransaction)
		api.GET("/wompi/pse-banks", wompiHandler.GetPSEBanks)
		api.GET("/wompi/acceptance-tokens", wompiHandler.GetAcceptanceTokens)
		api.POST("/wompi/tokenize/card", wompiHandler.TokenizeCard)
		api.POST("/wompi/tokenize/nequi", wompiHandler.TokenizeNequi)
		api.GET("/wompi/nequi-token/:id", wompiHandler.GetNequiTokenStatus)
		api.GET("/wompi/signature/reference", wompiHandler.SignatureReference)

		api.GET("/admin/dashboard", adminHandler.GetDashboard)
		api.GET("/admin/monthly-revenue", adminHandler.GetMonthlyRevenue)
		api.GET("/admin/top-providers", adminHandler.GetTopProviders)
		api.GET("/admin/payment-methods", adminHandler.GetPaymentMethodStats)
		api.POST("/admin/recalculate-commissions", adminHandler.RecalculateCommissions)
	}

	// Realtime notifications
	router.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
