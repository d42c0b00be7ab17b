package main

import (
	"log"
	"os"

	_ "procurement/api/swagger" // swagger docs
	"procurement/internal/database"
	"procurement/internal/handler"
	"procurement/internal/middleware"
	"procurement/internal/repository"
	"procurement/internal/service"
	"procurement/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Sourcing-to-Order API
// @version         1.0
// @description     Multi-tenant procurement engine: requisitions, sourcing, RFQs, quotes, and purchase order consolidation.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	counterRepo := repository.NewCounterRepository(db)
	vendorRepo := repository.NewVendorRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	requisitionRepo := repository.NewRequisitionRepository(db)
	rfqRepo := repository.NewRFQRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db)

	sequenceService := service.NewSequenceService(counterRepo)
	userService := service.NewUserService(userRepo)
	auditService := service.NewAuditService(auditRepo)
	policyService := service.NewPolicyService(policyRepo)
	vendorService := service.NewVendorService(vendorRepo, materialRepo, auditRepo, sequenceService, txManager)
	requisitionService := service.NewRequisitionService(requisitionRepo, materialRepo, auditRepo, sequenceService, txManager)
	sourcingService := service.NewSourcingService(requisitionRepo, materialRepo, vendorRepo, quoteRepo, auditRepo, txManager)
	rfqService := service.NewRFQService(rfqRepo, quoteRepo, requisitionRepo, vendorRepo, policyRepo, auditRepo, sequenceService, policyService, txManager)
	orderService := service.NewOrderService(orderRepo, requisitionRepo, materialRepo, vendorRepo, auditRepo, sequenceService, txManager, wsHub)
	statisticsService := service.NewStatisticsService(statisticsRepo)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	auditHandler := handler.NewAuditHandler(auditService)
	vendorHandler := handler.NewVendorHandler(vendorService)
	requisitionHandler := handler.NewRequisitionHandler(requisitionService, sourcingService)
	rfqHandler := handler.NewRFQHandler(rfqService)
	orderHandler := handler.NewOrderHandler(orderService)
	policyHandler := handler.NewPolicyHandler(policyService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	vendorHandler.RegisterRoutes(router.Group(""))
	requisitionHandler.RegisterRoutes(router.Group(""))
	rfqHandler.RegisterRoutes(router.Group(""))
	orderHandler.RegisterRoutes(router.Group(""))
	policyHandler.RegisterRoutes(router.Group(""))
	statisticsHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
