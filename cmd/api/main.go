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

	_ "electivas/api/swagger" // swagger docs
	"electivas/internal/config"
	"electivas/internal/database"
	"electivas/internal/handler"
	"electivas/internal/middleware"
	"electivas/internal/repository"
	"electivas/internal/service"
	"electivas/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Electivas API
// @version         1.0
// @description     Elective-course enrollment: academic periods, program seat quotas, admission and waitlist review.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load(config.DefaultEnvFile)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	db, err := database.NewConnection(cfg.DSN())
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	if err := database.Migrate(db); err != nil {
		log.Println("WARNING:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run(ctx.Done())

	clock := service.SystemClock(loc)
	middleware.InitAuth([]byte(cfg.JWTSecret))
	if err := handler.RegisterValidators(); err != nil {
		log.Fatalf("Failed to register validators: %v", err)
	}

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	periodRepo := repository.NewPeriodRepository(db)
	electiveRepo := repository.NewElectiveRepository(db)
	quotaRepo := repository.NewQuotaRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	programRepo := repository.NewProgramRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	periodService := service.NewPeriodService(periodRepo, auditRepo, txManager, wsHub, clock)
	electiveService := service.NewElectiveService(electiveRepo, auditRepo, txManager, clock)
	quotaLedger := service.NewQuotaLedger(quotaRepo, electiveRepo, programRepo, auditRepo, txManager, wsHub)
	enrollmentService := service.NewEnrollmentService(periodService, quotaLedger, electiveRepo, userRepo, enrollmentRepo, auditRepo, txManager, wsHub, clock)
	reviewService := service.NewReviewService(quotaLedger, userRepo, enrollmentRepo, auditRepo, txManager, wsHub, clock)
	reportService := service.NewReportService(quotaLedger, electiveRepo, enrollmentRepo)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	periodHandler := handler.NewPeriodHandler(periodService)
	electiveHandler := handler.NewElectiveHandler(electiveService, quotaLedger, reportService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService, reviewService, reportService)
	auditHandler := handler.NewAuditHandler(auditService)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c)
	})

	periodHandler.RegisterRoutes(router.Group(""))
	electiveHandler.RegisterRoutes(router.Group(""))
	enrollmentHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
}
