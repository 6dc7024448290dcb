package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"medilink_app_echo/internal/handlers"
	appMiddleware "medilink_app_echo/internal/middleware"
	"medilink_app_echo/internal/models"
	"medilink_app_echo/internal/notify"
	"medilink_app_echo/internal/services"
	"medilink_app_echo/internal/workflow"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize Firebase
	credPath := os.Getenv("FIREBASE_CREDENTIALS_PATH")
	if credPath == "" {
		credPath = "./firebase-service-account.json"
	}

	authClient, err := services.InitFirebase(context.Background(), credPath)
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("Auth features will not work until valid credentials are provided")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize Redis cache
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	cache, err := services.NewRedisCache(redisURL)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer cache.Close()

	// Payment stack
	midtransClient := services.NewMidtransService()
	paymentService := services.NewPaymentService(db, midtransClient)

	// Workflow engine and effect dispatcher
	engine := workflow.NewEngine()
	dispatcher := notify.NewDispatcher(db)

	// Create Echo instance
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = appMiddleware.CustomErrorHandler

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authClient, db)
	dashboardHandler := handlers.NewDashboardHandler(db, cache)
	appointmentHandler := handlers.NewAppointmentHandler(db, engine, dispatcher, paymentService, midtransClient)
	claimHandler := handlers.NewClaimHandler(db)
	planHandler := handlers.NewPlanHandler(db, cache)
	subscriptionHandler := handlers.NewSubscriptionHandler(db, paymentService)
	paymentHandler := handlers.NewPaymentHandler(db, paymentService, midtransClient)
	notificationHandler := handlers.NewNotificationHandler(db)
	userHandler := handlers.NewUserHandler(db, cache)
	preferenceHandler := handlers.NewUserPreferenceHandler(db)

	// Public routes
	e.POST("/auth/login", authHandler.HandleLogin)
	e.POST("/auth/register", authHandler.HandleRegister)
	e.POST("/auth/logout", authHandler.HandleLogout)
	e.GET("/p/plans", planHandler.ListPublicPlans)
	e.POST("/payments/midtrans/callback", paymentHandler.MidtransCallback)

	// Protected routes
	protected := e.Group("")
	protected.Use(appMiddleware.RequireAuth(authClient, db))

	protected.GET("/dashboard", dashboardHandler.Dashboard)
	protected.GET("/providers", userHandler.ListProviders)

	// Appointment lifecycle
	protected.GET("/appointments", appointmentHandler.ListAppointments)
	protected.GET("/appointments/:uuid", appointmentHandler.GetAppointment)
	protected.POST("/appointments",
		appointmentHandler.BookAppointment,
		appMiddleware.RequireRole(models.RolePatient))
	protected.POST("/appointments/:uuid/cancel", appointmentHandler.Cancel)
	protected.POST("/appointments/:uuid/reschedule", appointmentHandler.Reschedule)
	protected.POST("/appointments/:uuid/provider-approve", appointmentHandler.ApproveByProvider)
	protected.POST("/appointments/:uuid/provider-reject", appointmentHandler.RejectByProvider)
	protected.POST("/appointments/:uuid/insurer-approve", appointmentHandler.ApproveByInsurer)
	protected.POST("/appointments/:uuid/insurer-reject", appointmentHandler.RejectByInsurer)
	protected.POST("/appointments/:uuid/query", appointmentHandler.MarkQueried)
	protected.POST("/appointments/:uuid/claim", appointmentHandler.SubmitClaim)
	protected.POST("/appointments/:uuid/claim/paid", appointmentHandler.MarkClaimPaid)

	// Claim listings, bucketed by age
	protected.GET("/claims/:age", claimHandler.ListClaims,
		appMiddleware.RequireRole(models.RoleProvider, models.RoleInsurer, models.RoleAdmin))

	// Plan management
	protected.GET("/plans", planHandler.ListPlans,
		appMiddleware.RequireRole(models.RoleInsurer, models.RoleAdmin))
	planAdmin := protected.Group("/plans",
		appMiddleware.RequireRole(models.RoleInsurer, models.RoleAdmin))
	planAdmin.POST("", planHandler.StorePlan)
	planAdmin.PUT("/:id", planHandler.UpdatePlan)
	planAdmin.POST("/:id/toggle", planHandler.TogglePlanActive)
	planAdmin.DELETE("/:id", planHandler.DeletePlan)

	// Subscriptions
	protected.GET("/subscriptions", subscriptionHandler.ListSubscriptions)
	protected.POST("/subscriptions", subscriptionHandler.PurchasePlan,
		appMiddleware.RequireRole(models.RolePatient))
	protected.POST("/subscriptions/external", subscriptionHandler.StoreExternalPlan,
		appMiddleware.RequireRole(models.RolePatient))
	protected.POST("/subscriptions/:uuid/approve", subscriptionHandler.ApproveSubscription,
		appMiddleware.RequireRole(models.RoleInsurer, models.RoleAdmin))

	// Notifications and preferences
	protected.GET("/notifications", notificationHandler.ListNotifications)
	protected.POST("/notifications/:id/read", notificationHandler.MarkRead)
	protected.POST("/notifications/read-all", notificationHandler.MarkAllRead)
	protected.GET("/preferences", preferenceHandler.GetUserPreference)
	protected.PUT("/preferences", preferenceHandler.UpdateUserPreference)

	// User management
	admin := protected.Group("/admin", appMiddleware.RequireRole(models.RoleAdmin))
	admin.GET("/users", userHandler.ListUsers)
	admin.PUT("/users/:id", userHandler.UpdateUser)
	admin.DELETE("/users/:id", userHandler.DeleteUser)
	admin.POST("/providers", userHandler.StoreProvider)
	admin.POST("/insurers", userHandler.StoreInsurer)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
