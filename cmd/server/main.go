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

	"carelink/health-portal/internal/api"
	"carelink/health-portal/internal/config"
	"carelink/health-portal/internal/notify"
	"carelink/health-portal/internal/qr"
	"carelink/health-portal/internal/reminder"
	"carelink/health-portal/internal/repository/mongo"
	"carelink/health-portal/internal/service"
	"carelink/health-portal/internal/storage"
	"carelink/health-portal/internal/token"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("Starting Health Portal Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureSubmissionIndexes(ctx, appDB)
		mongo.EnsureAccessLogIndexes(ctx, appDB.Collection("submission_access_logs"))
		mongo.EnsureReminderIndexes(ctx, appDB.Collection("reminders"))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	// Without object storage, file payloads are embedded in the submission
	// documents under the tighter inline size limit.
	var fileStorage storage.FileStorage
	if cfg.S3.Enabled {
		log.Println("Initializing file storage service...")
		fileStorage, err = storage.NewS3Storage(cfg.S3)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
		}
	} else {
		log.Println("Object storage disabled, storing file payloads inline.")
	}

	// --- Initialize Access Token Codec and QR Renderer ---
	codec, err := token.NewCodec(cfg.AccessToken.Key)
	if err != nil {
		log.Fatalf("FATAL: Invalid access token key: %v", err)
	}
	renderer := qr.NewRenderer()

	// --- Initialize Notification Dispatcher ---
	dispatcher := notify.NewDispatcher(notify.NewEmailSender(cfg.Notify), cfg.Notify.QueueSize)
	notifier := notify.NewPortalNotifier(dispatcher)

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	userRepo := mongo.NewMongoUserRepository(appDB)
	submissionRepo := mongo.NewMongoSubmissionRepository(appDB)
	accessLogRepo := mongo.NewMongoAccessLogRepository(appDB)
	reminderRepo := mongo.NewMongoReminderRepository(appDB)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	submissionService := service.NewSubmissionService(submissionRepo, fileStorage, notifier, cfg.Upload)
	accessService := service.NewAccessService(submissionRepo, accessLogRepo, codec, renderer, cfg.AccessToken.Expiration)
	reminderService := service.NewReminderService(reminderRepo)

	// --- Start Reminder Scheduler ---
	scheduler := reminder.NewScheduler(reminderRepo, notifier, cfg.Reminder.CheckInterval)
	scheduler.Start()
	log.Printf("Reminder scheduler started (interval %s).", cfg.Reminder.CheckInterval)

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, authService, submissionService, accessService, reminderService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	// Stop background workers after the HTTP surface is closed so in-flight
	// requests can still enqueue notifications.
	scheduler.Stop()
	dispatcher.Stop()

	log.Println("Server exiting.")
}
