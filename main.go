// main.go
// CivicLens Central API
// Civic-issue reporting backend: AI-assisted submission workflow, report
// lifecycle management, Firestore persistence and JWT authentication.

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"civiclens/auth"
	"civiclens/config"
	"civiclens/db"
	"civiclens/geocode"
	"civiclens/handlers"
	"civiclens/middleware"
	"civiclens/models"
	"civiclens/reports"
	"civiclens/vision"
	"civiclens/workflow"

	"github.com/joho/godotenv"
)

// BlobUploader stores an image and returns a durable URL.
type BlobUploader interface {
	Upload(ctx context.Context, fileName string, data []byte) (string, error)
}

// reportSubmitter persists a completed workflow draft: image to blob storage,
// then the report itself with status pending.
type reportSubmitter struct {
	blobs   BlobUploader
	service *reports.Service
}

func (s *reportSubmitter) Submit(ctx context.Context, draft *workflow.Draft) (*models.Report, error) {
	imageURL, err := s.blobs.Upload(ctx, draft.ImageName, draft.ImageData)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	return s.service.Create(ctx, reports.CreateInput{
		AuthorID:      draft.AuthorID,
		ImageURL:      imageURL,
		Title:         draft.Title,
		AIDescription: draft.Description,
		UserNotes:     draft.UserNotes,
		Latitude:      draft.Latitude,
		Longitude:     draft.Longitude,
		Address:       draft.Address,
	})
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	}

	cfg := config.Load()
	cfg.Validate()

	log.Printf("🚀 Starting CivicLens API Server")
	log.Printf("📍 Environment: %s", cfg.Server.Environment)
	log.Printf("🔧 Port: %s", cfg.Server.Port)

	ctx := context.Background()

	// Persistence and identity: Firestore in production, in-memory for
	// credential-free development.
	var (
		store reports.Store
		users handlers.UserDirectory
		blobs BlobUploader
	)
	switch cfg.Store.Backend {
	case "memory":
		log.Println("⚠️  Using in-memory store (data is not persisted)")
		store = reports.NewMemoryStore()
		users = newMemoryDirectory()
		local, err := db.NewLocalBlobStore("./uploads")
		if err != nil {
			log.Fatalf("❌ Failed to initialize local blob store: %v", err)
		}
		blobs = local
	default:
		firestoreDB, err := db.NewFirestoreDB(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath)
		if err != nil {
			log.Fatalf("❌ Failed to initialize Firestore: %v", err)
		}
		defer firestoreDB.Close()

		blobStore, err := db.NewBlobStore(ctx, cfg.Firebase.StorageBucket, cfg.Firebase.CredentialsPath)
		if err != nil {
			log.Fatalf("❌ Failed to initialize blob storage: %v", err)
		}
		defer blobStore.Close()

		store = firestoreDB
		users = firestoreDB
		blobs = blobStore
	}

	// Initialize JWT Manager
	jwtManager := auth.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.Expiration,
		cfg.JWT.RefreshTokenExpiration,
	)
	log.Printf("🔐 JWT Manager initialized (expiration: %v)", cfg.JWT.Expiration)

	// External collaborators
	captionProvider := vision.NewProvider(vision.Config{
		BaseURL: cfg.Vision.BaseURL,
		Model:   cfg.Vision.Model,
		APIKeys: cfg.Vision.APIKeys,
		Timeout: cfg.Vision.Timeout,
	})
	geocoder := geocode.NewResolver(geocode.Config{
		BaseURL: cfg.Geocode.BaseURL,
		Timeout: cfg.Geocode.Timeout,
	})

	// Core services
	service := reports.NewService(store)
	submitter := &reportSubmitter{blobs: blobs, service: service}
	manager := workflow.NewManager(captionProvider, geocoder, submitter, 30*time.Minute)
	manager.CleanupIdleSessions()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(users, jwtManager)
	reportHandler := handlers.NewReportHandler(service, geocoder)
	workflowHandler := handlers.NewWorkflowHandler(manager)
	notificationHandler := handlers.NewNotificationHandler(service)
	log.Printf("✅ Handlers initialized")

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	rateLimiter.CleanupOldLimiters()
	log.Printf("🛡️  Rate limiter initialized (%d requests per %v)", cfg.RateLimit.Requests, cfg.RateLimit.Window)

	// Set up router
	mux := http.NewServeMux()

	// Public routes (no authentication required)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/api/login", authHandler.Login)
	mux.HandleFunc("/api/refresh", authHandler.RefreshToken)

	// Citizen routes: authentication optional, anonymous submission allowed
	optionalAuth := middleware.OptionalAuth(jwtManager, users)
	mux.Handle("/api/locate", optionalAuth(http.HandlerFunc(reportHandler.Locate)))
	mux.Handle("/api/workflow/start", optionalAuth(http.HandlerFunc(workflowHandler.Start)))
	mux.Handle("/api/workflow/advance", optionalAuth(http.HandlerFunc(workflowHandler.Advance)))
	mux.Handle("/api/workflow/back", optionalAuth(http.HandlerFunc(workflowHandler.Back)))
	mux.Handle("/api/workflow/state", optionalAuth(http.HandlerFunc(workflowHandler.State)))
	mux.Handle("/api/reports/create", optionalAuth(http.HandlerFunc(reportHandler.Create)))
	mux.Handle("/api/reports/mine", optionalAuth(http.HandlerFunc(reportHandler.Mine)))
	mux.Handle("/api/reports/get", optionalAuth(http.HandlerFunc(reportHandler.Get)))

	// Authenticated routes
	authMiddleware := middleware.AuthMiddleware(jwtManager, users)
	mux.Handle("/api/notifications", authMiddleware(http.HandlerFunc(notificationHandler.List)))
	mux.Handle("/api/notifications/read", authMiddleware(http.HandlerFunc(notificationHandler.MarkRead)))

	// Admin routes
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	mux.Handle("/api/reports", authMiddleware(adminOnly(http.HandlerFunc(reportHandler.List))))
	mux.Handle("/api/reports/status", authMiddleware(adminOnly(http.HandlerFunc(reportHandler.UpdateStatus))))
	mux.Handle("/api/reports/delete", authMiddleware(adminOnly(http.HandlerFunc(reportHandler.Delete))))
	mux.Handle("/api/analytics", authMiddleware(adminOnly(http.HandlerFunc(reportHandler.Analytics))))

	// Static preview for locally stored uploads (memory mode)
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir("./uploads"))))

	// Apply global middleware
	handler := middleware.CORSMiddleware(cfg.CORS.AllowedOrigins)(mux)
	handler = rateLimiter.Middleware()(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("✅ Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}

// Health check endpoint
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":%d,"version":"1.0.0"}`, time.Now().Unix())
}
