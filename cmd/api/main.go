package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marbeld/beatcut/internal/api"
	"github.com/marbeld/beatcut/internal/config"
	"github.com/marbeld/beatcut/internal/db"
	"github.com/marbeld/beatcut/internal/planner"
	"github.com/marbeld/beatcut/internal/queue"
	"github.com/marbeld/beatcut/internal/services"
	"github.com/marbeld/beatcut/internal/storage"
	"github.com/marbeld/beatcut/internal/worker"
)

func main() {
	log.Println("Starting Beatcut API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Initialize storage
	stor := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	log.Println("Initialized Supabase storage")

	planDefaults := planner.Config{
		ClipCount:  cfg.DefaultClipCount,
		MinClipSec: cfg.MinClipSec,
		MaxClipSec: cfg.MaxClipSec,
		FPS:        cfg.RenderFPS,
	}

	// Create API handler
	handler := api.NewHandler(database, q, stor, planDefaults)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCtx context.Context
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		// Initialize services
		openaiSvc := services.NewOpenAIService(cfg.OpenAIKey)
		replicateSvc := services.NewReplicateService(cfg.ReplicateToken, cfg.ReplicateBeatModel, cfg.ReplicateVideoModel)
		ffmpegSvc := services.NewFFmpegService(cfg.FFmpegTempDir)

		// Veo is an optional alternative clip generator — nil when disabled
		var veoSvc *services.VeoService
		if cfg.VeoEnabled {
			veoSvc = services.NewVeoService(cfg.GeminiKey, cfg.VeoModel)
			log.Printf("Veo clip generation enabled (model: %s)", cfg.VeoModel)
		} else {
			log.Printf("Clip generation via Replicate (model: %s)", cfg.ReplicateVideoModel)
		}

		// Create worker
		w := worker.New(database, q, stor, openaiSvc, replicateSvc, veoSvc, ffmpegSvc, planDefaults)

		// Start worker in background
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
