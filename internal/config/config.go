package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Supabase storage
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// OpenAI (Whisper transcription + mood/genre tagging)
	OpenAIKey string

	// Replicate (beat tracking + video generation)
	ReplicateToken      string
	ReplicateBeatModel  string // Version identifier of the beat-tracking model
	ReplicateVideoModel string // Version identifier of the video-generation model

	// Veo (alternate video generation provider via the Gen AI SDK)
	VeoEnabled bool   // Feature flag: when true, clips are generated with Veo instead of Replicate
	VeoModel   string // Veo model identifier (default: veo-3.1-generate-preview)
	GeminiKey  string // API key for the Gen AI SDK (required only when VeoEnabled)

	// Planning defaults — used when a song carries no per-song overrides
	DefaultClipCount int
	MinClipSec       float64
	MaxClipSec       float64
	RenderFPS        int // Frame rate of the generation provider (boundaries quantize to 1/fps)

	// Worker
	MaxConcurrentJobs int
	FFmpegTempDir     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		WorkerEnabled:         getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379"),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "beatcut-media"),
		OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
		ReplicateToken:        getEnv("REPLICATE_API_TOKEN", ""),
		ReplicateBeatModel:    getEnv("REPLICATE_BEAT_MODEL", "beat-tracker/all-in-one"),
		ReplicateVideoModel:   getEnv("REPLICATE_VIDEO_MODEL", "minimax/video-01"),
		VeoEnabled:            getEnvBool("VEO_ENABLED", false),
		VeoModel:              getEnv("VEO_MODEL", "veo-3.1-generate-preview"),
		GeminiKey:             getEnv("GEMINI_API_KEY", ""),
		DefaultClipCount:      getEnvInt("DEFAULT_CLIP_COUNT", 8),
		MinClipSec:            getEnvFloat("MIN_CLIP_SEC", 3.0),
		MaxClipSec:            getEnvFloat("MAX_CLIP_SEC", 15.0),
		RenderFPS:             getEnvInt("RENDER_FPS", 8),
		MaxConcurrentJobs:     getEnvInt("MAX_CONCURRENT_JOBS", 5),
		FFmpegTempDir:         getEnv("FFMPEG_TEMP_DIR", "/tmp/beatcut"),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	if cfg.ReplicateToken == "" {
		return nil, fmt.Errorf("REPLICATE_API_TOKEN is required")
	}

	if cfg.VeoEnabled && cfg.GeminiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required when VEO_ENABLED is set")
	}

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required")
	}

	// Planning defaults must describe a usable window; per-request values
	// are validated again by the planner itself.
	if cfg.MinClipSec <= 0 || cfg.MinClipSec > cfg.MaxClipSec {
		return nil, fmt.Errorf("MIN_CLIP_SEC/MAX_CLIP_SEC must describe a positive window, got [%v, %v]", cfg.MinClipSec, cfg.MaxClipSec)
	}
	if cfg.DefaultClipCount < 1 {
		return nil, fmt.Errorf("DEFAULT_CLIP_COUNT must be at least 1")
	}
	if cfg.RenderFPS < 1 {
		return nil, fmt.Errorf("RENDER_FPS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}
