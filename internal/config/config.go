package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultDisclosure = "本記事にはアフィリエイトリンクを含みます。"

type Config struct {
	Port string

	// Document host connection
	DocstoreURL    string
	DocstoreAPIKey string

	// Auth
	DocrhythmAPIKey string

	// Conversion defaults
	SentencesPerParagraph int
	EmphasisMarker        string
	ReflowEnabled         bool
	SanitizeHTML          bool
	AdDisclosure          string

	// Worker pool
	WorkerCount          int
	MaxQueueSize         int
	MaxConcurrentPublish int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first; variables already set win.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		DocstoreURL:    envOr("DOCSTORE_URL", "http://localhost:8080"),
		DocstoreAPIKey: os.Getenv("DOCSTORE_API_KEY"),

		DocrhythmAPIKey: os.Getenv("DOCRHYTHM_API_KEY"),

		SentencesPerParagraph: envInt("SENTENCES_PER_PARAGRAPH", 2),
		EmphasisMarker:        envOr("EMPHASIS_MARKER", "**"),
		ReflowEnabled:         envBool("REFLOW_ENABLED", true),
		SanitizeHTML:          envBool("SANITIZE_HTML", true),
		AdDisclosure:          envRaw("AD_DISCLOSURE", defaultDisclosure),

		WorkerCount:          envInt("WORKER_COUNT", 4),
		MaxQueueSize:         envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentPublish: envInt("MAX_CONCURRENT_PUBLISH", 5),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.SentencesPerParagraph <= 0 {
		cfg.SentencesPerParagraph = 2
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentPublish <= 0 {
		cfg.MaxConcurrentPublish = 5
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.DocstoreAPIKey == "" {
		return fmt.Errorf("DOCSTORE_API_KEY is required")
	}
	if c.DocrhythmAPIKey == "" {
		return fmt.Errorf("DOCRHYTHM_API_KEY is required")
	}
	if c.EmphasisMarker == "" {
		return fmt.Errorf("EMPHASIS_MARKER must not be empty")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envRaw is like envOr but an explicitly empty variable is kept.
func envRaw(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
