package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DatabaseURL        string
	APIPrefix          string
	UploadDir          string
	MaxUploadSize      int64
	AllowedExtensions  []string
	AllowedOrigins     []string
	InferenceURL       string
	InferenceTimeout   time.Duration
	UploadRetention    time.Duration // 0 disables the age-based purge sweeper
	CleanupInterval    time.Duration
	CleanupAfterDetect bool // delete stored files after responding (off: files are retained)
	Debug              bool
	RateLimitRPS       float64
	RateLimitBurst     int
}

func Load() *Config {
	// Best-effort .env load, matching local development setups.
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8000"),
		DatabaseURL:        databaseURL(),
		APIPrefix:          getEnv("API_V1_PREFIX", "/api/v1"),
		UploadDir:          getEnv("UPLOAD_FOLDER", "uploads"),
		MaxUploadSize:      getEnvInt64("MAX_UPLOAD_SIZE", 50*1024*1024), // 50MB for large mobile photos
		AllowedExtensions:  getEnvList("ALLOWED_EXTENSIONS", []string{"jpg", "jpeg", "png", "gif", "bmp", "webp"}),
		AllowedOrigins:     getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		InferenceURL:       getEnv("INFERENCE_API_URL", ""),
		InferenceTimeout:   getEnvSeconds("INFERENCE_TIMEOUT_SECONDS", 30*time.Second),
		UploadRetention:    getEnvHours("UPLOAD_RETENTION_HOURS", 0),
		CleanupInterval:    getEnvHours("CLEANUP_INTERVAL_HOURS", 1*time.Hour),
		CleanupAfterDetect: getEnvBool("CLEANUP_AFTER_DETECT", false),
		Debug:              getEnvBool("DEBUG", false),
		RateLimitRPS:       getEnvFloat64("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 20),
	}
}

// databaseURL prefers a full DATABASE_URL and falls back to assembling one
// from the individual DB_* variables.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	name := getEnv("DB_NAME", "deepspear")
	user := getEnv("DB_USER", "deepspear")
	password := getEnv("DB_PASSWORD", "")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat64(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvHours(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if hours, err := strconv.ParseFloat(val, 64); err == nil {
			return time.Duration(hours * float64(time.Hour))
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if secs, err := strconv.ParseFloat(val, 64); err == nil {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
