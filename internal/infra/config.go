package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv        string
	Port          string
	DatabaseURL   string
	DefaultLocale string
	GeoIPDBPath   string
	CORSOrigins   []string

	StoragePath    string
	StorageBaseURL string
	MaxUploadBytes int64

	GeminiAPIKey        string
	GeminiBaseURL       string
	ChatFastModel       string
	ChatThinkingModel   string
	ChatThinkingBudget  int
	AnalysisModel       string
	ImageModel          string
	ImageSize           string
	VeoModel            string
	VeoResolution       string
	VeoPollInterval     time.Duration
	VeoTimeout          time.Duration
	ProviderHTTPTimeout time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          port,
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		GeoIPDBPath:   os.Getenv("GEOIP_DB_PATH"),
		CORSOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: strings.TrimRight(getEnv("STORAGE_BASE_URL", "/static"), "/"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 20)) << 20,

		GeminiAPIKey:        strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:       getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		ChatFastModel:       getEnv("GEMINI_CHAT_FAST_MODEL", "gemini-flash-lite-latest"),
		ChatThinkingModel:   getEnv("GEMINI_CHAT_THINKING_MODEL", "gemini-3-pro-preview"),
		ChatThinkingBudget:  getEnvInt("GEMINI_THINKING_BUDGET", 32768),
		AnalysisModel:       getEnv("GEMINI_ANALYSIS_MODEL", "gemini-3-pro-preview"),
		ImageModel:          getEnv("GEMINI_IMAGE_MODEL", "gemini-3-pro-image-preview"),
		ImageSize:           getEnv("GEMINI_IMAGE_SIZE", "1K"),
		VeoModel:            getEnv("VEO_MODEL", "veo-3.1-fast-generate-preview"),
		VeoResolution:       getEnv("VEO_RESOLUTION", "720p"),
		VeoPollInterval:     time.Second * time.Duration(getEnvInt("VEO_POLL_INTERVAL_SECONDS", 5)),
		VeoTimeout:          time.Second * time.Duration(getEnvInt("VEO_TIMEOUT_SECONDS", 600)),
		ProviderHTTPTimeout: time.Second * time.Duration(getEnvInt("PROVIDER_HTTP_TIMEOUT_SECONDS", 120)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 150)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.VeoPollInterval <= 0 {
		return nil, fmt.Errorf("VEO_POLL_INTERVAL_SECONDS must be positive")
	}
	if cfg.VeoTimeout < 0 {
		return nil, fmt.Errorf("VEO_TIMEOUT_SECONDS must not be negative")
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
