package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	DatabaseURL       string
	Host              string
	Port              string
	JwtSecret         string
	LogLevel          string
	CORSOrigins       []string
	MigrationsEnabled bool
	// TrustedProxies lists the proxies whose X-Forwarded-For is honoured.
	// Empty means the client IP is always the socket peer.
	TrustedProxies []string

	YouTubeAPIKey string
	YouTubeRPS    float64

	// LLMProvider selects the chat completion backend: "openai" (any
	// OpenAI-compatible endpoint) or "gemini".
	LLMProvider  string
	LLMAPIKey    string
	LLMBaseURL   string
	LLMModel     string
	LLMDeepModel string
	LLMTimeout   time.Duration
	GeminiAPIKey string
	GeminiModel  string

	SearchAPIKey   string
	SearchEngineID string

	RedisURL string

	PaddleWebhookSecret string
	PaddlePaidPriceIDs  []string
}

// LoadConfig reads .env (if present) and the process environment. Missing
// required settings are fatal.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debugf("No .env file loaded: %v", err)
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() *Config {
	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Host:              getEnv("HOST", "127.0.0.1"),
		Port:              getEnv("PORT", "8080"),
		JwtSecret:         os.Getenv("JWT_SECRET"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		MigrationsEnabled: getBool("MIGRATIONS_ENABLED", true),
		TrustedProxies:    splitList(os.Getenv("TRUSTED_PROXIES")),

		YouTubeAPIKey: os.Getenv("YOUTUBE_API_KEY"),
		YouTubeRPS:    getFloat("YOUTUBE_RPS", 5),

		LLMProvider:  strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMAPIKey:    os.Getenv("LLM_API_KEY"),
		LLMBaseURL:   os.Getenv("LLM_BASE_URL"),
		LLMModel:     getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMDeepModel: os.Getenv("LLM_DEEP_MODEL"),
		LLMTimeout:   getDuration("LLM_TIMEOUT", 90*time.Second),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		SearchAPIKey:   os.Getenv("SEARCH_API_KEY"),
		SearchEngineID: os.Getenv("SEARCH_ENGINE_ID"),

		RedisURL: os.Getenv("REDIS_URL"),

		PaddleWebhookSecret: os.Getenv("PADDLE_WEBHOOK_SECRET"),
		PaddlePaidPriceIDs:  splitList(os.Getenv("PADDLE_PAID_PRICE_IDS")),
	}
	if cfg.LLMDeepModel == "" {
		cfg.LLMDeepModel = cfg.LLMModel
		if cfg.LLMProvider == "gemini" {
			cfg.LLMDeepModel = cfg.GeminiModel
		}
	}
	return cfg
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if c.JwtSecret == "" {
		return errors.New("JWT_SECRET environment variable is not set. This is critical for authentication")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	if c.YouTubeAPIKey == "" {
		return errors.New("YOUTUBE_API_KEY is not set")
	}
	switch c.LLMProvider {
	case "openai":
		if c.LLMAPIKey == "" {
			return errors.New("LLM_API_KEY is not set")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is not set")
		}
	default:
		return errors.New("LLM_PROVIDER must be one of: openai, gemini")
	}
	if c.PaddleWebhookSecret == "" {
		log.Warn("PADDLE_WEBHOOK_SECRET is not set; subscription webhooks will be rejected")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
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
