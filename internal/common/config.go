package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Log      LogConfig
}

// DatabaseConfig holds extract-job log configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string
	GRPCAddr        string
	APIKey          string
	Mode            string
	MaxUploadMB     int
	SessionCapacity int
	ShutdownTimeout time.Duration
}

// OCRConfig holds rasterization configuration
type OCRConfig struct {
	Pdftoppm        string
	Pdfinfo         string
	DPI             int
	PageConcurrency int
}

// LLMConfig holds vision model configuration
type LLMConfig struct {
	Provider         string
	Model            string
	APIKey           string
	BaseURL          string
	Temperature      float32
	MaxTokens        int
	Timeout          time.Duration
	GeminiAPIKey     string
	GeminiModel      string
	SystemPromptFile string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", "file:docmark.db?_pragma=busy_timeout(5000)"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:        getEnv("GRPC_ADDR", ""),
			APIKey:          getEnv("API_KEY", ""),
			Mode:            getEnv("MODE", "dev"),
			MaxUploadMB:     getEnvAsInt("MAX_UPLOAD_MB", 50),
			SessionCapacity: getEnvAsInt("SESSION_CAPACITY", 256),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		OCR: OCRConfig{
			Pdftoppm:        getEnv("PDFTOPPM", "pdftoppm"),
			Pdfinfo:         getEnv("PDFINFO", "pdfinfo"),
			DPI:             getEnvAsInt("PDF_DPI", 200),
			PageConcurrency: getEnvAsInt("PAGE_CONCURRENCY", 4),
		},
		LLM: LLMConfig{
			Provider:         strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
			Model:            getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:           getEnv("OPENAI_API_KEY", ""),
			BaseURL:          getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature:      getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			MaxTokens:        getEnvAsInt("OPENAI_MAX_TOKENS", 4000),
			Timeout:          getEnvAsDuration("OPENAI_TIMEOUT", 2*time.Minute),
			GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
			GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			SystemPromptFile: getEnv("SYSTEM_PROMPT_FILE", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

// ModelName returns the model of the selected provider.
func (c *Config) ModelName() string {
	if c.LLM.Provider == ProviderGemini {
		return c.LLM.GeminiModel
	}
	return c.LLM.Model
}

// SlogLevel maps Log.Level to a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration. A missing credential for the selected
// provider is a startup error.
func (c *Config) Validate() error {
	v := NewValidator().
		Field("LLM_PROVIDER", c.LLM.Provider, OneOf(ProviderOpenAI, ProviderGemini)).
		Field("MAX_UPLOAD_MB", c.Server.MaxUploadMB, Positive).
		Field("SESSION_CAPACITY", c.Server.SessionCapacity, Positive).
		Field("PDF_DPI", c.OCR.DPI, Positive).
		Field("PAGE_CONCURRENCY", c.OCR.PageConcurrency, Positive)

	switch c.LLM.Provider {
	case ProviderGemini:
		v.Field("GEMINI_API_KEY", c.LLM.GeminiAPIKey, Required)
	default:
		v.Field("OPENAI_API_KEY", c.LLM.APIKey, Required)
	}

	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrConfig)
	}
	return nil
}
