package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Load reads the .env file specified by CONCORD_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CONCORD_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// StoreBackend returns where knowledge snapshots are kept.
// Valid values: memory, redis, postgres. Defaults to memory.
func StoreBackend() string {
	switch b := strings.ToLower(os.Getenv("STORE_BACKEND")); b {
	case StoreRedis, StorePostgres:
		return b
	default:
		return StoreMemory
	}
}

func RedisURL() string {
	u := os.Getenv("REDIS_URL")
	if u == "" {
		return "redis://localhost:6379/0"
	}
	return u
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// StoreTTL is how long snapshot and timeline entries live in the memory and
// redis backends. Zero keeps them forever.
func StoreTTL() time.Duration {
	d, err := time.ParseDuration(os.Getenv("STORE_TTL"))
	if err != nil || d < 0 {
		return 0
	}
	return d
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

func CerebrasAPIKey() string {
	return os.Getenv("CEREBRAS_API_KEY")
}

// LLMProvider returns the configured LLM provider.
// Defaults to "mock" if not set.
// Valid values: openai, anthropic, gemini, cerebras, mock
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "mock"
	}
	return p
}

// LLMModel overrides the provider's default model when set.
func LLMModel() string {
	return os.Getenv("LLM_MODEL")
}

// LLMAPIKey returns the API key for the configured LLM provider.
func LLMAPIKey() string {
	switch LLMProvider() {
	case "anthropic":
		return AnthropicAPIKey()
	case "gemini":
		return GeminiAPIKey()
	case "cerebras":
		return CerebrasAPIKey()
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// PersonaFile is an optional YAML persona catalogue. Empty means the
// built-in physiology/lifestyle pair.
func PersonaFile() string {
	return os.Getenv("PERSONA_FILE")
}

func PersonaA() string {
	return os.Getenv("PERSONA_A")
}

func PersonaB() string {
	return os.Getenv("PERSONA_B")
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
