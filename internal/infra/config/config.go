package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the orchestrator's full configuration surface: stage
// service bindings, generation defaults, timeouts, and serving knobs. Values
// come from the environment with documented fallbacks; a .env file in the
// working directory is honored when present.
type Config struct {
	Env  string
	Port string

	EmbeddingHost string
	EmbeddingPort string
	RetrieverHost string
	RetrieverPort string
	RerankerHost  string
	RerankerPort  string
	LLMHost       string
	LLMPort       string

	LLMModel       string
	EmbedDimension int

	EmbeddingTimeout time.Duration
	RetrieverTimeout time.Duration
	RerankerTimeout  time.Duration
	LLMTimeout       time.Duration
	ProbeTimeout     time.Duration

	CacheSize    int
	CacheTTL     time.Duration
	RateLimitRPS float64

	EnableOTelLogs bool
}

// Load reads configuration from the environment.
func Load() *Config {
	// Matches the deployment convention; absence is not an error.
	_ = godotenv.Load(".env")

	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("MEGA_SERVICE_PORT", "8888"),

		EmbeddingHost: getEnv("EMBEDDING_SERVICE_HOST_IP", "0.0.0.0"),
		EmbeddingPort: getEnv("EMBEDDING_SERVICE_PORT", "8007"),
		RetrieverHost: getEnv("RETRIEVER_SERVICE_HOST_IP", "0.0.0.0"),
		RetrieverPort: getEnv("RETRIEVER_SERVICE_PORT", "8006"),
		RerankerHost:  getEnv("RERANKER_SERVICE_HOST_IP", "0.0.0.0"),
		RerankerPort:  getEnv("RERANKER_SERVICE_PORT", "8005"),
		LLMHost:       getEnv("LLM_SERVICE_HOST_IP", "0.0.0.0"),
		LLMPort:       getEnv("LLM_SERVICE_PORT", "8008"),

		LLMModel:       getEnv("LLM_MODEL_ID", "llama3"),
		EmbedDimension: getEnvInt("EMBED_DIMENSION", 1024),

		EmbeddingTimeout: getEnvSeconds("EMBEDDING_TIMEOUT", 15),
		RetrieverTimeout: getEnvSeconds("RETRIEVER_TIMEOUT", 15),
		RerankerTimeout:  getEnvSeconds("RERANKER_TIMEOUT", 15),
		LLMTimeout:       getEnvSeconds("LLM_TIMEOUT", 120),
		ProbeTimeout:     getEnvSeconds("PROBE_TIMEOUT", 5),

		CacheSize:    getEnvInt("CACHE_SIZE", 256),
		CacheTTL:     getEnvSeconds("CACHE_TTL_SECONDS", 300),
		RateLimitRPS: getEnvFloat("RATE_LIMIT_RPS", 20),

		EnableOTelLogs: getEnv("ENABLE_OTEL_LOGS", "false") == "true",
	}
}

// EmbeddingURL returns the embedding service base URL.
func (c *Config) EmbeddingURL() string {
	return fmt.Sprintf("http://%s:%s", c.EmbeddingHost, c.EmbeddingPort)
}

// RetrieverURL returns the retrieval service base URL.
func (c *Config) RetrieverURL() string {
	return fmt.Sprintf("http://%s:%s", c.RetrieverHost, c.RetrieverPort)
}

// RerankerURL returns the rerank service base URL.
func (c *Config) RerankerURL() string {
	return fmt.Sprintf("http://%s:%s", c.RerankerHost, c.RerankerPort)
}

// LLMURL returns the LLM service base URL.
func (c *Config) LLMURL() string {
	return fmt.Sprintf("http://%s:%s", c.LLMHost, c.LLMPort)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}
