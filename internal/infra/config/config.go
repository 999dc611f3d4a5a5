package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Index backend selectors.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Env  string
	Port string

	IndexBackend string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string

	GeminiBaseURL  string
	GeminiAPIKey   string
	LLMModel       string
	EmbeddingModel string
	LLMRateRPS     int
	LLMTimeoutSec  int

	NResults           int
	MaxSubQueryWorkers int
	RetrieveTimeoutSec int
	CacheSize          int
	CacheTTLMinutes    int
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),

		IndexBackend: getEnv("INDEX_BACKEND", BackendPostgres),
		DBHost:       getEnv("DB_HOST", "finqa-db"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBUser:       getEnv("DB_USER", "finqa_user"),
		DBPassword:   getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "finqa_password"),
		DBName:       getEnv("DB_NAME", "finqa_db"),

		GeminiBaseURL:  getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiAPIKey:   getSecret("GEMINI_API_KEY", "GEMINI_API_KEY_FILE", ""),
		LLMModel:       getEnv("LLM_MODEL", "gemini-1.5-flash"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		LLMRateRPS:     getEnvInt("LLM_RATE_LIMIT_RPS", 2),
		LLMTimeoutSec:  getEnvInt("LLM_TIMEOUT_SECONDS", 60),

		NResults:           getEnvInt("QA_N_RESULTS", 6),
		MaxSubQueryWorkers: getEnvInt("QA_MAX_SUBQUERY_WORKERS", 4),
		RetrieveTimeoutSec: getEnvInt("RETRIEVE_TIMEOUT_SECONDS", 15),
		CacheSize:          getEnvInt("QA_CACHE_SIZE", 256),
		CacheTTLMinutes:    getEnvInt("QA_CACHE_TTL_MINUTES", 10),
	}
}

// DSN renders the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getSecret reads the value directly, then from the file named by
// fileEnvKey, then falls back.
func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
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
