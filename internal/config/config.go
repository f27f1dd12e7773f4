package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type ServerConfig struct {
	HTTPAddr string
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OpenAIBaseURL   string
	OpenAIAPIKey    string
	StreamModel     string
	StructuredModel string

	SpeakingRateLimit int64
	WritingRateLimit  int64
	RateLimitWindow   time.Duration

	StreamIdleTimeout time.Duration

	Transcriber  string
	WhisperModel string
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := ServerConfig{
		HTTPAddr:          getenvDefault("ALFAPTE_HTTP_ADDR", ":8080"),
		DBDSN:             os.Getenv("DB_DSN"),
		RedisAddr:         getenvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getenvIntDefault("REDIS_DB", 0),
		OpenAIBaseURL:     strings.TrimRight(getenvDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		StreamModel:       getenvDefault("STREAM_MODEL", "gpt-4o"),
		StructuredModel:   getenvDefault("STRUCTURED_MODEL", "gpt-4o-mini"),
		SpeakingRateLimit: int64(getenvIntDefault("SPEAKING_RATE_LIMIT", 50)),
		WritingRateLimit:  int64(getenvIntDefault("WRITING_RATE_LIMIT", 30)),
		RateLimitWindow:   time.Duration(getenvIntDefault("RATE_LIMIT_WINDOW_SECONDS", 3600)) * time.Second,
		StreamIdleTimeout: time.Duration(getenvIntDefault("SCORING_STREAM_IDLE_TIMEOUT_SECONDS", 45)) * time.Second,
		Transcriber:       strings.ToLower(getenvDefault("TRANSCRIBER", "mock")),
		WhisperModel:      getenvDefault("WHISPER_MODEL", "whisper-1"),
	}

	if cfg.DBDSN == "" {
		return ServerConfig{}, fmt.Errorf("DB_DSN is required")
	}
	if cfg.OpenAIAPIKey == "" {
		return ServerConfig{}, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if cfg.Transcriber != "mock" && cfg.Transcriber != "whisper" {
		return ServerConfig{}, fmt.Errorf("unsupported TRANSCRIBER: %s", cfg.Transcriber)
	}

	return cfg, nil
}

func getenvDefault(key, val string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return val
}

func getenvIntDefault(key string, val int) int {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return val
	}
	return n
}
