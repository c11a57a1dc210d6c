package config

import (
	"os"
	"strconv"
)

type Config struct {
	// Server
	Port   string
	AppURL string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Auth
	JWTSecret     string
	AdminEmail    string
	AdminPassword string
	AdminName     string

	// AI (OpenAI-compatible)
	OpenAIAPIKey          string
	OpenAIAPIURL          string
	OpenAIModel           string
	AIMaxCompletionTokens int

	// Invitations
	InviteWebhookURL string
}

func Load() *Config {
	maxTokens, _ := strconv.Atoi(getEnv("AI_MAX_COMPLETION_TOKENS", "4000"))
	return &Config{
		Port:                  getEnv("PORT", "8090"),
		AppURL:                getEnv("APP_URL", "http://localhost:5173"),
		DBHost:                getEnv("DB_HOST", "localhost"),
		DBPort:                getEnv("DB_PORT", "5432"),
		DBUser:                getEnv("DB_USER", "postgres"),
		DBPassword:            getEnv("DB_PASSWORD", ""),
		DBName:                getEnv("DB_NAME", "contentflow_db"),
		DBSSLMode:             getEnv("DB_SSLMODE", "disable"),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		AdminEmail:            getEnv("ADMIN_EMAIL", ""),
		AdminPassword:         getEnv("ADMIN_PASSWORD", ""),
		AdminName:             getEnv("ADMIN_NAME", "Admin"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIAPIURL:          getEnv("OPENAI_API_URL", "https://api.openai.com/v1/chat/completions"),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-5-2025-08-07"),
		AIMaxCompletionTokens: maxTokens,
		InviteWebhookURL:      getEnv("INVITE_WEBHOOK_URL", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
