package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"math-chat/internal/logger"

	"github.com/sirupsen/logrus"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Anthropic AnthropicConfig
	Models    *ModelsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port       string
	CORSOrigin string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// AnthropicConfig holds completion provider configuration
type AnthropicConfig struct {
	APIKey         string
	MaxTokens      int
	RetryAttempts  int
	RetryBaseDelay time.Duration
	Timeout        time.Duration
	// MathSystemPrompt is the product-level instruction enforcing
	// LaTeX-only math formatting; passed through verbatim on every
	// completion call.
	MathSystemPrompt string
	// TitlePrompt instructs the model to produce a short conversation
	// title from the first user message.
	TitlePrompt string
}

// LoadConfig loads and validates application configuration from environment
func LoadConfig() (*AppConfig, error) {
	config := &AppConfig{}

	config.Server = ServerConfig{
		Port:       getEnvOrDefault("SERVER_PORT", "8080"),
		CORSOrigin: getEnvOrDefault("CORS_ORIGIN", "*"),
	}

	config.Database = DatabaseConfig{
		Host:     getEnvOrDefault("DB_HOST", "postgres"),
		Port:     getEnvOrDefault("DB_PORT", "5432"),
		User:     getEnvOrDefault("DB_USER", "postgres"),
		Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
		Name:     getEnvOrDefault("DB_NAME", "mathchat"),
		SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
	}

	config.Anthropic = AnthropicConfig{
		APIKey:           apiKey,
		MaxTokens:        getEnvAsInt("ANTHROPIC_MAX_TOKENS", 1024),
		RetryAttempts:    getEnvAsInt("ANTHROPIC_RETRY_ATTEMPTS", 3),
		RetryBaseDelay:   getEnvAsDuration("ANTHROPIC_RETRY_BASE_DELAY", time.Second),
		Timeout:          getEnvAsDuration("ANTHROPIC_TIMEOUT", 30*time.Second),
		MathSystemPrompt: getEnvOrDefault("MATH_SYSTEM_PROMPT", defaultMathSystemPrompt),
		TitlePrompt:      getEnvOrDefault("TITLE_PROMPT", defaultTitlePrompt),
	}

	config.Models = NewModelsConfig()

	return config, nil
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid duration value, using default")
		return defaultValue
	}
	return value
}

const defaultMathSystemPrompt = `You are a mathematics educator focusing on clear explanations. Present your mathematical answers with these strict requirements:

Format:
- Use LaTeX for ALL mathematical expressions, no plain text math
- Use display math (\[ ... \]) for important equations or multi-line expressions
- Use inline math ($ ... $) for expressions within text
- Never use $$ or \( \) delimiters
- Use proper LaTeX commands for all mathematical symbols and operators
- For multi-line equations, use the gathered environment:
  \[
  \begin{gathered}
  first equation \\
  second equation \\
  third equation
  \end{gathered}
  \]

Structure:
1. Start with a brief, clear statement of the result
2. Show key steps, each with clear mathematical expressions
3. Include minimal explanation text only where needed for clarity
4. Never add unnecessary text, pleasantries, or decorative elements

Additional rules:
- Keep responses concise
- Include units in LaTeX math mode when relevant
- Use \text{} for words within math environments`

const defaultTitlePrompt = `Generate a short title (at most six words) for a conversation that starts with the user message below. Reply with the title only, no quotes, no punctuation at the end.`
