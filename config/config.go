package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config aggregates all application configuration
type Config struct {
	AI      AIConfig       `yaml:"ai"`
	Planner PlannerConfig  `yaml:"planner"`
	POI     POIConfig      `yaml:"poi"`
	Travel  TravelConfig   `yaml:"travel"`
	Maps    MapsConfig     `yaml:"maps"`
	Log     LogConfig      `yaml:"log"`
	DB      DatabaseConfig `yaml:"database"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type AIConfig struct {
	Plugin string       `yaml:"plugin" env:"AI_PLUGIN" env-default:"gemini"`
	Gemini GeminiConfig `yaml:"gemini"`
	Ollama OllamaConfig `yaml:"ollama"`
	Zai    ZaiConfig    `yaml:"zai"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key" env:"GEMINI_API_KEY"`
	Model  string `yaml:"model" env:"GEMINI_MODEL" env-default:"gemini-1.5-flash"`
}

type OllamaConfig struct {
	Model   string `yaml:"model" env:"OLLAMA_MODEL" env-default:"qwen3:4b"`
	BaseURL string `yaml:"base_url" env:"OLLAMA_BASE_URL" env-default:"http://localhost:11434"`
}

type ZaiConfig struct {
	APIKey string `yaml:"api_key" env:"ZAI_API_KEY"`
	Model  string `yaml:"model" env:"ZAI_MODEL" env-default:"glm-4.7"`
}

// MapsConfig configures the Google Maps SDK client shared by the POI and
// Travel-Time external providers.
type MapsConfig struct {
	APIKey string `yaml:"api_key" env:"GOOGLE_MAPS_API_KEY"`
}

// POIConfig configures the POI Provider stage (spec.md §4.1).
type POIConfig struct {
	CandidateLimit  int `yaml:"candidate_limit" env:"POI_CANDIDATE_LIMIT" env-default:"8"`
	ExternalTimeout int `yaml:"external_timeout" env:"POI_EXTERNAL_TIMEOUT" env-default:"10"` // Seconds
	Concurrency     int `yaml:"concurrency" env:"POI_CONCURRENCY" env-default:"8"`
}

// TravelConfig configures the Travel-Time Provider stage (spec.md §4.2).
type TravelConfig struct {
	ExternalTimeout int `yaml:"external_timeout" env:"TRAVEL_EXTERNAL_TIMEOUT" env-default:"5"` // Seconds
	Concurrency     int `yaml:"concurrency" env:"TRAVEL_CONCURRENCY" env-default:"8"`
}

// PlannerConfig configures the Macro Planner's attempt count and token
// budgets. MaxTokensOnRetry is the budget for trips longer than 3 days and
// is used on every attempt for such trips.
type PlannerConfig struct {
	Timeout          int `yaml:"timeout" env:"PLANNER_TIMEOUT" env-default:"220"` // Seconds
	MaxRetries       int `yaml:"max_retries" env:"PLANNER_MAX_RETRIES" env-default:"2"`
	MaxTokens        int `yaml:"max_tokens" env:"PLANNER_MAX_TOKENS" env-default:"4096"`
	MaxTokensOnRetry int `yaml:"max_tokens_on_retry" env:"PLANNER_MAX_TOKENS_ON_RETRY" env-default:"8192"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	DBName   string `yaml:"dbname" env:"DB_NAME" env-default:"tripplanner"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
}

// Load reads configuration from config.yaml and environment variables
// Priority: Env Vars > Config File > Defaults
func Load() (*Config, error) {
	var cfg Config

	// 1. Try to load from config.yaml if it exists
	// We ignore error here because we fallback to env vars,
	// unless it's a specific parsing error which cleanenv handles well by just populating what it can.
	// But commonly one might want to enforce file existence if explicit.
	// Here we just say "read config.yaml if present, then override with envs".
	err := cleanenv.ReadConfig("config.yaml", &cfg)
	if err != nil {
		// If file doesn't exist, just read env vars
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read env config: %w", err)
		}
	}

	return &cfg, nil
}
