package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"cyberlaw-advisor/backend/internal/ai"
)

// Config is the server configuration resolved from the environment.
type Config struct {
	Port             string
	DataDir          string
	DatabasePath     string
	DatasetPath      string
	Gemini           ai.GeminiConfig
	OpenAI           ai.Config
	ProcedureTimeout time.Duration
	DisableAI        bool
	AllowedOrigins   []string
	SessionTTL       time.Duration
	CookieSecure     bool
}

// Load reads .env when present, then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("load .env")
	}
	return FromEnv(os.Getenv)
}

// FromEnv resolves the configuration through getenv.
func FromEnv(getenv func(string) string) Config {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	dataDir := get("DATA_DIR", "data")
	cfg := Config{
		Port:         get("PORT", "5001"),
		DataDir:      dataDir,
		DatabasePath: get("DATABASE_PATH", filepath.Join(dataDir, "users.db")),
		DatasetPath:  get("DATASET_PATH", filepath.Join(dataDir, "Full_Indian_Cyber_Laws.csv")),
		Gemini: ai.GeminiConfig{
			APIKey: getenv("GEMINI_API_KEY"),
			Model:  get("GEMINI_MODEL", "gemini-1.5-flash"),
		},
		OpenAI: ai.Config{
			APIKey:  getenv("OPENAI_API_KEY"),
			Model:   getenv("OPENAI_MODEL"),
			BaseURL: getenv("OPENAI_BASE_URL"),
		},
		ProcedureTimeout: 20 * time.Second,
		DisableAI:        strings.EqualFold(get("DISABLE_AI", ""), "true"),
		SessionTTL:       24 * time.Hour,
		CookieSecure:     strings.EqualFold(get("COOKIE_SECURE", ""), "true"),
	}

	if temp := get("OPENAI_TEMPERATURE", ""); temp != "" {
		if v, err := strconv.ParseFloat(temp, 64); err == nil {
			cfg.OpenAI.Temperature = v
		}
	}
	if maxTokens := get("OPENAI_MAX_TOKENS", ""); maxTokens != "" {
		if v, err := strconv.Atoi(maxTokens); err == nil {
			cfg.OpenAI.MaxTokens = v
		}
	}
	if timeout := get("PROCEDURE_TIMEOUT", ""); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.ProcedureTimeout = d
		}
	}
	if ttl := get("SESSION_TTL", ""); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
			cfg.SessionTTL = d
		}
	}
	if origins := get("ALLOWED_ORIGINS", ""); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	}
	return cfg
}
