package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// OpenAIConfig holds model API configuration
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// AuthConfig holds token verification configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// Config holds all application configuration
type Config struct {
	OpenAI         OpenAIConfig
	Auth           AuthConfig
	DBPath         string
	SettingsDir    string
	Port           string
	RedisAddr      string
	LogMode        string
	RevealInterval time.Duration
}

// Load loads configuration from environment and files
func Load() (*Config, error) {
	settingsDir := os.Getenv("SETTINGS_DIR")
	if settingsDir == "" {
		settingsDir = "settings"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "data/coaching.db"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "production"
	}

	revealInterval := 40 * time.Millisecond
	if v := os.Getenv("REVEAL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			revealInterval = d
		}
	}

	cfg := &Config{
		DBPath:         dbPath,
		SettingsDir:    settingsDir,
		Port:           port,
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		LogMode:        logMode,
		RevealInterval: revealInterval,
	}

	openaiCfg, err := loadOpenAIConfig(filepath.Join(settingsDir, "secrets", "openai.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.OpenAI = *openaiCfg

	authCfg, err := loadAuthConfig(filepath.Join(settingsDir, "secrets", "auth.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.Auth = *authCfg

	return cfg, nil
}

// loadOpenAIConfig loads model API configuration from a YAML file
func loadOpenAIConfig(path string) (*OpenAIConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg OpenAIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadAuthConfig loads token configuration, with an env var fallback so
// containerized deployments can skip the secrets file
func loadAuthConfig(path string) (*AuthConfig, error) {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return &AuthConfig{JWTSecret: secret}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg AuthConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
