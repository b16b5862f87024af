package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSecrets(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	secretsDir := filepath.Join(tmpDir, "secrets")
	if err := os.MkdirAll(secretsDir, 0755); err != nil {
		t.Fatalf("failed to create secrets dir: %v", err)
	}

	openaiContent := []byte("api_key: \"test-api-key-12345\"\nmodel: \"gpt-4o-mini\"\n")
	if err := os.WriteFile(filepath.Join(secretsDir, "openai.yaml"), openaiContent, 0644); err != nil {
		t.Fatalf("failed to write openai config: %v", err)
	}

	authContent := []byte(`jwt_secret: "file-secret"`)
	if err := os.WriteFile(filepath.Join(secretsDir, "auth.yaml"), authContent, 0644); err != nil {
		t.Fatalf("failed to write auth config: %v", err)
	}

	return tmpDir
}

func TestLoadOpenAIConfig_ValidFile(t *testing.T) {
	tmpDir := writeSecrets(t)

	cfg, err := loadOpenAIConfig(filepath.Join(tmpDir, "secrets", "openai.yaml"))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.APIKey != "test-api-key-12345" {
		t.Errorf("expected api_key 'test-api-key-12345', got '%s'", cfg.APIKey)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("expected model 'gpt-4o-mini', got '%s'", cfg.Model)
	}
}

func TestLoadOpenAIConfig_FileNotFound(t *testing.T) {
	_, err := loadOpenAIConfig("/nonexistent/path/openai.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoad_WithEnvVars(t *testing.T) {
	tmpDir := writeSecrets(t)

	os.Setenv("SETTINGS_DIR", tmpDir)
	os.Setenv("DB_PATH", "/custom/db/path.db")
	os.Setenv("PORT", "9090")
	os.Setenv("REVEAL_INTERVAL", "25ms")
	defer func() {
		os.Unsetenv("SETTINGS_DIR")
		os.Unsetenv("DB_PATH")
		os.Unsetenv("PORT")
		os.Unsetenv("REVEAL_INTERVAL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.DBPath != "/custom/db/path.db" {
		t.Errorf("expected DB_PATH '/custom/db/path.db', got '%s'", cfg.DBPath)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port '9090', got '%s'", cfg.Port)
	}
	if cfg.RevealInterval != 25*time.Millisecond {
		t.Errorf("expected reveal interval 25ms, got %v", cfg.RevealInterval)
	}
	if cfg.OpenAI.APIKey != "test-api-key-12345" {
		t.Errorf("expected OpenAI API key 'test-api-key-12345', got '%s'", cfg.OpenAI.APIKey)
	}
	if cfg.Auth.JWTSecret != "file-secret" {
		t.Errorf("expected jwt secret 'file-secret', got '%s'", cfg.Auth.JWTSecret)
	}
}

func TestLoad_JWTSecretEnvOverride(t *testing.T) {
	tmpDir := writeSecrets(t)

	os.Setenv("SETTINGS_DIR", tmpDir)
	os.Setenv("JWT_SECRET", "env-secret")
	defer func() {
		os.Unsetenv("SETTINGS_DIR")
		os.Unsetenv("JWT_SECRET")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Auth.JWTSecret != "env-secret" {
		t.Errorf("expected jwt secret 'env-secret', got '%s'", cfg.Auth.JWTSecret)
	}
}

func TestLoad_Defaults(t *testing.T) {
	tmpDir := writeSecrets(t)

	os.Setenv("SETTINGS_DIR", tmpDir)
	defer os.Unsetenv("SETTINGS_DIR")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default port '8080', got '%s'", cfg.Port)
	}
	if cfg.RevealInterval != 40*time.Millisecond {
		t.Errorf("expected default reveal interval 40ms, got %v", cfg.RevealInterval)
	}
	if cfg.LogMode != "production" {
		t.Errorf("expected default log mode 'production', got '%s'", cfg.LogMode)
	}
}
