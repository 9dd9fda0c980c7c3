package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const (
	testSecretID  = "0123456789abcdef0123456789abcdef"
	testSecretB64 = "dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAPISecrets(t *testing.T) {
	t.Run("none configured", func(t *testing.T) {
		t.Setenv("CM_API_SECRET", "")
		secrets, err := APISecrets()
		if err != nil {
			t.Fatalf("APISecrets failed: %v", err)
		}
		if len(secrets) != 0 {
			t.Errorf("expected 0 secrets, got %d", len(secrets))
		}
	})

	t.Run("single secret", func(t *testing.T) {
		t.Setenv("CM_API_SECRET", testSecretID+":"+testSecretB64)

		secrets, err := APISecrets()
		if err != nil {
			t.Fatalf("APISecrets failed: %v", err)
		}
		if len(secrets) != 1 {
			t.Errorf("expected 1 secret, got %d", len(secrets))
		}
		if _, ok := secrets[testSecretID]; !ok {
			t.Errorf("secret_id not found in map")
		}
	})

	t.Run("multiple numbered secrets", func(t *testing.T) {
		t.Setenv("CM_API_SECRET_1", testSecretID+":"+testSecretB64)
		t.Setenv("CM_API_SECRET_2", "fedcba9876543210fedcba9876543210:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")

		secrets, err := APISecrets()
		if err != nil {
			t.Fatalf("APISecrets failed: %v", err)
		}
		if len(secrets) != 2 {
			t.Errorf("expected 2 secrets, got %d", len(secrets))
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		t.Setenv("CM_API_SECRET", "invalid_format")
		if _, err := APISecrets(); err == nil {
			t.Error("expected error for invalid format")
		}
	})

	t.Run("duplicate secret_id between single and numbered", func(t *testing.T) {
		t.Setenv("CM_API_SECRET", testSecretID+":"+testSecretB64)
		t.Setenv("CM_API_SECRET_1", testSecretID+":YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		if _, err := APISecrets(); err == nil {
			t.Error("expected error for duplicate secret_id")
		}
	})
}

func TestParseSecretWithID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid format", testSecretID + ":" + testSecretB64, false},
		{"missing colon", testSecretID, true},
		{"short secret_id", "tooshort:" + testSecretB64, true},
		{"non-hex secret_id", "0123456789abcdefGHIJKLMNOPQRSTUV:" + testSecretB64, true},
		{"invalid base64", testSecretID + ":not-valid-base64!!!", true},
		{"secret too short", testSecretID + ":c2hvcnQ=", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, secret, err := ParseSecretWithID(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSecretWithID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (id != testSecretID || len(secret) < 32) {
				t.Errorf("ParseSecretWithID() = %q, %d bytes", id, len(secret))
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 50051 {
			t.Errorf("expected 0.0.0.0:50051, got %s", cfg.Server.Address())
		}
		if cfg.Server.RequestTimeout != 30*time.Second {
			t.Errorf("expected timeout 30s, got %v", cfg.Server.RequestTimeout)
		}
		if cfg.Server.MaxBatchSize != 1000 {
			t.Errorf("expected max_batch_size 1000, got %d", cfg.Server.MaxBatchSize)
		}
		if cfg.Engine.Regex != "re2" || cfg.Engine.RegexTimeout != 100*time.Millisecond {
			t.Errorf("expected re2 with 100ms timeout, got %s/%v", cfg.Engine.Regex, cfg.Engine.RegexTimeout)
		}
		if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
			t.Errorf("expected info/json logging, got %s/%s", cfg.Log.Level, cfg.Log.Format)
		}
		if cfg.Database.URL != "sqlite://condmatch.db" {
			t.Errorf("expected default sqlite URL, got %s", cfg.Database.URL)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("CM_SERVER_PORT", "9999")
		t.Setenv("CM_SERVER_HOST", "127.0.0.1")
		t.Setenv("CM_ENGINE_REGEX", "regexp2")

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Address() != "127.0.0.1:9999" {
			t.Errorf("expected 127.0.0.1:9999, got %s", cfg.Server.Address())
		}
		if cfg.Engine.Regex != "regexp2" {
			t.Errorf("expected regexp2, got %s", cfg.Engine.Regex)
		}
	})

	t.Run("config file", func(t *testing.T) {
		path := writeConfig(t, `
log:
  level: debug
engine:
  regex: none
  workers: 4
server:
  max_batch_size: 50
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Log.Level != "debug" || cfg.Engine.Regex != "none" || cfg.Engine.Workers != 4 || cfg.Server.MaxBatchSize != 50 {
			t.Errorf("file values not applied: %+v", cfg)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("invalid port range", func(t *testing.T) {
		t.Setenv("CM_SERVER_PORT", "70000")
		if _, err := LoadConfig(""); err == nil {
			t.Error("expected error for port > 65535")
		}
	})

	t.Run("invalid negative values", func(t *testing.T) {
		t.Setenv("CM_SERVER_MAX_CONNECTIONS", "-1")
		if _, err := LoadConfig(""); err == nil {
			t.Error("expected error for negative max_connections")
		}
	})

	t.Run("unknown regex engine", func(t *testing.T) {
		t.Setenv("CM_ENGINE_REGEX", "pcre")
		if _, err := LoadConfig(""); err == nil {
			t.Error("expected error for unknown regex engine")
		}
	})
}
