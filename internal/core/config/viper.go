package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence; flags are
// applied by the caller on the returned Config.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults matching Default
	def := Default()
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("database.url", def.Database.URL)
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.max_connections", def.Server.MaxConnections)
	v.SetDefault("server.request_timeout", def.Server.RequestTimeout.String())
	v.SetDefault("server.max_batch_size", def.Server.MaxBatchSize)
	v.SetDefault("engine.regex", def.Engine.Regex)
	v.SetDefault("engine.regex_timeout", def.Engine.RegexTimeout.String())
	v.SetDefault("engine.workers", def.Engine.Workers)

	// Bind environment variables with CM_ prefix
	v.SetEnvPrefix("CM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets must be environment-only
	if err := validateNoSecretsInConfig(configPath); err != nil {
		return nil, err
	}

	cfg := &Config{
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			MaxConnections: v.GetInt("server.max_connections"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			MaxBatchSize:   v.GetInt("server.max_batch_size"),
		},
		Engine: EngineConfig{
			Regex:        v.GetString("engine.regex"),
			RegexTimeout: v.GetDuration("engine.regex_timeout"),
			Workers:      v.GetInt("engine.workers"),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks port range, positive limits and known enum values.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive, got %d", cfg.Server.MaxConnections)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be positive, got %d", cfg.Server.MaxBatchSize)
	}
	switch cfg.Engine.Regex {
	case "re2", "regexp2", "none":
	default:
		return fmt.Errorf("engine.regex must be re2, regexp2 or none, got %q", cfg.Engine.Regex)
	}
	if cfg.Engine.RegexTimeout < 0 {
		return fmt.Errorf("regex_timeout must not be negative, got %v", cfg.Engine.RegexTimeout)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
// The file is read on its own so environment values are not mistaken for file
// contents.
func validateNoSecretsInConfig(configPath string) error {
	if configPath == "" {
		return nil
	}
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if v.IsSet("api_secret") || v.IsSet("server.api_secret") {
		return fmt.Errorf("API secrets not allowed in config files (use CM_API_SECRET environment variable)")
	}
	if v.IsSet("database.url") {
		u, err := url.Parse(v.GetString("database.url"))
		if err == nil && u.User != nil {
			if _, hasPassword := u.User.Password(); hasPassword {
				return fmt.Errorf("database passwords not allowed in config files (use CM_DATABASE_URL environment variable)")
			}
		}
	}
	return nil
}
