package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DB struct {
		Host         string
		Port         string
		User         string
		Password     string
		DBName       string
		SSLMode      string
		MaxOpenConns int
		MaxIdleConns int
		ConnLifetime time.Duration
	}
	OIDC struct {
		Issuer       string
		ClientID     string
		ClientSecret string
	}
	Proxy struct {
		BaseURL string
		Timeout time.Duration
	}
	OpenAI struct {
		APIKey string
		Model  string
	}
	Telegram struct {
		Token string
	}
	Server struct {
		Port string
	}
	Insight struct {
		SnackInterval    time.Duration
		RolloverInterval time.Duration
	}
	ShutdownTimeout time.Duration
}

// Load loads the configuration
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.macro-journal")

	v.SetDefault("ShutdownTimeout", 10*time.Second)
	v.SetDefault("OpenAI.Model", "gpt-4")
	v.SetDefault("Server.Port", "3001")
	v.SetDefault("Proxy.Timeout", 30*time.Second)
	v.SetDefault("Insight.SnackInterval", 30*time.Minute)
	v.SetDefault("Insight.RolloverInterval", time.Minute)
	v.SetDefault("DB.MaxOpenConns", 20)
	v.SetDefault("DB.MaxIdleConns", 10)
	v.SetDefault("DB.ConnLifetime", 5*time.Minute)

	v.AutomaticEnv()

	// Fall back to plain environment variables when no config file exists.
	if err := v.ReadInConfig(); err != nil {
		cfg := &Config{}
		cfg.DB.Host = getEnvOr("DB_HOST", "localhost")
		cfg.DB.Port = getEnvOr("DB_PORT", "5432")
		cfg.DB.User = getEnvOr("DB_USER", "postgres")
		cfg.DB.Password = getEnvOr("DB_PASSWORD", "postgres")
		cfg.DB.DBName = getEnvOr("DB_NAME", "macro_journal")
		cfg.DB.SSLMode = getEnvOr("DB_SSL_MODE", "disable")
		cfg.DB.MaxOpenConns = 20
		cfg.DB.MaxIdleConns = 10
		cfg.DB.ConnLifetime = 5 * time.Minute
		cfg.OIDC.Issuer = os.Getenv("OIDC_ISSUER")
		cfg.OIDC.ClientID = os.Getenv("OIDC_CLIENT_ID")
		cfg.OIDC.ClientSecret = os.Getenv("OIDC_CLIENT_SECRET")
		cfg.Proxy.BaseURL = getEnvOr("PROXY_BASE_URL", "http://localhost:3001")
		cfg.Proxy.Timeout = 30 * time.Second
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
		cfg.OpenAI.Model = getEnvOr("OPENAI_MODEL", "gpt-4")
		cfg.Telegram.Token = os.Getenv("TELEGRAM_TOKEN")
		cfg.Server.Port = getEnvOr("SERVER_PORT", "3001")
		cfg.Insight.SnackInterval = 30 * time.Minute
		cfg.Insight.RolloverInterval = time.Minute
		cfg.ShutdownTimeout = 10 * time.Second
		return cfg, nil
	}

	// Process any ${ENV_VAR} syntax in the config values
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
			if envValue := os.Getenv(envVar); envValue != "" {
				v.Set(key, envValue)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func getEnvOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
