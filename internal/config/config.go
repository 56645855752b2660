package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	NATS         NATSConfig
	Auth         AuthConfig
	Verification VerificationConfig
	Log          LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type NATSConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// VerificationConfig drives the registry sources and the task runner. A source
// runs in synthetic mode whenever its API key is empty.
type VerificationConfig struct {
	FSSPAPIKey     string
	RNPAPIKey      string
	EGRULAPIKey    string
	LicensesAPIKey string

	FetchTimeout time.Duration
	Queue        string
	MaxAttempts  int
	BackoffBase  time.Duration
}

type LogConfig struct {
	Level string
	JSON  bool
}

func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "sourcing")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("nats.url", "nats://localhost:4222")

	v.SetDefault("auth.jwt_secret", "dev-secret-change-me")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("verification.fssp_api_key", "")
	v.SetDefault("verification.rnp_api_key", "")
	v.SetDefault("verification.egrul_api_key", "")
	v.SetDefault("verification.licenses_api_key", "")
	v.SetDefault("verification.fetch_timeout", "30s")
	v.SetDefault("verification.queue", "verification-workers")
	v.SetDefault("verification.max_attempts", 3)
	v.SetDefault("verification.backoff_base", "2s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		NATS: NATSConfig{
			URL: v.GetString("nats.url"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			TokenTTL:  v.GetDuration("auth.token_ttl"),
		},
		Verification: VerificationConfig{
			FSSPAPIKey:     v.GetString("verification.fssp_api_key"),
			RNPAPIKey:      v.GetString("verification.rnp_api_key"),
			EGRULAPIKey:    v.GetString("verification.egrul_api_key"),
			LicensesAPIKey: v.GetString("verification.licenses_api_key"),
			FetchTimeout:   v.GetDuration("verification.fetch_timeout"),
			Queue:          v.GetString("verification.queue"),
			MaxAttempts:    v.GetInt("verification.max_attempts"),
			BackoffBase:    v.GetDuration("verification.backoff_base"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			JSON:  v.GetBool("log.json"),
		},
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Verification.MaxAttempts < 1 {
		return nil, fmt.Errorf("verification.max_attempts must be at least 1, got %d", cfg.Verification.MaxAttempts)
	}

	return cfg, nil
}

func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User, c.Database.Password,
		c.Database.Host, c.Database.Port,
		c.Database.DBName, c.Database.SSLMode,
	)
}
