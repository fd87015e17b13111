package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Redis      RedisConfig
	Gateway    GatewayConfig
	AMQP       AMQPConfig
	Settlement SettlementConfig
	Cron       CronConfig
	Admin      AdminConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type GatewayConfig struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type SettlementConfig struct {
	LeaseTTL      time.Duration
	PaymentExpiry time.Duration
	SweepInterval time.Duration
}

// CronConfig guards the maintenance endpoints called by the scheduler.
type CronConfig struct {
	Key string
}

type AdminConfig struct {
	Email    string
	Password string
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] .env not loaded: %v", err)
	}
	return &Config{
		Server: ServerConfig{
			Port:         env("PORT", "8080"),
			Env:          env("APP_ENV", "development"),
			ReadTimeout:  envDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: envDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			DSN:             env("DATABASE_DSN", "fursa:fursa@tcp(localhost:3306)/fursa?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		JWT: JWTConfig{
			AccessSecret:  env("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: env("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  envDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: envDuration("JWT_REFRESH_EXPIRY", 168*time.Hour),
			Issuer:        env("JWT_ISSUER", "fursa"),
		},
		Redis: RedisConfig{
			Addr:     env("REDIS_ADDR", "localhost:6379"),
			Password: env("REDIS_PASSWORD", ""),
			DB:       envInt("REDIS_DB", 0),
		},
		Gateway: GatewayConfig{
			BaseURL:       env("GATEWAY_BASE_URL", ""),
			APIKey:        env("GATEWAY_API_KEY", ""),
			WebhookSecret: env("GATEWAY_WEBHOOK_SECRET", ""),
		},
		AMQP: AMQPConfig{
			URL:      env("AMQP_URL", ""),
			Exchange: env("AMQP_EXCHANGE", "fursa.events"),
		},
		Settlement: SettlementConfig{
			LeaseTTL:      envDuration("SETTLEMENT_LEASE_TTL", 5*time.Second),
			PaymentExpiry: envDuration("PAYMENT_EXPIRY", 30*time.Minute),
			SweepInterval: envDuration("SWEEP_INTERVAL", 5*time.Minute),
		},
		Cron: CronConfig{
			Key: env("CRON_KEY", ""),
		},
		Admin: AdminConfig{
			Email:    env("ADMIN_EMAIL", ""),
			Password: env("ADMIN_PASSWORD", ""),
		},
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
