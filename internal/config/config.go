package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "github.com/DevEdward666/StudyHubAPI-sub001/libs/config"
)

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Port string `yaml:"port" env:"SESSIONS_HTTP_PORT"`
}

// DatabaseConfig holds postgres settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"SESSIONS_POSTGRES_DSN"`
}

// RedisConfig holds active-session cache settings.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"SESSIONS_REDIS_ADDR"`
	Password string `yaml:"password" env:"SESSIONS_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"SESSIONS_REDIS_DB"`
	TTL      int    `yaml:"ttlSeconds" env:"SESSIONS_REDIS_TTL"`
}

// RabbitConfig holds event publisher settings. URL empty disables publishing.
type RabbitConfig struct {
	URL      string `yaml:"url" env:"SESSIONS_RABBITMQ_URL"`
	Exchange string `yaml:"exchange" env:"SESSIONS_RABBITMQ_EXCHANGE"`
}

// AuthConfig holds token verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret" env:"SESSIONS_JWT_SECRET"`
}

// SweepConfig holds reconciliation settings.
type SweepConfig struct {
	IntervalSeconds int `yaml:"intervalSeconds" env:"SESSIONS_SWEEP_INTERVAL"`
}

// Config defines sessions service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Rabbit   RabbitConfig   `yaml:"rabbit"`
	Auth     AuthConfig     `yaml:"auth"`
	Sweep    SweepConfig    `yaml:"sweep"`
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP:   HTTPConfig{Port: "8083"},
		Redis:  RedisConfig{Addr: "localhost:6379", TTL: 86400},
		Rabbit: RabbitConfig{Exchange: "studyhub.events"},
		Sweep:  SweepConfig{IntervalSeconds: 60},
	}

	if err := libconfig.Load(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("config: jwt secret required")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8083"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// ActiveSessionTTL returns the cache ttl as duration.
func (c *Config) ActiveSessionTTL() time.Duration {
	if c.Redis.TTL <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Redis.TTL) * time.Second
}

// SweepInterval returns the reconciliation tick as duration.
func (c *Config) SweepInterval() time.Duration {
	if c.Sweep.IntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Sweep.IntervalSeconds) * time.Second
}
