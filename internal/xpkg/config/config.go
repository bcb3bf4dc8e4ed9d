package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DB        *Postgres           `yaml:"database"`
	RMQ       *RabbitMQ           `yaml:"rabbitmq"`
	Auth      *Auth               `yaml:"auth"`
	Providers map[string]Provider `yaml:"providers"`
}

type Postgres struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMQ struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	VHost    string `yaml:"vhost"`
}

type Auth struct {
	Secret string `yaml:"secret"`
}

// Provider holds per-gateway webhook verification settings. Status
// vocabularies are compiled in; only secrets and header names are config.
type Provider struct {
	WebhookSecret   string `yaml:"webhook_secret"`
	SignatureHeader string `yaml:"signature_header"`
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cnf := &Config{}
	if err := yaml.Unmarshal(data, cnf); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cnf.applyEnv()

	if cnf.DB == nil {
		return nil, fmt.Errorf("config: database section is required")
	}
	if cnf.RMQ == nil {
		return nil, fmt.Errorf("config: rabbitmq section is required")
	}

	return cnf, nil
}

// applyEnv lets deployment override the YAML without editing the file.
func (c *Config) applyEnv() {
	if c.DB != nil {
		c.DB.Host = getEnv("QUIKLII_DB_HOST", c.DB.Host)
		c.DB.Port = getEnv("QUIKLII_DB_PORT", c.DB.Port)
		c.DB.User = getEnv("QUIKLII_DB_USER", c.DB.User)
		c.DB.Password = getEnv("QUIKLII_DB_PASSWORD", c.DB.Password)
		c.DB.Database = getEnv("QUIKLII_DB_NAME", c.DB.Database)
	}
	if c.RMQ != nil {
		c.RMQ.Host = getEnv("QUIKLII_RMQ_HOST", c.RMQ.Host)
		c.RMQ.Port = getEnv("QUIKLII_RMQ_PORT", c.RMQ.Port)
		c.RMQ.User = getEnv("QUIKLII_RMQ_USER", c.RMQ.User)
		c.RMQ.Password = getEnv("QUIKLII_RMQ_PASSWORD", c.RMQ.Password)
	}
	if c.Auth != nil {
		c.Auth.Secret = getEnv("QUIKLII_AUTH_SECRET", c.Auth.Secret)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
