package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerAddress  string        `yaml:"serverAddress"`
	DataDir        string        `yaml:"dataDir"`
	LogLevel       string        `yaml:"logLevel"`
	LogFormat      string        `yaml:"logFormat"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
	SessionTTL     time.Duration `yaml:"sessionTTL"`

	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable it only behind a proxy that overwrites those headers.
	TrustProxy bool `yaml:"trustProxy"`

	SendGridAPIKey   string `yaml:"sendgridApiKey"`
	ContactFromEmail string `yaml:"contactFromEmail"`
	ContactToEmail   string `yaml:"contactToEmail"`

	RecaptchaSecret  string `yaml:"recaptchaSecret"`
	RecaptchaSiteKey string `yaml:"recaptchaSiteKey"`

	SubmitRatePerMinute float64 `yaml:"submitRatePerMinute"`
	SubmitBurst         int     `yaml:"submitBurst"`
}

func Default() *Config {
	return &Config{
		ServerAddress:       ":8080",
		DataDir:             "./data",
		LogLevel:            "info",
		LogFormat:           "text",
		AllowedOrigins:      []string{"*"},
		SessionTTL:          30 * time.Minute,
		SubmitRatePerMinute: 6,
		SubmitBurst:         3,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE, then the environment. A .env file in the working directory
// is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.SendGridAPIKey = getEnv("SENDGRID_API_KEY", c.SendGridAPIKey)
	c.ContactFromEmail = getEnv("CONTACT_FROM_EMAIL", c.ContactFromEmail)
	c.ContactToEmail = getEnv("CONTACT_TO_EMAIL", c.ContactToEmail)
	c.RecaptchaSecret = getEnv("RECAPTCHA_SECRET", c.RecaptchaSecret)
	c.RecaptchaSiteKey = getEnv("RECAPTCHA_SITE_KEY", c.RecaptchaSiteKey)

	if v, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := os.LookupEnv("TRUST_PROXY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRUST_PROXY: %w", err)
		}
		c.TrustProxy = b
	}
	if v, ok := os.LookupEnv("CONTACT_SESSION_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CONTACT_SESSION_TTL: %w", err)
		}
		c.SessionTTL = d
	}
	if v, ok := os.LookupEnv("SUBMIT_RATE_PER_MINUTE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SUBMIT_RATE_PER_MINUTE: %w", err)
		}
		c.SubmitRatePerMinute = f
	}
	if v, ok := os.LookupEnv("SUBMIT_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SUBMIT_BURST: %w", err)
		}
		c.SubmitBurst = n
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
