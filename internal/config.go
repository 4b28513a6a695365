package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Sepay         SepayConfig         `mapstructure:"sepay"`
	Checkout      CheckoutConfig      `mapstructure:"checkout"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

// SepayConfig holds the gateway credentials. Both keys empty means the
// client runs in mock mode and never touches the network.
type SepayConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	SecretKey      string        `mapstructure:"secret_key"`
	Sandbox        bool          `mapstructure:"sandbox"`
	StoreDomain    string        `mapstructure:"store_domain"`
	WebhookURL     string        `mapstructure:"webhook_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
}

type CheckoutConfig struct {
	OrderTokenSecret string        `mapstructure:"order_token_secret"`
	OrderTokenTTL    time.Duration `mapstructure:"order_token_ttl"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds the configuration from environment variables
// (Docker / production deployments).
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_SERVER_PORT", 8080),
			BaseURL:           getEnv("HTTP_SERVER_BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("HTTP_SERVER_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_SERVER_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_SERVER_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_SERVER_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DATABASE_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_SOURCE", ""),
		},
		Sepay: SepayConfig{
			APIKey:         getEnv("SEPAY_API_KEY", ""),
			SecretKey:      getEnv("SEPAY_SECRET_KEY", ""),
			Sandbox:        getEnvAsBool("SEPAY_SANDBOX", true),
			StoreDomain:    getEnv("PUBLIC_STORE_DOMAIN", "http://localhost:8080"),
			WebhookURL:     getEnv("SEPAY_WEBHOOK_URL", ""),
			RequestTimeout: getEnvAsDuration("SEPAY_REQUEST_TIMEOUT", 10*time.Second),
			RetryBackoff:   getEnvAsDuration("SEPAY_RETRY_BACKOFF", 500*time.Millisecond),
		},
		Checkout: CheckoutConfig{
			OrderTokenSecret: getEnv("CHECKOUT_ORDER_TOKEN_SECRET", ""),
			OrderTokenTTL:    getEnvAsDuration("CHECKOUT_ORDER_TOKEN_TTL", 24*time.Hour),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOGGING_LEVEL", "info"),
				Format: getEnv("LOGGING_FORMAT", "json"),
			},
		},
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Sepay.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("sepay config: %v", err))
	}

	if err := c.Checkout.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("checkout config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SepayConfig) Validate() error {
	// credentials are optional: missing credentials means mock mode,
	// which the client logs loudly on every payment creation
	if (c.APIKey == "") != (c.SecretKey == "") {
		return errors.New("sepay api_key and secret_key must be set together")
	}
	if c.StoreDomain == "" {
		return errors.New("store_domain is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	return nil
}

// Configured reports whether real gateway credentials are present.
func (c *SepayConfig) Configured() bool {
	return c.APIKey != "" && c.SecretKey != ""
}

func (c *CheckoutConfig) Validate() error {
	if c.OrderTokenSecret == "" {
		return errors.New("order_token_secret is required")
	}
	if len(c.OrderTokenSecret) < 32 {
		return errors.New("order_token_secret must be at least 32 characters")
	}
	if c.OrderTokenTTL <= 0 {
		return errors.New("order_token_ttl must be positive")
	}
	return nil
}
