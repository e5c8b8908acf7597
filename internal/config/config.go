package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Environment    string   `mapstructure:"ENVIRONMENT"`
	Version        string   `mapstructure:"VERSION"`
	BaseURL        string   `mapstructure:"BASE_URL"`
	TrustedOrigins []string `mapstructure:"TRUSTED_ORIGINS"`
	TLSCertFile    string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile     string   `mapstructure:"TLS_KEY_FILE"`

	DBHost         string        `mapstructure:"POSTGRES_HOST"`
	DBPort         string        `mapstructure:"POSTGRES_PORT"`
	DBUser         string        `mapstructure:"POSTGRES_USER"`
	DBPassword     string        `mapstructure:"POSTGRES_PASSWORD"`
	DBName         string        `mapstructure:"POSTGRES_DB"`
	DBMaxOpenConns int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxIdleTime  time.Duration `mapstructure:"DB_MAX_IDLE_TIME"`
	StoreTimeout   time.Duration `mapstructure:"STORE_TIMEOUT"`

	MailHost     string `mapstructure:"MAIL_HOST"`
	MailPort     int    `mapstructure:"MAIL_PORT"`
	MailUser     string `mapstructure:"MAIL_USER"`
	MailPassword string `mapstructure:"MAIL_PASSWORD"`
	MailSender   string `mapstructure:"MAIL_SENDER"`

	MQHost     string `mapstructure:"RABBITMQ_HOST"`
	MQPort     string `mapstructure:"RABBITMQ_PORT"`
	MQUser     string `mapstructure:"RABBITMQ_USER"`
	MQPassword string `mapstructure:"RABBITMQ_PASSWORD"`

	// ViewCacheBackend is either "memory" or "redis".
	ViewCacheBackend string        `mapstructure:"VIEW_CACHE_BACKEND"`
	ViewCacheTTL     time.Duration `mapstructure:"VIEW_CACHE_TTL"`
	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	RedisPassword    string        `mapstructure:"REDIS_PASSWORD"`

	LimiterEnabled bool    `mapstructure:"LIMITER_ENABLED"`
	LimiterRPS     float64 `mapstructure:"LIMITER_RPS"`
	LimiterBurst   int     `mapstructure:"LIMITER_BURST"`
}

var defaults = map[string]any{
	"PORT":               ":4000",
	"ENVIRONMENT":        "development",
	"VERSION":            "1.0.0",
	"BASE_URL":           "http://localhost:4000",
	"TRUSTED_ORIGINS":    []string{},
	"TLS_CERT_FILE":      "",
	"TLS_KEY_FILE":       "",
	"POSTGRES_HOST":      "localhost",
	"POSTGRES_PORT":      "5432",
	"POSTGRES_USER":      "",
	"POSTGRES_PASSWORD":  "",
	"POSTGRES_DB":        "blogdesk",
	"DB_MAX_OPEN_CONNS":  10,
	"DB_MAX_IDLE_CONNS":  5,
	"DB_MAX_IDLE_TIME":   "15m",
	"STORE_TIMEOUT":      "3s",
	"MAIL_HOST":          "",
	"MAIL_PORT":          587,
	"MAIL_USER":          "",
	"MAIL_PASSWORD":      "",
	"MAIL_SENDER":        "",
	"RABBITMQ_HOST":      "localhost",
	"RABBITMQ_PORT":      "5672",
	"RABBITMQ_USER":      "guest",
	"RABBITMQ_PASSWORD":  "guest",
	"VIEW_CACHE_BACKEND": "memory",
	"VIEW_CACHE_TTL":     "5m",
	"REDIS_ADDR":         "localhost:6379",
	"REDIS_PASSWORD":     "",
	"LIMITER_ENABLED":    true,
	"LIMITER_RPS":        2.0,
	"LIMITER_BURST":      4,
}

// Load reads the dotenv file at path. Environment variables take precedence
// over the file, and every key falls back to a default.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.TrustedOrigins = splitOrigins(cfg.TrustedOrigins)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DatabaseURL is the lib/pq connection string for the configured database.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func (c *Config) AMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.MQUser, c.MQPassword, c.MQHost, c.MQPort)
}

func (c *Config) validate() error {
	switch c.ViewCacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid VIEW_CACHE_BACKEND %q: must be memory or redis", c.ViewCacheBackend)
	}

	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}

	if c.Environment == "production" && (c.TLSCertFile == "" || c.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE are required in production")
	}

	return nil
}

// splitOrigins accepts both a real list and the single comma separated
// string a dotenv file produces.
func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for _, origin := range strings.Split(item, ",") {
			origin = strings.Trim(strings.TrimSpace(origin), `"`)
			if origin != "" {
				out = append(out, origin)
			}
		}
	}
	return out
}
