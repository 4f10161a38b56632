package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port  string `env:"PORT,default=3000"`
	Store string `env:"STORE,default=postgres"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS,default=25"`
	DBMinConns  int32  `env:"DB_MIN_CONNS,default=5"`
	AutoMigrate bool   `env:"AUTO_MIGRATE,default=true"`

	// Empty BotToken switches authentication to dev mode.
	BotToken       string        `env:"BOT_TOKEN"`
	WebAppURL      string        `env:"WEBAPP_URL"`
	InitDataMaxAge time.Duration `env:"INIT_DATA_MAX_AGE,default=0s"`

	FCMCredentialsFile string `env:"FCM_CREDENTIALS_FILE"`

	MetricsUser string `env:"METRICS_USER"`
	MetricsPass string `env:"METRICS_PASS"`

	CORSOrigins string `env:"CORS_ORIGINS,default=*"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,default=10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=20"`

	ReminderSchedule string `env:"REMINDER_SCHEDULE,default=0 * * * *"`
}

// Load reads an optional .env file and decodes the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE=%s", StorePostgres)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func (c *Config) DevMode() bool {
	return c.BotToken == ""
}

func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
