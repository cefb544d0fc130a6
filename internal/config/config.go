package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v8"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Store drivers
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	Port        string `env:"PORT" envDefault:"5002"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DBConn      string `env:"DB_CONN" envDefault:"host=localhost port=5432 user=test password=test dbname=allowance sslmode=disable"`
	JWTSecret   string `env:"JWT_SECRET" envDefault:"secret"`

	Mongo   Mongo
	Scoring Scoring
	Summary Summary
	SMTP    SMTP
	AMQP    AMQP

	// AuthServiceURL is the base URL of the service owning child balances.
	// Balance sync is skipped when empty.
	AuthServiceURL string `env:"AUTH_SERVICE_URL"`
}

// Mongo holds the document store settings
type Mongo struct {
	URI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DATABASE" envDefault:"allowance"`
}

// Scoring holds the scoring collaborator settings
type Scoring struct {
	URL     string        `env:"SCORING_URL"`
	Timeout time.Duration `env:"SCORING_TIMEOUT" envDefault:"5s"`
	Retries int           `env:"SCORING_RETRIES" envDefault:"2"`
}

// Summary holds the weekly job settings
type Summary struct {
	Cron     string `env:"SUMMARY_CRON" envDefault:"5 0 * * 1"`
	Timezone string `env:"SUMMARY_TIMEZONE" envDefault:"UTC"`
	Workers  int    `env:"AGGREGATION_WORKERS" envDefault:"4"`
	// ScoreSeed makes fallback scores reproducible when non-zero
	ScoreSeed int64 `env:"SCORE_SEED"`
}

// SMTP holds the alert mail settings. Alerts are disabled without a host.
type SMTP struct {
	Host        string `env:"SMTP_HOST"`
	Port        string `env:"SMTP_PORT" envDefault:"587"`
	Username    string `env:"SMTP_USERNAME"`
	Password    string `env:"SMTP_PASSWORD"`
	SenderEmail string `env:"SENDER_EMAIL" envDefault:"noreply@allowance.local"`
	AlertEmail  string `env:"ALERT_EMAIL"`
}

// AMQP holds the summary event settings. Publishing is disabled without a URL.
type AMQP struct {
	URL        string `env:"AMQP_URL"`
	Exchange   string `env:"AMQP_EXCHANGE" envDefault:"allowance"`
	RoutingKey string `env:"AMQP_ROUTING_KEY" envDefault:"weekly_summary.upserted"`
}

// NewConfig loads configuration from an optional .env file and environment variables
func NewConfig() (*Config, error) {
	// .env is only present in local development
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location returns the timezone the weekly schedule runs in
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Summary.Timezone)
}

// AlertsEnabled reports whether run failures should be mailed
func (c *Config) AlertsEnabled() bool {
	return c.SMTP.Host != "" && c.SMTP.AlertEmail != ""
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid PORT %q", c.Port))
	}

	switch c.StoreDriver {
	case StorePostgres:
		if c.DBConn == "" {
			problems = append(problems, "DB_CONN is required for the postgres store")
		}
	case StoreMongo:
		if c.Mongo.URI == "" {
			problems = append(problems, "MONGO_URI is required for the mongo store")
		}
		if c.Mongo.Database == "" {
			problems = append(problems, "MONGO_DATABASE is required for the mongo store")
		}
	case StoreMemory:
	default:
		problems = append(problems, fmt.Sprintf("invalid STORE_DRIVER %q: must be %s, %s or %s", c.StoreDriver, StorePostgres, StoreMongo, StoreMemory))
	}

	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}

	if c.Scoring.URL != "" {
		if _, err := url.ParseRequestURI(c.Scoring.URL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid SCORING_URL %q: %v", c.Scoring.URL, err))
		}
	}
	if c.Scoring.Timeout <= 0 {
		problems = append(problems, "SCORING_TIMEOUT must be positive")
	}
	if c.Scoring.Retries < 0 {
		problems = append(problems, "SCORING_RETRIES must not be negative")
	}

	if _, err := cron.ParseStandard(c.Summary.Cron); err != nil {
		problems = append(problems, fmt.Sprintf("invalid SUMMARY_CRON %q: %v", c.Summary.Cron, err))
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("invalid SUMMARY_TIMEZONE %q: %v", c.Summary.Timezone, err))
	}
	if c.Summary.Workers < 1 {
		problems = append(problems, "AGGREGATION_WORKERS must be at least 1")
	}

	if c.AMQP.URL != "" {
		if u, err := url.Parse(c.AMQP.URL); err != nil || (u.Scheme != "amqp" && u.Scheme != "amqps") {
			problems = append(problems, fmt.Sprintf("invalid AMQP_URL %q: must use amqp or amqps", c.AMQP.URL))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}
