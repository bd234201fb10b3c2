package config

import (
	"errors"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Supported document store backends.
const (
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port           int           `envconfig:"PORT" default:"8080"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL    string        `envconfig:"DATABASE_URL" required:"true"`
	RunMigrations  bool          `envconfig:"RUN_MIGRATIONS" default:"true"`
	Version        string        `envconfig:"VERSION" default:"dev"`
	BcryptCost     int           `envconfig:"BCRYPT_COST" default:"12"`
	RedisURL       string        `envconfig:"REDIS_URL" default:""`
	SessionSecret  string        `envconfig:"SESSION_SECRET" required:"true"`
	ClientCookie   string        `envconfig:"CLIENT_COOKIE_NAME" default:"palace_client"`
	ClientTokenTTL time.Duration `envconfig:"CLIENT_TOKEN_TTL" default:"720h"`
	SecureCookie   bool          `envconfig:"SECURE_COOKIE" default:"false"`
	TrackerIdleTTL time.Duration `envconfig:"TRACKER_IDLE_TTL" default:"30m"`
	AccountsFile   string        `envconfig:"STATIC_ACCOUNTS_FILE" default:""`

	DocstoreBackend      string `envconfig:"DOCSTORE_BACKEND" default:"postgres"`
	FirestoreProjectID   string `envconfig:"FIRESTORE_PROJECT_ID" default:""`
	FirestoreCredentials string `envconfig:"FIRESTORE_CREDENTIALS_FILE" default:""`

	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	DebugErrors    bool     `envconfig:"DEBUG_ERRORS" default:"false"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.SessionSecret) < 32 {
		return errors.New("SESSION_SECRET must be at least 32 bytes")
	}

	c.DocstoreBackend = strings.ToLower(strings.TrimSpace(c.DocstoreBackend))
	switch c.DocstoreBackend {
	case BackendPostgres, BackendMemory:
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			return errors.New("FIRESTORE_PROJECT_ID is required for the firestore backend")
		}
	default:
		return errors.New("DOCSTORE_BACKEND must be postgres, firestore or memory")
	}

	return nil
}
