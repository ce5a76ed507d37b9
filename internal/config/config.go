package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	SessionStoreSQLite = "sqlite"
	SessionStoreRedis  = "redis"
)

// Config holds the application configuration
type Config struct {
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:":3000"`
	Environment   string `env:"ENVIRONMENT"    envDefault:"development"`

	// DatabasePath is the SQLite file holding users (unless DatabaseURL is
	// set) and sessions (when the sqlite session store is selected)
	DatabasePath  string `env:"DATABASE_PATH"  envDefault:"./data/secretwall.db"`
	DatabaseURL   string `env:"DATABASE_URL"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"userDB"`

	Session SessionConfig
	Google  GoogleConfig
	Argon2  Argon2Config
}

// SessionConfig holds session storage and cookie configuration
type SessionConfig struct {
	Store         string        `env:"SESSION_STORE"          envDefault:"sqlite"`
	TTL           time.Duration `env:"SESSION_TTL"            envDefault:"168h"`
	SweepSchedule string        `env:"SESSION_SWEEP_SCHEDULE" envDefault:"@every 10m"`
	SecureCookie  bool          `env:"SECURE_COOKIE"          envDefault:"false"`
	RedisAddr     string        `env:"REDIS_ADDR"             envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB"               envDefault:"0"`
}

// GoogleConfig holds Google OAuth configuration. Google sign-in is disabled
// when ClientID is empty.
type GoogleConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	CallbackURL  string `env:"GOOGLE_CALLBACK_URL" envDefault:"http://localhost:3000/auth/google/secrets"`
	StateSecret  string `env:"STATE_SECRET"`
}

// Argon2Config holds password hashing cost parameters
type Argon2Config struct {
	Time      uint32 `env:"ARGON2_TIME"       envDefault:"1"`
	MemoryKiB uint32 `env:"ARGON2_MEMORY_KIB" envDefault:"65536"`
	Threads   uint8  `env:"ARGON2_THREADS"    envDefault:"4"`
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, namedParseError(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch c.Session.Store {
	case SessionStoreSQLite, SessionStoreRedis:
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreSQLite, SessionStoreRedis, c.Session.Store)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.Session.TTL)
	}
	if c.DatabaseURL != "" && !c.UsesMongo() {
		return fmt.Errorf("DATABASE_URL must be a mongodb:// or mongodb+srv:// URI")
	}
	if c.Google.Enabled() && c.Google.StateSecret == "" {
		return fmt.Errorf("STATE_SECRET is required when CLIENT_ID is set")
	}
	if c.Argon2.Time == 0 || c.Argon2.MemoryKiB == 0 || c.Argon2.Threads == 0 {
		return fmt.Errorf("ARGON2_TIME, ARGON2_MEMORY_KIB and ARGON2_THREADS must be positive")
	}

	return nil
}

// UsesMongo reports whether users live in MongoDB rather than SQLite
func (c *Config) UsesMongo() bool {
	return strings.HasPrefix(c.DatabaseURL, "mongodb://") || strings.HasPrefix(c.DatabaseURL, "mongodb+srv://")
}

// NeedsSQLite reports whether the SQLite file has to be opened at all
func (c *Config) NeedsSQLite() bool {
	return !c.UsesMongo() || c.Session.Store == SessionStoreSQLite
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Enabled reports whether Google sign-in is configured
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != ""
}

// namedParseError rewrites an env parse failure so it names the variable
// rather than the Go field
func namedParseError(err error) error {
	var perr env.ParseError
	if !errors.As(err, &perr) {
		return fmt.Errorf("parse env: %w", err)
	}

	names := map[string]string{}
	collectEnvNames(reflect.TypeOf(Config{}), names)
	if name, ok := names[perr.Name]; ok {
		return fmt.Errorf("invalid %s: %w", name, perr.Err)
	}
	return fmt.Errorf("parse env: %w", err)
}

func collectEnvNames(t reflect.Type, out map[string]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("env")
		if tag == "" && f.Type.Kind() == reflect.Struct {
			collectEnvNames(f.Type, out)
			continue
		}
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			out[f.Name] = name
		}
	}
}
