// Package config loads process settings from PHARMACY_* environment
// variables.
package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Session       SessionConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	HTTP          HTTPConfig
	FeatureFlags  FeatureFlagsConfig
	Seed          SeedConfig
}

// Load reads the environment and resolves derived settings. Every problem
// found after parsing is reported together.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	err := multierr.Combine(
		cfg.DB.resolveDSN(),
		oneOf(EnvDBDriver, cfg.DB.Driver, "postgres", "sqlite"),
		oneOf(EnvLogFormat, strings.ToLower(cfg.App.LogFormat), "json", "console"),
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func oneOf(env, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%s must be one of %s, got %q", env, strings.Join(allowed, ", "), value)
}

type AppConfig struct {
	Env          string `envconfig:"PHARMACY_APP_ENV" required:"true"`
	Port         string `envconfig:"PHARMACY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PHARMACY_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PHARMACY_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PHARMACY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"PHARMACY_DB_DSN"`
	Driver string `envconfig:"PHARMACY_DB_DRIVER" default:"postgres"`

	// Used only when DSN is empty.
	Host     string `envconfig:"PHARMACY_DB_HOST"`
	Port     int    `envconfig:"PHARMACY_DB_PORT" default:"5432"`
	User     string `envconfig:"PHARMACY_DB_USER"`
	Password string `envconfig:"PHARMACY_DB_PASSWORD"`
	Name     string `envconfig:"PHARMACY_DB_NAME"`
	SSLMode  string `envconfig:"PHARMACY_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"PHARMACY_SQLITE_PATH" default:"pharmacy.db"`

	MaxOpenConns    int           `envconfig:"PHARMACY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PHARMACY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PHARMACY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PHARMACY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PHARMACY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PHARMACY_REDIS_ADDR"`
	Password     string        `envconfig:"PHARMACY_REDIS_PASSWORD"`
	DB           int           `envconfig:"PHARMACY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PHARMACY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PHARMACY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PHARMACY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PHARMACY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PHARMACY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PHARMACY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PHARMACY_JWT_ISSUER" default:"pharmacy-backend"`
	ExpirationMinutes int    `envconfig:"PHARMACY_JWT_EXPIRATION_MINUTES" default:"480"`
}

// AccessTTL returns the lifetime of an access token and its backing session.
func (j JWTConfig) AccessTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// SessionConfig controls the cookie that carries the access token to browsers.
type SessionConfig struct {
	CookieName   string `envconfig:"PHARMACY_SESSION_COOKIE_NAME" default:"pharmacy_session"`
	CookieDomain string `envconfig:"PHARMACY_SESSION_COOKIE_DOMAIN"`
	CookieSecure bool   `envconfig:"PHARMACY_SESSION_COOKIE_SECURE" default:"false"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PHARMACY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PHARMACY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PHARMACY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PHARMACY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PHARMACY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow           time.Duration `envconfig:"PHARMACY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIdentifierLimit  int           `envconfig:"PHARMACY_AUTH_RATE_LIMIT_LOGIN_IDENTIFIER_LIMIT" default:"5"`
	LoginIPLimit          int           `envconfig:"PHARMACY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow        time.Duration `envconfig:"PHARMACY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterIdentifierLim int           `envconfig:"PHARMACY_AUTH_RATE_LIMIT_REGISTER_IDENTIFIER_LIMIT" default:"3"`
	RegisterIPLimit       int           `envconfig:"PHARMACY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// HTTPConfig covers the outer HTTP surface: CORS, per-IP throttling, idempotency.
type HTTPConfig struct {
	AllowedOrigins    []string      `envconfig:"PHARMACY_HTTP_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	RequestsPerMinute int           `envconfig:"PHARMACY_HTTP_REQUESTS_PER_MINUTE" default:"300"`
	IdempotencyTTL    time.Duration `envconfig:"PHARMACY_HTTP_IDEMPOTENCY_TTL" default:"24h"`
	ShutdownTimeout   time.Duration `envconfig:"PHARMACY_HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PHARMACY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PHARMACY_AUTO_MIGRATE" default:"false"`
	SeedOnStart bool `envconfig:"PHARMACY_SEED_ON_START" default:"false"`
}

// SeedConfig holds the bootstrap admin credentials used by the seeder.
type SeedConfig struct {
	AdminUsername string `envconfig:"PHARMACY_SEED_ADMIN_USERNAME" default:"admin"`
	AdminEmail    string `envconfig:"PHARMACY_SEED_ADMIN_EMAIL" default:"admin@pharmacy.local"`
	AdminPassword string `envconfig:"PHARMACY_SEED_ADMIN_PASSWORD"`
	SampleData    bool   `envconfig:"PHARMACY_SEED_SAMPLE_DATA" default:"true"`
}

// resolveDSN fills DSN when it is unset: the sqlite path in sqlite mode,
// otherwise a postgres URL assembled from the discrete host settings.
func (db *DBConfig) resolveDSN() error {
	switch {
	case db.DSN != "":
		return nil
	case db.Driver == "sqlite":
		db.DSN = db.SQLitePath
		return nil
	}

	var missing []string
	for _, part := range []struct{ env, value string }{
		{EnvDBHost, db.Host},
		{EnvDBUser, db.User},
		{EnvDBName, db.Name},
	} {
		if part.value == "" {
			missing = append(missing, part.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}
