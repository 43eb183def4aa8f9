package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "FLEETPARTS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "FLEETPARTS_APP_ENV"
	EnvPort       = "FLEETPARTS_APP_PORT"
	EnvDBDSN      = "FLEETPARTS_DB_DSN"
	EnvDBHost     = "FLEETPARTS_DB_HOST"
	EnvDBUser     = "FLEETPARTS_DB_USER"
	EnvDBName     = "FLEETPARTS_DB_NAME"
	EnvRedisURL   = "FLEETPARTS_REDIS_URL"
	EnvJWTSecret  = "FLEETPARTS_JWT_SECRET"
	EnvJWTIssuer  = "FLEETPARTS_JWT_ISSUER"
	EnvJWTExpMins = "FLEETPARTS_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Stock         StockConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FLEETPARTS_APP_ENV" required:"true"`
	Port         string `envconfig:"FLEETPARTS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FLEETPARTS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FLEETPARTS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FLEETPARTS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FLEETPARTS_DB_DSN"`
	Driver string `envconfig:"FLEETPARTS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FLEETPARTS_DB_HOST"`
	LegacyPort     int    `envconfig:"FLEETPARTS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FLEETPARTS_DB_USER"`
	LegacyPassword string `envconfig:"FLEETPARTS_DB_PASSWORD"`
	LegacyName     string `envconfig:"FLEETPARTS_DB_NAME"`
	LegacySSLMode  string `envconfig:"FLEETPARTS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FLEETPARTS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FLEETPARTS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FLEETPARTS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FLEETPARTS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FLEETPARTS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FLEETPARTS_REDIS_ADDR"`
	Password     string        `envconfig:"FLEETPARTS_REDIS_PASSWORD"`
	DB           int           `envconfig:"FLEETPARTS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FLEETPARTS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FLEETPARTS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FLEETPARTS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FLEETPARTS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FLEETPARTS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FLEETPARTS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FLEETPARTS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FLEETPARTS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenDays  int    `envconfig:"FLEETPARTS_JWT_REFRESH_TOKEN_DAYS" default:"14"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh session lifetime.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenDays <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenDays) * 24 * time.Hour
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FLEETPARTS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FLEETPARTS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FLEETPARTS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FLEETPARTS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FLEETPARTS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"FLEETPARTS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"FLEETPARTS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"FLEETPARTS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FLEETPARTS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FLEETPARTS_AUTO_MIGRATE" default:"false"`
}

type StockConfig struct {
	ReconcileMaxRetries int `envconfig:"FLEETPARTS_STOCK_RECONCILE_MAX_RETRIES" default:"5"`
	LedgerPageSize      int `envconfig:"FLEETPARTS_STOCK_LEDGER_PAGE_SIZE" default:"50"`
}

type CronConfig struct {
	SnapshotVerifySchedule time.Duration `envconfig:"FLEETPARTS_CRON_SNAPSHOT_VERIFY_EVERY" default:"1h"`
	LowStockScanSchedule   time.Duration `envconfig:"FLEETPARTS_CRON_LOW_STOCK_SCAN_EVERY" default:"15m"`
	LockTTL                time.Duration `envconfig:"FLEETPARTS_CRON_LOCK_TTL" default:"5m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
