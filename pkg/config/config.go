package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Pricing      PricingConfig
	Stats        StatsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SALESORDERS_APP_ENV" required:"true"`
	Port         string `envconfig:"SALESORDERS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SALESORDERS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SALESORDERS_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"SALESORDERS_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SALESORDERS_DB_DSN"`
	Driver string `envconfig:"SALESORDERS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SALESORDERS_DB_HOST"`
	LegacyPort     int    `envconfig:"SALESORDERS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SALESORDERS_DB_USER"`
	LegacyPassword string `envconfig:"SALESORDERS_DB_PASSWORD"`
	LegacyName     string `envconfig:"SALESORDERS_DB_NAME"`
	LegacySSLMode  string `envconfig:"SALESORDERS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SALESORDERS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SALESORDERS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SALESORDERS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SALESORDERS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// UsesSQLite reports whether the configured driver is the embedded sqlite one.
func (db DBConfig) UsesSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

// RedisConfig is optional: an empty URL and address leave order locking in-process
// and disable idempotency replay.
type RedisConfig struct {
	URL          string        `envconfig:"SALESORDERS_REDIS_URL"`
	Address      string        `envconfig:"SALESORDERS_REDIS_ADDR"`
	Password     string        `envconfig:"SALESORDERS_REDIS_PASSWORD"`
	DB           int           `envconfig:"SALESORDERS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SALESORDERS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SALESORDERS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SALESORDERS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SALESORDERS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SALESORDERS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SALESORDERS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SALESORDERS_AUTO_MIGRATE" default:"false"`
}

type PricingConfig struct {
	LockTTL           time.Duration `envconfig:"SALESORDERS_PRICING_LOCK_TTL" default:"15s"`
	LockWait          time.Duration `envconfig:"SALESORDERS_PRICING_LOCK_WAIT" default:"5s"`
	LockRetryInterval time.Duration `envconfig:"SALESORDERS_PRICING_LOCK_RETRY" default:"25ms"`
}

type StatsConfig struct {
	TopProductsLimit int `envconfig:"SALESORDERS_STATS_TOP_PRODUCTS_LIMIT" default:"20"`
	MaxProductsLimit int `envconfig:"SALESORDERS_STATS_MAX_PRODUCTS_LIMIT" default:"200"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = defaultSQLiteDSN
		}
		return nil
	}
	if !db.UsesSQLite() && !strings.EqualFold(db.Driver, DriverPostgres) {
		return fmt.Errorf("unsupported %s %q (expected %s or %s)", EnvDBDriver, db.Driver, DriverPostgres, DriverSQLite)
	}
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
