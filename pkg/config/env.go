package config

// EnvPrefix is empty because every field carries its full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:salesorders.db?_foreign_keys=on"
)

const (
	EnvAppEnv     = "SALESORDERS_APP_ENV"
	EnvPort       = "SALESORDERS_APP_PORT"
	EnvDBDSN      = "SALESORDERS_DB_DSN"
	EnvDBDriver   = "SALESORDERS_DB_DRIVER"
	EnvDBHost     = "SALESORDERS_DB_HOST"
	EnvDBUser     = "SALESORDERS_DB_USER"
	EnvDBPassword = "SALESORDERS_DB_PASSWORD"
	EnvDBName     = "SALESORDERS_DB_NAME"
	EnvRedisURL   = "SALESORDERS_REDIS_URL"
	EnvUseSQLite  = "SALESORDERS_USE_SQLITE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
