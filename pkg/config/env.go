package config

// EnvPrefix is handed to envconfig; every field also carries its full name as a tag.
const EnvPrefix = "PHARMACY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Variable names referenced outside struct tags.
const (
	EnvAppEnv     = "PHARMACY_APP_ENV"
	EnvPort       = "PHARMACY_APP_PORT"
	EnvLogFormat  = "PHARMACY_LOG_FORMAT"
	EnvDBDSN      = "PHARMACY_DB_DSN"
	EnvDBDriver   = "PHARMACY_DB_DRIVER"
	EnvDBHost     = "PHARMACY_DB_HOST"
	EnvDBUser     = "PHARMACY_DB_USER"
	EnvDBName     = "PHARMACY_DB_NAME"
	EnvDBPassword = "PHARMACY_DB_PASSWORD"
	EnvRedisURL   = "PHARMACY_REDIS_URL"
	EnvJWTSecret  = "PHARMACY_JWT_SECRET"
	EnvJWTExpMins = "PHARMACY_JWT_EXPIRATION_MINUTES"
	EnvUseSQLite  = "PHARMACY_USE_SQLITE"
	EnvSQLitePath = "PHARMACY_SQLITE_PATH"
)
