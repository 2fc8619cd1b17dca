package config

// EnvPrefix is handed to envconfig; every field carries an explicit name so it only matters
// for fields that omit one.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:storefront.db?cache=shared&_foreign_keys=on"
)

const (
	EnvAppEnv                 = "STOREFRONT_APP_ENV"
	EnvPort                   = "STOREFRONT_APP_PORT"
	EnvLogLevel               = "STOREFRONT_LOG_LEVEL"
	EnvDBDSN                  = "STOREFRONT_DB_DSN"
	EnvDBDriver               = "STOREFRONT_DB_DRIVER"
	EnvDBHost                 = "STOREFRONT_DB_HOST"
	EnvDBPort                 = "STOREFRONT_DB_PORT"
	EnvDBUser                 = "STOREFRONT_DB_USER"
	EnvDBPassword             = "STOREFRONT_DB_PASSWORD"
	EnvDBName                 = "STOREFRONT_DB_NAME"
	EnvRedisURL               = "STOREFRONT_REDIS_URL"
	EnvJWTSecret              = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer              = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins             = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic      = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub        = "STOREFRONT_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvSMTPHost               = "STOREFRONT_SMTP_HOST"
	EnvSMTPPort               = "STOREFRONT_SMTP_PORT"
	EnvNotifyOrderRecipient   = "STOREFRONT_NOTIFY_ORDER_RECIPIENT"
	EnvCORSAllowedOrigins     = "STOREFRONT_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
