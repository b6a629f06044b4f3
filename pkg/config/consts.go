package config

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "orderdesk"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "ORDERDESK_APP_ENV"
	EnvPort      = "ORDERDESK_APP_PORT"
	EnvDBDSN     = "ORDERDESK_DB_DSN"
	EnvDBHost    = "ORDERDESK_DB_HOST"
	EnvDBUser    = "ORDERDESK_DB_USER"
	EnvDBName    = "ORDERDESK_DB_NAME"
	EnvRedisURL  = "ORDERDESK_REDIS_URL"
	EnvJWTSecret = "ORDERDESK_JWT_SECRET"
	EnvJWTIssuer = "ORDERDESK_JWT_ISSUER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
