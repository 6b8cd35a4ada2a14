package config

// Environment variable names referenced outside the struct tags, mostly by
// Load error messages and tests.
const (
	EnvPrefix = "MESA"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv   = "MESA_APP_ENV"
	EnvPort     = "MESA_APP_PORT"
	EnvDBDSN    = "MESA_DB_DSN"
	EnvDBHost   = "MESA_DB_HOST"
	EnvDBUser   = "MESA_DB_USER"
	EnvDBName   = "MESA_DB_NAME"
	EnvRedisURL = "MESA_REDIS_URL"

	EnvJWTSecret              = "MESA_JWT_SECRET"
	EnvJWTIssuer              = "MESA_JWT_ISSUER"
	EnvJWTExpMins             = "MESA_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "MESA_REFRESH_TOKEN_TTL_MINUTES"

	EnvTaxRate = "MESA_TAX_RATE"

	EnvGCPProjectID      = "MESA_GCP_PROJECT_ID"
	EnvPubSubDomainTopic = "MESA_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubDomainSub   = "MESA_PUBSUB_DOMAIN_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
