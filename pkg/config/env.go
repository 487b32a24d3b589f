package config

const (
	EnvPrefix = "THAYS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "THAYS_APP_ENV"
	EnvPort     = "THAYS_APP_PORT"
	EnvLogLevel = "THAYS_LOG_LEVEL"
	EnvTimezone = "THAYS_BUSINESS_TIMEZONE"

	EnvDBDSN  = "THAYS_DB_DSN"
	EnvDBHost = "THAYS_DB_HOST"
	EnvDBUser = "THAYS_DB_USER"
	EnvDBName = "THAYS_DB_NAME"

	EnvRedisURL = "THAYS_REDIS_URL"

	EnvStripeWebhookSecret = "THAYS_STRIPE_WEBHOOK_SECRET"
	EnvPubSubOrdersTopic   = "THAYS_PUBSUB_ORDERS_TOPIC"
	EnvGCPProjectID        = "THAYS_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
