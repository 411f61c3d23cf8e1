package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "VAULTTROVE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "VAULTTROVE_APP_ENV"
	EnvPort     = "VAULTTROVE_APP_PORT"
	EnvLogLevel = "VAULTTROVE_LOG_LEVEL"

	EnvDBDSN  = "VAULTTROVE_DB_DSN"
	EnvDBHost = "VAULTTROVE_DB_HOST"
	EnvDBUser = "VAULTTROVE_DB_USER"
	EnvDBName = "VAULTTROVE_DB_NAME"

	EnvRedisURL = "VAULTTROVE_REDIS_URL"

	EnvJWTSecret = "VAULTTROVE_JWT_SECRET"
	EnvJWTIssuer = "VAULTTROVE_JWT_ISSUER"

	EnvUseSQLite = "VAULTTROVE_USE_SQLITE"

	EnvCarrierBaseURL = "VAULTTROVE_CARRIER_BASE_URL"
	EnvLabelsQuota    = "VAULTTROVE_LABELS_FREE_MONTHLY_QUOTA"

	EnvEventsSink    = "VAULTTROVE_EVENTS_SINK"
	EnvGCPProjectID  = "VAULTTROVE_GCP_PROJECT_ID"
	EnvPubSubTopic   = "VAULTTROVE_PUBSUB_LABELS_TOPIC"
	EnvSQSQueueURL   = "VAULTTROVE_SQS_LABELS_QUEUE_URL"
	EnvAWSRegion     = "VAULTTROVE_AWS_REGION"
	EnvCORSOrigins   = "VAULTTROVE_CORS_ALLOWED_ORIGINS"
	EnvOutboxMaxTry  = "VAULTTROVE_OUTBOX_MAX_ATTEMPTS"
	EnvMergeParallel = "VAULTTROVE_MERGE_FETCH_CONCURRENCY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
