package config

// EnvPrefix is handed to envconfig; every field spells out its full key.
const EnvPrefix = "PACKDROP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv          = "PACKDROP_APP_ENV"
	EnvOpsPort         = "PACKDROP_OPS_PORT"
	EnvDBDSN           = "PACKDROP_DB_DSN"
	EnvDBHost          = "PACKDROP_DB_HOST"
	EnvDBUser          = "PACKDROP_DB_USER"
	EnvDBName          = "PACKDROP_DB_NAME"
	EnvRedisURL        = "PACKDROP_REDIS_URL"
	EnvLedgerURL       = "PACKDROP_LEDGER_ALGOD_URL"
	EnvLedgerToken     = "PACKDROP_LEDGER_ALGOD_TOKEN"
	EnvSquareToken     = "PACKDROP_SQUARE_ACCESS_TOKEN"
	EnvSquareEnv       = "PACKDROP_SQUARE_ENV"
	EnvGCPProjectID    = "PACKDROP_GCP_PROJECT_ID"
	EnvPubSubTopic     = "PACKDROP_PUBSUB_EVENTS_TOPIC"
	EnvSchedulerLedger = "PACKDROP_SCHEDULER_LEDGER_INTERVAL"
	EnvUseSQLite       = "PACKDROP_USE_SQLITE"
	EnvAutoMigrate     = "PACKDROP_AUTO_MIGRATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
