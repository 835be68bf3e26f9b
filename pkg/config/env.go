package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "MERCAURA"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "MERCAURA_APP_ENV"
	EnvDBDSN  = "MERCAURA_DB_DSN"
	EnvDBHost = "MERCAURA_DB_HOST"
	EnvDBUser = "MERCAURA_DB_USER"
	EnvDBName = "MERCAURA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
