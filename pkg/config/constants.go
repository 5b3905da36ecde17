package config

const (
	EnvPrefix = "CODY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DefaultSQLiteDSN = "file:cody.sqlite?_foreign_keys=on&_journal_mode=WAL"

	EnvAppEnv         = "CODY_APP_ENV"
	EnvPort           = "CODY_APP_PORT"
	EnvDBDSN          = "CODY_DB_DSN"
	EnvDBDriver       = "CODY_DB_DRIVER"
	EnvDBHost         = "CODY_DB_HOST"
	EnvDBUser         = "CODY_DB_USER"
	EnvDBName         = "CODY_DB_NAME"
	EnvRedisURL       = "CODY_REDIS_URL"
	EnvJWTSecret      = "CODY_JWT_SECRET"
	EnvJWTIssuer      = "CODY_JWT_ISSUER"
	EnvMentorCapacity = "CODY_MENTOR_CAPACITY"
	EnvMentorMinRank  = "CODY_MENTOR_MIN_RANK"
	EnvRoleNoneID     = "CODY_ROLE_NONE_ID"
	EnvRoleStarterID  = "CODY_ROLE_STARTER_ID"
	EnvRoleMemberID   = "CODY_ROLE_MEMBER_ID"
	EnvUseSQLite      = "CODY_USE_SQLITE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
