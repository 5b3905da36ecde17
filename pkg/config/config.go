package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/cody-community/cody-backend/pkg/enums"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Onboarding   OnboardingConfig
	RankRoles    RankRolesConfig
	Discord      DiscordConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Onboarding.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CODY_APP_ENV" required:"true"`
	Port         string `envconfig:"CODY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CODY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CODY_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"CODY_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CODY_DB_DSN"`
	Driver string `envconfig:"CODY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CODY_DB_HOST"`
	LegacyPort     int    `envconfig:"CODY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CODY_DB_USER"`
	LegacyPassword string `envconfig:"CODY_DB_PASSWORD"`
	LegacyName     string `envconfig:"CODY_DB_NAME"`
	LegacySSLMode  string `envconfig:"CODY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CODY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CODY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CODY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CODY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded SQLite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"CODY_REDIS_URL"`
	Address      string        `envconfig:"CODY_REDIS_ADDR"`
	Password     string        `envconfig:"CODY_REDIS_PASSWORD"`
	DB           int           `envconfig:"CODY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CODY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CODY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CODY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CODY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CODY_REDIS_WRITE_TIMEOUT" default:"5s"`
	SyncLockTTL  time.Duration `envconfig:"CODY_REDIS_SYNC_LOCK_TTL" default:"30s"`
}

// Enabled reports whether any Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"CODY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CODY_JWT_ISSUER" default:"cody"`
	ExpirationMinutes int    `envconfig:"CODY_JWT_EXPIRATION_MINUTES" default:"60"`
}

type OnboardingConfig struct {
	MentorCapacity      int    `envconfig:"CODY_MENTOR_CAPACITY" default:"3"`
	MinMentorRank       string `envconfig:"CODY_MENTOR_MIN_RANK" default:"MEMBER"`
	StarterRewardEXP    int64  `envconfig:"CODY_STARTER_REWARD_EXP" default:"0"`
	StarterRewardCredit int64  `envconfig:"CODY_STARTER_REWARD_CREDIT" default:"0"`
	DefaultChannelID    string `envconfig:"CODY_DEFAULT_CHANNEL_ID" default:"SYSTEM"`
}

// MentorMinRank returns the parsed minimum mentor rank.
func (o OnboardingConfig) MentorMinRank() enums.Rank {
	rank, err := enums.ParseRank(o.MinMentorRank)
	if err != nil {
		return enums.RankMember
	}
	return rank
}

func (o OnboardingConfig) validate() error {
	if o.MentorCapacity <= 0 {
		return fmt.Errorf("%s must be positive", EnvMentorCapacity)
	}
	if _, err := enums.ParseRank(o.MinMentorRank); err != nil {
		return fmt.Errorf("%s: %w", EnvMentorMinRank, err)
	}
	if o.StarterRewardEXP < 0 || o.StarterRewardCredit < 0 {
		return fmt.Errorf("starter rewards must not be negative")
	}
	return nil
}

// RankRolesConfig maps each rank to the external role flag that represents it.
type RankRolesConfig struct {
	NoneRoleID    string `envconfig:"CODY_ROLE_NONE_ID"`
	StarterRoleID string `envconfig:"CODY_ROLE_STARTER_ID"`
	MemberRoleID  string `envconfig:"CODY_ROLE_MEMBER_ID"`
	CrewRoleID    string `envconfig:"CODY_ROLE_CREW_ID"`
	CoreRoleID    string `envconfig:"CODY_ROLE_CORE_ID"`
}

// Mapping returns the configured rank → role identifier pairs. Blank ids are omitted.
func (r RankRolesConfig) Mapping() map[enums.Rank]string {
	pairs := map[enums.Rank]string{
		enums.RankNone:    r.NoneRoleID,
		enums.RankStarter: r.StarterRoleID,
		enums.RankMember:  r.MemberRoleID,
		enums.RankCrew:    r.CrewRoleID,
		enums.RankCore:    r.CoreRoleID,
	}
	out := make(map[enums.Rank]string, len(pairs))
	for rank, id := range pairs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			out[rank] = trimmed
		}
	}
	return out
}

type DiscordConfig struct {
	BotToken       string        `envconfig:"CODY_DISCORD_BOT_TOKEN"`
	GuildID        string        `envconfig:"CODY_DISCORD_GUILD_ID"`
	BaseURL        string        `envconfig:"CODY_DISCORD_BASE_URL" default:"https://discord.com/api/v10"`
	RequestTimeout time.Duration `envconfig:"CODY_DISCORD_REQUEST_TIMEOUT" default:"10s"`
	AuditReason    string        `envconfig:"CODY_DISCORD_AUDIT_REASON" default:"Cody: rank sync"`
}

// Enabled reports whether the role collaborator can be reached.
func (d DiscordConfig) Enabled() bool {
	return d.BotToken != "" && d.GuildID != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CODY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CODY_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
