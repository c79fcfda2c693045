package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. CLINIC_SERVER_PORT.
const EnvPrefix = "CLINIC"

type Config struct {
	Server    ServerConfig    `mapstructure:"server" envconfig:"SERVER"`
	Database  DatabaseConfig  `mapstructure:"database" envconfig:"DATABASE"`
	Redis     RedisConfig     `mapstructure:"redis" envconfig:"REDIS"`
	Auth      AuthConfig      `mapstructure:"auth" envconfig:"AUTH"`
	Email     EmailConfig     `mapstructure:"email" envconfig:"EMAIL"`
	Outbox    OutboxConfig    `mapstructure:"outbox" envconfig:"OUTBOX"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup" envconfig:"CLEANUP"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" envconfig:"RATE_LIMIT"`
	CORS      CORSConfig      `mapstructure:"cors" envconfig:"CORS"`
	Log       LogConfig       `mapstructure:"log" envconfig:"LOG"`
	Schedule  ScheduleConfig  `mapstructure:"schedule" envconfig:"SCHEDULE"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" envconfig:"PORT"`
	WorkerPort      int           `mapstructure:"worker_port" envconfig:"WORKER_PORT"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	Mode            string        `mapstructure:"mode" envconfig:"MODE"`
	BaseURL         string        `mapstructure:"base_url" envconfig:"BASE_URL"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host" envconfig:"HOST"`
	Port         int    `mapstructure:"port" envconfig:"PORT"`
	User         string `mapstructure:"user" envconfig:"USER"`
	Password     string `mapstructure:"password" envconfig:"PASSWORD"`
	Name         string `mapstructure:"name" envconfig:"NAME"`
	SSLMode      string `mapstructure:"sslmode" envconfig:"SSLMODE"`
	URL          string `mapstructure:"url" envconfig:"URL"`
	MaxOpenConns int    `mapstructure:"max_open_conns" envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" envconfig:"MAX_IDLE_CONNS"`
	AutoMigrate  bool   `mapstructure:"auto_migrate" envconfig:"AUTO_MIGRATE"`
}

// DSN returns URL when set, otherwise a key/value connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	URL           string        `mapstructure:"url" envconfig:"URL"`
	MaxRetries    int           `mapstructure:"max_retries" envconfig:"MAX_RETRIES"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff" envconfig:"RETRY_BACKOFF"`
	PoolSize      int           `mapstructure:"pool_size" envconfig:"POOL_SIZE"`
	MinIdleConns  int           `mapstructure:"min_idle_conns" envconfig:"MIN_IDLE_CONNS"`
	ChannelPrefix string        `mapstructure:"channel_prefix" envconfig:"CHANNEL_PREFIX"`
}

type AuthConfig struct {
	Secret                   string        `mapstructure:"secret" envconfig:"SECRET"`
	CookieName               string        `mapstructure:"cookie_name" envconfig:"COOKIE_NAME"`
	CookieSecure             bool          `mapstructure:"cookie_secure" envconfig:"COOKIE_SECURE"`
	SessionTTL               time.Duration `mapstructure:"session_ttl" envconfig:"SESSION_TTL"`
	SessionUpdateAge         time.Duration `mapstructure:"session_update_age" envconfig:"SESSION_UPDATE_AGE"`
	VerificationTTL          time.Duration `mapstructure:"verification_ttl" envconfig:"VERIFICATION_TTL"`
	ResetPasswordTTL         time.Duration `mapstructure:"reset_password_ttl" envconfig:"RESET_PASSWORD_TTL"`
	RequireEmailVerification bool          `mapstructure:"require_email_verification" envconfig:"REQUIRE_EMAIL_VERIFICATION"`
	BcryptCost               int           `mapstructure:"bcrypt_cost" envconfig:"BCRYPT_COST"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled" envconfig:"ENABLED"`
	Host     string `mapstructure:"host" envconfig:"HOST"`
	Port     int    `mapstructure:"port" envconfig:"PORT"`
	Username string `mapstructure:"username" envconfig:"USERNAME"`
	Password string `mapstructure:"password" envconfig:"PASSWORD"`
	From     string `mapstructure:"from" envconfig:"FROM"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size" envconfig:"BATCH_SIZE"`
	PollInterval  time.Duration `mapstructure:"poll_interval" envconfig:"POLL_INTERVAL"`
	RetryAttempts int           `mapstructure:"retry_attempts" envconfig:"RETRY_ATTEMPTS"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" envconfig:"RETRY_DELAY"`
}

type CleanupConfig struct {
	Interval        time.Duration `mapstructure:"interval" envconfig:"INTERVAL"`
	OutboxRetention time.Duration `mapstructure:"outbox_retention" envconfig:"OUTBOX_RETENTION"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps" envconfig:"RPS"`
	Burst int     `mapstructure:"burst" envconfig:"BURST"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins" envconfig:"ALLOW_ORIGINS"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" envconfig:"LEVEL"`
	Format string `mapstructure:"format" envconfig:"FORMAT"`
}

type ScheduleConfig struct {
	TimeZone    string `mapstructure:"time_zone" envconfig:"TIME_ZONE"`
	SlotMinutes int    `mapstructure:"slot_minutes" envconfig:"SLOT_MINUTES"`
}

// Location resolves TimeZone; Validate guarantees it loads.
func (c ScheduleConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.worker_port", 8081)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.base_url", "http://localhost:8080")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "clinic")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.channel_prefix", "clinic")

	v.SetDefault("auth.cookie_name", "clinic_session")
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.session_ttl", 7*24*time.Hour)
	v.SetDefault("auth.session_update_age", 24*time.Hour)
	v.SetDefault("auth.verification_ttl", time.Hour)
	v.SetDefault("auth.reset_password_ttl", time.Hour)
	v.SetDefault("auth.require_email_verification", false)
	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.port", 587)
	v.SetDefault("email.from", "no-reply@clinic.local")

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", 5*time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", time.Second)

	v.SetDefault("cleanup.interval", time.Hour)
	v.SetDefault("cleanup.outbox_retention", 7*24*time.Hour)

	v.SetDefault("rate_limit.rps", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("cors.allow_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("schedule.time_zone", "UTC")
	v.SetDefault("schedule.slot_minutes", 30)
}

// LoadConfig reads config.yml (optional) and then applies CLINIC_* environment overrides.
// A non-empty path points at a specific file, which must exist.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if len(c.Auth.Secret) < 32 {
		return fmt.Errorf("auth secret must be at least 32 characters")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth session_ttl must be positive")
	}
	if c.Auth.SessionUpdateAge <= 0 || c.Auth.SessionUpdateAge > c.Auth.SessionTTL {
		return fmt.Errorf("auth session_update_age must be positive and not exceed session_ttl")
	}
	if c.Auth.VerificationTTL <= 0 || c.Auth.ResetPasswordTTL <= 0 {
		return fmt.Errorf("auth token ttls must be positive")
	}
	if c.Outbox.BatchSize <= 0 || c.Outbox.PollInterval <= 0 || c.Outbox.RetryAttempts <= 0 || c.Outbox.RetryDelay <= 0 {
		return fmt.Errorf("outbox settings must be positive")
	}
	if c.Schedule.SlotMinutes <= 0 || c.Schedule.SlotMinutes > 24*60 {
		return fmt.Errorf("invalid schedule slot_minutes %d", c.Schedule.SlotMinutes)
	}
	if _, err := time.LoadLocation(c.Schedule.TimeZone); err != nil {
		return fmt.Errorf("invalid schedule time_zone %q: %w", c.Schedule.TimeZone, err)
	}
	return nil
}
