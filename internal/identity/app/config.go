package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration, loaded from the environment.
type Config struct {
	Issuer string `env:"DOORMAN_ISSUER" envDefault:"doorman"`

	DatabaseFile   string `env:"DOORMAN_DATABASE_FILE" envDefault:"doorman.db"`
	SigningKeyFile string `env:"DOORMAN_SIGNING_KEY_FILE"` // Optional: PEM Ed25519 key; ephemeral when unset
	PepperFile     string `env:"DOORMAN_PEPPER_FILE" envDefault:"pepper"`

	AccessTokenTTL       time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL      time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	ChallengeTTL         time.Duration `env:"CHALLENGE_TTL" envDefault:"15m"`
	ChallengeMaxAttempts int           `env:"CHALLENGE_MAX_ATTEMPTS" envDefault:"3"`

	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
	AuditRetention       time.Duration `env:"AUDIT_RETENTION" envDefault:"720h"`
	AuditBufferSize      int           `env:"AUDIT_BUFFER_SIZE" envDefault:"256"`

	Env                 string        `env:"ENV" envDefault:"dev"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	// SMTP delivery for verification codes. When Host is empty the service
	// falls back to logging codes, which is only acceptable in dev.
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"no-reply@localhost"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
