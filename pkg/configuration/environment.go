package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"showconnect"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type SMTPOptions struct {
	Host     string `env:"SMTP_HOST" envDefault:"smtp.example.com"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"EMAIL_FROM" envDefault:"signatures@example.com"`
}

type SMSOptions struct {
	AccountSID string `env:"SMS_ACCOUNT_SID"`
	AuthToken  string `env:"SMS_AUTH_TOKEN"`
	FromNumber string `env:"SMS_FROM_NUMBER"`
	BaseURL    string `env:"SMS_API_BASE_URL" envDefault:"https://api.twilio.com"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RateLimitOptions struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	// Send-code budget per client address per 15 minute window.
	VerifyPerWindow int    `env:"RATE_LIMIT_VERIFY_PER_WINDOW" envDefault:"10"`
	Storage         string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL        string `env:"RATE_LIMIT_REDIS_URL"`
	// Code sends allowed per normalized destination per rolling hour.
	DestinationPerHour int `env:"RATE_LIMIT_DESTINATION_PER_HOUR" envDefault:"5"`
	// Code sends allowed per signing token over its whole lifetime.
	TokenLifetime int `env:"RATE_LIMIT_TOKEN_LIFETIME" envDefault:"10"`
}

func (r *RateLimitOptions) Validate() error {
	if r.VerifyPerWindow <= 0 {
		return fmt.Errorf("rate limit VerifyPerWindow must be positive, got %d", r.VerifyPerWindow)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

type VerificationOptions struct {
	CodeLength  int           `env:"VERIFICATION_CODE_LENGTH" envDefault:"6"`
	CodeExpiry  time.Duration `env:"VERIFICATION_CODE_EXPIRY" envDefault:"5m"`
	MaxAttempts int           `env:"VERIFICATION_MAX_ATTEMPTS" envDefault:"3"`
	// Fixed code used when demo mode is on.
	DemoCode string `env:"VERIFICATION_DEMO_CODE" envDefault:"123456"`
}

type Configuration struct {
	Database     DatabaseOptions
	SMTP         SMTPOptions
	SMS          SMSOptions
	Prometheus   PrometheusOptions
	RateLimit    RateLimitOptions
	Verification VerificationOptions

	ServerPort       int           `env:"PORT" envDefault:"3000"`
	GoAppEnvironment string        `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string        `env:"-"`
	BaseURL          string        `env:"BASE_URL" envDefault:"http://localhost:3000"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	APIKey           string        `env:"API_KEY" envDefault:"demo-api-key"`
	DefaultTenantID  string        `env:"DEFAULT_TENANT_ID" envDefault:"default"`
	DemoMode         bool          `env:"DEMO_MODE" envDefault:"true"`
	RequestExpiry    time.Duration `env:"REQUEST_EXPIRY" envDefault:"168h"`
	ExpirySweep      time.Duration `env:"EXPIRY_SWEEP_INTERVAL" envDefault:"5m"`
	MigrationsDir    string        `env:"MIGRATIONS_DIR" envDefault:"migrations"`

	logger *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if err := c.validateProduction(); err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetLevel(c.LogrusLogLevel())
	logger.SetFormatter(&logrus.JSONFormatter{})
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}

	return nil
}

// validateProduction rejects demo defaults outside demo mode in production.
func (c *Configuration) validateProduction() error {
	if c.GoAppEnvironment != Production || c.DemoMode {
		return nil
	}

	var errs []string
	if c.SMTP.User == "" {
		errs = append(errs, "SMTP_USER is required in production")
	}
	if c.SMS.AccountSID == "" {
		errs = append(errs, "SMS_ACCOUNT_SID is required in production")
	}
	if c.APIKey == "demo-api-key" {
		errs = append(errs, "API_KEY must be set to a secure value in production")
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
