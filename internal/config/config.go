// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCancellationLeadTime = 2 * time.Hour
	DefaultSlotStep             = 30 * time.Minute
	DefaultGatewayTimeout       = 10 * time.Second
	DefaultSplitExpiryHours     = 24
	DefaultShutdownTimeout      = 10 * time.Second
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver" validate:"required,oneof=sqlite"`
	Filename string `yaml:"filename" validate:"required"`
}

// BookingConfig holds the reservation rules applied by the booking lifecycle.
type BookingConfig struct {
	CancellationLeadTime time.Duration `yaml:"cancellation_lead_time" validate:"gte=0"`
	SlotStep             time.Duration `yaml:"slot_step" validate:"gt=0"`
	DefaultTimezone      string        `yaml:"default_timezone"`
	PhoneRegion          string        `yaml:"phone_region" validate:"omitempty,len=2"`
}

// PaymentsConfig describes the external payment gateway.
type PaymentsConfig struct {
	GatewayBaseURL          string        `yaml:"gateway_base_url" validate:"required,url"`
	Currency                string        `yaml:"currency" validate:"required,len=3"`
	NotificationURL         string        `yaml:"notification_url" validate:"omitempty,url"`
	SplitNotificationURL    string        `yaml:"split_notification_url" validate:"omitempty,url"`
	Timeout                 time.Duration `yaml:"timeout" validate:"gt=0"`
	SplitDefaultExpiryHours int           `yaml:"split_default_expiry_hours" validate:"gt=0"`
	AccessToken             string        `yaml:"-"` // Loaded from environment
	WebhookSecret           string        `yaml:"-"` // Loaded from environment
}

type EmailConfig struct {
	Enabled bool   `yaml:"enabled"`
	Region  string `yaml:"region" validate:"required_if=Enabled true"`
	Sender  string `yaml:"sender" validate:"required_if=Enabled true,omitempty,email"`
}

type SchedulerConfig struct {
	SplitExpiryCron    string        `yaml:"split_expiry_cron" validate:"required"`
	PaymentRepollCron  string        `yaml:"payment_repoll_cron" validate:"required"`
	PaymentRepollAfter time.Duration `yaml:"payment_repoll_after" validate:"gt=0"`
}

type RateLimitConfig struct {
	BookingCooldown   time.Duration `yaml:"booking_cooldown" validate:"gte=0"`
	BookingMaxPerHour int           `yaml:"booking_max_per_hour" validate:"gte=0"`
	IPMaxPerHour      int           `yaml:"ip_max_per_hour" validate:"gte=0"`
	WebhookRatePerSec float64       `yaml:"webhook_rate_per_sec" validate:"gte=0"`
	WebhookBurst      int           `yaml:"webhook_burst" validate:"gte=0"`
	TrustProxy        bool          `yaml:"trust_proxy"`
}

type Config struct {
	App struct {
		Name            string        `yaml:"name" validate:"required"`
		Environment     string        `yaml:"environment" validate:"omitempty,oneof=development staging production"`
		Port            int           `yaml:"port" validate:"required,gt=0,lte=65535"`
		BaseURL         string        `yaml:"base_url"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SecretKey       string        `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database  DatabaseConfig  `yaml:"database"`
	Booking   BookingConfig   `yaml:"booking"`
	Payments  PaymentsConfig  `yaml:"payments"`
	Email     EmailConfig     `yaml:"email"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`

	Features struct {
		EnableMetrics bool `yaml:"enable_metrics"`
		EnableDebug   bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.App.SecretKey = os.Getenv("APP_SECRET_KEY")
	cfg.Payments.AccessToken = os.Getenv("PAYMENT_GATEWAY_ACCESS_TOKEN")
	cfg.Payments.WebhookSecret = os.Getenv("PAYMENT_WEBHOOK_SECRET")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration and fills defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.ShutdownTimeout == 0 {
		c.App.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Booking.CancellationLeadTime == 0 {
		c.Booking.CancellationLeadTime = DefaultCancellationLeadTime
	}
	if c.Booking.SlotStep == 0 {
		c.Booking.SlotStep = DefaultSlotStep
	}
	if c.Booking.DefaultTimezone == "" {
		c.Booking.DefaultTimezone = "UTC"
	}
	if c.Booking.PhoneRegion == "" {
		c.Booking.PhoneRegion = "US"
	}
	if c.Payments.Currency == "" {
		c.Payments.Currency = "USD"
	}
	if c.Payments.Timeout == 0 {
		c.Payments.Timeout = DefaultGatewayTimeout
	}
	if c.Payments.SplitDefaultExpiryHours == 0 {
		c.Payments.SplitDefaultExpiryHours = DefaultSplitExpiryHours
	}
	if c.Scheduler.SplitExpiryCron == "" {
		c.Scheduler.SplitExpiryCron = "*/5 * * * *"
	}
	if c.Scheduler.PaymentRepollCron == "" {
		c.Scheduler.PaymentRepollCron = "*/10 * * * *"
	}
	if c.Scheduler.PaymentRepollAfter == 0 {
		c.Scheduler.PaymentRepollAfter = 15 * time.Minute
	}
	if c.RateLimit.BookingMaxPerHour == 0 {
		c.RateLimit.BookingMaxPerHour = 30
	}
	if c.RateLimit.IPMaxPerHour == 0 {
		c.RateLimit.IPMaxPerHour = 120
	}
	if c.RateLimit.WebhookRatePerSec == 0 {
		c.RateLimit.WebhookRatePerSec = 20
	}
	if c.RateLimit.WebhookBurst == 0 {
		c.RateLimit.WebhookBurst = 40
	}
}

// IsDevelopment reports whether the service runs with development conveniences.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			fields := make([]string, 0, len(validationErrs))
			for _, fe := range validationErrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
		}
		return err
	}

	if _, err := time.LoadLocation(c.Booking.DefaultTimezone); err != nil {
		return fmt.Errorf("booking default_timezone %q: %w", c.Booking.DefaultTimezone, err)
	}

	if c.App.Environment == "production" {
		if c.Payments.WebhookSecret == "" {
			return fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required in production")
		}
		if c.Payments.AccessToken == "" {
			return fmt.Errorf("PAYMENT_GATEWAY_ACCESS_TOKEN is required in production")
		}
	}

	return nil
}
