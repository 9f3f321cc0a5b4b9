package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Source  SourceConfig  `mapstructure:"source"`
	CRM     CRMConfig     `mapstructure:"crm"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Mock    MockConfig    `mapstructure:"mock"`
	AWS     AWSConfig     `mapstructure:"aws"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Assets  AssetsConfig  `mapstructure:"assets"`
	Loyalty LoyaltyConfig `mapstructure:"loyalty"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"maxOpenConns"`
}

// SourceConfig selects the data source implementation: "live" or "mock".
type SourceConfig struct {
	Provider string `mapstructure:"provider"`
}

type CRMConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIVersion      string        `mapstructure:"api_version"`
	AuthFlow        string        `mapstructure:"auth_flow"`
	ClientID        string        `mapstructure:"client_id"`
	ClientIDEnv     string        `mapstructure:"client_id_env"`
	ClientSecret    string        `mapstructure:"client_secret"`
	ClientSecretEnv string        `mapstructure:"client_secret_env"`
	SecretARN       string        `mapstructure:"secret_arn"`
	Username        string        `mapstructure:"username"`
	PrivateKeyPath  string        `mapstructure:"private_key_path"`
	Timeout         time.Duration `mapstructure:"timeout"`
	FanOutLimit     int           `mapstructure:"fanout_limit"`
}

type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	Delay      time.Duration `mapstructure:"delay"`
}

type MockConfig struct {
	Latency     time.Duration `mapstructure:"latency"`
	FailureRate float64       `mapstructure:"failure_rate"`
	Seed        int64         `mapstructure:"seed"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

type NotifyConfig struct {
	Provider    string `mapstructure:"provider"`
	FromEmail   string `mapstructure:"from_email"`
	SMSSenderID string `mapstructure:"sms_sender_id"`
}

type AssetsConfig struct {
	Bucket  string        `mapstructure:"bucket"`
	Prefix  string        `mapstructure:"prefix"`
	BaseURL string        `mapstructure:"base_url"`
	URLTTL  time.Duration `mapstructure:"url_ttl"`
}

type LoyaltyConfig struct {
	AccountID             string `mapstructure:"account_id"`
	AccountEmail          string `mapstructure:"account_email"`
	OrderRecordTypeID     string `mapstructure:"order_record_type_id"`
	SurveyPoints          int    `mapstructure:"survey_points"`
	ReferralBaseURL       string `mapstructure:"referral_base_url"`
	MinTransferPoints     int    `mapstructure:"min_transfer_points"`
	PointsPerCurrencyUnit int    `mapstructure:"points_per_currency_unit"`
}

// Auth flows supported by the token provider
const (
	AuthClientCredentials = "client_credentials"
	AuthJWTBearer         = "jwt_bearer"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("db.maxOpenConns", 10)
	v.SetDefault("source.provider", "mock")
	v.SetDefault("crm.api_version", "v62.0")
	v.SetDefault("crm.auth_flow", AuthClientCredentials)
	v.SetDefault("crm.client_id_env", "CRM_CLIENT_ID")
	v.SetDefault("crm.client_secret_env", "CRM_CLIENT_SECRET")
	v.SetDefault("crm.timeout", 30*time.Second)
	v.SetDefault("crm.fanout_limit", 4)
	v.SetDefault("retry.max_retries", 2)
	v.SetDefault("retry.delay", time.Second)
	v.SetDefault("mock.latency", time.Duration(0))
	v.SetDefault("mock.failure_rate", 0.0)
	v.SetDefault("notify.provider", "log")
	v.SetDefault("assets.url_ttl", 15*time.Minute)
	v.SetDefault("loyalty.account_id", "acct-001")
	v.SetDefault("loyalty.survey_points", 300)
	v.SetDefault("loyalty.referral_base_url", "https://rewards.example.com")
	v.SetDefault("loyalty.min_transfer_points", 1000)
	v.SetDefault("loyalty.points_per_currency_unit", 10)
}

// LoadConfig loads configuration from .env, config.yaml and environment variables
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// Set config file locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./deploy/")
	v.AddConfigPath("./")
	v.AddConfigPath("$HOME/.loyalty/")
	v.AddConfigPath("/etc/loyalty/")

	// Enable environment variable override with LOYALTY_ prefix, e.g. LOYALTY_CRM_BASE_URL
	v.SetEnvPrefix("LOYALTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var err error

	switch c.Source.Provider {
	case "mock":
	case "live":
		if c.CRM.BaseURL == "" {
			err = multierr.Append(err, errors.New("crm.base_url is required for the live source"))
		}
		switch c.CRM.AuthFlow {
		case AuthClientCredentials:
		case AuthJWTBearer:
			if c.CRM.Username == "" {
				err = multierr.Append(err, errors.New("crm.username is required for jwt_bearer"))
			}
			if c.CRM.PrivateKeyPath == "" {
				err = multierr.Append(err, errors.New("crm.private_key_path is required for jwt_bearer"))
			}
		default:
			err = multierr.Append(err, fmt.Errorf("unsupported crm.auth_flow: %s", c.CRM.AuthFlow))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unsupported source.provider: %s", c.Source.Provider))
	}

	if c.Retry.MaxRetries < 0 {
		err = multierr.Append(err, errors.New("retry.max_retries must not be negative"))
	}
	if c.Retry.Delay < 0 {
		err = multierr.Append(err, errors.New("retry.delay must not be negative"))
	}
	if c.CRM.FanOutLimit < 1 {
		err = multierr.Append(err, errors.New("crm.fanout_limit must be at least 1"))
	}
	if c.Mock.FailureRate < 0 || c.Mock.FailureRate > 1 {
		err = multierr.Append(err, errors.New("mock.failure_rate must be between 0 and 1"))
	}
	switch c.Notify.Provider {
	case "log", "aws":
	default:
		err = multierr.Append(err, fmt.Errorf("unsupported notify.provider: %s", c.Notify.Provider))
	}
	if c.Loyalty.PointsPerCurrencyUnit < 1 {
		err = multierr.Append(err, errors.New("loyalty.points_per_currency_unit must be at least 1"))
	}

	return err
}
