package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                = "SNAPCASE"
	defaultHTTPAddress       = "0.0.0.0:8080"
	defaultDatabasePath      = "snapcase.db"
	defaultLogLevel          = "info"
	defaultArchiveDir        = "webhook-archive"
	defaultMaxWebhookBytes   = 1 << 20
	defaultPrintfulAPIBase   = "https://api.printful.com"
	defaultUnitPriceCents    = 3499
	defaultCurrency          = "usd"
	defaultTemplateTTLHours  = 12
	defaultShippingRateID    = "shr_standard"
	defaultPrintfulTimeoutMS = 10000
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress            string
	LogLevel               string
	DatabasePath           string
	WebhookSecret          string
	WebhookArchiveDir      string
	WebhookMaxBodyBytes    int64
	PrintfulToken          string
	PrintfulAPIBase        string
	PrintfulTimeout        time.Duration
	PrintfulProductMap     map[string]string
	StripeSecretKey        string
	StandardShippingRateID string
	ExpressShippingRateID  string
	ExpressShippingEnabled bool
	DefaultUnitPriceCents  int64
	DefaultCurrency        string
	TemplateTTL            time.Duration
	RedisAddress           string
	RedisPassword          string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("webhook.archive_dir", defaultArchiveDir)
	configViper.SetDefault("webhook.max_body_bytes", defaultMaxWebhookBytes)
	configViper.SetDefault("printful.api_base", defaultPrintfulAPIBase)
	configViper.SetDefault("printful.timeout_ms", defaultPrintfulTimeoutMS)
	configViper.SetDefault("shipping.standard_rate_id", defaultShippingRateID)
	configViper.SetDefault("shipping.express_enabled", false)
	configViper.SetDefault("pricing.default_unit_cents", defaultUnitPriceCents)
	configViper.SetDefault("pricing.default_currency", defaultCurrency)
	configViper.SetDefault("template.ttl_hours", defaultTemplateTTLHours)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:            configViper.GetString("http.address"),
		LogLevel:               configViper.GetString("log.level"),
		DatabasePath:           configViper.GetString("database.path"),
		WebhookSecret:          configViper.GetString("webhook.secret"),
		WebhookArchiveDir:      configViper.GetString("webhook.archive_dir"),
		WebhookMaxBodyBytes:    configViper.GetInt64("webhook.max_body_bytes"),
		PrintfulToken:          configViper.GetString("printful.token"),
		PrintfulAPIBase:        configViper.GetString("printful.api_base"),
		PrintfulTimeout:        time.Duration(configViper.GetInt64("printful.timeout_ms")) * time.Millisecond,
		PrintfulProductMap:     configViper.GetStringMapString("printful.product_map"),
		StripeSecretKey:        configViper.GetString("stripe.secret_key"),
		StandardShippingRateID: configViper.GetString("shipping.standard_rate_id"),
		ExpressShippingRateID:  configViper.GetString("shipping.express_rate_id"),
		ExpressShippingEnabled: configViper.GetBool("shipping.express_enabled"),
		DefaultUnitPriceCents:  configViper.GetInt64("pricing.default_unit_cents"),
		DefaultCurrency:        configViper.GetString("pricing.default_currency"),
		TemplateTTL:            time.Duration(configViper.GetInt64("template.ttl_hours")) * time.Hour,
		RedisAddress:           configViper.GetString("redis.address"),
		RedisPassword:          configViper.GetString("redis.password"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.WebhookArchiveDir) == "" {
		return fmt.Errorf("webhook.archive_dir is required")
	}
	if c.WebhookMaxBodyBytes <= 0 {
		return fmt.Errorf("webhook.max_body_bytes must be positive")
	}
	if c.DefaultUnitPriceCents <= 0 {
		return fmt.Errorf("pricing.default_unit_cents must be positive")
	}
	if strings.TrimSpace(c.DefaultCurrency) == "" {
		return fmt.Errorf("pricing.default_currency is required")
	}
	if c.TemplateTTL <= 0 {
		return fmt.Errorf("template.ttl_hours must be positive")
	}
	return nil
}
