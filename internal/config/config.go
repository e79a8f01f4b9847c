package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port             int
	OperationTimeout time.Duration
	PendingTTL       time.Duration
	FrontendURL      string
	BaseURL          string

	DbDriver   string
	DbUser     string
	DbPassword string
	DbHost     string
	DbName     string
	DbPort     string
	SSLMode    string
	SQLitePath string

	Paytm   PaytmConfig
	Paypal  PaypalConfig
	Pricing PricingConfig

	RabbitURL      string
	RabbitExchange string
}

type PaytmConfig struct {
	MerchantID     string
	MerchantKey    string
	IndustryTypeID string
	ChannelID      string
	Website        string
}

type PaypalConfig struct {
	ClientID     string
	ClientSecret string
	Live         bool
	BrandName    string
}

// PricingConfig holds tier prices as decimal strings.
type PricingConfig struct {
	Currency string
	Trial    string
	Weekly   string
	Monthly  string
	Yearly   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("OPERATION_TIMEOUT", "5s")
	v.SetDefault("PENDING_TTL", "24h")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("BASE_URL", "http://localhost:8080")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("SSL_MODE", "disable")
	v.SetDefault("SQLITE_PATH", "payments.db")

	v.SetDefault("PAYTM_INDUSTRY_TYPE_ID", "Retail")
	v.SetDefault("PAYTM_CHANNEL_ID", "WEB")
	v.SetDefault("PAYTM_WEBSITE", "WEBSTAGING")
	v.SetDefault("PAYPAL_BRAND_NAME", "Payment Portal")

	v.SetDefault("CURRENCY", "USD")
	v.SetDefault("PRICE_TRIAL", "0.01")
	v.SetDefault("PRICE_WEEKLY", "9.99")
	v.SetDefault("PRICE_MONTHLY", "29.99")
	v.SetDefault("PRICE_YEARLY", "99.99")

	v.SetDefault("RABBIT_EXCHANGE", "payment.events")
}

// Load reads configuration from .env, an optional CONFIG_FILE and the
// process environment, in increasing order of precedence.
func Load(logger *slog.Logger) (*Config, error) {
	// Load .env file (only in development)
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using system environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:             v.GetInt("PORT"),
		OperationTimeout: v.GetDuration("OPERATION_TIMEOUT"),
		PendingTTL:       v.GetDuration("PENDING_TTL"),
		FrontendURL:      strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		BaseURL:          strings.TrimRight(v.GetString("BASE_URL"), "/"),

		DbDriver:   v.GetString("DB_DRIVER"),
		DbUser:     v.GetString("DB_USER"),
		DbPassword: v.GetString("DB_PASSWORD"),
		DbHost:     v.GetString("DB_HOST"),
		DbName:     v.GetString("DB_NAME"),
		DbPort:     v.GetString("DB_PORT"),
		SSLMode:    v.GetString("SSL_MODE"),
		SQLitePath: v.GetString("SQLITE_PATH"),

		Paytm: PaytmConfig{
			MerchantID:     v.GetString("PAYTM_MERCHANT_ID"),
			MerchantKey:    v.GetString("PAYTM_MERCHANT_KEY"),
			IndustryTypeID: v.GetString("PAYTM_INDUSTRY_TYPE_ID"),
			ChannelID:      v.GetString("PAYTM_CHANNEL_ID"),
			Website:        v.GetString("PAYTM_WEBSITE"),
		},
		Paypal: PaypalConfig{
			ClientID:     v.GetString("PAYPAL_CLIENT_ID"),
			ClientSecret: v.GetString("PAYPAL_CLIENT_SECRET"),
			Live:         v.GetBool("PAYPAL_LIVE"),
			BrandName:    v.GetString("PAYPAL_BRAND_NAME"),
		},
		Pricing: PricingConfig{
			Currency: v.GetString("CURRENCY"),
			Trial:    v.GetString("PRICE_TRIAL"),
			Weekly:   v.GetString("PRICE_WEEKLY"),
			Monthly:  v.GetString("PRICE_MONTHLY"),
			Yearly:   v.GetString("PRICE_YEARLY"),
		},

		RabbitURL:      v.GetString("RABBIT_URL"),
		RabbitExchange: v.GetString("RABBIT_EXCHANGE"),
	}

	switch cfg.DbDriver {
	case "postgres", "sqlite", "memory":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DbDriver)
	}
	if cfg.OperationTimeout <= 0 {
		return nil, fmt.Errorf("OPERATION_TIMEOUT must be positive")
	}
	return cfg, nil
}

// PostgresURL builds the pgx connection string.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s&connect_timeout=180",
		c.DbUser,
		c.DbPassword,
		c.DbHost,
		c.DbPort,
		c.DbName,
		c.SSLMode,
	)
}

func (c *Config) CallbackURL() string {
	return c.BaseURL + "/api/payments/paytm/callback"
}
