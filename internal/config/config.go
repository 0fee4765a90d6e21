package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type StripeConfig struct {
	SecretKey           string
	WebhookSecret       string
	PriceEditing        string
	PriceExtraPhotos    string
	PriceAdditionalTank string
	Currency            string
}

type EmailConfig struct {
	ResendAPIKey string
	FromAddress  string
	FromName     string
}

type AdminConfig struct {
	PasswordHash string
	CookieSecure bool
}

type Config struct {
	Port             string
	Environment      string
	SiteURL          string
	DatabaseURL      string
	LogLevel         string
	CORSAllowOrigins string

	Stripe StripeConfig
	Email  EmailConfig
	Admin  AdminConfig
}

func LoadConfig() *Config {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Environment:      strings.ToLower(getEnv("ENVIRONMENT", EnvDevelopment)),
		SiteURL:          strings.TrimRight(getEnv("SITE_URL", "https://thetankguide.com"), "/"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigins: os.Getenv("CORS_ALLOW_ORIGINS"),
	}

	cfg.Stripe = StripeConfig{
		SecretKey:           os.Getenv("STRIPE_SECRET_KEY"),
		WebhookSecret:       os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PriceEditing:        os.Getenv("STRIPE_PRICE_EDITING"),
		PriceExtraPhotos:    os.Getenv("STRIPE_PRICE_EXTRA_PHOTOS"),
		PriceAdditionalTank: os.Getenv("STRIPE_PRICE_ADDITIONAL_TANK"),
		Currency:            strings.ToLower(getEnv("STRIPE_CURRENCY", "usd")),
	}

	cfg.Email = EmailConfig{
		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		FromAddress:  getEnv("EMAIL_FROM_ADDRESS", "features@thetankguide.com"),
		FromName:     getEnv("EMAIL_FROM_NAME", "The Tank Guide"),
	}

	cfg.Admin = AdminConfig{
		PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		CookieSecure: getBool("ADMIN_COOKIE_SECURE", true),
	}

	if cfg.CORSAllowOrigins == "" {
		cfg.CORSAllowOrigins = cfg.SiteURL
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// MissingSecrets lists the required secret keys that are not set.
func (c *Config) MissingSecrets() []string {
	required := []struct {
		key   string
		value string
	}{
		{"STRIPE_SECRET_KEY", c.Stripe.SecretKey},
		{"STRIPE_WEBHOOK_SECRET", c.Stripe.WebhookSecret},
		{"RESEND_API_KEY", c.Email.ResendAPIKey},
		{"ADMIN_PASSWORD_HASH", c.Admin.PasswordHash},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	return missing
}

// SuccessURL is where checkout sends a paying submitter back to.
func (c *Config) SuccessURL() string {
	return c.SiteURL + "/feature-your-tank-confirmation?session_id={CHECKOUT_SESSION_ID}"
}

func (c *Config) CancelURL() string {
	return c.SiteURL + "/feature-your-tank?cancelled=true"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
