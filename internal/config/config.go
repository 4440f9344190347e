package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	defaultPort        = "8080"
	defaultGeminiModel = "gemini-2.5-flash"
	defaultSMTPHost    = "smtp.gmail.com"
	defaultSMTPPort    = "587"
	defaultAppURL      = "http://localhost:3000"
)

var (
	ErrMissingDatabase = errors.New("no DB_CONNECTION_STRING provided")
	ErrMissingIdentity = errors.New("no IDENTITY_JWT_KEY or IDENTITY_JWT_SECRET provided")
)

type Config struct {
	Port     string
	LogLevel string
	AppURL   string

	DatabaseURL string

	IdentityJWTKey        string
	IdentityJWTSecret     string
	IdentityWebhookSecret string

	GeminiAPIKey string
	GeminiModel  string

	BillBucket          string
	BillCredentialsFile string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	PublicBaseURL    string
	CronSecret       string

	EmailAddress  string
	EmailPassword string
	SMTPHost      string
	SMTPPort      string
	TemplatesDir  string
}

// Load reads the .env file when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file loaded, continuing with system environment variables")
	}

	cfg := &Config{
		Port:     getEnv("PORT", defaultPort),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		AppURL:   strings.TrimRight(getEnv("APP_URL", defaultAppURL), "/"),

		DatabaseURL: os.Getenv("DB_CONNECTION_STRING"),

		IdentityJWTKey:        os.Getenv("IDENTITY_JWT_KEY"),
		IdentityJWTSecret:     os.Getenv("IDENTITY_JWT_SECRET"),
		IdentityWebhookSecret: os.Getenv("IDENTITY_WEBHOOK_SECRET"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", defaultGeminiModel),

		BillBucket:          os.Getenv("BILL_BUCKET"),
		BillCredentialsFile: os.Getenv("BILL_CREDENTIALS_FILE"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		PublicBaseURL:    strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		CronSecret:       os.Getenv("CRON_SECRET"),

		EmailAddress:  os.Getenv("EMAIL_ADDRESS"),
		EmailPassword: os.Getenv("EMAIL_PASSWORD"),
		SMTPHost:      getEnv("SMTP_HOST", defaultSMTPHost),
		SMTPPort:      getEnv("SMTP_PORT", defaultSMTPPort),
		TemplatesDir:  os.Getenv("TEMPLATES_DIR"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabase
	}
	if c.IdentityJWTKey == "" && c.IdentityJWTSecret == "" {
		return ErrMissingIdentity
	}
	return nil
}

func (c *Config) TelephonyEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

func (c *Config) EmailEnabled() bool {
	return c.EmailAddress != "" && c.EmailPassword != ""
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
