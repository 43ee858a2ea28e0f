package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	minSecretLength = 32
	SessionTTL      = 24 * time.Hour
)

type Config struct {
	HTTPAddr     string
	AppBaseURL   string
	DatabaseURL  string
	RedisURL     string
	CookieDomain string
	CookieSecure bool

	SessionSecret []byte
	CSRFSecret    []byte
	MFASecret     []byte
	MFAIssuer     string
	BcryptCost    int

	Mail   MailConfig
	GitHub GitHubConfig
}

type MailConfig struct {
	Provider      string
	From          string
	ResendAPIKey  string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	RatePerSecond float64
}

type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "missing required configuration: " + strings.Join(e.Keys, ", ")
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (*Config, error) {
	var missing []string
	var problems []error
	require := func(key string) string {
		value := strings.TrimSpace(getenv(key))
		if value == "" {
			missing = append(missing, key)
		}
		return value
	}
	secret := func(key string) []byte {
		value := require(key)
		if value != "" && len(value) < minSecretLength {
			problems = append(problems, fmt.Errorf("%s must be at least %d bytes", key, minSecretLength))
		}
		return []byte(value)
	}

	cfg := &Config{
		HTTPAddr:      withDefault(getenv("HTTP_ADDR"), ":8080"),
		AppBaseURL:    strings.TrimRight(withDefault(getenv("APP_BASE_URL"), "http://localhost:3000"), "/"),
		DatabaseURL:   require("DATABASE_URL"),
		RedisURL:      require("REDIS_URL"),
		CookieDomain:  getenv("COOKIE_DOMAIN"),
		CookieSecure:  getenv("COOKIE_SECURE") != "false",
		SessionSecret: secret("SESSION_SECRET"),
		CSRFSecret:    secret("CSRF_SECRET"),
		MFAIssuer:     withDefault(getenv("MFA_ISSUER"), "Jobly"),
		GitHub: GitHubConfig{
			ClientID:     getenv("GITHUB_CLIENT_ID"),
			ClientSecret: getenv("GITHUB_CLIENT_SECRET"),
			CallbackURL:  getenv("GITHUB_CALLBACK_URL"),
		},
	}

	cfg.MFASecret = []byte(getenv("MFA_JWT_SECRET"))
	if len(cfg.MFASecret) == 0 {
		cfg.MFASecret = cfg.SessionSecret
	}

	cfg.BcryptCost = 12
	if raw := getenv("BCRYPT_COST"); raw != "" {
		cost, err := strconv.Atoi(raw)
		if err != nil || cost < 10 || cost > 16 {
			problems = append(problems, errors.New("BCRYPT_COST must be an integer between 10 and 16"))
		} else {
			cfg.BcryptCost = cost
		}
	}

	cfg.Mail = MailConfig{
		Provider: strings.ToLower(require("MAIL_PROVIDER")),
		From:     require("MAIL_FROM"),
	}
	switch cfg.Mail.Provider {
	case "resend":
		cfg.Mail.ResendAPIKey = require("RESEND_API_KEY")
	case "smtp":
		cfg.Mail.SMTPHost = require("SMTP_HOST")
		cfg.Mail.SMTPUsername = require("SMTP_USERNAME")
		cfg.Mail.SMTPPassword = require("SMTP_PASSWORD")
		if port := require("SMTP_PORT"); port != "" {
			n, err := strconv.Atoi(port)
			if err != nil || n <= 0 || n > 65535 {
				problems = append(problems, errors.New("SMTP_PORT must be a valid port"))
			}
			cfg.Mail.SMTPPort = n
		}
	case "":
	default:
		problems = append(problems, fmt.Errorf("MAIL_PROVIDER %q is not one of resend, smtp", cfg.Mail.Provider))
	}
	cfg.Mail.RatePerSecond = 5
	if raw := getenv("MAIL_RATE_PER_SECOND"); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil || rate < 0 {
			problems = append(problems, errors.New("MAIL_RATE_PER_SECOND must be a non-negative number"))
		} else {
			cfg.Mail.RatePerSecond = rate
		}
	}

	if cfg.GitHub.Enabled() && cfg.GitHub.CallbackURL == "" {
		missing = append(missing, "GITHUB_CALLBACK_URL")
	}

	if len(missing) > 0 {
		problems = append([]error{&MissingError{Keys: missing}}, problems...)
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	return cfg, nil
}

func withDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
