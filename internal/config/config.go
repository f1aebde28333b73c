package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Port               string   `env:"PORT" envDefault:"8080"`
	DatabaseURL        string   `env:"DATABASE_URL"`
	AMQPURL            string   `env:"AMQP_URL"`
	JWTSecret          string   `env:"JWT_SECRET" envDefault:"default-secret-key-for-dev"`
	TrialDays          int      `env:"TRIAL_DAYS" envDefault:"7"`
	TrialAnalysisLimit int      `env:"TRIAL_ANALYSIS_LIMIT" envDefault:"3"`
	RulesPath          string   `env:"RULES_PATH"`
	KeywordRateLimit   float64  `env:"KEYWORD_RATE_LIMIT" envDefault:"2"`
	AllowedOrigins     []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"https://geniusmarketingai.netlify.app,http://localhost:3000"`
	FrontendURL        string   `env:"FRONTEND_URL" envDefault:"https://geniusmarketingai.netlify.app"`
	MaxBodyBytes       int64    `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	LogLevel           string   `env:"LOG_LEVEL" envDefault:"info"`

	Mail   MailConfig   `envPrefix:"MAIL_"`
	PayPal PayPalConfig `envPrefix:"PAYPAL_"`
}

type MailConfig struct {
	Server        string `env:"SERVER"`
	Port          int    `env:"PORT" envDefault:"587"`
	Username      string `env:"USERNAME"`
	Password      string `env:"PASSWORD"`
	DefaultSender string `env:"DEFAULT_SENDER"`
}

// Enabled reports whether outbound mail can be delivered.
func (m MailConfig) Enabled() bool {
	return m.Server != "" && m.DefaultSender != ""
}

type PayPalConfig struct {
	Mode         string `env:"MODE" envDefault:"sandbox"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	PlanID       string `env:"PLAN_ID"`
	WebhookID    string `env:"WEBHOOK_ID"`
}

// BaseURL returns the REST endpoint for the configured mode.
func (p PayPalConfig) BaseURL() string {
	if strings.EqualFold(p.Mode, "live") {
		return "https://api-m.paypal.com"
	}
	return "https://api-m.sandbox.paypal.com"
}

// Load reads an optional .env file and then the process environment.
// dotenvLoaded is false when no .env file was found.
func Load() (cfg Config, dotenvLoaded bool, err error) {
	dotenvLoaded = godotenv.Load() == nil
	if err := env.Parse(&cfg); err != nil {
		return Config{}, dotenvLoaded, fmt.Errorf("parse env: %w", err)
	}
	return cfg, dotenvLoaded, nil
}

// NewLogger builds a production zap logger at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
