package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env           string
	Port          string
	SessionSecret string
	DatabaseURL   string
	RedisURL      string

	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string

	// Payment gateway (deposit holds). The sandbox provider is used until a
	// gateway URL and key are configured.
	PaymentGatewayURL    string
	PaymentGatewayKey    string
	PaymentWebhookSecret string

	// Transactional email (Brevo)
	BrevoAPIKey string
	MailFrom    string

	// Auction engine tuning
	SweepInterval   time.Duration // how often the sweeper activates/closes due auctions
	ReminderOffsets []int         // minutes before ends_at at which reminders fire
	MaxExtensions   int           // cap on cumulative anti-sniping extensions per auction
	BidRetryLimit   int           // bounded retries on concurrent bid conflicts
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}

	sweep := viper.GetDuration("AUCTION_SWEEP_INTERVAL")
	if sweep <= 0 {
		sweep = 15 * time.Second
	}
	maxExt := viper.GetInt("AUCTION_MAX_EXTENSIONS")
	if maxExt <= 0 {
		maxExt = 12
	}
	retries := viper.GetInt("AUCTION_BID_RETRY_LIMIT")
	if retries <= 0 {
		retries = 5
	}

	return &Config{
		Env:                  env,
		Port:                 port,
		SessionSecret:        viper.GetString("SESSION_SECRET"),
		DatabaseURL:          dbURL,
		RedisURL:             viper.GetString("REDIS_URL"),
		FrontendURLEndsWith:  viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:          viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:    strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:       viper.GetString("HEALTH_ADMIN_KEY"),
		PaymentGatewayURL:    viper.GetString("PAYMENT_GATEWAY_URL"),
		PaymentGatewayKey:    viper.GetString("PAYMENT_GATEWAY_KEY"),
		PaymentWebhookSecret: viper.GetString("PAYMENT_WEBHOOK_SECRET"),
		BrevoAPIKey:          viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:             viper.GetString("MAIL_FROM"),
		SweepInterval:        sweep,
		ReminderOffsets:      parseOffsets(viper.GetString("AUCTION_REMINDER_OFFSETS")),
		MaxExtensions:        maxExt,
		BidRetryLimit:        retries,
	}, nil
}

// parseOffsets parses "15,5,1" into minute offsets. Defaults to 15/5/1.
func parseOffsets(s string) []int {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int{15, 5, 1}
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err == nil && n > 0 {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return []int{15, 5, 1}
	}
	return out
}
