package config

import (
	"os"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port     string
	MongoURI string
	RedisURL string

	// Reminder engine configuration
	Timezone         string        // IANA zone all HH:MM slots are evaluated in
	TickInterval     time.Duration // how often the due-slot check runs
	ResponseLookback time.Duration // how far back an inbound reply can match a pending reminder
	NotifyTimeout    time.Duration // per-channel send timeout

	// Twilio configuration
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioSMSFrom      string
	TwilioWhatsAppFrom string // e.g. "whatsapp:+14155238886"
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8000"),
		MongoURI: getEnv("MONGODB_URI", ""),
		RedisURL: getEnv("REDIS_URL", ""),

		Timezone:         getEnv("REMINDER_TIMEZONE", "Asia/Kolkata"),
		TickInterval:     getDurationEnv("REMINDER_TICK_INTERVAL", time.Minute),
		ResponseLookback: getDurationEnv("RESPONSE_LOOKBACK", 4*time.Hour),
		NotifyTimeout:    getDurationEnv("NOTIFY_TIMEOUT", 15*time.Second),

		TwilioAccountSID:   getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:    getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioSMSFrom:      getEnv("TWILIO_SMS_FROM", ""),
		TwilioWhatsAppFrom: getEnv("TWILIO_WHATSAPP_FROM", ""),
	}
}

// Location resolves the configured reminder timezone. All slot labels and
// calendar-day boundaries are interpreted in this zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
