package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                      string
	VerifyToken               string
	AppSecret                 string
	WhatsAppToken             string
	PhoneNumberID             string
	WhatsAppBusinessAccountID string
	APIVersion                string

	DatabaseURL string
	DBPath      string
	RedisAddr   string

	WindowMinutes      int
	RateLimitPerMinute int

	DispatchMode    string // "inline" or "queue"
	QueueURL        string
	QueueWaitTime   time.Duration
	QueuePollPause  time.Duration
	QueueBatchSize  int
	MetricsInterval time.Duration

	LogLevel  string
	LogPretty bool
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	return &Config{
		Port:                      getEnv("PORT", "8080"),
		VerifyToken:               getEnv("VERIFY_TOKEN", ""),
		AppSecret:                 getEnv("APP_SECRET", ""),
		WhatsAppToken:             getEnv("WHATSAPP_TOKEN", ""),
		PhoneNumberID:             getEnv("PHONE_NUMBER_ID", ""),
		WhatsAppBusinessAccountID: getEnv("WABA_ID", ""),
		APIVersion:                getEnv("WHATSAPP_API_VERSION", "v19.0"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBPath:      getEnv("DB_PATH", "./whatsapp.db"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),

		WindowMinutes:      getEnvInt("WINDOW_MINUTES", 1440),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 20),

		DispatchMode:    getEnv("DISPATCH_MODE", "inline"),
		QueueURL:        getEnv("QUEUE_URL", ""),
		QueueWaitTime:   time.Duration(getEnvInt("QUEUE_WAIT_SECONDS", 20)) * time.Second,
		QueuePollPause:  time.Duration(getEnvInt("QUEUE_POLL_INTERVAL_SECONDS", 5)) * time.Second,
		QueueBatchSize:  getEnvInt("QUEUE_BATCH_SIZE", 10),
		MetricsInterval: time.Duration(getEnvInt("METRICS_REPORT_SECONDS", 60)) * time.Second,

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnv("LOG_PRETTY", "false") == "true",
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Warning: invalid integer for %s, using default %d", key, fallback)
	}
	return fallback
}
