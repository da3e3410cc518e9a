package environments

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	Dispatch DispatchConfig
	Sweeper  SweeperConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// GatewayConfig configures the outbound SMS provider client. Credentials
// and sender identity are passed in here, never read from globals.
type GatewayConfig struct {
	BaseURL      string
	APIKey       string
	SenderName   string
	Route        string
	Timeout      time.Duration
	RetryCount   int
	RetryBackoff time.Duration
}

type DispatchConfig struct {
	InterMessageDelay time.Duration
	RetryDelay        time.Duration
	ResultsTemplate   string
}

type SweeperConfig struct {
	Interval        time.Duration
	AlertWebhookURL string
	AlertThreshold  int
}

type AuthConfig struct {
	NotifyAPIKey string
	AdminAPIKey  string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: GetEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "notifier"),
			Password: GetEnv("DB_PASSWORD", "notifier123"),
			DBName:   GetEnv("DB_NAME", "result_notify"),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		Gateway: GatewayConfig{
			BaseURL:    GetEnv("SMS_GATEWAY_URL", "https://api.sendchamp.com/api/v1"),
			APIKey:     GetEnv("SMS_GATEWAY_API_KEY", ""),
			SenderName: GetEnv("SMS_SENDER_NAME", "EduPulse"),
			// "dnd" delivers to do-not-disturb lines; costlier but reliable.
			Route:        GetEnv("SMS_ROUTE", "dnd"),
			Timeout:      GetEnvAsDuration("SMS_GATEWAY_TIMEOUT", 30*time.Second),
			RetryCount:   GetEnvAsInt("SMS_GATEWAY_RETRY_COUNT", 2),
			RetryBackoff: GetEnvAsDuration("SMS_GATEWAY_RETRY_BACKOFF", 2*time.Second),
		},
		Dispatch: DispatchConfig{
			InterMessageDelay: GetEnvAsDuration("SMS_INTER_MESSAGE_DELAY", 750*time.Millisecond),
			RetryDelay:        GetEnvAsDuration("SMS_RETRY_DELAY", time.Second),
			ResultsTemplate: GetEnv("RESULTS_SMS_TEMPLATE",
				"Dear {firstName}, your {session} result is out. Score: {score}, CGPA: {cgpa}."),
		},
		Sweeper: SweeperConfig{
			Interval:        GetEnvAsDuration("RETRY_SWEEP_INTERVAL", 30*time.Minute),
			AlertWebhookURL: GetEnv("ALERT_WEBHOOK_URL", ""),
			AlertThreshold:  GetEnvAsInt("ALERT_SWEEP_COUNT", 0),
		},
		Auth: AuthConfig{
			NotifyAPIKey: GetEnv("NOTIFY_API_KEY", ""),
			AdminAPIKey:  GetEnv("ADMIN_API_KEY", ""),
		},
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
