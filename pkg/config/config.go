package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// DefaultMinConfidenceThreshold is used when the configured value is out of (0, 1].
	DefaultMinConfidenceThreshold = 0.8
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Approval      ApprovalConfig
	LLM           LLMConfig
	Notifications NotificationConfig
	Exports       ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	CacheTTL time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ApprovalConfig gates the automated decision pipeline.
type ApprovalConfig struct {
	AutoApprovalEnabled    bool
	MinConfidenceThreshold float64
}

// LLMConfig configures the intent extraction endpoint.
type LLMConfig struct {
	Enabled       bool
	BaseURL       string
	APIKey        string
	Model         string
	Timeout       time.Duration
	MaxRetries    int
	RetryWait     time.Duration
	RetryMaxWait  time.Duration
	CacheCapacity int
}

// NotificationConfig holds credentials for every staff delivery channel.
type NotificationConfig struct {
	DefaultChannels []string

	EmailAPIURL string
	EmailAPIKey string
	EmailFrom   string

	TwilioBaseURL    string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	MQTTBroker      string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string

	RetryWorkers int
	RetryMax     int
	RetryDelay   time.Duration
}

// ExportsConfig toggles the audit export endpoints.
type ExportsConfig struct {
	Enabled bool
	MaxRows int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		CacheTTL: parseDuration(v.GetString("REDIS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	threshold := v.GetFloat64("MIN_CONFIDENCE_THRESHOLD")
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultMinConfidenceThreshold
	}
	cfg.Approval = ApprovalConfig{
		AutoApprovalEnabled:    v.GetBool("AUTO_APPROVAL_ENABLED"),
		MinConfidenceThreshold: threshold,
	}

	cfg.LLM = LLMConfig{
		Enabled:       v.GetBool("ENABLE_LLM"),
		BaseURL:       v.GetString("LLM_BASE_URL"),
		APIKey:        v.GetString("LLM_API_KEY"),
		Model:         v.GetString("LLM_MODEL"),
		Timeout:       parseDuration(v.GetString("LLM_TIMEOUT"), 20*time.Second),
		MaxRetries:    v.GetInt("LLM_MAX_RETRIES"),
		RetryWait:     parseDuration(v.GetString("LLM_RETRY_WAIT"), time.Second),
		RetryMaxWait:  parseDuration(v.GetString("LLM_RETRY_MAX_WAIT"), 8*time.Second),
		CacheCapacity: v.GetInt("LLM_CACHE_CAPACITY"),
	}

	cfg.Notifications = NotificationConfig{
		DefaultChannels:  splitAndTrim(v.GetString("NOTIFY_DEFAULT_CHANNELS")),
		EmailAPIURL:      v.GetString("EMAIL_API_URL"),
		EmailAPIKey:      v.GetString("EMAIL_API_KEY"),
		EmailFrom:        v.GetString("EMAIL_FROM"),
		TwilioBaseURL:    v.GetString("TWILIO_BASE_URL"),
		TwilioAccountSID: v.GetString("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  v.GetString("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: v.GetString("TWILIO_FROM_NUMBER"),
		MQTTBroker:       v.GetString("MQTT_BROKER"),
		MQTTClientID:     v.GetString("MQTT_CLIENT_ID"),
		MQTTUsername:     v.GetString("MQTT_USERNAME"),
		MQTTPassword:     v.GetString("MQTT_PASSWORD"),
		MQTTTopicPrefix:  v.GetString("MQTT_TOPIC_PREFIX"),
		RetryWorkers:     v.GetInt("NOTIFY_RETRY_WORKERS"),
		RetryMax:         v.GetInt("NOTIFY_RETRY_MAX"),
		RetryDelay:       parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), 30*time.Second),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_AUDIT_EXPORTS"),
		MaxRows: v.GetInt("AUDIT_EXPORT_MAX_ROWS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "hostel_ops")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CACHE_TTL", "5m")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "hostel-ops-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("AUTO_APPROVAL_ENABLED", true)
	v.SetDefault("MIN_CONFIDENCE_THRESHOLD", 0.8)

	v.SetDefault("ENABLE_LLM", false)
	v.SetDefault("LLM_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("LLM_API_KEY", "")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_TIMEOUT", "20s")
	v.SetDefault("LLM_MAX_RETRIES", 3)
	v.SetDefault("LLM_RETRY_WAIT", "1s")
	v.SetDefault("LLM_RETRY_MAX_WAIT", "8s")
	v.SetDefault("LLM_CACHE_CAPACITY", 256)

	v.SetDefault("NOTIFY_DEFAULT_CHANNELS", "email,sms,push")
	v.SetDefault("EMAIL_API_URL", "")
	v.SetDefault("EMAIL_API_KEY", "")
	v.SetDefault("EMAIL_FROM", "hostel-office@example.edu")
	v.SetDefault("TWILIO_BASE_URL", "https://api.twilio.com/2010-04-01")
	v.SetDefault("TWILIO_ACCOUNT_SID", "")
	v.SetDefault("TWILIO_AUTH_TOKEN", "")
	v.SetDefault("TWILIO_FROM_NUMBER", "")
	v.SetDefault("MQTT_BROKER", "")
	v.SetDefault("MQTT_CLIENT_ID", "hostel-ops-api")
	v.SetDefault("MQTT_USERNAME", "")
	v.SetDefault("MQTT_PASSWORD", "")
	v.SetDefault("MQTT_TOPIC_PREFIX", "hostel/staff")
	v.SetDefault("NOTIFY_RETRY_WORKERS", 1)
	v.SetDefault("NOTIFY_RETRY_MAX", 3)
	v.SetDefault("NOTIFY_RETRY_DELAY", "30s")

	v.SetDefault("ENABLE_AUDIT_EXPORTS", true)
	v.SetDefault("AUDIT_EXPORT_MAX_ROWS", 5000)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
