package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	S3BucketName    string
	S3PublicBaseURL string

	SNSRegion   string
	SNSSenderID string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	Redis RedisConfig

	OTPTTL        time.Duration
	OTPRetention  time.Duration // how long an expired code stays readable so verify reports it as expired
	OTPMaxSends   int
	OTPSendWindow time.Duration
	OTPHashCost   int

	DefaultTimezone  string
	DemoPhone        string
	NotifyLogSkipped bool
	TransportTimeout time.Duration

	RabbitMQURL       string
	NotifyEventsQueue string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Identities              string
	PhoneClaims             string
	Profiles                string
	NotificationPreferences string
	NotificationLog         string
}

// RedisConfig holds the connection settings for the code store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3001"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Identities:              getEnv("DYNAMO_TABLE_IDENTITIES", "identities"),
			PhoneClaims:             getEnv("DYNAMO_TABLE_PHONE_CLAIMS", "phone_claims"),
			Profiles:                getEnv("DYNAMO_TABLE_PROFILES", "profiles"),
			NotificationPreferences: getEnv("DYNAMO_TABLE_NOTIFICATION_PREFERENCES", "notification_preferences"),
			NotificationLog:         getEnv("DYNAMO_TABLE_NOTIFICATION_LOG", "notification_log"),
		},

		S3BucketName:    getEnv("S3_BUCKET_NAME", "profile-photos"),
		S3PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),

		SNSRegion:   getEnv("SNS_REGION", "us-east-1"),
		SNSSenderID: getEnv("SNS_SENDER_ID", ""),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 30)) * 24 * time.Hour,

		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},

		OTPTTL:        getEnvDuration("OTP_TTL", 5*time.Minute),
		OTPRetention:  getEnvDuration("OTP_RETENTION", 10*time.Minute),
		OTPMaxSends:   getEnvInt("OTP_MAX_SENDS", 5),
		OTPSendWindow: getEnvDuration("OTP_SEND_WINDOW", 15*time.Minute),
		OTPHashCost:   getEnvInt("OTP_HASH_COST", 10),

		DefaultTimezone:  getEnv("DEFAULT_TIMEZONE", "America/Los_Angeles"),
		DemoPhone:        getEnv("DEMO_PHONE", "+16504416163"),
		NotifyLogSkipped: getEnvBool("NOTIFY_LOG_SKIPPED", true),
		TransportTimeout: getEnvDuration("TRANSPORT_TIMEOUT", 10*time.Second),

		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
		NotifyEventsQueue: getEnv("NOTIFY_EVENTS_QUEUE", "notification.events"),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// IsProduction reports whether debug surfaces must be disabled.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
