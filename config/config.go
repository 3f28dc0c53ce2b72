package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAcceptedCredential is the session credential handed out to storefront customers.
const DefaultAcceptedCredential = "05b95aad7d71e5fc95143d02acf32329591b2224d92849e1420d844adb3c953f1b"

// Config holds all configuration for the storefront service.
type Config struct {
	Env  string
	Port string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	RedisURL string

	JWTSecret    string
	TokenTTL     time.Duration
	CookieSecure bool

	// Checkout
	AcceptedCredential string
	CredentialMode     string // "static" or "account"
	BalanceTimeout     time.Duration
	VerifyTimeout      time.Duration
	DebitOnCommit      bool
	PaymentNetwork     string
	DemoWalletAddress  string

	// Top-up
	TopUpWalletAddress string
	TopUpMinimumUSD    int64
	TopUpQueueURL      string

	// Storefront sessions
	CartTTL          time.Duration
	LastOrderTTL     time.Duration
	SessionIdleTTL   time.Duration
	AuthReadyTimeout time.Duration

	// Events
	EventBus         string // "sns", "kafka" or "" for none
	OrderSNSTopicARN string
	KafkaBrokers     []string
	KafkaTopic       string

	AllowedOrigins []string
	AdminAPIKey    string

	CloudWatchEnabled   bool
	CloudWatchLogGroup  string
	CloudWatchNamespace string
	UseAWSSecrets       bool
	SecretName          string
}

// SecretGetter reads a JSON-object secret. Implemented by pkg/aws.SecretsClient.
type SecretGetter interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// Load reads configuration from .env (when present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "8095"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		TokenTTL:     getEnvDuration("TOKEN_TTL", 24*time.Hour),
		CookieSecure: getEnvBool("COOKIE_SECURE", false),

		AcceptedCredential: getEnv("ACCEPTED_SESSION_CREDENTIAL", DefaultAcceptedCredential),
		CredentialMode:     getEnv("CREDENTIAL_MODE", "static"),
		BalanceTimeout:     getEnvDuration("BALANCE_TIMEOUT", 5*time.Second),
		VerifyTimeout:      getEnvDuration("VERIFY_TIMEOUT", 5*time.Second),
		DebitOnCommit:      getEnvBool("DEBIT_ON_COMMIT", true),
		PaymentNetwork:     getEnv("PAYMENT_NETWORK", "USDT (TRC20)"),
		DemoWalletAddress:  getEnv("DEMO_WALLET_ADDRESS", "TMockAddress1234567890DEMOONLY0000"),

		TopUpWalletAddress: getEnv("TOPUP_WALLET_ADDRESS", "TDYDXEWeAyoftNUYN2gNVex1rDKTA9F1Zw"),
		TopUpMinimumUSD:    int64(getEnvInt("TOPUP_MINIMUM_USD", 100)),
		TopUpQueueURL:      os.Getenv("TOPUP_QUEUE_URL"),

		CartTTL:          getEnvDuration("CART_TTL", 7*24*time.Hour),
		LastOrderTTL:     getEnvDuration("LAST_ORDER_TTL", 30*24*time.Hour),
		SessionIdleTTL:   getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
		AuthReadyTimeout: getEnvDuration("AUTH_READY_TIMEOUT", 2*time.Second),

		EventBus:         strings.ToLower(os.Getenv("EVENT_BUS")),
		OrderSNSTopicARN: os.Getenv("ORDER_SNS_TOPIC_ARN"),
		KafkaBrokers:     getEnvList("KAFKA_BROKERS"),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "storefront.orders"),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),
		AdminAPIKey:    os.Getenv("ADMIN_API_KEY"),

		CloudWatchEnabled:   getEnvBool("CLOUDWATCH_ENABLED", false),
		CloudWatchLogGroup:  getEnv("CLOUDWATCH_LOG_GROUP", "/storefront/services"),
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "Storefront"),
		UseAWSSecrets:       getEnvBool("AWS_USE_SECRETS", false),
		SecretName:          getEnv("AWS_SECRET_NAME", "storefront/APP_SECRETS"),
	}

	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	return cfg, nil
}

// ApplySecrets overrides sensitive values from a Secrets Manager JSON secret.
// Empty entries leave the environment value in place.
func (c *Config) ApplySecrets(ctx context.Context, secrets SecretGetter) error {
	m, err := secrets.GetSecretMap(ctx, c.SecretName)
	if err != nil {
		return err
	}

	overrides := map[string]*string{
		"POSTGRES_USER":               &c.PostgresUser,
		"POSTGRES_PASSWORD":           &c.PostgresPassword,
		"POSTGRES_DB":                 &c.PostgresDB,
		"POSTGRES_HOST":               &c.PostgresHost,
		"POSTGRES_PORT":               &c.PostgresPort,
		"REDIS_URL":                   &c.RedisURL,
		"JWT_SECRET":                  &c.JWTSecret,
		"ACCEPTED_SESSION_CREDENTIAL": &c.AcceptedCredential,
		"ADMIN_API_KEY":               &c.AdminAPIKey,
	}
	for key, target := range overrides {
		if v, ok := m[key]; ok && v != "" {
			*target = v
		}
	}
	return nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
		return fmt.Errorf("database config incomplete")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.CredentialMode {
	case "static", "account":
	default:
		return fmt.Errorf("unknown CREDENTIAL_MODE %q", c.CredentialMode)
	}
	switch c.EventBus {
	case "":
	case "sns":
		if c.OrderSNSTopicARN == "" {
			return fmt.Errorf("ORDER_SNS_TOPIC_ARN is required when EVENT_BUS=sns")
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENT_BUS=kafka")
		}
	default:
		return fmt.Errorf("unknown EVENT_BUS %q", c.EventBus)
	}
	if c.BalanceTimeout <= 0 {
		return fmt.Errorf("BALANCE_TIMEOUT must be positive")
	}
	return nil
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB,
		c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone)
}

// IsProduction reports whether the service runs with production logging.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "/")); p != "" {
			out = append(out, p)
		}
	}
	return out
}
