package config

import (
	"crypto/sha256"
	"os"
	"strconv"
	"strings"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

func (r R2) Configured() bool {
	return r.AccountID != "" && r.AccessKey != "" && r.SecretKey != "" && r.BucketName != ""
}

type Webhooks struct {
	FacebookAppSecret     string
	FacebookVerifyToken   string
	TwitterConsumerSecret string
	LinkedInSecret        string
}

type OAuthClient struct {
	ClientID     string
	ClientSecret string
}

type Publisher struct {
	PostBatchSize    int
	RetryBatchSize   int
	RetryDelay       time.Duration
	RetryMaxAttempts int
	CronSchedule     string
}

type Config struct {
	PostgresURI string
	RedisURI    string
	Port        string
	BaseURL     string
	FrontendURL string
	SecretKey   string
	CookieName  string
	CronSecret  string
	ProxyHeader string
	R2          R2
	Webhooks    Webhooks
	Publisher   Publisher
	LinkedIn    OAuthClient
	Twitter     OAuthClient
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", ""),
		Port:        getEnv("PORT", "3000"),
		BaseURL:     strings.TrimRight(getEnv("BASE_URL", "http://localhost:3000"), "/"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		SecretKey:   getEnv("SECRET_KEY", ""),
		CookieName:  getEnv("COOKIE_NAME", "ghst_session"),
		CronSecret:  getEnv("CRON_SECRET", ""),
		ProxyHeader: getEnv("PROXY_HEADER", ""),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  strings.TrimRight(getEnv("R2_PUBLIC_URL", ""), "/"),
		},
		Webhooks: Webhooks{
			FacebookAppSecret:     getEnv("FACEBOOK_APP_SECRET", ""),
			FacebookVerifyToken:   getEnv("FACEBOOK_VERIFY_TOKEN", ""),
			TwitterConsumerSecret: getEnv("TWITTER_CONSUMER_SECRET", ""),
			LinkedInSecret:        getEnv("LINKEDIN_WEBHOOK_SECRET", ""),
		},
		Publisher: Publisher{
			PostBatchSize:    getEnvInt("POST_BATCH_SIZE", 10),
			RetryBatchSize:   getEnvInt("RETRY_BATCH_SIZE", 5),
			RetryDelay:       time.Duration(getEnvInt("RETRY_DELAY_MINUTES", 5)) * time.Minute,
			RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),
			CronSchedule:     getEnv("CRON_SCHEDULE", "@every 1m"),
		},
		LinkedIn: OAuthClient{
			ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
		},
		Twitter: OAuthClient{
			ClientID:     getEnv("TWITTER_CLIENT_ID", ""),
			ClientSecret: getEnv("TWITTER_CLIENT_SECRET", ""),
		},
	}
}

// LinkedInVerificationEnabled reports whether LinkedIn deliveries are
// signature checked. Without a secret they are accepted unverified.
func (c *Config) LinkedInVerificationEnabled() bool {
	return c.Webhooks.LinkedInSecret != ""
}

// TokenKey derives the AES-256 key that seals platform tokens at rest.
func (c *Config) TokenKey() []byte {
	sum := sha256.Sum256([]byte(c.SecretKey))
	return sum[:]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
