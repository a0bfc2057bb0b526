package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/maarifa-ai/maarifa/pkg/xlog"
)

// Config carries every external collaborator credential and endpoint the
// process needs. Load fails on missing required values instead of
// degrading into insecure defaults.
type Config struct {
	ListenAddr string

	DBUser string
	DBPass string
	DBHost string
	DBName string

	// Whish collect gateway
	WhishBaseURL       string
	WhishChannel       string
	WhishSecret        string
	PaymentSuccessBase string
	PaymentFailureBase string

	OpenAIKey     string
	OpenAIBaseURL string
	Model         string

	KnowledgeBucket    string
	S3Region           string
	S3Endpoint         string
	S3PublicBaseURL    string
	TrainingServiceURL string

	NewsAPIKey    string
	WeatherAPIKey string

	ChatEncryptionKey string
}

func Load() (*Config, error) {
	c := &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":3000"),

		DBUser: os.Getenv("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: os.Getenv("DB_HOST"),
		DBName: os.Getenv("DB_NAME"),

		WhishBaseURL:       os.Getenv("WHISH_BASE_URL"),
		WhishChannel:       getEnv("WHISH_CHANNEL", "web"),
		WhishSecret:        os.Getenv("WHISH_SECRET"),
		PaymentSuccessBase: os.Getenv("PAYMENT_SUCCESS_BASE_URL"),
		PaymentFailureBase: os.Getenv("PAYMENT_FAILURE_BASE_URL"),

		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Model:         getEnv("MODEL_NAME", "gpt-4o-mini"),

		KnowledgeBucket:    os.Getenv("KNOWLEDGE_BUCKET"),
		S3Region:           getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3PublicBaseURL:    os.Getenv("S3_PUBLIC_BASE_URL"),
		TrainingServiceURL: os.Getenv("TRAINING_SERVICE_URL"),

		NewsAPIKey:    os.Getenv("NEWS_API_KEY"),
		WeatherAPIKey: os.Getenv("WEATHER_API_KEY"),

		ChatEncryptionKey: os.Getenv("CHAT_ENCRYPTION_KEY"),
	}

	var missing []string
	for name, val := range map[string]string{
		"DB_USER":        c.DBUser,
		"DB_HOST":        c.DBHost,
		"DB_NAME":        c.DBName,
		"WHISH_BASE_URL": c.WhishBaseURL,
		"OPENAI_API_KEY": c.OpenAIKey,
	} {
		if val == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.ChatEncryptionKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating fallback encryption key: %w", err)
		}
		c.ChatEncryptionKey = hex.EncodeToString(key)
		xlog.Warn("CHAT_ENCRYPTION_KEY not set, generated an ephemeral key. Persisted chat history will be unreadable after restart. Set CHAT_ENCRYPTION_KEY in production.")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
