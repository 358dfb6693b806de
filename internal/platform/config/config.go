// Package config loads service configuration from the environment so main
// stays lean. Every knob has a working default; only the OpenAI key has no
// fallback and is checked where extraction is wired.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	dErrors "cruce/pkg/domain-errors"
	pstrings "cruce/pkg/platform/strings"
)

// Config is the full service configuration.
type Config struct {
	Addr      string
	LogLevel  string
	LogFormat string

	OpenAI     OpenAI
	Validation Validation
	Imaging    Imaging
	Audit      Audit
}

// OpenAI configures the vision extraction upstream.
type OpenAI struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Validation configures rule thresholds and the DODA validity window.
type Validation struct {
	StrictThreshold         float64
	LenientThreshold        float64
	DescriptionWarningFloor float64
	DodaMaxAgeDays          int
}

// Imaging configures document image optimization before extraction.
type Imaging struct {
	MaxDimension int
	JPEGQuality  int
}

// Audit configures the audit event pipeline. Kafka is optional; with no
// brokers configured events go to the log sink only.
type Audit struct {
	Buffer       int
	KafkaBrokers []string
	KafkaTopic   string
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() Config {
	return Config{
		Addr:      getEnv("CRUCE_ADDR", ":8080"),
		LogLevel:  getEnv("CRUCE_LOG_LEVEL", "info"),
		LogFormat: getEnv("CRUCE_LOG_FORMAT", "json"),
		OpenAI: OpenAI{
			APIKey:     os.Getenv("CRUCE_OPENAI_API_KEY"),
			BaseURL:    getEnv("CRUCE_OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:      getEnv("CRUCE_OPENAI_MODEL", "gpt-4o-mini"),
			Timeout:    getEnvDuration("CRUCE_OPENAI_TIMEOUT", 90*time.Second),
			MaxRetries: getEnvInt("CRUCE_OPENAI_MAX_RETRIES", 3),
			RetryDelay: getEnvDuration("CRUCE_OPENAI_RETRY_DELAY", 2*time.Second),
		},
		Validation: Validation{
			StrictThreshold:         getEnvFloat("CRUCE_STRICT_THRESHOLD", 0.95),
			LenientThreshold:        getEnvFloat("CRUCE_LENIENT_THRESHOLD", 0.80),
			DescriptionWarningFloor: getEnvFloat("CRUCE_DESCRIPTION_WARNING_FLOOR", 0.60),
			DodaMaxAgeDays:          getEnvInt("CRUCE_DODA_MAX_AGE_DAYS", 3),
		},
		Imaging: Imaging{
			MaxDimension: getEnvInt("CRUCE_IMAGE_MAX_DIMENSION", 1024),
			JPEGQuality:  getEnvInt("CRUCE_IMAGE_JPEG_QUALITY", 85),
		},
		Audit: Audit{
			Buffer:       getEnvInt("CRUCE_AUDIT_BUFFER", 256),
			KafkaBrokers: getEnvList("CRUCE_KAFKA_BROKERS"),
			KafkaTopic:   getEnv("CRUCE_KAFKA_TOPIC", "cruce.audit.events"),
		},
	}
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	v := c.Validation
	if v.StrictThreshold <= 0 || v.StrictThreshold > 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "strict threshold must be in (0, 1]")
	}
	if v.LenientThreshold <= 0 || v.LenientThreshold > 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "lenient threshold must be in (0, 1]")
	}
	if v.StrictThreshold < v.LenientThreshold {
		return dErrors.New(dErrors.CodeInvalidInput, "strict threshold must not be below lenient threshold")
	}
	if v.DescriptionWarningFloor < 0 || v.DescriptionWarningFloor >= v.LenientThreshold {
		return dErrors.New(dErrors.CodeInvalidInput, "description warning floor must be in [0, lenient)")
	}
	if v.DodaMaxAgeDays < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "doda max age days must not be negative")
	}
	if c.Imaging.MaxDimension <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "image max dimension must be positive")
	}
	if c.Imaging.JPEGQuality < 1 || c.Imaging.JPEGQuality > 100 {
		return dErrors.New(dErrors.CodeInvalidInput, "jpeg quality must be in [1, 100]")
	}
	if c.Audit.Buffer < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "audit buffer must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := pstrings.DedupeAndTrim(strings.Split(value, ","))
	if len(parts) == 0 {
		return nil
	}
	return parts
}
