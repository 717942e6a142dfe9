package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Recognizer RecognizerConfig
	Matching   MatchingConfig
	Database   DatabaseConfig
	Web        WebConfig
}

type RecognizerConfig struct {
	URL            string // defaults to http://localhost:8000
	Dim            int    // descriptor dimension, defaults to 512
	TimeoutSeconds int    // per-request timeout, defaults to 30
}

type MatchingConfig struct {
	Threshold   float64 // confidence threshold for accepting a match
	MinSamples  int     // minimum enrollment samples per person
	MaxSamples  int     // maximum enrollment samples used for the mean descriptor
	Concurrency int     // parallel extractions in batch processing
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	Port          int    // HTTP listen port (default 8080)
	SessionSecret string // HMAC key for session cookies
	AdminToken    string // bearer token for admin API access
	CORSOrigin    string // allowed origin for browser clients
}

// matchingDefaults mirrors the embedded defaults.yaml layout.
type matchingDefaults struct {
	Matching struct {
		Threshold   float64 `yaml:"threshold"`
		MinSamples  int     `yaml:"min_samples"`
		MaxSamples  int     `yaml:"max_samples"`
		Concurrency int     `yaml:"concurrency"`
	} `yaml:"matching"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var defaults matchingDefaults
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Recognizer: RecognizerConfig{
			URL:            envString("RECOGNIZER_URL", "http://localhost:8000"),
			Dim:            envInt("RECOGNIZER_DIM", 512),
			TimeoutSeconds: envInt("RECOGNIZER_TIMEOUT_SECONDS", 30),
		},
		Matching: MatchingConfig{
			Threshold:   envFloat("MATCHING_THRESHOLD", defaults.Matching.Threshold),
			MinSamples:  envInt("MATCHING_MIN_SAMPLES", defaults.Matching.MinSamples),
			MaxSamples:  envInt("MATCHING_MAX_SAMPLES", defaults.Matching.MaxSamples),
			Concurrency: envInt("MATCHING_CONCURRENCY", defaults.Matching.Concurrency),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			Port:          envInt("WEB_PORT", 8080),
			SessionSecret: os.Getenv("WEB_SESSION_SECRET"),
			AdminToken:    os.Getenv("WEB_ADMIN_TOKEN"),
			CORSOrigin:    envString("WEB_CORS_ORIGIN", "*"),
		},
	}
}
