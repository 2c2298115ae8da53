package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	JWT       JWTConfig
	App       AppConfig
	Biometric BiometricConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

// BiometricConfig holds the verification pipeline tuning knobs. The matcher
// thresholds are system-level: they control the false-accept/false-reject
// tradeoff and are deliberately not configurable per tenant.
type BiometricConfig struct {
	// TemplateMasterKey is the hex-encoded 32-byte AES key from which
	// per-tenant subkeys are derived.
	TemplateMasterKey string

	MaxDistance    float64
	MatchThreshold float64
	HighThreshold  float64

	MinLivenessFrames int
	MinMovementPx     float64

	MinSharpness            float64
	MinBrightness           float64
	MinContrast             float64
	MinDetectionConfidence  float64
	ReviewDetectionConfid   float64
	VerificationGateTimeout time.Duration
}

func Load() (*Config, error) {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "verihr"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Biometric pipeline configuration
	gateTimeout, err := time.ParseDuration(getEnv("VERIFICATION_GATE_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid VERIFICATION_GATE_TIMEOUT: %w", err)
	}

	config.Biometric = BiometricConfig{
		TemplateMasterKey:       getEnv("TEMPLATE_MASTER_KEY", ""),
		MaxDistance:             getEnvFloat("MATCH_MAX_DISTANCE", 1.0),
		MatchThreshold:          getEnvFloat("MATCH_THRESHOLD", 0.6),
		HighThreshold:           getEnvFloat("MATCH_HIGH_THRESHOLD", 0.85),
		MinLivenessFrames:       getEnvInt("LIVENESS_MIN_FRAMES", 3),
		MinMovementPx:           getEnvFloat("LIVENESS_MIN_MOVEMENT_PX", 10),
		MinSharpness:            getEnvFloat("ENROLL_MIN_SHARPNESS", 0.3),
		MinBrightness:           getEnvFloat("ENROLL_MIN_BRIGHTNESS", 0.2),
		MinContrast:             getEnvFloat("ENROLL_MIN_CONTRAST", 0.2),
		MinDetectionConfidence:  getEnvFloat("ENROLL_MIN_DETECTION_CONFIDENCE", 0.5),
		ReviewDetectionConfid:   getEnvFloat("ENROLL_REVIEW_DETECTION_CONFIDENCE", 0.8),
		VerificationGateTimeout: gateTimeout,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Biometric.TemplateMasterKey == "" {
		return fmt.Errorf("TEMPLATE_MASTER_KEY is required")
	}
	if key, err := hex.DecodeString(c.Biometric.TemplateMasterKey); err != nil || len(key) != 32 {
		return fmt.Errorf("TEMPLATE_MASTER_KEY must be 32 bytes of hex")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return f
}
