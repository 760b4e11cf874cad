package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	DefaultOrg  string   `mapstructure:"DEFAULT_ORG"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	AuthIssuer   string `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL  string `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience string `mapstructure:"AUTH_AUDIENCE"`

	// Feature flags for the integration adapters. These are deliberately
	// explicit config fields rather than ad-hoc env lookups inside the
	// components.
	LLMEnabled             bool   `mapstructure:"LLM_ENABLED"`
	LLMAPIKey              string `mapstructure:"LLM_API_KEY"`
	LLMModel               string `mapstructure:"LLM_MODEL"`
	OCRProvider            string `mapstructure:"OCR_PROVIDER"`
	PolicyIngestionEnabled bool   `mapstructure:"POLICY_INGESTION_ENABLED"`

	BlobBackend    string `mapstructure:"BLOB_BACKEND"`
	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`
}

// ValidOCRProviders lists the recognized OCR_PROVIDER values.
var ValidOCRProviders = map[string]bool{
	"mock":       true,
	"textract":   true,
	"documentai": true,
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DEFAULT_ORG", "default")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("LLM_ENABLED", false)
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("OCR_PROVIDER", "mock")
	v.SetDefault("POLICY_INGESTION_ENABLED", false)
	v.SetDefault("BLOB_BACKEND", "memory")
	v.SetDefault("MINIO_BUCKET", "pa-attachments")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"DEFAULT_ORG", "CORS_ORIGINS",
		"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE",
		"LLM_ENABLED", "LLM_API_KEY", "LLM_MODEL",
		"OCR_PROVIDER", "POLICY_INGESTION_ENABLED",
		"BLOB_BACKEND", "MINIO_ENDPOINT", "MINIO_ACCESS_KEY",
		"MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active, all requests get admin access.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. In production real
// JWT authentication must be configured, and enabled adapters must have the
// credentials they need.
func (c *Config) Validate() error {
	if c.IsProduction() && c.AuthIssuer == "" {
		return fmt.Errorf("AUTH_ISSUER is required in production (ENV=%q)", c.Env)
	}

	if !ValidOCRProviders[c.OCRProvider] {
		return fmt.Errorf("OCR_PROVIDER must be \"mock\", \"textract\", or \"documentai\", got %q", c.OCRProvider)
	}

	if c.LLMEnabled && c.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required when LLM_ENABLED is true")
	}

	switch c.BlobBackend {
	case "memory":
	case "minio":
		if c.MinioEndpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required when BLOB_BACKEND is \"minio\"")
		}
		if c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when BLOB_BACKEND is \"minio\"")
		}
		if c.MinioBucket == "" {
			return fmt.Errorf("MINIO_BUCKET is required when BLOB_BACKEND is \"minio\"")
		}
	default:
		return fmt.Errorf("BLOB_BACKEND must be \"memory\" or \"minio\", got %q", c.BlobBackend)
	}

	return nil
}
