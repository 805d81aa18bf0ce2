package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env          string
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	AIAPIKey     string
	GenModel     string
	JWTSecret    string
	Port         string

	PresignTTL       time.Duration
	MaxPreviewPages  int
	ClearPages       int
	MetadataAttempts int
	ArchiveAfter     time.Duration
}

// LoadConfig loads the environment variables and returns config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Env:          getEnv("APP_ENV", "dev"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "paperstack-docs"),
		AIAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GenModel:     getEnv("GEN_MODEL", "gemini-1.5-flash"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		Port:         getEnv("PORT", "8080"),

		PresignTTL:       time.Duration(getEnvInt("PRESIGN_TTL_MINUTES", 60)) * time.Minute,
		MaxPreviewPages:  getEnvInt("MAX_PREVIEW_PAGES", 6),
		ClearPages:       getEnvInt("CLEAR_PREVIEW_PAGES", 5),
		MetadataAttempts: getEnvInt("METADATA_ATTEMPTS", 3),
		ArchiveAfter:     time.Duration(getEnvInt("ARCHIVE_AFTER_MONTHS", 24)) * 30 * 24 * time.Hour,
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}
