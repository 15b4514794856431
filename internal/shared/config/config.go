package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port               string
	Env                string
	DatabaseURL        string
	MigrateOnStart     bool
	CORSAllowOrigin    []string
	ObjectStoreType    string
	LocalStoreDir      string
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
	SSEKMSKeyID        string
	MaxUploadMB        int64
	JWTSecret          string
	JWTIssuer          string
	RateLimitRPS       float64
	RateLimitBurst     int
	OCREnabled         bool
	PdftoppmPath       string
	TesseractPath      string
	OCRLang            string
	OCRDPI             int
	OCRTimeout         time.Duration
	ExtractConcurrency int64
	CleanupDefaultDays int
	LogLevel           string
	LogFile            string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", getEnv("APP_ENV", "dev")))
	dbURL := os.Getenv("DATABASE_URL")
	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}
	if env == "production" && jwtSecret == "" {
		log.Printf("JWT_SECRET is required in production")
	}
	if jwtSecret == "" && env != "production" {
		jwtSecret = "dev-secret"
	}

	return Config{
		Port:               getEnv("PORT", "8080"),
		Env:                env,
		DatabaseURL:        dbURL,
		MigrateOnStart:     getEnvBool("MIGRATE_ON_START", env != "production"),
		CORSAllowOrigin:    splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType:    normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:      getEnv("UPLOAD_DIR", getEnv("LOCAL_STORE_DIR", "./uploads")),
		AWSRegion:          getEnv("AWS_REGION", ""),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Prefix:           getEnv("S3_PREFIX", "receipts/"),
		SSEKMSKeyID:        getEnv("SSE_KMS_KEY_ID", ""),
		MaxUploadMB:        int64(getEnvInt("MAX_UPLOAD_MB", 15)),
		JWTSecret:          jwtSecret,
		JWTIssuer:          getEnv("JWT_ISSUER", ""),
		RateLimitRPS:       getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 20),
		OCREnabled:         getEnvBool("OCR_ENABLED", true),
		PdftoppmPath:       getEnv("PDFTOPPM_PATH", "pdftoppm"),
		TesseractPath:      getEnv("TESSERACT_PATH", "tesseract"),
		OCRLang:            getEnv("OCR_LANG", "eng"),
		OCRDPI:             getEnvInt("OCR_DPI", 300),
		OCRTimeout:         time.Duration(getEnvInt("OCR_TIMEOUT_SEC", 60)) * time.Second,
		ExtractConcurrency: int64(getEnvInt("EXTRACT_CONCURRENCY", 4)),
		CleanupDefaultDays: getEnvInt("CLEANUP_DEFAULT_DAYS", 30),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config %s invalid float %q, using %v", key, raw, def)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
