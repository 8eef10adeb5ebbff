package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	TypePNG      = "image/png"
	TypeJPEG     = "image/jpeg"
	TypeWebP     = "image/webp"
	TypePDF      = "application/pdf"
	TypeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	TypeMarkdown = "text/markdown"
	TypePlain    = "text/plain"
)

// DefaultMaxImagePixels bounds the pixel count of any decoded or resized image
const DefaultMaxImagePixels = 89_478_485

// DefaultAllowedTypes maps each accepted content type to the file extensions
// a client may label it with.
func DefaultAllowedTypes() map[string][]string {
	return map[string][]string{
		TypePNG:      {".png"},
		TypeJPEG:     {".jpg", ".jpeg"},
		TypeWebP:     {".webp"},
		TypePDF:      {".pdf"},
		TypeDOCX:     {".docx"},
		TypeMarkdown: {".md"},
		TypePlain:    {".md"},
	}
}

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Upload  UploadConfig
	Store   StoreConfig
	Sweep   SweepConfig
	Render  RenderConfig
	Limit   LimitConfig
	Logging LoggingConfig
	Sentry  SentryConfig
}

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

type UploadConfig struct {
	MaxSize      int64
	AllowedTypes map[string][]string
}

// StoreConfig selects and configures the object store backend.
// Backend is one of: s3, gcs, sftp, pebble, fs, memory.
type StoreConfig struct {
	Backend         string
	OriginalPrefix  string
	ConvertedPrefix string

	Bucket    string
	Region    string
	Endpoint  string // S3-compatible endpoint override (R2, MinIO)
	AccessKey string
	SecretKey string

	GCSCredentialsJSON string

	SFTPHost       string
	SFTPPort       string
	SFTPUser       string
	SFTPPassword   string
	SFTPPrivateKey string
	SFTPRoot       string
}

type SweepConfig struct {
	Retention time.Duration
	Interval  time.Duration
}

type RenderConfig struct {
	Timeout     time.Duration
	PDFRenderer string // HTML -> PDF command
	Office      string // office document -> PDF command
	PDFText     string // PDF -> text command
	MaxPixels   int64  // width*height ceiling for decoded and resized images
}

type LimitConfig struct {
	RequestsPerMinute int
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
}

type LoggingConfig struct {
	Level string
	File  string
}

type SentryConfig struct {
	DSN         string
	Environment string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Addr:         getEnv("FILECONV_ADDR", ":8080"),
			ReadTimeout:  getEnvAsDuration("FILECONV_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("FILECONV_WRITE_TIMEOUT", 120*time.Second),
			CORSOrigins:  getEnvAsList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		},
		Upload: UploadConfig{
			MaxSize:      getEnvAsInt64("FILECONV_MAX_UPLOAD_BYTES", 50<<20),
			AllowedTypes: DefaultAllowedTypes(),
		},
		Store: StoreConfig{
			Backend:            getEnv("FILECONV_STORE", "s3"),
			OriginalPrefix:     getEnv("FILECONV_ORIGINAL_PREFIX", "uploads"),
			ConvertedPrefix:    getEnv("FILECONV_CONVERTED_PREFIX", "converted"),
			Bucket:             getEnv("S3_BUCKET", "file-converter-bucket"),
			Region:             getEnv("AWS_REGION", "us-east-1"),
			Endpoint:           getEnv("S3_ENDPOINT", ""),
			AccessKey:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey:          getEnv("AWS_SECRET_ACCESS_KEY", ""),
			GCSCredentialsJSON: getEnv("GCS_CREDENTIALS_JSON", ""),
			SFTPHost:           getEnv("SFTP_HOST", ""),
			SFTPPort:           getEnv("SFTP_PORT", "22"),
			SFTPUser:           getEnv("SFTP_USER", ""),
			SFTPPassword:       getEnv("SFTP_PASSWORD", ""),
			SFTPPrivateKey:     getEnv("SFTP_PRIVATE_KEY", ""),
			SFTPRoot:           getEnv("SFTP_ROOT", "/fileconv"),
		},
		Sweep: SweepConfig{
			Retention: getEnvAsDuration("FILECONV_RETENTION", time.Hour),
			Interval:  getEnvAsDuration("FILECONV_SWEEP_INTERVAL", 15*time.Minute),
		},
		Render: RenderConfig{
			Timeout:     getEnvAsDuration("FILECONV_RENDER_TIMEOUT", 60*time.Second),
			PDFRenderer: getEnv("FILECONV_PDF_RENDERER", "weasyprint"),
			Office:      getEnv("FILECONV_OFFICE_RENDERER", "libreoffice"),
			PDFText:     getEnv("FILECONV_PDF_TEXT", "pdftotext"),
			MaxPixels:   getEnvAsInt64("FILECONV_MAX_IMAGE_PIXELS", DefaultMaxImagePixels),
		},
		Limit: LimitConfig{
			RequestsPerMinute: getEnvAsInt("FILECONV_RATE_PER_MINUTE", 10),
			RedisAddr:         getEnv("REDIS_ADDR", ""),
			RedisPassword:     getEnv("REDIS_PASSWORD", ""),
			RedisDB:           getEnvAsInt("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level: getEnv("FILECONV_LOG_LEVEL", "info"),
			File:  getEnv("FILECONV_LOG_FILE", ""),
		},
		Sentry: SentryConfig{
			DSN:         getEnv("SENTRY_DSN", ""),
			Environment: getEnv("SENTRY_ENVIRONMENT", "development"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
