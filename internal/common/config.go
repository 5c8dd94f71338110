package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Extraction ExtractionConfig
	OCR        OCRConfig
	LLM        LLMConfig
	Database   DatabaseConfig
	Server     ServerConfig
	Log        LogConfig
}

// ExtractionConfig holds field-extraction tuning knobs
type ExtractionConfig struct {
	MinModelTextLength int
	ModelExcerptChars  int
	MaxPDFPages        int
	DateOrder          string // DMY | MDY
	ProvidersFile      string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Backend        string // tesseract | azure | none
	Tesseract      string
	Pdftoppm       string
	TesseractLang  string
	TessdataDir    string
	PSM            int
	HeicConverter  string
	Preprocess     bool
	AzureEndpoint  string
	AzureKey       string
	Timeout        time.Duration
	MaxImagePixels int
}

// LLMConfig holds completion-service configuration
type LLMConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float32
	Timeout           time.Duration
	MaxTokens         int
	RequestsPerSecond float64
}

// Enabled reports whether an external completion service is configured.
func (c LLMConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// DatabaseConfig holds run-log storage configuration
type DatabaseConfig struct {
	Driver          string // postgres | sqlite | "" (disabled)
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds listener configuration
type ServerConfig struct {
	HTTPAddr    string
	GRPCAddr    string
	MaxUploadMB int
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// LoadConfig loads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment values win.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not read .env: %v\n", err)
	}
	return &Config{
		Extraction: ExtractionConfig{
			MinModelTextLength: getEnvAsInt("EXTRACT_MIN_MODEL_TEXT", 50),
			ModelExcerptChars:  getEnvAsInt("EXTRACT_MODEL_EXCERPT_CHARS", 3000),
			MaxPDFPages:        getEnvAsInt("EXTRACT_MAX_PDF_PAGES", 3),
			DateOrder:          strings.ToUpper(getEnv("EXTRACT_DATE_ORDER", "DMY")),
			ProvidersFile:      getEnv("EXTRACT_PROVIDERS_FILE", ""),
		},
		OCR: OCRConfig{
			Backend:        strings.ToLower(getEnv("OCR_BACKEND", "tesseract")),
			Tesseract:      getEnv("TESSERACT_BIN", "tesseract"),
			Pdftoppm:       getEnv("PDFTOPPM_BIN", "pdftoppm"),
			TesseractLang:  getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:    getEnv("TESSDATA_PREFIX", ""),
			PSM:            getEnvAsInt("TESSERACT_PSM", 6),
			HeicConverter:  getEnv("HEIC_CONVERTER", "magick"),
			Preprocess:     getEnvAsBool("OCR_PREPROCESS", true),
			AzureEndpoint:  getEnv("AZURE_VISION_ENDPOINT", ""),
			AzureKey:       getEnv("AZURE_VISION_KEY", ""),
			Timeout:        getEnvAsDuration("OCR_TIMEOUT", 30*time.Second),
			MaxImagePixels: getEnvAsInt("OCR_MAX_IMAGE_SIDE", 2400),
		},
		LLM: LLMConfig{
			APIKey:            getEnv("OPENAI_API_KEY", ""),
			BaseURL:           getEnv("OPENAI_BASE_URL", ""),
			Model:             getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature:       getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:           getEnvAsDuration("OPENAI_TIMEOUT", 20*time.Second),
			MaxTokens:         getEnvAsInt("OPENAI_MAX_TOKENS", 400),
			RequestsPerSecond: getEnvAsFloat64("OPENAI_RPS", 2),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnv("DB_DRIVER", "")),
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:    getEnv("GRPC_ADDR", ":8081"),
			MaxUploadMB: getEnvAsInt("MAX_UPLOAD_MB", 20),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}
}

// Helper functions for environment variable parsing
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Extraction.DateOrder {
	case "DMY", "MDY":
	default:
		return NewAppError("CONFIG_ERROR", "EXTRACT_DATE_ORDER must be DMY or MDY", ErrInvalidInput)
	}
	if c.Extraction.MaxPDFPages <= 0 {
		return NewAppError("CONFIG_ERROR", "EXTRACT_MAX_PDF_PAGES must be positive", ErrInvalidInput)
	}
	switch c.OCR.Backend {
	case "tesseract", "none":
	case "azure":
		if c.OCR.AzureEndpoint == "" || c.OCR.AzureKey == "" {
			return NewAppError("CONFIG_ERROR", "AZURE_VISION_ENDPOINT and AZURE_VISION_KEY are required for OCR_BACKEND=azure", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "OCR_BACKEND must be tesseract, azure or none", ErrInvalidInput)
	}
	switch c.Database.Driver {
	case "":
	case "postgres", "sqlite":
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required when DB_DRIVER is set", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Server.MaxUploadMB <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_UPLOAD_MB must be positive", ErrInvalidInput)
	}
	return nil
}
