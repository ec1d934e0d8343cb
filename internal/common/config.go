package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Model   ModelConfig
	Paths   PathsConfig
	Storage StorageConfig
	Tasks   TasksConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string
}

// ModelConfig holds the external model configuration
type ModelConfig struct {
	Backend    string // "cli" or "tesseract"
	Bin        string // model binary for the cli backend
	ConfigPath string // model config file handed to the binary
}

// PathsConfig holds the filesystem layout
type PathsConfig struct {
	TempDir    string // per-job staging and output directories
	ArchiveDir string // downloadable archives, served statically
	LogDir     string // operational logs drained to object storage
	LogArchive string // zip path the log bundle is built at
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
}

// TasksConfig holds worker pool configuration
type TasksConfig struct {
	Workers      int
	QueueSize    int
	Timeout      time.Duration
	UniqueSuffix bool // add a random suffix to archive names
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: getEnv("ADDR", ":7860"),
		},
		Model: ModelConfig{
			Backend:    getEnv("MODEL_BACKEND", "cli"),
			Bin:        getEnv("MODEL_BIN", "ocr-model"),
			ConfigPath: getEnv("MODEL_CONFIG_PATH", ""),
		},
		Paths: PathsConfig{
			TempDir:    getEnv("TEMP_DIR", "./tmp"),
			ArchiveDir: getEnv("ARCHIVE_DIR", "./archives"),
			LogDir:     getEnv("LOG_FOLDER_PATH", "./logs"),
			LogArchive: getEnv("OUTPUT_ZIP_FILE_PATH", "./logs.zip"),
		},
		Storage: StorageConfig{
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Bucket:          getEnv("AWS_S3_BUCKET_NAME", ""),
		},
		Tasks: TasksConfig{
			Workers:      getEnvAsInt("TASK_WORKERS", 2),
			QueueSize:    getEnvAsInt("TASK_QUEUE_SIZE", 256),
			Timeout:      getEnvAsDuration("TASK_TIMEOUT", 10*time.Minute),
			UniqueSuffix: getEnvAsBool("ARCHIVE_UNIQUE_SUFFIX", false),
		},
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Model.Backend == "cli" && c.Model.ConfigPath == "" {
		return NewAppError("CONFIG_ERROR", "MODEL_CONFIG_PATH is required for the cli backend", nil)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "ADDR is required", nil)
	}
	if c.Tasks.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "TASK_WORKERS must be positive", nil)
	}
	return nil
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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
