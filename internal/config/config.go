package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration, read from environment
// variables with sensible defaults. A .env file in the working directory
// is loaded first when present.
//
// Environment Variables:
//
// Translation Services:
//   - GEMINI_API_KEY: Gemini API key (optional, enables the gemini service)
//   - GEMINI_MODEL: Gemini model name (default: gemini-2.0-flash)
//   - DEEPL_API_KEY: DeepL API key (optional, enables the deepl service)
//   - YANDEX_API_KEY: Yandex Cloud API token (optional, enables the yandex service)
//   - CONTEXT_WINDOW_SIZE: prior translated lines fed back as context (default: 5)
//   - USE_CONTEXT_PRESERVATION: default for jobs that do not choose (default: true)
//
// Server:
//   - PORT: HTTP listen port (default: 5000)
//   - LOG_LEVEL: debug, info, warn, error or fatal (default: info)
//
// Storage:
//   - UPLOAD_DIR: upload directory (default: uploads)
//   - OUTPUT_DIR: output directory (default: outputs)
//   - DB_PATH: SQLite job store path (default: data/jobs.db)
//   - MAX_FILES_PER_BATCH: files accepted per upload (default: 20)
//   - MAX_FILE_SIZE_MB: per-file size limit (default: 1)
//
// Jobs:
//   - JOB_WORKERS: queue worker count (default: 2)
//   - FILE_CONCURRENCY: files translated in parallel within one job (default: 1)
//   - CLEANUP_CRON_EXPR: schedule for expired-job cleanup (default: "0 3 * * *")
//   - JOB_TTL_HOURS: completed-job retention before cleanup (default: 24)
type Config struct {
	Server    ServerConfig    `json:"server"`
	Translate TranslateConfig `json:"translate"`
	Storage   StorageConfig   `json:"storage"`
	Jobs      JobsConfig      `json:"jobs"`
	LogLevel  string          `json:"log_level"`
}

type ServerConfig struct {
	Port int `json:"port"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

type TranslateConfig struct {
	GeminiAPIKey           string `json:"gemini_api_key"`
	GeminiModel            string `json:"gemini_model"`
	DeepLAPIKey            string `json:"deepl_api_key"`
	YandexAPIKey           string `json:"yandex_api_key"`
	ContextWindowSize      int    `json:"context_window_size"`
	UseContextPreservation bool   `json:"use_context_preservation"`
}

type StorageConfig struct {
	UploadDir        string `json:"upload_dir"`
	OutputDir        string `json:"output_dir"`
	DBPath           string `json:"db_path"`
	MaxFilesPerBatch int    `json:"max_files_per_batch"`
	MaxFileSizeMB    int    `json:"max_file_size_mb"`
}

type JobsConfig struct {
	Workers         int    `json:"workers"`
	FileConcurrency int    `json:"file_concurrency"`
	CleanupCronExpr string `json:"cleanup_cron_expr"`
	JobTTLHours     int    `json:"job_ttl_hours"`
}

// Option is a function type for customizing Config after env loading.
type Option func(*Config)

// NewFromEnv creates a Config from environment variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	// Missing .env is fine; real deployments configure the environment directly.
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnvInt("PORT", 5000),
		},
		Translate: TranslateConfig{
			GeminiAPIKey:           getEnvString("GEMINI_API_KEY", ""),
			GeminiModel:            getEnvString("GEMINI_MODEL", ""),
			DeepLAPIKey:            getEnvString("DEEPL_API_KEY", ""),
			YandexAPIKey:           getEnvString("YANDEX_API_KEY", ""),
			ContextWindowSize:      getEnvInt("CONTEXT_WINDOW_SIZE", 5),
			UseContextPreservation: getEnvBool("USE_CONTEXT_PRESERVATION", true),
		},
		Storage: StorageConfig{
			UploadDir:        getEnvString("UPLOAD_DIR", "uploads"),
			OutputDir:        getEnvString("OUTPUT_DIR", "outputs"),
			DBPath:           getEnvString("DB_PATH", "data/jobs.db"),
			MaxFilesPerBatch: getEnvInt("MAX_FILES_PER_BATCH", 20),
			MaxFileSizeMB:    getEnvInt("MAX_FILE_SIZE_MB", 1),
		},
		Jobs: JobsConfig{
			Workers:         getEnvInt("JOB_WORKERS", 2),
			FileConcurrency: getEnvInt("FILE_CONCURRENCY", 1),
			CleanupCronExpr: getEnvString("CLEANUP_CRON_EXPR", "0 3 * * *"),
			JobTTLHours:     getEnvInt("JOB_TTL_HOURS", 24),
		},
		LogLevel: getEnvString("LOG_LEVEL", "info"),
	}

	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be a valid TCP port, got %d", c.Server.Port)
	}
	if c.Storage.MaxFilesPerBatch <= 0 {
		return fmt.Errorf("MAX_FILES_PER_BATCH must be positive")
	}
	if c.Storage.MaxFileSizeMB <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be positive")
	}
	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("JOB_WORKERS must be positive")
	}
	if c.Jobs.FileConcurrency <= 0 {
		return fmt.Errorf("FILE_CONCURRENCY must be positive")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
