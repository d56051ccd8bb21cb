package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Detectors DetectorsConfig `json:"detectors"`
	Upload    UploadConfig    `json:"upload"`
	Security  SecurityConfig  `json:"security"`
	Redis     RedisConfig     `json:"redis"`
	Logging   LoggingConfig   `json:"logging"`
	Analysis  Tunables        `json:"analysis"`
}

type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Environment  string        `json:"environment"`
}

// DetectorsConfig points at the model-serving sidecars. An empty base URL
// marks that capability as unavailable; the pipeline degrades per capability
// instead of failing.
type DetectorsConfig struct {
	ObjectURL   string        `json:"object_url"`
	LandmarkURL string        `json:"landmark_url"`
	OCRURL      string        `json:"ocr_url"`
	EntityURL   string        `json:"entity_url"`
	Timeout     time.Duration `json:"timeout"`
	MaxRetries  int           `json:"max_retries"`
	RetryDelay  time.Duration `json:"retry_delay"`
}

type UploadConfig struct {
	Dir             string   `json:"dir"`
	MaxSize         int64    `json:"max_size"`
	ImageExtensions []string `json:"image_extensions"`
	VideoExtensions []string `json:"video_extensions"`
}

type SecurityConfig struct {
	AllowedOrigins []string      `json:"allowed_origins"`
	RateLimitRPS   int           `json:"rate_limit_rps"`
	RateLimitBurst int           `json:"rate_limit_burst"`
	RequestTimeout time.Duration `json:"request_timeout"`
	EnableHTTPS    bool          `json:"enable_https"`
	CertFile       string        `json:"cert_file"`
	KeyFile        string        `json:"key_file"`
}

type RedisConfig struct {
	URL string        `json:"url"`
	TTL time.Duration `json:"ttl"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

func LoadConfig() *Config {
	config := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 60*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			Environment:  getEnv("ENVIRONMENT", "development"),
		},
		Detectors: DetectorsConfig{
			ObjectURL:   getEnv("DETECTOR_OBJECT_URL", ""),
			LandmarkURL: getEnv("DETECTOR_LANDMARK_URL", ""),
			OCRURL:      getEnv("DETECTOR_OCR_URL", ""),
			EntityURL:   getEnv("DETECTOR_ENTITY_URL", ""),
			Timeout:     getEnvAsDuration("DETECTOR_TIMEOUT", 30*time.Second),
			MaxRetries:  getEnvAsInt("DETECTOR_MAX_RETRIES", 2),
			RetryDelay:  getEnvAsDuration("DETECTOR_RETRY_DELAY", 500*time.Millisecond),
		},
		Upload: UploadConfig{
			Dir:             getEnv("UPLOAD_DIR", "uploads"),
			MaxSize:         getEnvAsInt64("MAX_UPLOAD_SIZE", 500*1024*1024), // 500MB
			ImageExtensions: getEnvAsStringSlice("IMAGE_EXTENSIONS", []string{"jpg", "jpeg", "png", "gif", "bmp", "webp"}),
			VideoExtensions: getEnvAsStringSlice("VIDEO_EXTENSIONS", []string{"mp4", "avi", "mov", "mkv"}),
		},
		Security: SecurityConfig{
			AllowedOrigins: getEnvAsStringSlice("ALLOWED_ORIGINS", []string{"*"}),
			RateLimitRPS:   getEnvAsInt("RATE_LIMIT_RPS", 50),
			RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 100),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 120*time.Second),
			EnableHTTPS:    getEnvAsBool("ENABLE_HTTPS", false),
			CertFile:       getEnv("CERT_FILE", ""),
			KeyFile:        getEnv("KEY_FILE", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
			TTL: getEnvAsDuration("REDIS_TTL", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Analysis: DefaultTunables(),
	}

	if path := getEnv("TUNABLES_FILE", ""); path != "" {
		if err := config.Analysis.LoadFile(path); err != nil {
			// Keep defaults; validation will surface anything broken.
			fmt.Fprintf(os.Stderr, "tunables file %s ignored: %v\n", path, err)
		}
	}

	return config
}

func (c *Config) ValidateConfig(logger *zap.Logger) error {
	var errors []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "server port must be between 1 and 65535")
	}

	if c.Upload.MaxSize <= 0 {
		errors = append(errors, "max upload size must be positive")
	}

	if c.Upload.Dir == "" {
		errors = append(errors, "upload directory is required")
	}

	if c.Detectors.ObjectURL == "" && c.Detectors.LandmarkURL == "" && c.Detectors.OCRURL == "" {
		logger.Warn("No detector URLs configured, analysis will report metadata signals only")
	}

	if err := c.Analysis.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, ", "))
	}

	return nil
}

// AllowedExtensions is the full upload allow-list (images + videos).
func (c *Config) AllowedExtensions() []string {
	out := make([]string, 0, len(c.Upload.ImageExtensions)+len(c.Upload.VideoExtensions))
	out = append(out, c.Upload.ImageExtensions...)
	out = append(out, c.Upload.VideoExtensions...)
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
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

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
