package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Logger   LoggerConfig
	Security SecurityConfig
	Analysis AnalysisConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type StorageConfig struct {
	UploadDir      string
	ProcessedDir   string
	MetadataDB     string
	MaxUploadBytes int64
}

type LoggerConfig struct {
	Level  string
	Format string
}

// AnalysisConfig holds the extraction and segmentation heuristics. The
// defaults match the reference sales report; a YAML file named by
// CONFIG_FILE may override any of them.
type AnalysisConfig struct {
	ExpectedTotal     float64           `yaml:"expected_total"`
	ScaleUpBelow      float64           `yaml:"scale_up_below"`
	ScaleUpFactor     float64           `yaml:"scale_up_factor"`
	OutlierCeiling    float64           `yaml:"outlier_ceiling"`
	SegmentThresholds SegmentThresholds `yaml:"segment_thresholds"`
	MaxClusters       int               `yaml:"max_clusters"`
	KMeansRestarts    int               `yaml:"kmeans_restarts"`
	KMeansMaxIter     int               `yaml:"kmeans_max_iter"`
	Seed              uint64            `yaml:"seed"`
	TopN              int               `yaml:"top_n"`
}

type SegmentThresholds struct {
	Premium     float64 `yaml:"premium"`
	HighValue   float64 `yaml:"high_value"`
	MediumValue float64 `yaml:"medium_value"`
}

type fileConfig struct {
	Analysis *AnalysisConfig `yaml:"analysis"`
}

func defaultAnalysis() AnalysisConfig {
	return AnalysisConfig{
		ExpectedTotal:  2_867_497_901,
		ScaleUpBelow:   10_000,
		ScaleUpFactor:  1_000,
		OutlierCeiling: 1_000_000_000,
		SegmentThresholds: SegmentThresholds{
			Premium:     50_000_000,
			HighValue:   10_000_000,
			MediumValue: 1_000_000,
		},
		MaxClusters:    6,
		KMeansRestarts: 10,
		KMeansMaxIter:  300,
		Seed:           42,
		TopN:           10,
	}
}

type SecurityConfig struct {
	EnableCSRF      bool
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			UploadDir:      getEnvString("STORAGE_UPLOAD_DIR", "uploads"),
			ProcessedDir:   getEnvString("STORAGE_PROCESSED_DIR", "processed_data"),
			MetadataDB:     getEnvString("STORAGE_METADATA_DB", "sales_data.db"),
			MaxUploadBytes: int64(getEnvInt("STORAGE_MAX_UPLOAD_BYTES", 16<<20)),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableCSRF:      getEnvBool("SECURITY_CSRF_ENABLED", true),
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
		Analysis: defaultAnalysis(),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Storage.UploadDir == "" || c.Storage.ProcessedDir == "" {
		return fmt.Errorf("upload and processed directories cannot be empty")
	}

	if c.Storage.MetadataDB == "" {
		return fmt.Errorf("metadata database path cannot be empty")
	}

	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return c.Analysis.validate()
}

func (a AnalysisConfig) validate() error {
	if a.ExpectedTotal <= 0 || a.ScaleUpBelow <= 0 || a.ScaleUpFactor <= 0 || a.OutlierCeiling <= 0 {
		return fmt.Errorf("analysis amount heuristics must be positive")
	}

	t := a.SegmentThresholds
	if t.MediumValue <= 0 {
		return fmt.Errorf("segment thresholds must be positive")
	}
	if !(t.MediumValue < t.HighValue && t.HighValue < t.Premium) {
		return fmt.Errorf("segment thresholds must increase: medium %v, high %v, premium %v", t.MediumValue, t.HighValue, t.Premium)
	}

	if a.MaxClusters < 2 {
		return fmt.Errorf("max clusters must be at least 2, got %d", a.MaxClusters)
	}

	if a.KMeansRestarts <= 0 || a.KMeansMaxIter <= 0 {
		return fmt.Errorf("k-means restarts and iterations must be positive")
	}

	if a.TopN <= 0 {
		return fmt.Errorf("top N must be positive")
	}

	return nil
}

// applyFile overlays the analysis section of a YAML file on c. Keys the
// file leaves out keep their current values.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := fileConfig{Analysis: &c.Analysis}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
