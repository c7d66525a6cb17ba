// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct. It is constructed
// once at startup and injected into each component; nothing reads it
// through a process-wide global.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	HTTP          HTTPConfig         `mapstructure:"http"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Storage       StorageConfig      `mapstructure:"storage"`
	OCR           OCRConfig          `mapstructure:"ocr"`
	Queue         QueueConfig        `mapstructure:"queue"`
	Window        WindowConfig       `mapstructure:"window"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Address     string `mapstructure:"address"`
	MetricsAddr string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig holds the object store settings for form images.
type StorageConfig struct {
	Region           string `mapstructure:"region"`
	Bucket           string `mapstructure:"bucket"`
	PresignTTL       int    `mapstructure:"presign_ttl"`       // seconds
	OperationTimeout int    `mapstructure:"operation_timeout"` // milliseconds
}

// OCRConfig controls extraction mode and confidence policy for the OCR
// collaborator. Experiment percentages partition a per-request draw; they
// are intentionally not validated to sum to 100 or less (see selector).
type OCRConfig struct {
	Mode       string               `mapstructure:"mode"`    // hybrid, queries, coordinate
	Timeout    int                  `mapstructure:"timeout"` // milliseconds
	Experiment ExperimentConfig     `mapstructure:"experiment"`
	Thresholds ConfidenceThresholds `mapstructure:"thresholds"`
}

type ExperimentConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	QueriesPercent    int  `mapstructure:"queries_percent"`
	CoordinatePercent int  `mapstructure:"coordinate_percent"`
}

type ConfidenceThresholds struct {
	QueryMin       int `mapstructure:"query_min"`
	CoordinateMin  int `mapstructure:"coordinate_min"`
	Review         int `mapstructure:"review"`
	HighConfidence int `mapstructure:"high_confidence"`
}

// QueueConfig holds durable job queue settings.
type QueueConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	MaxAttempts int `mapstructure:"max_attempts"`
	BackoffBase int `mapstructure:"backoff_base"` // milliseconds
}

// WindowConfig holds application window cache and scheduler settings.
type WindowConfig struct {
	CacheTTL int    `mapstructure:"cache_ttl"` // milliseconds
	CronSpec string `mapstructure:"cron_spec"`
}

// NotificationConfig holds settings for the fire-and-forget notification sink.
type NotificationConfig struct {
	AWSRegion string `mapstructure:"aws_region"`
	Email     struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
