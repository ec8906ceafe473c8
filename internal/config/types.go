package config

import (
	"time"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string
	LogJSON     bool

	// Adapter selection
	Adapters AdapterConfig

	// Component configurations
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Queue     QueueConfig
	Mailer    MailerConfig
	Scheduler SchedulerConfig
	Retry     RetryConfig
}

// AdapterConfig specifies which implementations to use
type AdapterConfig struct {
	Storage string // "s3", "filesystem"
	Queue   string // "rabbitmq", "sqs"
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	MaxOpenConns int
	MaxIdleConns int
	SSLMode      string
}

// AuthConfig holds token signing and password hashing configuration
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

type StorageConfig struct {
	// Common fields for all storage types
	Bucket     string
	BaseURL    string // public base URL for stored objects
	MaxRetries int
	Timeout    time.Duration

	// Filesystem-specific configuration
	LocalDir string

	// S3-specific configuration
	S3 S3Config
}

// S3Config holds S3-specific configuration
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // For MinIO or S3-compatible services
}

// QueueConfig holds queue configuration
type QueueConfig struct {
	NotificationsQueue string

	// Connection settings based on adapter
	RabbitMQ RabbitMQConfig
	SQS      SQSConfig
}

// RabbitMQConfig - minimal config
type RabbitMQConfig struct {
	URL           string
	Timeout       time.Duration
	PrefetchCount int
}

// SQSConfig - minimal config
type SQSConfig struct {
	Region string
}

// MailerConfig holds transactional email configuration
type MailerConfig struct {
	APIKey      string
	BaseURL     string
	SenderName  string
	SenderEmail string
	Timeout     time.Duration
}

// SchedulerConfig holds the reminder job configuration
type SchedulerConfig struct {
	Enabled  bool
	CronSpec string
}

// RetryConfig controls notification delivery retries
type RetryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}
