package config

import (
	"fmt"
)

// Validate checks that the configuration is complete enough to start.
func (c *Config) Validate() error {
	var errs []string

	if c.Auth.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}
	if c.Database.Host == "" {
		errs = append(errs, "DB_HOST is required")
	}
	if c.Database.Database == "" {
		errs = append(errs, "DB_NAME is required")
	}

	switch c.Adapters.Storage {
	case "s3":
		if c.Storage.Bucket == "" {
			errs = append(errs, "STORAGE_BUCKET is required for the s3 adapter")
		}
	case "filesystem":
		if c.Storage.LocalDir == "" {
			errs = append(errs, "STORAGE_LOCAL_DIR is required for the filesystem adapter")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown storage adapter %q", c.Adapters.Storage))
	}

	switch c.Adapters.Queue {
	case "rabbitmq":
		if c.Queue.RabbitMQ.URL == "" {
			errs = append(errs, "RABBITMQ_URL is required for the rabbitmq adapter")
		}
	case "sqs":
		if c.Queue.SQS.Region == "" {
			errs = append(errs, "SQS_REGION is required for the sqs adapter")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown queue adapter %q", c.Adapters.Queue))
	}

	// Mail delivery is best-effort, but production must be able to send.
	if c.Environment == "production" {
		if c.Mailer.APIKey == "" {
			errs = append(errs, "BREVO_API_KEY is required in production")
		}
		if c.Mailer.SenderEmail == "" {
			errs = append(errs, "MAIL_SENDER_EMAIL is required in production")
		}
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, "RETRY_MAX_ATTEMPTS must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d configuration error(s): %v", len(errs), errs)
	}
	return nil
}
