package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Hrideshsrivastava/audit-bridge/internal/config"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
	"github.com/Hrideshsrivastava/audit-bridge/internal/storage"
)

// client implements ObjectStorage for AWS S3 and S3-compatible services.
type client struct {
	s3Client *awss3.Client
	cfg      *config.StorageConfig
	logger   observability.Logger
	metrics  observability.Metrics
}

// New creates an S3 storage client and verifies the configured bucket exists,
// creating it if necessary.
func New(cfg *config.StorageConfig, logger observability.Logger, metrics observability.Metrics) (storage.ObjectStorage, error) {
	awsCfg, err := buildAWSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build AWS config: %w", err)
	}

	s3Client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
		o.UsePathStyle = true
	})

	c := &client{
		s3Client: s3Client,
		cfg:      cfg,
		logger:   logger.WithFields(map[string]interface{}{"component": "s3_storage"}),
		metrics:  metrics,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.ensureBucketExists(ctx); err != nil {
		logger.Error("Failed to verify bucket existence", "error", err, "bucket", cfg.Bucket)
		return nil, fmt.Errorf("verify bucket existence: %w", err)
	}

	logger.Info("S3 client initialized", "bucket", cfg.Bucket, "region", cfg.S3.Region)
	return c, nil
}

// Put stores an object and returns its public URL.
func (c *client) Put(ctx context.Context, key string, reader io.Reader, metadata storage.ObjectMetadata) (string, error) {
	start := time.Now()

	buf := &bytes.Buffer{}
	bytesRead, err := io.Copy(buf, reader)
	if err != nil {
		c.logger.Error("Failed to read content", "error", err, "key", key)
		c.metrics.IncrementCounter("s3.put.errors", map[string]string{"error_type": "read_error"})
		return "", fmt.Errorf("read content: %w", err)
	}

	input := &awss3.PutObjectInput{
		Bucket:      aws.String(c.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(metadata.ContentType),
	}

	if _, err := c.s3Client.PutObject(ctx, input); err != nil {
		c.logger.Error("Failed to put object", "error", err, "key", key)
		c.metrics.IncrementCounter("s3.put.errors", map[string]string{"error_type": "s3_error"})
		return "", fmt.Errorf("put object: %w", err)
	}

	duration := time.Since(start)
	c.logger.Info("Object stored",
		"key", key,
		"size_bytes", bytesRead,
		"duration_ms", duration.Milliseconds())

	c.metrics.IncrementCounter("s3.put.success", nil)
	c.metrics.RecordHistogram("s3.put.duration", float64(duration.Milliseconds()), nil)
	c.metrics.RecordHistogram("s3.put.size", float64(bytesRead), nil)

	return c.publicURL(key), nil
}

// Get retrieves an object.
func (c *client) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	input := &awss3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	}

	result, err := c.s3Client.GetObject(ctx, input)
	if err != nil {
		if isNotFoundError(err) {
			c.metrics.IncrementCounter("s3.get.not_found", nil)
			return nil, storage.ErrObjectNotFound
		}
		c.logger.Error("Failed to get object", "error", err, "key", key)
		c.metrics.IncrementCounter("s3.get.errors", nil)
		return nil, fmt.Errorf("get object: %w", err)
	}

	c.metrics.IncrementCounter("s3.get.success", nil)
	return result.Body, nil
}

// Delete removes an object.
func (c *client) Delete(ctx context.Context, key string) error {
	input := &awss3.DeleteObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	}

	if _, err := c.s3Client.DeleteObject(ctx, input); err != nil {
		c.logger.Error("Failed to delete object", "error", err, "key", key)
		c.metrics.IncrementCounter("s3.delete.errors", nil)
		return fmt.Errorf("delete object: %w", err)
	}

	c.metrics.IncrementCounter("s3.delete.success", nil)
	return nil
}

// Exists checks whether an object exists.
func (c *client) Exists(ctx context.Context, key string) (bool, error) {
	input := &awss3.HeadObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	}

	if _, err := c.s3Client.HeadObject(ctx, input); err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		c.logger.Error("Failed to check object existence", "error", err, "key", key)
		c.metrics.IncrementCounter("s3.exists.errors", nil)
		return false, fmt.Errorf("check object existence: %w", err)
	}

	return true, nil
}

func (c *client) publicURL(key string) string {
	if c.cfg.BaseURL != "" {
		return strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.cfg.Bucket, c.cfg.S3.Region, key)
}

func (c *client) ensureBucketExists(ctx context.Context) error {
	_, err := c.s3Client.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(c.cfg.Bucket),
	})
	if err != nil {
		var nse *s3types.NotFound
		if errors.As(err, &nse) {
			c.logger.Info("Bucket does not exist, attempting to create", "bucket", c.cfg.Bucket)
			return c.createBucket(ctx)
		}
		return fmt.Errorf("check bucket existence: %w", err)
	}
	return nil
}

func (c *client) createBucket(ctx context.Context) error {
	input := &awss3.CreateBucketInput{
		Bucket: aws.String(c.cfg.Bucket),
	}

	if c.cfg.S3.Region != "" && c.cfg.S3.Region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(c.cfg.S3.Region),
		}
	}

	if _, err := c.s3Client.CreateBucket(ctx, input); err != nil {
		var bae *s3types.BucketAlreadyExists
		var baoyb *s3types.BucketAlreadyOwnedByYou
		if errors.As(err, &bae) || errors.As(err, &baoyb) {
			return nil
		}
		c.logger.Error("Failed to create bucket", "error", err, "bucket", c.cfg.Bucket)
		return fmt.Errorf("create bucket: %w", err)
	}

	c.logger.Info("Bucket created", "bucket", c.cfg.Bucket)
	return nil
}

func buildAWSConfig(cfg *config.StorageConfig) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error

	if cfg.S3.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.S3.Region))
	}

	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.S3.AccessKeyID,
				cfg.S3.SecretAccessKey,
				"",
			),
		))
	}

	optFns = append(optFns, awsconfig.WithRetryMaxAttempts(cfg.MaxRetries))
	optFns = append(optFns, awsconfig.WithHTTPClient(&http.Client{
		Timeout: cfg.Timeout,
	}))

	return awsconfig.LoadDefaultConfig(context.Background(), optFns...)
}

func isNotFoundError(err error) bool {
	var nsk *s3types.NoSuchKey
	var nse *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nse)
}
