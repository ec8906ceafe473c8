package factory

import (
	"fmt"

	"github.com/Hrideshsrivastava/audit-bridge/internal/config"
	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
	"github.com/Hrideshsrivastava/audit-bridge/internal/storage"
	"github.com/Hrideshsrivastava/audit-bridge/internal/storage/fs"
	"github.com/Hrideshsrivastava/audit-bridge/internal/storage/s3"
)

// New creates the object storage adapter selected by configuration.
func New(cfg *config.Config, logger observability.Logger, metrics observability.Metrics) (storage.ObjectStorage, error) {
	switch cfg.Adapters.Storage {
	case "s3":
		logger.Info("Creating S3 storage adapter",
			"bucket", cfg.Storage.Bucket,
			"region", cfg.Storage.S3.Region)
		return s3.New(&cfg.Storage, logger, metrics)

	case "filesystem":
		logger.Info("Creating filesystem storage adapter",
			"path", cfg.Storage.LocalDir)
		return fs.New(cfg.Storage.LocalDir, cfg.Storage.BaseURL, logger, metrics)

	default:
		return nil, fmt.Errorf("unsupported storage adapter: %s", cfg.Adapters.Storage)
	}
}
