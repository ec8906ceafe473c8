package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
	"github.com/Hrideshsrivastava/audit-bridge/internal/storage"
)

// Storage implements ObjectStorage on the local filesystem. Used for local
// development and tests.
type Storage struct {
	baseDir string
	baseURL string
	logger  observability.Logger
	metrics observability.Metrics
}

func New(baseDir, baseURL string, logger observability.Logger, metrics observability.Metrics) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		logger.Error("Failed to create base directory", "path", baseDir, "error", err)
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	logger.Info("Filesystem storage initialized", "base_dir", baseDir)

	return &Storage{
		baseDir: baseDir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger.WithFields(map[string]interface{}{"component": "filesystem_storage"}),
		metrics: metrics,
	}, nil
}

// Put stores an object and returns its public URL.
func (s *Storage) Put(ctx context.Context, key string, reader io.Reader, metadata storage.ObjectMetadata) (string, error) {
	objectPath := s.objectPath(key)

	if err := os.MkdirAll(filepath.Dir(objectPath), 0o755); err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "mkdir"})
		return "", fmt.Errorf("create object directory: %w", err)
	}

	file, err := os.Create(objectPath)
	if err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "create"})
		return "", fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	bytesWritten, err := io.Copy(file, reader)
	if err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "write"})
		return "", fmt.Errorf("write data: %w", err)
	}

	s.logger.Info("Object stored", "key", key, "bytes", bytesWritten)
	s.metrics.IncrementCounter("storage.put.success", nil)
	s.metrics.RecordHistogram("storage.put.bytes", float64(bytesWritten), nil)

	return s.baseURL + "/" + key, nil
}

// Get retrieves an object.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(s.objectPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			s.metrics.IncrementCounter("storage.get.errors", map[string]string{"error": "not_found"})
			return nil, storage.ErrObjectNotFound
		}
		s.metrics.IncrementCounter("storage.get.errors", map[string]string{"error": "open"})
		return nil, fmt.Errorf("open file: %w", err)
	}
	return file, nil
}

// Delete removes an object.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.objectPath(key)); err != nil && !os.IsNotExist(err) {
		s.metrics.IncrementCounter("storage.delete.errors", nil)
		return fmt.Errorf("delete object: %w", err)
	}
	s.metrics.IncrementCounter("storage.delete.success", nil)
	return nil
}

// Exists checks whether an object exists.
func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.objectPath(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat object: %w", err)
}

// objectPath maps a key to a path under baseDir, guarding against
// directory traversal.
func (s *Storage) objectPath(key string) string {
	key = strings.TrimPrefix(key, "/")
	key = filepath.FromSlash(key)
	return filepath.Join(s.baseDir, filepath.Clean(key))
}
