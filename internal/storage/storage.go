package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned when the requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectMetadata describes an object being stored.
type ObjectMetadata struct {
	ContentType string
	Size        int64
}

// ObjectStorage stores uploaded document files. Put returns the public URL
// the stored object is reachable at; that URL is what gets persisted on the
// document row.
type ObjectStorage interface {
	Put(ctx context.Context, key string, reader io.Reader, metadata ObjectMetadata) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
