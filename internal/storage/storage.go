package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStorage captures the object-store operations realms rely on.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	PutObject(ctx context.Context, key string, r io.Reader, size int64) (int64, error)
	DownloadObject(ctx context.Context, key string, destPath string) (int64, error)
}
