package model

import (
	"context"
	"io"
)

// Storage is a blob store for user uploads.
type Storage interface {
	// Upload stores the object under key and returns its public URL.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// KeyFromURL maps a URL returned by Upload back to its object key.
	KeyFromURL(url string) (string, bool)
}
