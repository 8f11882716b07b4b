package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("object not found")

// ObjectStore holds uploaded media and generated report files.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}
