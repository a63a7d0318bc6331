// Package storage holds the blob backends for uploaded files. Keys are
// flat names chosen by the server, never client-supplied paths.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// BlobStore is a put/get/delete-by-key object store.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get returns xerrors.ErrNotFound for a missing key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

func validKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid blob key %q", key)
	}
	return nil
}
