// Package blob provides opaque byte-payload storage addressed by
// store-assigned ids. Backends: GridFS (default), MinIO, and an in-memory
// store for tests.
package blob

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// ErrNotFound covers both absent and malformed ids; callers cannot tell
// the two apart.
var ErrNotFound = errors.New("blob not found")

// Blob is a stored payload with its upload hints.
type Blob struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Store is the blob capability: put bytes, get them back, best-effort
// delete. Two entries exist per media-bearing post (original + thumbnail)
// with no cross-reference between them.
type Store interface {
	Put(ctx context.Context, data []byte, filename, contentType string) (string, error)
	Get(ctx context.Context, id string) (Blob, error)
	Delete(ctx context.Context, id string) error
}

func newKey() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
