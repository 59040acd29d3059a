// Package blob abstracts the durable object store holding raw course PDFs
// and serialized index snapshots. Keys are namespaced per course, e.g.
// "pdfs/SC2107/lecture1.pdf" or "vectorstore/SC2107/index.bin".
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no object exists under the key.
// Callers treat it as a recoverable absence, distinct from I/O failures.
var ErrNotFound = errors.New("blob not found")

// Store is the minimal object-store surface the application needs.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}
