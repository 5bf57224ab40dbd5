// Package storage provides object storage backends for metadata
// archives: point-in-time exports of table mapping documents written as
// small JSON objects.
package storage

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound     = errors.New("object not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrPutFailed          = errors.New("put failed")
	ErrGetFailed          = errors.New("get failed")
	ErrDeleteFailed       = errors.New("delete failed")
)

// ObjectStorage abstracts object storage for metadata archives.
// Implementations include S3 and local filesystem for testing. Archive
// objects are small, so the API works on byte slices rather than
// streaming.
type ObjectStorage interface {
	// Put writes an object, replacing any existing object at that path.
	Put(ctx context.Context, objectPath string, data []byte) error

	// Get reads an object. Returns ErrObjectNotFound if it does not
	// exist.
	Get(ctx context.Context, objectPath string) ([]byte, error)

	// Delete removes an object. Deleting a missing object is not an
	// error.
	Delete(ctx context.Context, objectPath string) error

	// Exists checks whether an object exists.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ConditionalPut writes only if the existing object still carries
	// the given ETag, guarding read-modify-write cycles on archive
	// manifests. An empty etag requires that the object not exist yet.
	ConditionalPut(ctx context.Context, objectPath string, data []byte, etag string) error

	// ListObjects returns all object paths under the given prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}
