// Package storage provides the object storage abstraction behind the dataset hub.
package storage

import (
	"context"

	apperrors "github.com/tabloader/tabloader/internal/errors"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = apperrors.NewStorageError(apperrors.CodeObjectNotFound, "object not found", nil)
	ErrUploadFailed   = apperrors.NewStorageError(apperrors.CodeUploadFailed, "upload failed", nil)
	ErrDownloadFailed = apperrors.NewStorageError(apperrors.CodeDownloadFailed, "download failed", nil)
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	// Path is the slash-separated object path
	Path string
	// Size is the object size in bytes
	Size int64
}

// ObjectStorage abstracts object storage operations.
// Implementations are S3 and the local filesystem.
type ObjectStorage interface {
	// Upload uploads a local file to objectPath.
	Upload(ctx context.Context, localPath, objectPath string) error

	// Download downloads objectPath to localPath, creating parent directories.
	// The destination is written atomically.
	Download(ctx context.Context, objectPath, localPath string) error

	// Exists checks if an object exists in storage.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ListObjects returns every object under the given prefix.
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
