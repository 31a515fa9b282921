// Package storage moves run inputs and outputs between the local filesystem
// and object storage.
package storage

import (
	"context"

	tgerrors "github.com/txnguard/txnguard/internal/errors"
)

// ErrObjectNotFound matches any storage error with code OBJECT_NOT_FOUND.
var ErrObjectNotFound = tgerrors.New(tgerrors.ErrCategoryStorage, tgerrors.CodeObjectNotFound, "object not found")

// ObjectStorage abstracts object storage operations.
// Implementations are S3 and the local filesystem.
type ObjectStorage interface {
	// Upload copies localPath to objectKey and returns the object's ETag.
	Upload(ctx context.Context, localPath, objectKey string) (string, error)

	// Download copies objectKey to localPath, creating parent directories.
	Download(ctx context.Context, objectKey, localPath string) error

	// Exists reports whether an object exists.
	Exists(ctx context.Context, objectKey string) (bool, error)
}

// NotFound returns an ErrObjectNotFound error carrying objectKey.
func NotFound(objectKey string) error {
	return ErrObjectNotFound.WithDetails(map[string]interface{}{"object_key": objectKey})
}

func uploadFailed(objectKey string, cause error) error {
	return tgerrors.NewStorageError(tgerrors.CodeUploadFailed, "upload of "+objectKey+" failed", cause)
}

func downloadFailed(objectKey string, cause error) error {
	return tgerrors.NewStorageError(tgerrors.CodeDownloadFailed, "download of "+objectKey+" failed", cause)
}
