package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage implements ObjectStorage on a directory. It is used for
// development runs and tests.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a local storage rooted at basePath.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Upload copies a file into storage. The ETag is the hex md5 of the content.
func (l *LocalStorage) Upload(ctx context.Context, localPath, objectKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	destPath := l.fullPath(objectKey)
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", uploadFailed(objectKey, err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", uploadFailed(objectKey, err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return "", uploadFailed(objectKey, err)
	}
	defer dst.Close()

	hash := md5.New()
	if _, err := io.Copy(io.MultiWriter(dst, hash), src); err != nil {
		return "", uploadFailed(objectKey, err)
	}
	if err := dst.Close(); err != nil {
		return "", uploadFailed(objectKey, err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// Download copies an object out of storage.
func (l *LocalStorage) Download(ctx context.Context, objectKey, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	srcPath := l.fullPath(objectKey)
	if _, err := os.Stat(srcPath); os.IsNotExist(err) {
		return NotFound(objectKey)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return downloadFailed(objectKey, err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return downloadFailed(objectKey, err)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return downloadFailed(objectKey, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return downloadFailed(objectKey, err)
	}
	return dst.Close()
}

// Exists checks if an object exists in local storage.
func (l *LocalStorage) Exists(ctx context.Context, objectKey string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(l.fullPath(objectKey))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// fullPath returns the full filesystem path for an object.
func (l *LocalStorage) fullPath(objectKey string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(objectKey))
}
