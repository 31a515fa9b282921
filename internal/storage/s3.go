package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Storage implements ObjectStorage for AWS S3 and S3-compatible stores.
type S3Storage struct {
	client     *s3.Client
	bucket     string
	maxRetries int
}

// S3Config holds configuration for S3 storage.
type S3Config struct {
	// Region is the AWS region for the S3 bucket.
	Region string
	// Endpoint is an optional custom endpoint (for MinIO, LocalStack, etc.).
	Endpoint string
	// UsePathStyle enables path-style addressing (required for MinIO).
	UsePathStyle bool
}

// DefaultS3Config returns the default S3 configuration.
func DefaultS3Config() S3Config {
	return S3Config{Region: "us-east-1"}
}

// NewS3Storage creates a new S3 storage client using the default AWS
// credential chain.
func NewS3Storage(ctx context.Context, bucket string, cfg S3Config) (*S3Storage, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3StorageWithClient(client, bucket), nil
}

// NewS3StorageWithClient creates a new S3 storage with a pre-configured client.
func NewS3StorageWithClient(client *s3.Client, bucket string) *S3Storage {
	return &S3Storage{
		client:     client,
		bucket:     bucket,
		maxRetries: 3,
	}
}

// Upload uploads a file to S3 and returns the ETag S3 reports.
func (s *S3Storage) Upload(ctx context.Context, localPath, objectKey string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", uploadFailed(objectKey, err)
	}
	defer file.Close()

	var etag string
	err = s.retryWithBackoff(ctx, objectKey, func() error {
		// Rewind for retries
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return err
		}
		resp, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(objectKey),
			Body:   file,
		})
		if err != nil {
			return err
		}
		etag = aws.ToString(resp.ETag)
		return nil
	})
	if err != nil {
		return "", uploadFailed(objectKey, err)
	}
	return etag, nil
}

// Download downloads an object from S3.
func (s *S3Storage) Download(ctx context.Context, objectKey, localPath string) error {
	var resp *s3.GetObjectOutput
	err := s.retryWithBackoff(ctx, objectKey, func() error {
		var getErr error
		resp, getErr = s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(objectKey),
		})
		return getErr
	})
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return err
		}
		return downloadFailed(objectKey, err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return downloadFailed(objectKey, err)
	}
	file, err := os.Create(localPath)
	if err != nil {
		return downloadFailed(objectKey, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return downloadFailed(objectKey, err)
	}
	return file.Close()
}

// Exists checks if an object exists in S3.
func (s *S3Storage) Exists(ctx context.Context, objectKey string) (bool, error) {
	var exists bool
	err := s.retryWithBackoff(ctx, objectKey, func() error {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(objectKey),
		})
		if err != nil {
			var nf *types.NotFound
			if errors.As(err, &nf) {
				exists = false
				return nil
			}
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

// retryWithBackoff executes the operation with exponential backoff retry.
// A missing key is final and is reported as an OBJECT_NOT_FOUND error naming
// objectKey.
func (s *S3Storage) retryWithBackoff(ctx context.Context, objectKey string, operation func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		var noSuchKey *types.NoSuchKey
		if errors.As(lastErr, &noSuchKey) {
			return NotFound(objectKey)
		}

		if attempt < s.maxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}
