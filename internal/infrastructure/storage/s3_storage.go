// Package storage keeps import sources, export files and error reports in
// S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	infraconfig "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

var _ core.ObjectStorage = (*S3ObjectStorage)(nil)

// ErrObjectNotFound is returned by Download when the key does not exist
var ErrObjectNotFound = errors.New("object not found")

// S3ObjectStorage implements core.ObjectStorage with the AWS SDK v2.
// Any S3-compatible backend works (AWS S3, MinIO, RustFS).
type S3ObjectStorage struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// S3ObjectStorageOption configures an S3ObjectStorage
type S3ObjectStorageOption func(*S3ObjectStorage)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3ObjectStorageOption {
	return func(s *S3ObjectStorage) {
		s.logger = logger
	}
}

// WithPresignExpiration overrides the default lifetime of download URLs
func WithPresignExpiration(d time.Duration) S3ObjectStorageOption {
	return func(s *S3ObjectStorage) {
		s.presignExpiration = d
	}
}

// NewS3ObjectStorage creates a storage client from configuration
func NewS3ObjectStorage(cfg *infraconfig.StorageConfig, opts ...S3ObjectStorageOption) (*S3ObjectStorage, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid storage endpoint: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "eu-west-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	storage := &S3ObjectStorage{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		presignExpiration: cfg.PresignExpiration,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(storage)
	}
	if storage.presignExpiration == 0 {
		storage.presignExpiration = 15 * time.Minute
	}
	return storage, nil
}

// EnsureBucket creates the bucket if it doesn't exist. Called at startup.
func (s *S3ObjectStorage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Upload stores data under storageKey
func (s *S3ObjectStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(storageKey),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	s.logger.Debug("Object uploaded", zap.String("key", storageKey), zap.Int("bytes", len(data)))
	return nil
}

// Download reads the whole object
func (s *S3ObjectStorage) Download(ctx context.Context, storageKey string) ([]byte, error) {
	if storageKey == "" {
		return nil, errors.New("storage key is required")
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, storageKey)
		}
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

// GenerateDownloadURL returns a presigned GET URL
func (s *S3ObjectStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = s.presignExpiration
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate download URL: %w", err)
	}
	return req.URL, time.Now().Add(expiresIn), nil
}

// DeleteObject removes an object
func (s *S3ObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Bucket returns the bucket name
func (s *S3ObjectStorage) Bucket() string {
	return s.bucket
}
