package storage

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func testConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:            "zone-reporting",
		AccessKey:         "test-key",
		SecretKey:         "test-secret",
		Region:            "eu-west-1",
		Endpoint:          "http://localhost:9000",
		UsePathStyle:      true,
		PresignExpiration: 15 * time.Minute,
	}
}

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	tests := []struct {
		name   string
		mutate func(c *config.StorageConfig)
		want   string
	}{
		{"missing bucket", func(c *config.StorageConfig) { c.Bucket = "" }, "bucket is required"},
		{"missing access key", func(c *config.StorageConfig) { c.AccessKey = "" }, "access key is required"},
		{"missing secret key", func(c *config.StorageConfig) { c.SecretKey = "" }, "secret key is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			_, err := NewS3ObjectStorage(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("valid config", func(t *testing.T) {
		s, err := NewS3ObjectStorage(testConfig())
		require.NoError(t, err)
		assert.Equal(t, "zone-reporting", s.Bucket())
		assert.Equal(t, 15*time.Minute, s.presignExpiration)
	})

	t.Run("endpoint without scheme", func(t *testing.T) {
		cfg := testConfig()
		cfg.Endpoint = "localhost:9000"
		cfg.UseSSL = true
		_, err := NewS3ObjectStorage(cfg)
		require.NoError(t, err)
	})

	t.Run("default presign expiration", func(t *testing.T) {
		cfg := testConfig()
		cfg.PresignExpiration = 0
		s, err := NewS3ObjectStorage(cfg)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, s.presignExpiration)
	})
}

func TestS3ObjectStorageOptions(t *testing.T) {
	s, err := NewS3ObjectStorage(testConfig(), WithLogger(zaptest.NewLogger(t)), WithPresignExpiration(time.Hour))
	require.NoError(t, err)
	assert.NotNil(t, s.logger)
	assert.Equal(t, time.Hour, s.presignExpiration)
}

func TestS3ObjectStorage_GenerateDownloadURL(t *testing.T) {
	s, err := NewS3ObjectStorage(testConfig())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("empty storage key", func(t *testing.T) {
		url, _, err := s.GenerateDownloadURL(ctx, "", time.Minute)
		require.Error(t, err)
		assert.Empty(t, url)
	})

	t.Run("presigned url", func(t *testing.T) {
		url, expiresAt, err := s.GenerateDownloadURL(ctx, "exports/report.xlsx", time.Hour)
		require.NoError(t, err)
		assert.True(t, strings.Contains(url, "localhost:9000"))
		assert.True(t, strings.Contains(url, "zone-reporting"))
		assert.True(t, expiresAt.After(time.Now().Add(59*time.Minute)))
	})

	t.Run("default expiration", func(t *testing.T) {
		_, expiresAt, err := s.GenerateDownloadURL(ctx, "exports/report.xlsx", 0)
		require.NoError(t, err)
		assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))
	})
}

func TestS3ObjectStorage_KeyValidation(t *testing.T) {
	s, err := NewS3ObjectStorage(testConfig())
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorContains(t, s.Upload(ctx, "", []byte("x"), "text/plain"), "storage key is required")
	_, err = s.Download(ctx, "")
	assert.ErrorContains(t, err, "storage key is required")
	assert.ErrorContains(t, s.DeleteObject(ctx, ""), "storage key is required")
}

// Runs against a MinIO compatible server when ZONE_TEST_S3_ENDPOINT is set
func TestIntegration_UploadDownloadDelete(t *testing.T) {
	endpoint := os.Getenv("ZONE_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("ZONE_TEST_S3_ENDPOINT not set")
	}
	cfg := testConfig()
	cfg.Endpoint = endpoint
	cfg.Bucket = "zone-integration"
	cfg.AccessKey = os.Getenv("ZONE_TEST_S3_ACCESS_KEY")
	cfg.SecretKey = os.Getenv("ZONE_TEST_S3_SECRET_KEY")

	s, err := NewS3ObjectStorage(cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.EnsureBucket(ctx))

	key := "integration/upload.txt"
	require.NoError(t, s.Upload(ctx, key, []byte("hello"), "text/plain"))
	got, err := s.Download(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	require.NoError(t, s.DeleteObject(ctx, key))
	_, err = s.Download(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
