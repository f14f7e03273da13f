package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/billpay/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func minioConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:          "billpay-receipts",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio-secret",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
	}
}

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		wantErr string
	}{
		{"nil config", nil, "configuration is required"},
		{"missing bucket", &config.StorageConfig{}, "bucket is required"},
		{"half credentials", &config.StorageConfig{Bucket: "b", AccessKeyID: "k"}, "must be set together"},
		{"relative endpoint", &config.StorageConfig{Bucket: "b", Endpoint: "localhost:9000"}, "invalid storage endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3ObjectStorage(ctx, tt.cfg)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewS3ObjectStorage_Defaults(t *testing.T) {
	s, err := NewS3ObjectStorage(context.Background(), minioConfig(), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, "billpay-receipts", s.Bucket())
	assert.Equal(t, defaultPresignExpiration, s.presignExpiration)

	s, err = NewS3ObjectStorage(context.Background(), minioConfig(), WithPresignExpiration(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, s.presignExpiration)
}

func TestS3ObjectStorage_PresignedURLs(t *testing.T) {
	s, err := NewS3ObjectStorage(context.Background(), minioConfig())
	require.NoError(t, err)
	ctx := context.Background()
	key := "tenants/t/payments/p/receipts/r.pdf"

	up, expiresAt, err := s.GenerateUploadURL(ctx, key, "application/pdf", 10*time.Minute)
	require.NoError(t, err)
	u, err := url.Parse(up)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.True(t, strings.HasPrefix(u.Path, "/billpay-receipts/tenants/t/payments/p/receipts/"), u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), expiresAt, 5*time.Second)

	down, _, err := s.GenerateDownloadURL(ctx, key, 0)
	require.NoError(t, err)
	d, err := url.Parse(down)
	require.NoError(t, err)
	assert.Equal(t, "900", d.Query().Get("X-Amz-Expires"), "falls back to the default expiry")

	_, _, err = s.GenerateUploadURL(ctx, "", "application/pdf", time.Minute)
	assert.ErrorIs(t, err, ErrKeyRequired)
	assert.ErrorIs(t, s.DeleteObject(ctx, ""), ErrKeyRequired)
}
