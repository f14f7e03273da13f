package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubObjectStorage(t *testing.T) {
	s := NewStubObjectStorage("")
	ctx := context.Background()
	key := "tenants/a/payments/b/receipts/c.pdf"

	up, expiresAt, err := s.GenerateUploadURL(ctx, key, "application/pdf", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, up, "http://localhost:8080/receipts/upload/"+key+"?expires=")
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)
	assert.True(t, s.Has(key))

	down, _, err := s.GenerateDownloadURL(ctx, key, 0)
	require.NoError(t, err)
	assert.Contains(t, down, "/download/"+key)

	require.NoError(t, s.DeleteObject(ctx, key))
	assert.False(t, s.Has(key))
}

func TestStubObjectStorage_EmptyKey(t *testing.T) {
	s := NewStubObjectStorage("https://files.test")
	ctx := context.Background()

	_, _, err := s.GenerateUploadURL(ctx, "", "image/png", time.Minute)
	assert.ErrorIs(t, err, ErrKeyRequired)
	_, _, err = s.GenerateDownloadURL(ctx, "", time.Minute)
	assert.ErrorIs(t, err, ErrKeyRequired)
	assert.ErrorIs(t, s.DeleteObject(ctx, ""), ErrKeyRequired)
}
