package storage_test

import (
	"context"
	"errors"
	"testing"

	"feed-merger/core/storage"
	"feed-merger/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestNewClient(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		cfg := storage.Config{
			Endpoint:  "localhost:9000",
			AccessKey: "testkey",
			SecretKey: "testsecret",
			UseSSL:    false,
			Bucket:    "feeds",
			Region:    "us-east-1",
		}

		client, err := storage.NewClient(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("EndpointWithHTTP", func(t *testing.T) {
		cfg := storage.Config{
			Endpoint:  "http://localhost:9000",
			AccessKey: "testkey",
			SecretKey: "testsecret",
			UseSSL:    false,
		}

		client, err := storage.NewClient(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("EndpointWithHTTPS", func(t *testing.T) {
		cfg := storage.Config{
			Endpoint:  "https://s3.amazonaws.com",
			AccessKey: "testkey",
			SecretKey: "testsecret",
			UseSSL:    true,
			Region:    "us-east-1",
		}

		client, err := storage.NewClient(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})
}

func TestEnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("Exists", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "feeds").Return(true, nil)

		assert.NoError(t, storage.EnsureBucket(ctx, client, "feeds", ""))
		client.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Created", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "feeds").Return(false, nil)
		client.On("MakeBucket", ctx, "feeds", minio.MakeBucketOptions{Region: "eu-west-1"}).Return(nil)

		assert.NoError(t, storage.EnsureBucket(ctx, client, "feeds", "eu-west-1"))
		client.AssertExpectations(t)
	})

	t.Run("Unreachable", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "feeds").Return(false, errors.New("connection refused"))

		assert.Error(t, storage.EnsureBucket(ctx, client, "feeds", ""))
	})
}

func TestListArchives(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.Client)

	ch := make(chan minio.ObjectInfo, 3)
	ch <- minio.ObjectInfo{Key: "feeds/metro.zip"}
	ch <- minio.ObjectInfo{Key: "feeds/README.md"}
	ch <- minio.ObjectInfo{Key: "feeds/bus.ZIP"}
	close(ch)
	client.On("ListObjects", ctx, "feeds", minio.ListObjectsOptions{Prefix: "feeds/", Recursive: true}).
		Return((<-chan minio.ObjectInfo)(ch))

	names, err := storage.ListArchives(ctx, client, "feeds", "feeds/")
	assert.NoError(t, err)
	assert.Equal(t, []string{"feeds/bus.ZIP", "feeds/metro.zip"}, names)
}
